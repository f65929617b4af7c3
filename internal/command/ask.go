package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/nconklindev/sheetdiff/internal/chat"
	"github.com/nconklindev/sheetdiff/internal/diff"
)

func askCommandBuilder() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "ask the assistant one question about two sheets",
		ArgsUsage: "SOURCE TARGET QUESTION",
		Action:    askCommandAction,
	}
}

func askCommandAction(ctx context.Context, cmd *cli.Command) error {
	sourcePath, targetPath, err := pairArgs(cmd, 1)
	if err != nil {
		return err
	}
	question := cmd.Args().Get(2)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	closer, err := initLogging(cfg, cmd.Root().ErrWriter)
	if err != nil {
		return err
	}
	defer closer.Close()

	assistant, err := newAssistant(cfg)
	if err != nil {
		return err
	}
	if assistant == nil {
		return fmt.Errorf("%w: set OPENAI_API_KEY", chat.ErrAssistantUnavailable)
	}

	src, tgt, err := loadPair(ctx, sourcePath, targetPath, loaderOptions(cfg))
	if err != nil {
		return err
	}
	res, err := diff.Compare(src, tgt, diffOptions(cfg)...)
	if err != nil {
		return err
	}

	ex, err := assistant.Ask(ctx, chat.NewConversation(), chat.Subject{Source: src, Target: tgt, Result: res}, question)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	fmt.Fprintln(w, strings.TrimSpace(ex.Answer))
	if ex.FollowUp != "" {
		fmt.Fprintf(w, "\nFollow-up: %s\n", ex.FollowUp)
	}
	return nil
}
