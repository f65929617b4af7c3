package command

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/nconklindev/sheetdiff/internal/chat"
	"github.com/nconklindev/sheetdiff/internal/config"
	"github.com/nconklindev/sheetdiff/internal/diff"
	"github.com/nconklindev/sheetdiff/internal/llm"
	"github.com/nconklindev/sheetdiff/internal/loader"
	"github.com/nconklindev/sheetdiff/internal/log"
)

// ErrMismatchesFound is returned by diff --fail-on-mismatch when the sheets
// disagree.
var ErrMismatchesFound = errors.New("mismatches found")

// loadConfig layers command line flags over the file and environment
// configuration.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("sheet") {
		cfg.Loader.Sheet = cmd.String("sheet")
	}
	if cmd.Bool("raw-text") {
		cfg.Loader.InferTypes = false
	}
	if cmd.Bool("tolerant") {
		cfg.Diff.Tolerant = true
	}
	if cmd.Bool("trim-space") {
		cfg.Diff.TrimSpace = true
	}
	if cmd.Bool("fold-case") {
		cfg.Diff.FoldCase = true
	}
	if cmd.IsSet("epsilon") {
		cfg.Diff.Epsilon = cmd.Float("epsilon")
	}
	if cmd.Bool("unify-numeric") {
		cfg.Diff.UnifyNumeric = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initLogging points the logger at the configured file, or at fallback when
// no file is set. The returned closer is never nil.
func initLogging(cfg *config.Config, fallback io.Writer) (io.Closer, error) {
	if cfg.Log.File == "" {
		log.Init(cfg.Log.Level, fallback)
		return io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.Init(cfg.Log.Level, f)
	return f, nil
}

func loaderOptions(cfg *config.Config) loader.Options {
	opts := loader.DefaultOptions()
	opts.Sheet = cfg.Loader.Sheet
	opts.InferTypes = cfg.Loader.InferTypes
	return opts
}

// diffOptions returns the strict comparison unless tolerance was asked for.
func diffOptions(cfg *config.Config) []diff.Option {
	if !cfg.Diff.Tolerant {
		return nil
	}
	log.WithFields(map[string]interface{}{
		"trim_space":    cfg.Diff.TrimSpace,
		"fold_case":     cfg.Diff.FoldCase,
		"epsilon":       cfg.Diff.Epsilon,
		"unify_numeric": cfg.Diff.UnifyNumeric,
	}).Info("tolerant comparison enabled")

	return []diff.Option{diff.WithEquality(diff.Tolerant(diff.Tolerance{
		TrimSpace:    cfg.Diff.TrimSpace,
		FoldCase:     cfg.Diff.FoldCase,
		Epsilon:      cfg.Diff.Epsilon,
		UnifyNumeric: cfg.Diff.UnifyNumeric,
	}))}
}

// newAssistant returns nil when no API key is configured.
func newAssistant(cfg *config.Config) (*chat.Assistant, error) {
	if !cfg.AI.Enabled() {
		log.Debugf("no API key configured, assistant disabled")
		return nil, nil
	}

	client, err := llm.NewOpenAIClient(llm.Config{
		APIKey:     cfg.AI.APIKey,
		BaseURL:    cfg.AI.BaseURL,
		Timeout:    cfg.AI.Timeout,
		MaxRetries: cfg.AI.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	return chat.NewAssistant(client, chat.Settings{
		Model:             cfg.AI.Model,
		AnswerMaxTokens:   cfg.AI.AnswerMaxTokens,
		FollowUpMaxTokens: cfg.AI.FollowUpMaxTokens,
		Temperature:       cfg.AI.Temperature,
		MaxPromptRows:     cfg.AI.MaxPromptRows,
	}), nil
}

// pairArgs returns the SOURCE and TARGET positional arguments.
func pairArgs(cmd *cli.Command, extra int) (string, string, error) {
	if cmd.Args().Len() != 2+extra {
		return "", "", fmt.Errorf("expected %d arguments, got %d (usage: %s %s)",
			2+extra, cmd.Args().Len(), cmd.FullName(), cmd.ArgsUsage)
	}
	return cmd.Args().Get(0), cmd.Args().Get(1), nil
}
