package command

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/nconklindev/sheetdiff/internal/types"
	"github.com/nconklindev/sheetdiff/internal/ui"
)

// tuiCommandAction starts the terminal UI, optionally with SOURCE and TARGET
// already chosen.
func tuiCommandAction(ctx context.Context, cmd *cli.Command) error {
	var files types.ComparisonFiles
	switch cmd.Args().Len() {
	case 0:
	case 2:
		files = types.ComparisonFiles{Source: cmd.Args().Get(0), Target: cmd.Args().Get(1)}
	default:
		return fmt.Errorf("expected no arguments or SOURCE TARGET, got %d", cmd.Args().Len())
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Logs would draw over the screen, so they go to the log file or nowhere.
	closer, err := initLogging(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer closer.Close()

	assistant, err := newAssistant(cfg)
	if err != nil {
		return err
	}

	model := ui.InitialModel(ui.Options{
		Loader:    loaderOptions(cfg),
		Diff:      diffOptions(cfg),
		Assistant: assistant,
		Files:     files,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}
