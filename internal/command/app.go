package command

import (
	"sort"

	"github.com/urfave/cli/v3"
)

// InitApp builds the sheetdiff command tree. Without a subcommand it starts
// the terminal UI.
func InitApp(version string) *cli.Command {
	app := &cli.Command{
		Name:        "sheetdiff",
		Usage:       "Compare two spreadsheets and ask questions about the differences",
		Version:     version,
		HideVersion: true,
		ArgsUsage:   "[SOURCE TARGET]",
		Flags:       globalFlags(),
		Action:      tuiCommandAction,
	}

	app.Commands = append(app.Commands,
		diffCommandBuilder(),
		askCommandBuilder(),
		serveCommandBuilder(),
	)

	// Make sure flags are sorted for the --help text.
	sortFlags(app)
	for _, cmd := range app.Commands {
		sortFlags(cmd)
	}

	return app
}

func sortFlags(cmd *cli.Command) {
	sort.Slice(cmd.Flags, func(i, j int) bool {
		return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
	})
}
