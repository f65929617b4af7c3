package command

import "github.com/urfave/cli/v3"

// globalFlags apply to every subcommand.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "YAML configuration file",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "log level (debug, info, warn, error)",
		},
		&cli.StringFlag{
			Name:  "sheet",
			Usage: "worksheet to read from Excel files (default: first sheet)",
		},
		&cli.BoolFlag{
			Name:  "raw-text",
			Usage: "read every cell as text instead of inferring numbers, booleans and dates",
		},
		&cli.BoolFlag{
			Name:  "tolerant",
			Usage: "compare with whitespace, case and numeric tolerance (changes results)",
		},
		&cli.BoolFlag{
			Name:  "trim-space",
			Usage: "with --tolerant, ignore leading and trailing whitespace in text",
		},
		&cli.BoolFlag{
			Name:  "fold-case",
			Usage: "with --tolerant, ignore letter case in text",
		},
		&cli.FloatFlag{
			Name:  "epsilon",
			Usage: "with --tolerant, largest numeric difference still counted as equal",
		},
		&cli.BoolFlag{
			Name:  "unify-numeric",
			Usage: "with --tolerant, compare integers and floats by value",
		},
	}
}
