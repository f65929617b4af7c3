package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/nconklindev/sheetdiff/internal/diff"
	"github.com/nconklindev/sheetdiff/internal/loader"
	"github.com/nconklindev/sheetdiff/internal/log"
	"github.com/nconklindev/sheetdiff/internal/report"
	"github.com/nconklindev/sheetdiff/internal/table"
)

func diffCommandBuilder() *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "report the cells where two sheets disagree",
		ArgsUsage: "SOURCE TARGET",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output format: " + strings.Join(report.Formats(), ", "),
				Value:   string(report.FormatTable),
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "also write an .xlsx report to this path (\"-\" for SOURCE_mismatches.xlsx)",
			},
			&cli.BoolFlag{
				Name:  "fail-on-mismatch",
				Usage: "exit with status 1 when mismatches are found",
			},
		},
		Action: diffCommandAction,
	}
}

func diffCommandAction(ctx context.Context, cmd *cli.Command) error {
	sourcePath, targetPath, err := pairArgs(cmd, 0)
	if err != nil {
		return err
	}

	format, err := report.ParseFormat(cmd.String("output"))
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	closer, err := initLogging(cfg, cmd.Root().ErrWriter)
	if err != nil {
		return err
	}
	defer closer.Close()

	src, tgt, err := loadPair(ctx, sourcePath, targetPath, loaderOptions(cfg))
	if err != nil {
		return err
	}

	res, err := diff.Compare(src, tgt, diffOptions(cfg)...)
	if err != nil {
		return err
	}
	log.WithField("mismatches", len(res.Mismatches)).Debug("comparison finished")

	if err := report.Render(cmd.Root().Writer, res, format); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if path := cmd.String("report"); path != "" {
		if path == "-" {
			path = report.DefaultPath(sourcePath, ".xlsx")
		}
		if err := report.SaveXLSX(path, res); err != nil {
			return err
		}
		log.Infof("report written to %s", path)
	}

	if cmd.Bool("fail-on-mismatch") && len(res.Mismatches) > 0 {
		return ErrMismatchesFound
	}
	return nil
}

// loadPair opens both files and loads them concurrently.
func loadPair(ctx context.Context, sourcePath, targetPath string, opts loader.Options) (*table.Dataset, *table.Dataset, error) {
	src, err := openInput(sourcePath)
	if err != nil {
		return nil, nil, err
	}
	defer src.close()

	tgt, err := openInput(targetPath)
	if err != nil {
		return nil, nil, err
	}
	defer tgt.close()

	return loader.ReadPair(ctx, src.input, tgt.input, opts)
}
