package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/nconklindev/sheetdiff/internal/diff"
)

const (
	summarySheet    = "Summary"
	mismatchesSheet = "Mismatches"
)

// WriteXLSX writes res as a workbook with a Summary and a Mismatches sheet.
func WriteXLSX(w io.Writer, res *diff.Result) error {
	f, err := buildWorkbook(res)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveXLSX writes the workbook for res to path.
func SaveXLSX(path string, res *diff.Result) error {
	f, err := buildWorkbook(res)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func buildWorkbook(res *diff.Result) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(mismatchesSheet); err != nil {
		f.Close()
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := writeSummary(f, res, bold); err != nil {
		f.Close()
		return nil, fmt.Errorf("write summary: %w", err)
	}
	if err := writeMismatches(f, res, bold); err != nil {
		f.Close()
		return nil, fmt.Errorf("write mismatches: %w", err)
	}
	return f, nil
}

func writeSummary(f *excelize.File, res *diff.Result, bold int) error {
	rows := [][]any{
		{"Schema match", res.SchemaMatch},
		{"Common columns", list(res.CommonColumns)},
		{"Only in source", list(res.SourceOnly)},
		{"Only in target", list(res.TargetOnly)},
		{"Source rows", res.SourceRows},
		{"Target rows", res.TargetRows},
		{"Compared rows", res.ComparedRows},
		{"Mismatches", len(res.Mismatches)},
		{},
		{"Column", "Mismatches"},
	}
	for _, c := range CountsByColumn(res) {
		rows = append(rows, []any{c.Column, c.Count})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "B10", "B10", bold); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "A", "A", 18)
}

func writeMismatches(f *excelize.File, res *diff.Result, bold int) error {
	if err := f.SetSheetRow(mismatchesSheet, "A1", &[]any{"column", "row_index", "source_value", "target_value"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(mismatchesSheet, "A1", "D1", bold); err != nil {
		return err
	}

	for i, m := range res.Mismatches {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{m.Column, m.Row, m.Source.Interface(), m.Target.Interface()}
		if err := f.SetSheetRow(mismatchesSheet, cell, &row); err != nil {
			return err
		}
	}

	return f.SetColWidth(mismatchesSheet, "A", "D", 16)
}
