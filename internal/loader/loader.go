package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nconklindev/sheetdiff/internal/table"
	"github.com/nconklindev/sheetdiff/internal/types"

	"golang.org/x/sync/errgroup"
)

const RowDetectionLimit = 10

var (
	ErrUnsupportedFormat = errors.New("unsupported file type")
	ErrEmptyFile         = errors.New("empty file")
	ErrNoHeader          = errors.New("could not find header row")
	ErrSheetNotFound     = errors.New("sheet not found")
)

// DefaultNAValues are the cell texts read as missing values.
var DefaultNAValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// dateLayouts are tried in order when inferring date/time cells.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006",
	"1/2/06 15:04",
	"1/2/06",
	"01-02-06",
}

// Options control how a spreadsheet becomes a dataset.
type Options struct {
	// Sheet selects a worksheet by name; empty means the first sheet.
	Sheet string
	// InferTypes turns cell text into booleans, numbers and dates. When off,
	// every non-missing cell is text.
	InferTypes bool
	// NAValues are the exact cell texts treated as null.
	NAValues []string
	// Progress, if set, receives the fraction of rows built. Sends never block.
	Progress chan<- float64
}

func DefaultOptions() Options {
	return Options{
		InferTypes: true,
		NAValues:   DefaultNAValues,
	}
}

// Input is one named spreadsheet stream. The name's extension picks the format.
type Input struct {
	Name   string
	Reader io.Reader
}

// ReadFile loads the spreadsheet at path into a dataset.
func ReadFile(path string, opts Options) (*table.Dataset, error) {
	data, err := ReadFileData(path, opts.Sheet)
	if err != nil {
		return nil, err
	}
	return Build(data, opts)
}

// Read loads a spreadsheet stream into a dataset.
func Read(r io.Reader, name string, opts Options) (*table.Dataset, error) {
	data, err := ReadData(r, name, opts.Sheet)
	if err != nil {
		return nil, err
	}
	return Build(data, opts)
}

// ReadPair loads source and target concurrently and returns the first error.
// Options.Progress is ignored; progress from two files on one channel would
// not mean anything.
func ReadPair(ctx context.Context, source, target Input, opts Options) (*table.Dataset, *table.Dataset, error) {
	opts.Progress = nil

	var src, tgt *table.Dataset
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ds, err := readInput(ctx, source, opts)
		if err != nil {
			return fmt.Errorf("source %s: %w", source.Name, err)
		}
		src = ds
		return nil
	})
	g.Go(func() error {
		ds, err := readInput(ctx, target, opts)
		if err != nil {
			return fmt.Errorf("target %s: %w", target.Name, err)
		}
		tgt = ds
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return src, tgt, nil
}

func readInput(ctx context.Context, in Input, opts Options) (*table.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := ReadData(in.Reader, in.Name, opts.Sheet)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Build(data, opts)
}

// ReadFileData reads the raw header and rows from a file
func ReadFileData(filePath string, sheet string) (*types.FileData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadData(file, filePath, sheet)
}

// ReadData reads the raw header and rows from a stream
func ReadData(r io.Reader, name string, sheet string) (*types.FileData, error) {
	ext := strings.ToLower(filepath.Ext(name))

	var (
		data *types.FileData
		err  error
	)
	switch ext {
	case ".csv":
		data, err = readCSVData(r)
	case ".xlsx", ".xlsm":
		data, err = readXLSXData(r, sheet)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	data.Name = filepath.Base(name)
	return data, nil
}

// SupportedExtension reports whether name has an extension the loader reads.
func SupportedExtension(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx", ".xlsm":
		return true
	}
	return false
}

func readCSVData(r io.Reader) (*types.FileData, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}

	return splitHeader(records)
}

// splitHeader separates the header row from the data rows. Trailing blank
// rows are dropped; blank rows between data rows are kept so row positions
// still line up with the sheet.
func splitHeader(rows [][]string) (*types.FileData, error) {
	for len(rows) > 0 && blankRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	headerRowIdx := findHeaderRow(rows)
	if headerRowIdx == -1 {
		return nil, ErrNoHeader
	}

	return &types.FileData{
		Headers:   rows[headerRowIdx],
		Rows:      rows[headerRowIdx+1:],
		HeaderRow: headerRowIdx,
	}, nil
}

// findHeaderRow returns the first non-blank row among the first
// 2*RowDetectionLimit rows, or -1.
func findHeaderRow(rows [][]string) int {
	searchLimit := min(len(rows), RowDetectionLimit*2)

	for i := 0; i < searchLimit; i++ {
		if !blankRow(rows[i]) {
			return i
		}
	}

	return -1
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Build turns raw file data into a validated dataset.
func Build(data *types.FileData, opts Options) (*table.Dataset, error) {
	width := len(data.Headers)
	for _, row := range data.Rows {
		width = max(width, len(row))
	}

	headers := normalizeHeaders(data.Headers, width)
	na := make(map[string]struct{}, len(opts.NAValues))
	for _, v := range opts.NAValues {
		na[v] = struct{}{}
	}

	columns := make([]table.Column, width)
	for i := range columns {
		columns[i] = table.Column{Name: headers[i], Values: make([]table.Value, len(data.Rows))}
	}

	totalRows := len(data.Rows)
	for r, row := range data.Rows {
		if opts.Progress != nil && totalRows > 0 {
			select {
			case opts.Progress <- float64(r) / float64(totalRows):
			default:
			}
		}

		for c := range columns {
			if c >= len(row) {
				continue // padded with null
			}
			columns[c].Values[r] = parseCell(row[c], data.Kind(r, c), na, opts.InferTypes)
		}
	}

	if opts.Progress != nil {
		select {
		case opts.Progress <- 1:
		default:
		}
	}

	ds, err := table.NewDataset(columns...)
	if err != nil {
		return nil, fmt.Errorf("build dataset from %s: %w", data.Name, err)
	}
	return ds, nil
}

// normalizeHeaders trims header names, names blank or missing headers
// "Unnamed: <i>" and suffixes repeats with .1, .2, ...
func normalizeHeaders(raw []string, width int) []string {
	out := make([]string, width)
	used := make(map[string]bool, width)
	repeats := make(map[string]int)

	for i := range out {
		name := ""
		if i < len(raw) {
			name = strings.TrimSpace(raw[i])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}

		if used[name] {
			base := name
			for used[name] {
				repeats[base]++
				name = fmt.Sprintf("%s.%d", base, repeats[base])
			}
		}

		used[name] = true
		out[i] = name
	}

	return out
}

func parseCell(raw string, kind types.CellKind, na map[string]struct{}, infer bool) table.Value {
	if _, missing := na[raw]; missing {
		return table.Null()
	}
	if !infer {
		return table.Text(raw)
	}

	switch kind {
	case types.CellText:
		return table.Text(raw)
	case types.CellBool:
		return table.Bool(raw == "TRUE")
	case types.CellDate:
		if t, err := time.Parse(cellTimeLayout, raw); err == nil {
			return table.Time(t)
		}
		return table.Text(raw)
	case types.CellNumber:
		// Stored numbers are doubles already, so parsing them loses nothing.
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return table.Int(i)
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return table.Float(f)
		}
		return table.Text(raw)
	}
	return InferValue(raw)
}

// InferValue types a single non-missing cell text. Text cells keep their
// original spelling, surrounding whitespace included. Numbers that cannot be
// held exactly stay text.
func InferValue(raw string) table.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return table.Text(raw)
	}

	switch strings.ToLower(s) {
	case "true":
		return table.Bool(true)
	case "false":
		return table.Bool(false)
	}

	if v, ok := inferNumber(s); ok {
		return v
	}
	if looksNumeric(s) {
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return table.Text(raw)
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return table.Time(t)
		}
	}

	return table.Text(raw)
}

// inferNumber parses s as an int64 or as a float64 that keeps every
// significant digit of s. Integers outside the int64 range are rejected.
func inferNumber(s string) (table.Value, bool) {
	i, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return table.Int(i), true
	}
	if errors.Is(err, strconv.ErrRange) {
		return table.Value{}, false
	}
	if !looksNumeric(s) {
		return table.Value{}, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return table.Value{}, false
	}
	if significand(s) != significand(strconv.FormatFloat(f, 'g', -1, 64)) {
		return table.Value{}, false
	}
	return table.Float(f), true
}

// significand returns the significant digits of a decimal number, without
// sign, point, exponent, or leading and trailing zeros.
func significand(s string) string {
	if i := strings.IndexAny(s, "eE"); i != -1 {
		s = s[:i]
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	return strings.Trim(digits, "0")
}

// looksNumeric rejects the words ParseFloat accepts ("inf", "infinity",
// hex floats) so they stay text.
func looksNumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return false
		}
	}
	return true
}
