package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nconklindev/sheetdiff/internal/diff"
	"github.com/nconklindev/sheetdiff/internal/table"
	"github.com/nconklindev/sheetdiff/internal/types"
)

func writeCSV(t *testing.T, dir, name string, records [][]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(records))
	require.NoError(t, f.Close())
	return path
}

func writeXLSX(t *testing.T, dir, name string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

// writeStyledXLSX writes header in A1 and values below it, every value cell
// carrying style.
func writeStyledXLSX(t *testing.T, dir, name, header string, style *excelize.Style, values ...any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	styleID, err := f.NewStyle(style)
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Sheet1", "A1", header))
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		require.NoError(t, f.SetCellStyle("Sheet1", cell, cell, styleID))
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestInferValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected table.Value
	}{
		{"Integer", "42", table.Int(42)},
		{"Negative integer", "-7", table.Int(-7)},
		{"Float", "20.5", table.Float(20.5)},
		{"Exponent", "1e3", table.Float(1000)},
		{"Bool upper", "TRUE", table.Bool(true)},
		{"Bool mixed", "False", table.Bool(false)},
		{"ISO date", "2024-01-15", table.Time(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))},
		{"US date", "01/15/2024", table.Time(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))},
		{"Excel short date", "01-15-24", table.Time(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))},
		{"Text", "hello", table.Text("hello")},
		{"Text keeps whitespace", "  hi ", table.Text("  hi ")},
		{"Inf stays text", "inf", table.Text("inf")},
		{"Hex stays text", "0x1p-2", table.Text("0x1p-2")},
		{"Padded number", " 5 ", table.Int(5)},
		{"Trailing zeros", "1.50", table.Float(1.5)},
		{"Integer beyond int64", "12345678901234567890", table.Text("12345678901234567890")},
		{"Negative integer beyond int64", "-99999999999999999999", table.Text("-99999999999999999999")},
		{"Digits beyond float64", "0.10000000000000001", table.Text("0.10000000000000001")},
		{"Long mantissa", "3.14159265358979323846", table.Text("3.14159265358979323846")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferValue(tt.input)
			assert.True(t, tt.expected.Equal(got), "InferValue(%q) = %v (%s); want %v (%s)",
				tt.input, got, got.Kind(), tt.expected, tt.expected.Kind())
		})
	}
}

func TestNormalizeHeaders(t *testing.T) {
	tests := []struct {
		name     string
		raw      []string
		width    int
		expected []string
	}{
		{"Plain", []string{"id", "name"}, 2, []string{"id", "name"}},
		{"Trimmed", []string{" id ", "name"}, 2, []string{"id", "name"}},
		{"Blank", []string{"id", ""}, 2, []string{"id", "Unnamed: 1"}},
		{"Missing", []string{"id"}, 3, []string{"id", "Unnamed: 1", "Unnamed: 2"}},
		{"Repeats", []string{"a", "a", "a"}, 3, []string{"a", "a.1", "a.2"}},
		{"Repeat collides with real header", []string{"a", "a", "a.1"}, 3, []string{"a", "a.1", "a.1.1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeHeaders(tt.raw, tt.width))
		})
	}
}

func TestFindHeaderRow(t *testing.T) {
	tests := []struct {
		name     string
		rows     [][]string
		expected int
	}{
		{"First row", [][]string{{"a", "b"}, {"1", "2"}}, 0},
		{"Skips blank rows", [][]string{{}, {"", " "}, {"a"}, {"1"}}, 2},
		{"All blank", [][]string{{}, {""}}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, findHeaderRow(tt.rows))
		})
	}
}

func TestReadFileCSV(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "source.csv", [][]string{
		{"id", "amount", "active", "note"},
		{"1", "10", "true", "first"},
		{"2", "20.5", "false", "NA"},
		{"3", "", "TRUE"},
	})

	ds, err := ReadFile(path, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "amount", "active", "note"}, ds.ColumnNames())
	assert.Equal(t, 3, ds.NumRows())

	amount, _ := ds.Column("amount")
	assert.True(t, amount.Values[0].Equal(table.Int(10)))
	assert.True(t, amount.Values[1].Equal(table.Float(20.5)))
	assert.True(t, amount.Values[2].IsNull())

	note, _ := ds.Column("note")
	assert.True(t, note.Values[1].IsNull(), "NA marker is null")
	assert.True(t, note.Values[2].IsNull(), "short row is padded")
}

func TestReadCSVWithoutInference(t *testing.T) {
	opts := DefaultOptions()
	opts.InferTypes = false

	ds, err := Read(strings.NewReader("id,flag\n1,true\n,x\n"), "data.csv", opts)
	require.NoError(t, err)

	id, _ := ds.Column("id")
	assert.True(t, id.Values[0].Equal(table.Text("1")))
	assert.True(t, id.Values[1].IsNull())
}

func TestReadCSVStripsBOM(t *testing.T) {
	ds, err := Read(strings.NewReader("\ufeffid,name\n1,a\n"), "bom.csv", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, ds.ColumnNames())
}

func TestReadCSVWideRow(t *testing.T) {
	ds, err := Read(strings.NewReader("id\n1,extra\n2\n"), "wide.csv", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "Unnamed: 1"}, ds.ColumnNames())

	extra, _ := ds.Column("Unnamed: 1")
	assert.True(t, extra.Values[0].Equal(table.Text("extra")))
	assert.True(t, extra.Values[1].IsNull())
}

func TestReadFileXLSX(t *testing.T) {
	path := writeXLSX(t, t.TempDir(), "target.xlsx", [][]any{
		{"amount", "flag", "name"},
		{10, true, "alice"},
		{21, nil, "bob"},
		{nil, false, nil},
	})

	ds, err := ReadFile(path, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"amount", "flag", "name"}, ds.ColumnNames())
	require.Equal(t, 3, ds.NumRows())

	amount, _ := ds.Column("amount")
	assert.True(t, amount.Values[1].Equal(table.Int(21)))
	assert.True(t, amount.Values[2].IsNull())

	flag, _ := ds.Column("flag")
	assert.True(t, flag.Values[0].Equal(table.Bool(true)))
	assert.True(t, flag.Values[1].IsNull())
	assert.True(t, flag.Values[2].Equal(table.Bool(false)))
}

func TestReadXLSXSheetSelection(t *testing.T) {
	f := excelize.NewFile()
	_, err := f.NewSheet("Second")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"first"}))
	require.NoError(t, f.SetSheetRow("Second", "A1", &[]any{"second"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	opts := DefaultOptions()
	opts.Sheet = "Second"
	data, err := ReadData(bytes.NewReader(buf.Bytes()), "book.xlsx", opts.Sheet)
	require.NoError(t, err)
	assert.Equal(t, "Second", data.Sheet)
	assert.Equal(t, []string{"second"}, data.Headers)

	_, err = ReadData(bytes.NewReader(buf.Bytes()), "book.xlsx", "Missing")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(strings.NewReader("a,b"), "data.txt", DefaultOptions())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Read(strings.NewReader("\n\n"), "empty.csv", DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"), DefaultOptions())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuildReportsProgress(t *testing.T) {
	progress := make(chan float64, 10)
	opts := DefaultOptions()
	opts.Progress = progress

	_, err := Build(&types.FileData{
		Headers: []string{"x"},
		Rows:    [][]string{{"1"}, {"2"}},
	}, opts)
	require.NoError(t, err)
	close(progress)

	var got []float64
	for p := range progress {
		got = append(got, p)
	}
	assert.Equal(t, []float64{0, 0.5, 1}, got)
}

func TestReadPair(t *testing.T) {
	src, tgt, err := ReadPair(context.Background(),
		Input{Name: "a.csv", Reader: strings.NewReader("x\n1\n")},
		Input{Name: "b.csv", Reader: strings.NewReader("x\n2\n")},
		DefaultOptions(),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, src.NumRows())
	assert.Equal(t, 1, tgt.NumRows())

	_, _, err = ReadPair(context.Background(),
		Input{Name: "a.csv", Reader: strings.NewReader("x\n1\n")},
		Input{Name: "b.pdf", Reader: strings.NewReader("")},
		DefaultOptions(),
	)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "target b.pdf")
}

func TestReadPairCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := ReadPair(ctx,
		Input{Name: "a.csv", Reader: strings.NewReader("x\n1\n")},
		Input{Name: "b.csv", Reader: strings.NewReader("x\n1\n")},
		DefaultOptions(),
	)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSupportedExtension(t *testing.T) {
	assert.True(t, SupportedExtension("a.CSV"))
	assert.True(t, SupportedExtension("b.xlsx"))
	assert.False(t, SupportedExtension("c.xls"))
	assert.False(t, SupportedExtension("noext"))
}

func TestReadCSVKeepsPrecision(t *testing.T) {
	src, err := Read(strings.NewReader("id,ratio\n12345678901234567890,0.10000000000000001\n"), "source.csv", DefaultOptions())
	require.NoError(t, err)
	tgt, err := Read(strings.NewReader("id,ratio\n12345678901234567891,0.1\n"), "target.csv", DefaultOptions())
	require.NoError(t, err)

	mismatches, err := diff.FindMismatches(src, tgt)
	require.NoError(t, err)
	require.Len(t, mismatches, 2)
	assert.Equal(t, "id", mismatches[0].Column)
	assert.Equal(t, "ratio", mismatches[1].Column)
}

func TestReadXLSXStoredNumbers(t *testing.T) {
	dir := t.TempDir()
	twoPlaces := &excelize.Style{NumFmt: 2} // 0.00
	source := writeStyledXLSX(t, dir, "source.xlsx", "amount", twoPlaces, 10.004, 7)
	target := writeStyledXLSX(t, dir, "target.xlsx", "amount", twoPlaces, 9.996, 7)

	src, err := ReadFile(source, DefaultOptions())
	require.NoError(t, err)
	tgt, err := ReadFile(target, DefaultOptions())
	require.NoError(t, err)

	amount, _ := src.Column("amount")
	assert.True(t, amount.Values[0].Equal(table.Float(10.004)), "got %v", amount.Values[0])
	assert.True(t, amount.Values[1].Equal(table.Int(7)), "got %v", amount.Values[1])

	mismatches, err := diff.FindMismatches(src, tgt)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, 0, mismatches[0].Row)
}

func TestReadXLSXIgnoresDisplayFormats(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		style    *excelize.Style
		value    any
		expected table.Value
	}{
		{"Percent", &excelize.Style{NumFmt: 10}, 0.125, table.Float(0.125)},
		{"Thousands", &excelize.Style{NumFmt: 3}, 1234567, table.Int(1234567)},
		{"Scientific", &excelize.Style{NumFmt: 11}, 0.00042, table.Float(0.00042)},
		{"Built-in date", &excelize.Style{NumFmt: 14}, 45292, table.Time(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))},
		{"Built-in date time", &excelize.Style{NumFmt: 22}, 45292.5, table.Time(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))},
		{"Custom date", &excelize.Style{CustomNumFmt: ptr("yyyy-mm-dd hh:mm")}, 45292.5, table.Time(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))},
		{"Custom number", &excelize.Style{CustomNumFmt: ptr(`#,##0.0 "units"`)}, 2.25, table.Float(2.25)},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeStyledXLSX(t, dir, fmt.Sprintf("styled%d.xlsx", i), "v", tt.style, tt.value)

			ds, err := ReadFile(path, DefaultOptions())
			require.NoError(t, err)
			col, _ := ds.Column("v")
			got := col.Values[0]
			assert.True(t, tt.expected.Equal(got), "got %v (%s); want %v (%s)", got, got.Kind(), tt.expected, tt.expected.Kind())
		})
	}
}

func TestReadXLSXTimeValues(t *testing.T) {
	when := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	path := writeXLSX(t, t.TempDir(), "times.xlsx", [][]any{
		{"when"},
		{when},
	})

	ds, err := ReadFile(path, DefaultOptions())
	require.NoError(t, err)
	col, _ := ds.Column("when")
	assert.True(t, col.Values[0].Equal(table.Time(when)), "got %v (%s)", col.Values[0], col.Values[0].Kind())
}

func TestReadXLSXNumberAgainstText(t *testing.T) {
	dir := t.TempDir()
	plain := &excelize.Style{}
	source := writeStyledXLSX(t, dir, "source.xlsx", "code", plain, 5, "TRUE")
	target := writeStyledXLSX(t, dir, "target.xlsx", "code", plain, "5", true)

	src, err := ReadFile(source, DefaultOptions())
	require.NoError(t, err)
	tgt, err := ReadFile(target, DefaultOptions())
	require.NoError(t, err)

	srcCol, _ := src.Column("code")
	tgtCol, _ := tgt.Column("code")
	assert.True(t, srcCol.Values[0].Equal(table.Int(5)))
	assert.True(t, tgtCol.Values[0].Equal(table.Text("5")), "text cells stay text")
	assert.True(t, srcCol.Values[1].Equal(table.Text("TRUE")))
	assert.True(t, tgtCol.Values[1].Equal(table.Bool(true)))

	mismatches, err := diff.FindMismatches(src, tgt)
	require.NoError(t, err)
	assert.Len(t, mismatches, 2)
}

func TestReadXLSXRawText(t *testing.T) {
	path := writeStyledXLSX(t, t.TempDir(), "raw.xlsx", "amount", &excelize.Style{NumFmt: 2}, 10.004)
	opts := DefaultOptions()
	opts.InferTypes = false

	ds, err := ReadFile(path, opts)
	require.NoError(t, err)
	col, _ := ds.Column("amount")
	assert.True(t, col.Values[0].Equal(table.Text("10.004")))
}

func TestDateFormatCode(t *testing.T) {
	tests := []struct {
		code     string
		expected bool
	}{
		{"General", false},
		{"0.00", false},
		{"#,##0.00;[Red]-#,##0.00", false},
		{`0.0 "days"`, false},
		{`0\d`, false},
		{"yyyy-mm-dd", true},
		{"d/m/yy h:mm", true},
		{"[$-409]mmmm d, yyyy", true},
		{"[h]:mm:ss", true},
		{"hh:mm AM/PM", true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, dateFormatCode(tt.code))
		})
	}
}

func ptr(s string) *string { return &s }
