// Package report renders comparison results for people and other programs.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/nconklindev/sheetdiff/internal/diff"
)

// Format is an output format for Render.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
)

var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the formats Render accepts.
func Formats() []string {
	return []string{string(FormatTable), string(FormatJSON), string(FormatYAML), string(FormatCSV)}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatTable, FormatJSON, FormatYAML, FormatCSV:
		return f, nil
	case "":
		return FormatTable, nil
	}
	return "", fmt.Errorf("%w %q (want one of %s)", ErrUnknownFormat, s, strings.Join(Formats(), ", "))
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Render writes res to w in the given format.
func Render(w io.Writer, res *diff.Result, format Format) error {
	switch format {
	case FormatTable, "":
		return renderTable(w, res)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(normalized(res))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(normalized(res)); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV:
		return renderCSV(w, res)
	}
	return fmt.Errorf("%w %q", ErrUnknownFormat, format)
}

// normalized replaces nil slices so encoders emit [] instead of null.
func normalized(res *diff.Result) *diff.Result {
	out := *res
	if out.CommonColumns == nil {
		out.CommonColumns = []string{}
	}
	if out.SourceOnly == nil {
		out.SourceOnly = []string{}
	}
	if out.TargetOnly == nil {
		out.TargetOnly = []string{}
	}
	if out.Mismatches == nil {
		out.Mismatches = []diff.Mismatch{}
	}
	return &out
}

// Summary describes res in a few human-readable lines.
func Summary(res *diff.Result) []string {
	schema := "schemas match"
	if !res.SchemaMatch {
		schema = "schemas differ"
	}

	lines := []string{
		schema,
		fmt.Sprintf("common columns: %s", list(res.CommonColumns)),
	}
	if len(res.SourceOnly) > 0 {
		lines = append(lines, fmt.Sprintf("only in source: %s", list(res.SourceOnly)))
	}
	if len(res.TargetOnly) > 0 {
		lines = append(lines, fmt.Sprintf("only in target: %s", list(res.TargetOnly)))
	}
	lines = append(lines, fmt.Sprintf("rows: source %s, target %s, compared %s",
		humanize.Comma(int64(res.SourceRows)),
		humanize.Comma(int64(res.TargetRows)),
		humanize.Comma(int64(res.ComparedRows))))

	n := len(res.Mismatches)
	switch n {
	case 0:
		lines = append(lines, "no mismatches")
	case 1:
		lines = append(lines, "1 mismatch")
	default:
		lines = append(lines, fmt.Sprintf("%s mismatches", humanize.Comma(int64(n))))
	}
	return lines
}

func list(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}

func renderTable(w io.Writer, res *diff.Result) error {
	for _, line := range Summary(res) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if len(res.Mismatches) == 0 {
		return nil
	}

	rows := make([][]string, len(res.Mismatches))
	for i, m := range res.Mismatches {
		rows[i] = []string{m.Column, strconv.Itoa(m.Row), m.Source.String(), m.Target.String()}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Inherit(cellStyle)
			}
			return cellStyle
		}).
		Headers("column", "row", "source", "target").
		Rows(rows...)

	_, err := fmt.Fprintf(w, "\n%s\n", t)
	return err
}

func renderCSV(w io.Writer, res *diff.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"column", "row_index", "source_value", "target_value"}); err != nil {
		return err
	}
	for _, m := range res.Mismatches {
		if err := cw.Write([]string{m.Column, strconv.Itoa(m.Row), m.Source.String(), m.Target.String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ColumnCount is the number of mismatches found in one column.
type ColumnCount struct {
	Column string
	Count  int
}

// CountsByColumn returns per-column mismatch counts in column name order.
func CountsByColumn(res *diff.Result) []ColumnCount {
	counts := res.CountByColumn()
	out := make([]ColumnCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, ColumnCount{Column: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Column < out[j].Column })
	return out
}

// DefaultPath returns the report path next to source: the same base name
// with a _mismatches suffix and the given extension.
func DefaultPath(source, ext string) string {
	dir := filepath.Dir(source)
	base := filepath.Base(source)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, name+"_mismatches"+ext)
}
