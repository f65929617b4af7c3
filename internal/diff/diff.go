// Package diff compares two datasets cell by cell.
//
// Columns are aligned by name and rows by position. Only columns present in
// both datasets are compared, and only up to the shorter of the two columns;
// neither a missing column nor surplus rows count as a mismatch. Two null
// cells are always equal. Everything else is decided by the configured
// Equality, Strict by default.
package diff

import (
	"fmt"
	"slices"

	"github.com/nconklindev/sheetdiff/internal/table"
)

// Mismatch is one cell where source and target disagree.
type Mismatch struct {
	Column string      `json:"column" yaml:"column"`
	Row    int         `json:"row_index" yaml:"row_index"`
	Source table.Value `json:"source_value" yaml:"source_value"`
	Target table.Value `json:"target_value" yaml:"target_value"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s[%d]: %s != %s", m.Column, m.Row, m.Source, m.Target)
}

// Result is the full outcome of comparing two datasets.
type Result struct {
	SchemaMatch   bool       `json:"schema_match" yaml:"schema_match"`
	CommonColumns []string   `json:"common_columns" yaml:"common_columns"`
	SourceOnly    []string   `json:"source_only" yaml:"source_only"`
	TargetOnly    []string   `json:"target_only" yaml:"target_only"`
	SourceRows    int        `json:"source_rows" yaml:"source_rows"`
	TargetRows    int        `json:"target_rows" yaml:"target_rows"`
	ComparedRows  int        `json:"compared_rows" yaml:"compared_rows"`
	Mismatches    []Mismatch `json:"mismatches" yaml:"mismatches"`
}

// CountByColumn returns the number of mismatches per common column. Columns
// without mismatches are present with a zero count.
func (r *Result) CountByColumn() map[string]int {
	counts := make(map[string]int, len(r.CommonColumns))
	for _, c := range r.CommonColumns {
		counts[c] = 0
	}
	for _, m := range r.Mismatches {
		counts[m.Column]++
	}
	return counts
}

// CompareSchemas reports whether both datasets have the same set of column
// names. Order, row counts and values are not considered.
func CompareSchemas(source, target *table.Dataset) bool {
	src := source.ColumnNames()
	tgt := target.ColumnNames()
	if len(src) != len(tgt) {
		return false
	}
	names := make(map[string]struct{}, len(src))
	for _, n := range src {
		names[n] = struct{}{}
	}
	for _, n := range tgt {
		if _, ok := names[n]; !ok {
			return false
		}
	}
	return true
}

// CommonColumns returns the names present in both datasets, sorted.
func CommonColumns(source, target *table.Dataset) []string {
	var common []string
	for _, n := range source.ColumnNames() {
		if _, ok := target.Column(n); ok {
			common = append(common, n)
		}
	}
	slices.Sort(common)
	return common
}

// FindMismatches returns one Mismatch per (column, row) pair that differs,
// ordered by column name and then row. Invalid datasets are rejected before
// any comparison is made.
func FindMismatches(source, target *table.Dataset, opts ...Option) ([]Mismatch, error) {
	if err := validate(source, target); err != nil {
		return nil, err
	}
	o := newOptions(opts)

	var mismatches []Mismatch
	for _, name := range CommonColumns(source, target) {
		src, _ := source.Column(name)
		tgt, _ := target.Column(name)
		n := min(src.Len(), tgt.Len())
		for i := range n {
			a, b := src.Values[i], tgt.Values[i]
			if a.IsNull() && b.IsNull() {
				continue
			}
			if !o.equal(a, b) {
				mismatches = append(mismatches, Mismatch{Column: name, Row: i, Source: a, Target: b})
			}
		}
	}
	return mismatches, nil
}

// Compare runs the schema check and the cell comparison in one pass.
func Compare(source, target *table.Dataset, opts ...Option) (*Result, error) {
	mismatches, err := FindMismatches(source, target, opts...)
	if err != nil {
		return nil, err
	}

	res := &Result{
		SchemaMatch:   CompareSchemas(source, target),
		CommonColumns: CommonColumns(source, target),
		SourceOnly:    only(source, target),
		TargetOnly:    only(target, source),
		SourceRows:    source.NumRows(),
		TargetRows:    target.NumRows(),
		Mismatches:    mismatches,
	}
	if len(res.CommonColumns) > 0 {
		res.ComparedRows = min(res.SourceRows, res.TargetRows)
	}
	return res, nil
}

func validate(source, target *table.Dataset) error {
	if err := source.Validate(); err != nil {
		return fmt.Errorf("invalid source dataset: %w", err)
	}
	if err := target.Validate(); err != nil {
		return fmt.Errorf("invalid target dataset: %w", err)
	}
	return nil
}

// only returns the names in a that are missing from b, in a's order.
func only(a, b *table.Dataset) []string {
	var names []string
	for _, n := range a.ColumnNames() {
		if _, ok := b.Column(n); !ok {
			names = append(names, n)
		}
	}
	return names
}
