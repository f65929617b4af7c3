package table

import (
	"errors"
	"fmt"
)

var (
	ErrStaleIndex      = errors.New("column index out of date")
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrColumnLength    = errors.New("columns have unequal length")
	ErrEmptyColumnName = errors.New("empty column name")
)

// Column is a named, ordered sequence of cells.
type Column struct {
	Name   string
	Values []Value
}

func (c Column) Len() int { return len(c.Values) }

// Dataset is an ordered set of equal-length columns with unique names. Build
// it with NewDataset; the zero Dataset has no columns and is valid.
type Dataset struct {
	columns []Column
	index   map[string]int
}

// NewDataset validates the columns and returns a dataset holding a copy of
// the column list. Cell slices are shared.
func NewDataset(columns ...Column) (*Dataset, error) {
	ds := &Dataset{
		columns: append([]Column(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range ds.columns {
		ds.index[c.Name] = i
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// MustDataset is NewDataset for fixtures; it panics on invalid input.
func MustDataset(columns ...Column) *Dataset {
	ds, err := NewDataset(columns...)
	if err != nil {
		panic(err)
	}
	return ds
}

// Validate checks the dataset invariants: unique, non-empty names and a
// single row count shared by every column. It also checks the name index
// against the column positions.
func (d *Dataset) Validate() error {
	if d == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(d.columns))
	for i, c := range d.columns {
		if c.Name == "" {
			return fmt.Errorf("%w: column %d", ErrEmptyColumnName, i)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.Len() != d.columns[0].Len() {
			return fmt.Errorf("%w: %q has %d rows, %q has %d",
				ErrColumnLength, c.Name, c.Len(), d.columns[0].Name, d.columns[0].Len())
		}
	}
	for i, c := range d.columns {
		if j, ok := d.index[c.Name]; !ok || j != i {
			return fmt.Errorf("%w: %q", ErrStaleIndex, c.Name)
		}
	}
	return nil
}

// Columns returns a copy of the column list in its original order.
func (d *Dataset) Columns() []Column {
	if d == nil {
		return nil
	}
	return append([]Column(nil), d.columns...)
}

// ColumnNames returns the column names in their original order.
func (d *Dataset) ColumnNames() []string {
	if d == nil {
		return nil
	}
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (d *Dataset) Column(name string) (Column, bool) {
	if d == nil {
		return Column{}, false
	}
	i, ok := d.index[name]
	if !ok {
		return Column{}, false
	}
	return d.columns[i], true
}

// NumColumns returns the number of columns.
func (d *Dataset) NumColumns() int {
	if d == nil {
		return 0
	}
	return len(d.columns)
}

// NumRows returns the shared row count, or 0 for a dataset without columns.
func (d *Dataset) NumRows() int {
	if d == nil || len(d.columns) == 0 {
		return 0
	}
	return d.columns[0].Len()
}

// Row returns the cells at row i in column order.
func (d *Dataset) Row(i int) []Value {
	row := make([]Value, 0, d.NumColumns())
	if d == nil {
		return row
	}
	for _, c := range d.columns {
		row = append(row, c.Values[i])
	}
	return row
}
