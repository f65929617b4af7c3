package types

// CellKind is the type a spreadsheet format stored for a cell. CSV has no
// stored types, so its cells are all CellUnknown and typed from their text.
type CellKind int

const (
	CellUnknown CellKind = iota
	CellText
	CellNumber
	CellBool
	CellDate
)

// FileData is the raw string grid read from a spreadsheet, before headers are
// normalized and cells are typed.
type FileData struct {
	Name      string
	Sheet     string
	Headers   []string
	Rows      [][]string
	HeaderRow int
	// Kinds parallels Rows when the format records cell types. It may be nil
	// or shorter than Rows.
	Kinds [][]CellKind
}

// Kind returns the stored type of the cell at row r, column c.
func (d *FileData) Kind(r, c int) CellKind {
	if r < len(d.Kinds) && c < len(d.Kinds[r]) {
		return d.Kinds[r][c]
	}
	return CellUnknown
}

// ComparisonFiles names the two inputs of a comparison.
type ComparisonFiles struct {
	Source string
	Target string
}
