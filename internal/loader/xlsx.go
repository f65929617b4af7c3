package loader

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nconklindev/sheetdiff/internal/types"
)

// cellTimeLayout is how date cells are spelled in the raw grid.
const cellTimeLayout = "2006-01-02 15:04:05.999999999"

// builtinDateFormats are the built-in number format ids that display dates
// or times.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

func readXLSXData(r io.Reader, sheet string) (*types.FileData, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheetName := sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	} else if idx, err := f.GetSheetIndex(sheetName); err != nil || idx == -1 {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheetName)
	}

	// Stored values, not display text: two numbers that look the same under a
	// number format are still different cells.
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}

	kinds, err := newCellTyper(f, sheetName).typeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}

	data, err := splitHeader(rows)
	if err != nil {
		return nil, err
	}
	start := data.HeaderRow + 1
	data.Kinds = kinds[start : start+len(data.Rows)]
	data.Sheet = sheetName
	return data, nil
}

// cellTyper reads stored cell types and rewrites booleans and date-styled
// serial numbers into text the loader can type.
type cellTyper struct {
	f          *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool
}

func newCellTyper(f *excelize.File, sheet string) *cellTyper {
	ct := &cellTyper{f: f, sheet: sheet, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		ct.date1904 = *props.Date1904
	}
	return ct
}

func (ct *cellTyper) typeRows(rows [][]string) ([][]types.CellKind, error) {
	kinds := make([][]types.CellKind, len(rows))
	for r, row := range rows {
		kinds[r] = make([]types.CellKind, len(row))
		for c, raw := range row {
			if raw == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			kind, text, err := ct.typeCell(cell, raw)
			if err != nil {
				return nil, err
			}
			kinds[r][c] = kind
			row[c] = text
		}
	}
	return kinds, nil
}

func (ct *cellTyper) typeCell(cell, raw string) (types.CellKind, string, error) {
	cellType, err := ct.f.GetCellType(ct.sheet, cell)
	if err != nil {
		return types.CellUnknown, raw, err
	}

	switch cellType {
	case excelize.CellTypeBool:
		if raw == "1" {
			return types.CellBool, "TRUE", nil
		}
		return types.CellBool, "FALSE", nil
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return types.CellDate, t.UTC().Format(cellTimeLayout), nil
		}
		if t, err := time.Parse("2006-01-02T15:04:05.999999999", raw); err == nil {
			return types.CellDate, t.Format(cellTimeLayout), nil
		}
		return types.CellText, raw, nil
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		isDate, err := ct.dateStyled(cell)
		if err != nil {
			return types.CellUnknown, raw, err
		}
		if isDate {
			if serial, err := strconv.ParseFloat(raw, 64); err == nil {
				if t, err := excelize.ExcelDateToTime(serial, ct.date1904); err == nil {
					return types.CellDate, t.Format(cellTimeLayout), nil
				}
			}
		}
		return types.CellNumber, raw, nil
	}
	// Shared and inline strings, formula string results and error values.
	return types.CellText, raw, nil
}

func (ct *cellTyper) dateStyled(cell string) (bool, error) {
	styleID, err := ct.f.GetCellStyle(ct.sheet, cell)
	if err != nil {
		return false, err
	}
	if isDate, ok := ct.dateStyles[styleID]; ok {
		return isDate, nil
	}

	isDate := false
	if style, err := ct.f.GetStyle(styleID); err == nil && style != nil {
		isDate = builtinDateFormats[style.NumFmt]
		if style.CustomNumFmt != nil {
			isDate = dateFormatCode(*style.CustomNumFmt)
		}
	}
	ct.dateStyles[styleID] = isDate
	return isDate, nil
}

// dateFormatCode reports whether a custom number format shows a date or time
// part. Quoted literals, escaped characters and bracketed sections other than
// elapsed time are ignored.
func dateFormatCode(code string) bool {
	code = strings.ToLower(code)
	if code == "general" {
		return false
	}
	// Only the positive section matters.
	inQuote := false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == '\\' || ch == '_' || ch == '*':
			i++
		case ch == ';':
			return false
		case ch == '[':
			end := strings.IndexByte(code[i:], ']')
			if end == -1 {
				return false
			}
			switch code[i+1 : i+end] {
			case "h", "hh", "m", "mm", "s", "ss":
				return true
			}
			i += end
		case ch == 'y' || ch == 'm' || ch == 'd' || ch == 'h' || ch == 's':
			return true
		}
	}
	return false
}
