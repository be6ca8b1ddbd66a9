package sheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrNoHeader = errors.New("sheet has no header row")

// Table is the first worksheet of a workbook with headers renamed to canonical
// column names. Columns absent from the rename map are dropped.
type Table struct {
	RawHeaders []string
	Rows       [][]string
	Lines      []int // 1-based sheet row number of each entry in Rows

	index map[string]int
}

// Read parses the first worksheet of an .xlsx stream. Header cells are trimmed
// before lookup in columns (source header -> canonical name). Cells are read raw,
// so date cells arrive as Excel serials and numbers without display formatting.
func Read(r io.Reader, columns map[string]string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	t := &Table{index: map[string]int{}}
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		t.RawHeaders = append(t.RawHeaders, h)
		canon, ok := columns[h]
		if !ok {
			continue
		}
		// first occurrence wins on duplicated headers
		if _, dup := t.index[canon]; !dup {
			t.index[canon] = i
		}
	}
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
		t.Lines = append(t.Lines, i+2)
	}
	return t, nil
}

// Has reports whether the canonical column is present.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Missing returns the required canonical columns the sheet lacks.
func (t *Table) Missing(required ...string) []string {
	var out []string
	for _, col := range required {
		if !t.Has(col) {
			out = append(out, col)
		}
	}
	return out
}

// Cell returns the trimmed value of a canonical column in row, or "" when the
// column is absent or the row is short.
func (t *Table) Cell(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
