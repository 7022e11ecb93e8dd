package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions configures how a worksheet is read.
type XLSXOptions struct {
	SheetName string // required
	HeaderRow int    // 0-based index of the header row; rows above it are discarded
}

// Workbook is an opened XLSX file held in memory.
type Workbook struct {
	Path string
	file *xlsx.File
}

// OpenWorkbook parses the XLSX file at path.
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	return &Workbook{Path: path, file: f}, nil
}

// SheetNames returns the worksheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, 0, len(w.file.Sheets))
	for _, s := range w.file.Sheets {
		names = append(names, s.Name)
	}
	return names
}

// HasSheet reports whether the workbook contains the named worksheet.
func (w *Workbook) HasSheet(name string) bool {
	_, ok := w.file.Sheet[name]
	return ok
}

// ReadSheet returns the header row and the data rows below it. Rows whose
// cells are all blank are skipped.
func (w *Workbook) ReadSheet(opts XLSXOptions) ([]string, [][]string, error) {
	sheet, ok := w.file.Sheet[opts.SheetName]
	if !ok {
		return nil, nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
	}
	if opts.HeaderRow < 0 {
		return nil, nil, eris.Errorf("xlsx: invalid header row %d", opts.HeaderRow)
	}
	if opts.HeaderRow >= len(sheet.Rows) {
		return nil, nil, eris.Errorf("xlsx: sheet %q has %d rows, header row %d is missing", opts.SheetName, len(sheet.Rows), opts.HeaderRow)
	}

	header := rowToStrings(sheet.Rows[opts.HeaderRow])

	var rows [][]string
	for _, row := range sheet.Rows[opts.HeaderRow+1:] {
		cells := rowToStrings(row)
		if blankRow(cells) {
			continue
		}
		rows = append(rows, cells)
	}

	return header, rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		if cell == nil {
			continue
		}
		cells[j] = cell.String()
	}
	return cells
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
