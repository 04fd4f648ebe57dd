// Package workbook loads spreadsheet containers into plain string grids.
package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Workbook is an ordered list of named sheets.
type Workbook struct {
	Sheets []Sheet
}

// Sheet is a ragged grid of cell text. Missing cells read as "".
// Rows holds the text as displayed by the cell's number format; Raw, when
// set, holds the same grid with numbers unformatted.
type Sheet struct {
	Name string
	Rows [][]string
	Raw  [][]string
}

// Cell returns the trimmed text at row r, column c, or "" when out of range.
func (s Sheet) Cell(r, c int) string {
	if r < 0 || r >= len(s.Rows) {
		return ""
	}
	row := s.Rows[r]
	if c < 0 || c >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[c])
}

// RawCell is Cell read from the unformatted grid. Sheets without one fall
// back to the displayed text.
func (s Sheet) RawCell(r, c int) string {
	if s.Raw == nil {
		return s.Cell(r, c)
	}
	return Sheet{Rows: s.Raw}.Cell(r, c)
}

// Row returns row r, or nil when out of range.
func (s Sheet) Row(r int) []string {
	if r < 0 || r >= len(s.Rows) {
		return nil
	}
	return s.Rows[r]
}

// IsEmpty reports whether every cell of the sheet is blank.
func (s Sheet) IsEmpty() bool {
	for _, row := range s.Rows {
		if !IsRowEmpty(row) {
			return false
		}
	}
	return true
}

// SheetNames returns the sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}

// IsRowEmpty checks if a row contains only blank cells.
func IsRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Extensions accepted by Open.
const (
	ExtXLS  = ".xls"
	ExtXLSX = ".xlsx"
)

// ErrUnknownContainer is returned when the payload is neither OOXML nor BIFF.
var ErrUnknownContainer = errors.New("unrecognized spreadsheet container")

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Error wraps a failure to read a spreadsheet container.
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("reading workbook %s: %v", e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// SupportedExtension reports whether name ends in .xls or .xlsx.
func SupportedExtension(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtXLS, ExtXLSX:
		return true
	}
	return false
}

// Open parses data as a workbook. The container is chosen from the leading
// magic bytes so a mislabelled .xls that is really OOXML still loads.
func Open(name string, data []byte) (*Workbook, error) {
	var (
		wb  *Workbook
		err error
	)
	switch {
	case bytes.HasPrefix(data, zipMagic):
		wb, err = readXLSX(bytes.NewReader(data))
	case bytes.HasPrefix(data, oleMagic):
		wb, err = readXLS(bytes.NewReader(data))
	default:
		err = ErrUnknownContainer
	}
	if err != nil {
		return nil, &Error{Name: name, Err: err}
	}
	return wb, nil
}
