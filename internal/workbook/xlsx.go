package workbook

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

func readXLSX(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening xlsx: %w", err)
	}
	defer f.Close()

	wb := &Workbook{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", name, err)
		}
		raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", name, err)
		}
		for _, row := range raw {
			for i, cell := range row {
				row[i] = plainNumber(cell)
			}
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: name, Rows: rows, Raw: raw})
	}
	return wb, nil
}

// plainNumber rewrites a stored float such as "-62.399999999999999" in its
// shortest form. Anything that is not a plain decimal number is returned
// unchanged.
func plainNumber(s string) string {
	if s == "" || strings.ContainsAny(s, "xXpP_,") {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
