package workbook

import (
	"fmt"
	"io"
	"strings"

	"github.com/extrame/xls"
)

// xlsCharset only affects BIFF5 files; BIFF8 strings carry their own encoding.
const xlsCharset = "utf-8"

// maxXLSColumns is the BIFF8 column limit. Rows written without a ROW
// record report no extent and are probed up to it.
const maxXLSColumns = 256

func readXLS(r io.ReadSeeker) (wb *Workbook, err error) {
	// The BIFF decoder panics on some truncated records.
	defer func() {
		if p := recover(); p != nil {
			wb, err = nil, fmt.Errorf("decoding xls: %v", p)
		}
	}()

	book, err := xls.OpenReader(r, xlsCharset)
	if err != nil {
		return nil, fmt.Errorf("opening xls: %w", err)
	}
	if book == nil {
		return nil, fmt.Errorf("opening xls: no workbook stream")
	}

	wb = &Workbook{}
	for i := 0; i < book.NumSheets(); i++ {
		ws := book.GetSheet(i)
		if ws == nil {
			continue
		}
		sheet := Sheet{Name: ws.Name, Rows: readXLSRows(ws)}

		// Without the XF table the decoder skips number formats, so the
		// second pass yields unformatted numbers.
		xfs := book.Xfs
		book.Xfs = nil
		sheet.Raw = readXLSRows(ws)
		book.Xfs = xfs

		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}

func readXLSRows(ws *xls.WorkSheet) [][]string {
	var rows [][]string
	for ri := 0; ri <= int(ws.MaxRow); ri++ {
		row := xlsRow(ws, ri)
		if row == nil {
			continue
		}
		width := row.LastCol()
		if width == 0 {
			width = maxXLSColumns
		}
		cells := make([]string, width)
		for ci := row.FirstCol(); ci < width; ci++ {
			cells[ci] = row.Col(ci)
		}
		cells = trimTrailingBlank(cells)
		if len(cells) == 0 {
			continue
		}
		for len(rows) <= ri {
			rows = append(rows, nil)
		}
		rows[ri] = cells
	}
	return rows
}

// xlsRow returns row i, or nil when the sheet has no record for it.
// WorkSheet.Row dereferences the missing row instead of returning nil.
func xlsRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

func trimTrailingBlank(cells []string) []string {
	n := len(cells)
	for n > 0 && strings.TrimSpace(cells[n-1]) == "" {
		n--
	}
	return cells[:n]
}
