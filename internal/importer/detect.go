package importer

import "github.com/cuentas-dev/cuentas/internal/workbook"

const (
	// ListingSheet is the sheet name banks use for the movements listing.
	ListingSheet = "Listado"
	// HeaderProbeRow is where the Euskera export places its header.
	HeaderProbeRow = 5
	// HeaderScanRows bounds the search for a Spanish header.
	HeaderScanRows = 10
)

// Detection is the sheet and header row chosen for ingestion.
type Detection struct {
	Sheet     workbook.Sheet
	HeaderRow int
	Header    []string
}

// SelectSheet picks the sheet holding the statement.
func SelectSheet(wb *workbook.Workbook) (workbook.Sheet, error) {
	for _, s := range wb.Sheets {
		if s.Name == ListingSheet {
			return s, nil
		}
	}
	if len(wb.Sheets) == 1 {
		return wb.Sheets[0], nil
	}
	for _, s := range wb.Sheets {
		if !s.IsEmpty() {
			return s, nil
		}
	}
	return workbook.Sheet{}, &NoValidSheetError{Sheets: wb.SheetNames()}
}

// FindHeader locates the header row of a sheet.
func FindHeader(sheet workbook.Sheet) (int, error) {
	if VariantEuskera.matchesVocabulary(sheet.Row(HeaderProbeRow)) {
		return HeaderProbeRow, nil
	}
	for i := 0; i < HeaderScanRows; i++ {
		if VariantSpanish.matchesVocabulary(sheet.Row(i)) {
			return i, nil
		}
	}
	return 0, &HeaderNotFoundError{Sheet: sheet.Name, ProbedRow: HeaderProbeRow, ScanRows: HeaderScanRows}
}

// Detect selects the data sheet and its header row.
func Detect(wb *workbook.Workbook) (Detection, error) {
	sheet, err := SelectSheet(wb)
	if err != nil {
		return Detection{}, err
	}
	row, err := FindHeader(sheet)
	if err != nil {
		return Detection{}, err
	}
	return Detection{Sheet: sheet, HeaderRow: row, Header: sheet.Row(row)}, nil
}
