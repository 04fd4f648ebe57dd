package importer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// TemplateDataRow is the zero-based row of the first sample movement.
const TemplateDataRow = HeaderProbeRow + 2

var templateHeader = []any{"Data", "Balio-data", "Azalpena", "Eragiketaren zenbatekoa", "Saldoa"}

var templateRows = [][]any{
	{"2025/06/02", "2025/06/02", "NOMINA EMPRESA SL", 1850.00, 3250.75},
	{"2025/06/05", "2025/06/05", "MERCADONA BILBAO", -62.40, 3188.35},
	{"2025/06/10", "2025/06/11", "RECIBO IBERDROLA", -45.90, 3142.45},
}

// TemplateSampleCount is the number of sample movements in the template.
var TemplateSampleCount = len(templateRows)

// WriteTemplate writes an .xlsx laid out like the Euskera bank export:
// five blank rows, the header, one blank row, then sample movements.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ListingSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	if err := setRow(f, HeaderProbeRow, templateHeader); err != nil {
		return err
	}
	for i, row := range templateRows {
		if err := setRow(f, TemplateDataRow+i, row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing template: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row+1)
	if err != nil {
		return fmt.Errorf("row %d: %w", row+1, err)
	}
	if err := f.SetSheetRow(ListingSheet, cell, &values); err != nil {
		return fmt.Errorf("writing row %d: %w", row+1, err)
	}
	return nil
}
