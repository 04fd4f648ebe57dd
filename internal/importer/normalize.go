package importer

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/cuentas-dev/cuentas/internal/model"
	"github.com/cuentas-dev/cuentas/internal/workbook"
)

// rawRow is a data row read through a Mapping, before any conversion.
type rawRow struct {
	PostingDate string
	ValueDate   string
	Description string
	Amount      string
	Balance     string
}

// read takes dates and description as displayed, amounts unformatted, and
// a date cell holding a spreadsheet serial number as that date.
func (m Mapping) read(sheet workbook.Sheet, r int) rawRow {
	cell := func(f Field, get func(r, c int) string) string {
		idx, ok := m.Columns[f]
		if !ok {
			return ""
		}
		return get(r, idx)
	}
	date := func(f Field) string {
		if d, ok := serialDate(cell(f, sheet.RawCell)); ok {
			return d
		}
		return cell(f, sheet.Cell)
	}
	return rawRow{
		PostingDate: date(FieldPostingDate),
		ValueDate:   date(FieldValueDate),
		Description: cell(FieldDescription, sheet.Cell),
		Amount:      cell(FieldAmount, sheet.RawCell),
		Balance:     cell(FieldBalance, sheet.RawCell),
	}
}

// Normalize converts row r of sheet into a transaction without an ID.
// Failures are *MissingFieldFailure or *NumericParseFailure.
func (m Mapping) Normalize(sheet workbook.Sheet, r int) (model.Transaction, error) {
	raw := m.read(sheet, r)
	rowNum := r + 1

	if raw.PostingDate == "" {
		return model.Transaction{}, &MissingFieldFailure{Row: rowNum, Field: FieldPostingDate}
	}
	if raw.Description == "" {
		return model.Transaction{}, &MissingFieldFailure{Row: rowNum, Field: FieldDescription}
	}

	amount, err := parseAmount(raw.Amount)
	if err != nil {
		return model.Transaction{}, &NumericParseFailure{Row: rowNum, Field: FieldAmount, Value: raw.Amount}
	}
	balance, err := parseAmount(raw.Balance)
	if err != nil {
		return model.Transaction{}, &NumericParseFailure{Row: rowNum, Field: FieldBalance, Value: raw.Balance}
	}

	date := variants[m.Variant].date
	tx := model.Transaction{
		PostingDate: date(raw.PostingDate),
		Description: raw.Description,
		Amount:      amount,
		Balance:     balance,
	}
	if raw.ValueDate != "" {
		tx.ValueDate = date(raw.ValueDate)
	}
	return tx, nil
}

// maxDateSerial is 9999-12-31 as a spreadsheet serial.
const maxDateSerial = 2958465

// serialDate converts a spreadsheet date serial (days since 1899-12-30) to
// YYYY-MM-DD. Text dates are left to the variant's date rule.
func serialDate(raw string) (string, bool) {
	if !isPlainNumber(raw) {
		return "", false
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial < 1 || serial > maxDateSerial {
		return "", false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return "", false
	}
	return t.Format(model.DateFormat), true
}

// isPlainNumber reports whether s is unsigned digits with at most one dot.
func isPlainNumber(s string) bool {
	if s == "" {
		return false
	}
	dots := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return dots <= 1 && s != "."
}

// parseAmount reads a decimal that may use a comma as decimal separator.
// A blank cell is zero.
func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
}

// dayFirstDate rewrites DD/MM/YYYY as YYYY-MM-DD. Anything that does not
// split into three parts only has its separators replaced, which is correct
// solely for input already in year-first order.
func dayFirstDate(raw string) string {
	parts := strings.Split(raw, "/")
	if len(parts) != 3 {
		return strings.ReplaceAll(raw, "/", "-")
	}
	day, month, year := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2])
	return year + "-" + pad2(month) + "-" + pad2(day)
}

// separatorDate turns YYYY/MM/DD into YYYY-MM-DD.
func separatorDate(raw string) string {
	return strings.ReplaceAll(raw, "/", "-")
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
