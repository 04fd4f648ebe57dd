package importer

import (
	"errors"
	"fmt"
	"strings"
)

// Upload validation failures, raised before the payload is parsed.
var (
	ErrUnsupportedExtension = errors.New("unsupported file extension: expected .xls or .xlsx")
	ErrEmptyPayload         = errors.New("empty file")
	ErrPayloadTooLarge      = errors.New("file exceeds the upload size limit")
)

// NoValidSheetError means no sheet of the workbook can hold statement data.
type NoValidSheetError struct {
	Sheets []string
}

func (e *NoValidSheetError) Error() string {
	if len(e.Sheets) == 0 {
		return "no valid sheet: workbook has no sheets"
	}
	return fmt.Sprintf("no valid sheet: sheets %s are all empty", quoteList(e.Sheets))
}

// HeaderNotFoundError means neither schema's vocabulary appears in the
// leading rows of the selected sheet.
type HeaderNotFoundError struct {
	Sheet     string
	ProbedRow int // zero-based index probed for the Euskera header
	ScanRows  int // rows [0, ScanRows) scanned for the Spanish header
}

func (e *HeaderNotFoundError) Error() string {
	return fmt.Sprintf("header not found in sheet %q: row %d has no Euskera columns and rows 1-%d have no Spanish columns",
		e.Sheet, e.ProbedRow+1, e.ScanRows)
}

// UnrecognizedSchemaError means the header row satisfies neither schema's
// required column set. Found lists the folded header cells for diagnostics.
type UnrecognizedSchemaError struct {
	Found []string
}

func (e *UnrecognizedSchemaError) Error() string {
	return fmt.Sprintf("unrecognized column layout, found columns: %s", quoteList(e.Found))
}

// IsBatchError reports whether err rejected the whole file before any row
// was processed.
func IsBatchError(err error) bool {
	var (
		noSheet  *NoValidSheetError
		noHeader *HeaderNotFoundError
		unknown  *UnrecognizedSchemaError
	)
	return errors.As(err, &noSheet) || errors.As(err, &noHeader) || errors.As(err, &unknown)
}

// RowError is a row-local failure. It is counted and recorded; the batch
// continues with the next row.
type RowError interface {
	error
	RowNumber() int
}

// MissingFieldFailure reports a blank required cell.
type MissingFieldFailure struct {
	Row   int // 1-based spreadsheet row
	Field Field
}

func (e *MissingFieldFailure) Error() string {
	return fmt.Sprintf("row %d: missing %s", e.Row, e.Field)
}

// RowNumber returns the 1-based spreadsheet row.
func (e *MissingFieldFailure) RowNumber() int { return e.Row }

// NumericParseFailure reports an amount or balance that is not a number
// after decimal-comma substitution.
type NumericParseFailure struct {
	Row   int
	Field Field
	Value string
}

func (e *NumericParseFailure) Error() string {
	return fmt.Sprintf("row %d: invalid %s %q", e.Row, e.Field, e.Value)
}

// RowNumber returns the 1-based spreadsheet row.
func (e *NumericParseFailure) RowNumber() int { return e.Row }

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
