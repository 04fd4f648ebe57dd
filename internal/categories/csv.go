package categories

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cuentas-dev/cuentas/internal/model"
)

const (
	numFields = 3
	colID     = 0
	colName   = 1
	colDesc   = 2
)

// ReadCSV reads categories written by WriteCSV. A blank id is zero.
func ReadCSV(r io.Reader) ([]model.Category, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading categories CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var cats []model.Category
	for i, rec := range records[1:] {
		c, err := UnmarshalCategory(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		cats = append(cats, c)
	}
	return cats, nil
}

// WriteCSV writes categories with an id,name,description header.
func WriteCSV(w io.Writer, cats []model.Category) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"id", "name", "description"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, c := range cats {
		if err := cw.Write(MarshalCategory(c)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalCategory converts a Category to a CSV row.
func MarshalCategory(c model.Category) []string {
	row := make([]string, numFields)
	if c.ID != 0 {
		row[colID] = strconv.FormatInt(c.ID, 10)
	}
	row[colName] = c.Name
	row[colDesc] = c.Description
	return row
}

// UnmarshalCategory converts a CSV row to a Category.
func UnmarshalCategory(record []string) (model.Category, error) {
	if len(record) != numFields {
		return model.Category{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	var id int64
	if record[colID] != "" {
		var err error
		id, err = strconv.ParseInt(record[colID], 10, 64)
		if err != nil {
			return model.Category{}, fmt.Errorf("parsing id %q: %w", record[colID], err)
		}
	}

	return model.Category{
		ID:          id,
		Name:        record[colName],
		Description: record[colDesc],
	}, nil
}
