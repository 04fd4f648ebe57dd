package transactions

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cuentas-dev/cuentas/internal/model"
)

// Header is the CSV header of a transaction export.
const Header = "id,posting_date,value_date,description,amount,balance,categories"

const (
	numFields   = 7
	colID       = 0
	colDate     = 1
	colValue    = 2
	colDesc     = 3
	colAmount   = 4
	colBalance  = 5
	colCategory = 6
)

// WriteCSV writes transactions as CSV, header first.
func WriteCSV(w io.Writer, txs []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, tx := range txs {
		if err := cw.Write(MarshalTransaction(tx)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a transaction to a CSV row. Category names
// are joined with ";".
func MarshalTransaction(tx model.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = strconv.FormatInt(tx.ID, 10)
	row[colDate] = tx.PostingDate
	row[colValue] = tx.ValueDate
	row[colDesc] = tx.Description
	row[colAmount] = tx.Amount.StringFixed(2)
	row[colBalance] = tx.Balance.StringFixed(2)

	names := make([]string, len(tx.Categories))
	for i, c := range tx.Categories {
		names[i] = c.Name
	}
	row[colCategory] = strings.Join(names, ";")
	return row
}
