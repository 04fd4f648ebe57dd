package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cuentas-dev/cuentas/internal/model"
)

// ExistsByKey reports whether a transaction with the exact dedup key is
// stored. Amounts are stored in canonical decimal form, so equal values
// compare equal as text.
func (s *Store) ExistsByKey(ctx context.Context, key model.Key) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM transactions
		WHERE posting_date = ? AND description = ? AND amount = ? AND balance = ?
		LIMIT 1`,
		key.PostingDate, key.Description, key.Amount.String(), key.Balance.String(),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query transaction key: %w", err)
	}
	return true, nil
}

// InsertTransaction stores tx and returns its new ID. tx.ID is ignored.
func (s *Store) InsertTransaction(ctx context.Context, tx model.Transaction) (int64, error) {
	var valueDate sql.NullString
	if tx.ValueDate != "" {
		valueDate = sql.NullString{String: tx.ValueDate, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (posting_date, value_date, description, amount, balance)
		VALUES (?, ?, ?, ?, ?)`,
		tx.PostingDate, valueDate, tx.Description, tx.Amount.String(), tx.Balance.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert transaction id: %w", err)
	}
	return id, nil
}

// GetTransaction returns one transaction without categories.
func (s *Store) GetTransaction(ctx context.Context, id int64) (model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, posting_date, value_date, description, amount, balance
		FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return model.Transaction{}, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

// TransactionsBetween returns transactions whose posting date lies in the
// closed interval [from, to], both YYYY-MM-DD, in insertion order.
func (s *Store) TransactionsBetween(ctx context.Context, from, to string) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, posting_date, value_date, description, amount, balance
		FROM transactions
		WHERE posting_date >= ? AND posting_date <= ?
		ORDER BY id ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query transactions between %s and %s: %w", from, to, err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// ListFilter narrows ListTransactions. Zero values disable a filter.
type ListFilter struct {
	Month      string // YYYY-MM
	CategoryID int64
}

// ListTransactions returns transactions newest first (posting date, then
// ID), each once, with the category tags that survived the filter.
func (s *Store) ListTransactions(ctx context.Context, f ListFilter) ([]model.Transaction, error) {
	query := `
		SELECT t.id, t.posting_date, t.value_date, t.description, t.amount, t.balance,
			c.id, c.name, c.description
		FROM transactions t
		LEFT JOIN transaction_categories tc ON t.id = tc.transaction_id
		LEFT JOIN categories c ON tc.category_id = c.id`

	var (
		where []string
		args  []any
	)
	if f.Month != "" {
		where = append(where, "strftime('%Y-%m', t.posting_date) = ?")
		args = append(args, f.Month)
	}
	if f.CategoryID > 0 {
		where = append(where, "c.id = ?")
		args = append(args, f.CategoryID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.posting_date DESC, t.id DESC, c.id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var (
		out   []model.Transaction
		index = make(map[int64]int)
	)
	for rows.Next() {
		var (
			tx               model.Transaction
			valueDate        sql.NullString
			amount, balance  string
			catID            sql.NullInt64
			catName, catDesc sql.NullString
		)
		if err := rows.Scan(&tx.ID, &tx.PostingDate, &valueDate, &tx.Description, &amount, &balance,
			&catID, &catName, &catDesc); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		i, seen := index[tx.ID]
		if !seen {
			tx.ValueDate = valueDate.String
			if tx.Amount, err = decimal.NewFromString(amount); err != nil {
				return nil, fmt.Errorf("transaction %d amount %q: %w", tx.ID, amount, err)
			}
			if tx.Balance, err = decimal.NewFromString(balance); err != nil {
				return nil, fmt.Errorf("transaction %d balance %q: %w", tx.ID, balance, err)
			}
			tx.Categories = []model.Category{}
			out = append(out, tx)
			i = len(out) - 1
			index[tx.ID] = i
		}
		if catID.Valid {
			out[i].Categories = append(out[i].Categories, model.Category{
				ID:          catID.Int64,
				Name:        catName.String,
				Description: catDesc.String,
			})
		}
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(sc scanner) (model.Transaction, error) {
	var (
		tx              model.Transaction
		valueDate       sql.NullString
		amount, balance string
	)
	if err := sc.Scan(&tx.ID, &tx.PostingDate, &valueDate, &tx.Description, &amount, &balance); err != nil {
		return model.Transaction{}, err
	}
	tx.ValueDate = valueDate.String

	var err error
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return model.Transaction{}, fmt.Errorf("amount %q: %w", amount, err)
	}
	if tx.Balance, err = decimal.NewFromString(balance); err != nil {
		return model.Transaction{}, fmt.Errorf("balance %q: %w", balance, err)
	}
	return tx, nil
}
