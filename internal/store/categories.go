package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cuentas-dev/cuentas/internal/model"
)

// ListCategories returns every category ordered by ID.
func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCategory returns one category.
func (s *Store) GetCategory(ctx context.Context, id int64) (model.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx,
		`SELECT id, name, description FROM categories WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return model.Category{}, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

// CreateCategory inserts a category and returns it with its new ID.
func (s *Store) CreateCategory(ctx context.Context, name, description string) (model.Category, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name, description) VALUES (?, ?)`, name, nullable(description))
	if isUniqueViolation(err) {
		return model.Category{}, fmt.Errorf("category %q: %w", name, ErrConflict)
	}
	if err != nil {
		return model.Category{}, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Category{}, fmt.Errorf("insert category id: %w", err)
	}
	return model.Category{ID: id, Name: name, Description: description}, nil
}

// UpdateCategory replaces name and description of an existing category.
func (s *Store) UpdateCategory(ctx context.Context, c model.Category) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ? WHERE id = ?`,
		c.Name, nullable(c.Description), c.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("category %q: %w", c.Name, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("update category %d: %w", c.ID, err)
	}
	return expectOne(res, fmt.Sprintf("category %d", c.ID))
}

// DeleteCategory removes a category and every assignment that references it.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete category: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transaction_categories WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("delete category %d links: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	if err := expectOne(res, fmt.Sprintf("category %d", id)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete category: %w", err)
	}
	return nil
}

// HasAssignment reports whether the transaction is tagged with the category.
func (s *Store) HasAssignment(ctx context.Context, transactionID, categoryID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM transaction_categories
		WHERE transaction_id = ? AND category_id = ? LIMIT 1`,
		transactionID, categoryID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query assignment: %w", err)
	}
	return true, nil
}

// Assign links a transaction to a category. Callers check HasAssignment first.
func (s *Store) Assign(ctx context.Context, transactionID, categoryID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transaction_categories (transaction_id, category_id) VALUES (?, ?)`,
		transactionID, categoryID)
	if err != nil {
		return fmt.Errorf("assign category %d to transaction %d: %w", categoryID, transactionID, err)
	}
	return nil
}

// Unassign removes the link between a transaction and a category.
func (s *Store) Unassign(ctx context.Context, transactionID, categoryID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transaction_categories WHERE transaction_id = ? AND category_id = ?`,
		transactionID, categoryID)
	if err != nil {
		return fmt.Errorf("remove category %d from transaction %d: %w", categoryID, transactionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove category rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("assignment %d/%d: %w", transactionID, categoryID, ErrNotFound)
	}
	return nil
}

func scanCategory(sc scanner) (model.Category, error) {
	var (
		c    model.Category
		desc sql.NullString
	)
	if err := sc.Scan(&c.ID, &c.Name, &desc); err != nil {
		return model.Category{}, err
	}
	c.Description = desc.String
	return c, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
