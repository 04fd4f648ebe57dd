// Package transactions serves the filtered transaction listing.
package transactions

import (
	"context"
	"fmt"

	"github.com/cuentas-dev/cuentas/internal/model"
	"github.com/cuentas-dev/cuentas/internal/period"
	"github.com/cuentas-dev/cuentas/internal/store"
)

// Repository lists stored transactions with their categories.
type Repository interface {
	ListTransactions(ctx context.Context, f store.ListFilter) ([]model.Transaction, error)
}

// Filter narrows a query. Month is YYYY-MM; CategoryID <= 0 is ignored.
type Filter struct {
	Month      string
	CategoryID int64
}

// Service provides the transaction query.
type Service struct {
	repo Repository
}

// NewService creates a transactions Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Query returns matching transactions, newest posting date first, each
// with the category tags that matched the filter.
func (s *Service) Query(ctx context.Context, f Filter) ([]model.Transaction, error) {
	month, err := period.Normalize(f.Month)
	if err != nil {
		return nil, err
	}
	lf := store.ListFilter{Month: month}
	if f.CategoryID > 0 {
		lf.CategoryID = f.CategoryID
	}

	txs, err := s.repo.ListTransactions(ctx, lf)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	return txs, nil
}
