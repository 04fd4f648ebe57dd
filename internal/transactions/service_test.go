package transactions

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuentas-dev/cuentas/internal/model"
	"github.com/cuentas-dev/cuentas/internal/store"
)

type mockRepo struct {
	got  store.ListFilter
	txs  []model.Transaction
	err  error
	hits int
}

func (m *mockRepo) ListTransactions(_ context.Context, f store.ListFilter) ([]model.Transaction, error) {
	m.hits++
	m.got = f
	return m.txs, m.err
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestQuery_PassesFilter(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	got, err := svc.Query(context.Background(), Filter{Month: " 2025-06", CategoryID: 3})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, store.ListFilter{Month: "2025-06", CategoryID: 3}, repo.got)
}

func TestQuery_IgnoresNonPositiveCategory(t *testing.T) {
	repo := &mockRepo{}
	_, err := NewService(repo).Query(context.Background(), Filter{CategoryID: -1})
	require.NoError(t, err)
	assert.Equal(t, store.ListFilter{}, repo.got)
}

func TestQuery_InvalidMonth(t *testing.T) {
	repo := &mockRepo{}
	_, err := NewService(repo).Query(context.Background(), Filter{Month: "06/2025"})
	assert.Error(t, err)
	assert.Zero(t, repo.hits)
}

func TestQuery_RepoError(t *testing.T) {
	boom := errors.New("locked")
	_, err := NewService(&mockRepo{err: boom}).Query(context.Background(), Filter{})
	assert.ErrorIs(t, err, boom)
}

func TestQuery_Store(t *testing.T) {
	s, err := store.Open(t.TempDir() + "/m.db")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	for _, d := range []string{"2025-05-31", "2025-06-01", "2025-06-20"} {
		_, err := s.InsertTransaction(ctx, model.Transaction{PostingDate: d, Description: "X", Amount: dec("1"), Balance: dec("1")})
		require.NoError(t, err)
	}

	got, err := NewService(s).Query(ctx, Filter{Month: "2025-06"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2025-06-20", got[0].PostingDate)
	assert.Equal(t, "2025-06-01", got[1].PostingDate)
}

func TestWriteCSV(t *testing.T) {
	txs := []model.Transaction{
		{
			ID: 2, PostingDate: "2025-06-10", ValueDate: "2025-06-11",
			Description: "RECIBO IBERDROLA, S.A.", Amount: dec("-45.9"), Balance: dec("3142.45"),
			Categories: []model.Category{{ID: 1, Name: "Hogar"}, {ID: 4, Name: "Suministros"}},
		},
		{ID: 1, PostingDate: "2025-06-02", Description: "NOMINA", Amount: dec("1850"), Balance: dec("3250.75")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, txs))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"id", "posting_date", "value_date", "description", "amount", "balance", "categories"}, records[0])
	assert.Equal(t, []string{"2", "2025-06-10", "2025-06-11", "RECIBO IBERDROLA, S.A.", "-45.90", "3142.45", "Hogar;Suministros"}, records[1])
	assert.Equal(t, []string{"1", "2025-06-02", "", "NOMINA", "1850.00", "3250.75", ""}, records[2])
}
