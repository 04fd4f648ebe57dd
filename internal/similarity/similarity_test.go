package similarity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuentas-dev/cuentas/internal/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, err := time.Parse(model.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDescriptionSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, DescriptionSimilarity("mercadona", "mercadona"))
	assert.Equal(t, 0.75, DescriptionSimilarity("abcd", "bcde"))
	assert.Equal(t, 0.0, DescriptionSimilarity("abc", "xyz"))
	assert.Equal(t, 1.0, DescriptionSimilarity("", ""))
	// Multi-byte runes count once.
	assert.Equal(t, 1.0, DescriptionSimilarity("peña", "peña"))
}

func TestAmountSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, AmountSimilarity(d("0"), d("0.00")))
	assert.Equal(t, 1.0, AmountSimilarity(d("-45.90"), d("-45.9")))
	assert.Equal(t, 0.5, AmountSimilarity(d("100"), d("50")))
	assert.Equal(t, 0.0, AmountSimilarity(d("0"), d("12")))
	assert.Equal(t, -1.0, AmountSimilarity(d("-10"), d("10")), "opposite signs are not clamped")
}

func TestDateSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, DateSimilarity(day("2025-06-10"), day("2025-06-10")))

	// Both Tuesdays, a week apart.
	want := (1 + (1 - 7.0/30) + (1 - 7.0/365)) / 3
	assert.InDelta(t, want, DateSimilarity(day("2025-06-10"), day("2025-06-17")), 1e-12)

	// Adjacent days across New Year of a leap year score zero.
	got := DateSimilarity(day("2025-01-01"), day("2024-12-31"))
	want = (0 + (1 - 30.0/30) + (1 - 365.0/365)) / 3
	assert.InDelta(t, want, got, 1e-12)
}

func TestScore_Identical(t *testing.T) {
	tx := model.Transaction{ID: 7, PostingDate: "2025-06-10", Description: "recibo iberdrola", Amount: d("-45.90")}
	ref := Reference{Description: "RECIBO IBERDROLA", Amount: d("-45.90"), Date: day("2025-06-10")}

	c := Score(ref, tx, day("2025-06-10"))
	assert.Equal(t, 1.0, c.Similarity)
	assert.Equal(t, int64(7), c.ID)
}

func TestScore_CandidateDescriptionNotLowered(t *testing.T) {
	tx := model.Transaction{PostingDate: "2025-06-10", Description: "RECIBO", Amount: d("1")}
	ref := Reference{Description: "recibo", Amount: d("1"), Date: day("2025-06-10")}

	c := Score(ref, tx, day("2025-06-10"))
	assert.Equal(t, 0.0, c.DescriptionSimilarity)
}

func cand(id int64, score float64) model.SimilarityCandidate {
	return model.SimilarityCandidate{Transaction: model.Transaction{ID: id}, Similarity: score}
}

func ids(cs []model.SimilarityCandidate) []int64 {
	out := make([]int64, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func TestSelect_ThresholdInclusive(t *testing.T) {
	got := Select([]model.SimilarityCandidate{cand(1, 0.79), cand(2, 0.80), cand(3, 0.95)}, DefaultThreshold, 0)
	assert.Equal(t, []int64{3, 2}, ids(got))
}

func TestSelect_TopKOverridesThreshold(t *testing.T) {
	in := []model.SimilarityCandidate{cand(1, 0.3), cand(2, 0.5), cand(3, 0.1), cand(4, 0.5)}
	got := Select(in, DefaultThreshold, 2)
	assert.Equal(t, []int64{2, 4}, ids(got), "ties keep retrieval order")
}

func TestSelect_TopKLargerThanPool(t *testing.T) {
	got := Select([]model.SimilarityCandidate{cand(1, 0.2), cand(2, 0.4)}, DefaultThreshold, 5)
	assert.Equal(t, []int64{2, 1}, ids(got))
}

func TestSelect_Empty(t *testing.T) {
	assert.Empty(t, Select(nil, DefaultThreshold, 0))
	assert.Empty(t, Select(nil, DefaultThreshold, 3))
}

type mockSource struct {
	from, to string
	txs      []model.Transaction
	err      error
}

func (m *mockSource) TransactionsBetween(_ context.Context, from, to string) ([]model.Transaction, error) {
	m.from, m.to = from, to
	return m.txs, m.err
}

func TestFinder_Window(t *testing.T) {
	src := &mockSource{}
	f := NewFinder(src, 0, zerolog.Nop())

	_, err := f.Find(context.Background(), Request{Date: "2025-06-15"})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-15", src.from)
	assert.Equal(t, "2025-06-15", src.to)

	_, err = f.Find(context.Background(), Request{Date: "2024-02-29"})
	require.NoError(t, err)
	assert.Equal(t, "2023-03-01", src.from, "leap day rolls forward")
}

func TestFinder_SelfMatchAndSkips(t *testing.T) {
	src := &mockSource{txs: []model.Transaction{
		{ID: 1, PostingDate: "2025-06-10", Description: "recibo iberdrola", Amount: d("-45.90")},
		{ID: 2, PostingDate: "10/06/2025", Description: "recibo iberdrola", Amount: d("-45.90")},
		{ID: 3, PostingDate: "2025-01-03", Description: "nomina", Amount: d("1850")},
	}}
	f := NewFinder(src, 0, zerolog.Nop())

	got, err := f.Find(context.Background(), Request{
		Description: "RECIBO IBERDROLA",
		Amount:      d("-45.90"),
		Date:        "2025-06-10",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, 1.0, got[0].Similarity)

	got, err = f.Find(context.Background(), Request{
		Description: "RECIBO IBERDROLA",
		Amount:      d("-45.90"),
		Date:        "2025-06-10",
		TopK:        5,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(got))
}

func TestFinder_Errors(t *testing.T) {
	f := NewFinder(&mockSource{}, 0, zerolog.Nop())
	_, err := f.Find(context.Background(), Request{Date: "10/06/2025"})
	assert.ErrorIs(t, err, ErrInvalidDate)

	boom := errors.New("db closed")
	f = NewFinder(&mockSource{err: boom}, 0, zerolog.Nop())
	_, err = f.Find(context.Background(), Request{Date: "2025-06-10"})
	assert.ErrorIs(t, err, boom)
}
