package model

import (
	"github.com/shopspring/decimal"
)

// DateFormat is the ISO-8601 calendar date layout used for stored dates.
const DateFormat = "2006-01-02"

// Transaction is a normalized bank movement.
type Transaction struct {
	ID          int64           `json:"id"`
	PostingDate string          `json:"posting_date"` // YYYY-MM-DD
	ValueDate   string          `json:"value_date,omitempty"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
	Categories  []Category      `json:"categories"` // attached by queries only
}

// Key is the exact-match identity used to detect re-imported rows.
type Key struct {
	PostingDate string
	Description string
	Amount      decimal.Decimal
	Balance     decimal.Decimal
}

// Key returns the dedup key of the transaction.
func (t Transaction) Key() Key {
	return Key{
		PostingDate: t.PostingDate,
		Description: t.Description,
		Amount:      t.Amount,
		Balance:     t.Balance,
	}
}

// Equal reports whether two keys identify the same movement.
// Decimals compare by value, so 10.5 and 10.50 are equal.
func (k Key) Equal(o Key) bool {
	return k.PostingDate == o.PostingDate &&
		k.Description == o.Description &&
		k.Amount.Equal(o.Amount) &&
		k.Balance.Equal(o.Balance)
}

// SimilarityCandidate is a stored transaction scored against a reference.
type SimilarityCandidate struct {
	Transaction
	Similarity            float64 `json:"similarity"`
	DescriptionSimilarity float64 `json:"description_similarity"`
	AmountSimilarity      float64 `json:"amount_similarity"`
	DateSimilarity        float64 `json:"date_similarity"`
}
