package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestKeyEqual(t *testing.T) {
	base := Transaction{
		PostingDate: "2025-06-10",
		Description: "MERCADONA",
		Amount:      decimal.RequireFromString("-45.50"),
		Balance:     decimal.RequireFromString("1200.00"),
	}

	same := base
	same.Amount = decimal.RequireFromString("-45.5")
	same.ValueDate = "2025-06-11"
	assert.True(t, base.Key().Equal(same.Key()), "trailing zeros and value date do not change identity")

	tests := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"posting date", func(tx *Transaction) { tx.PostingDate = "2025-06-11" }},
		{"description", func(tx *Transaction) { tx.Description = "MERCADONA SA" }},
		{"amount", func(tx *Transaction) { tx.Amount = decimal.RequireFromString("-45.51") }},
		{"balance", func(tx *Transaction) { tx.Balance = decimal.RequireFromString("1200.01") }},
	}
	for _, tt := range tests {
		other := base
		tt.mutate(&other)
		assert.False(t, base.Key().Equal(other.Key()), "differing %s must not match", tt.name)
	}
}
