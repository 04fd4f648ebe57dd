// Package similarity ranks stored transactions against a reference
// transaction by description, amount and date.
package similarity

import (
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/shopspring/decimal"

	"github.com/cuentas-dev/cuentas/internal/model"
)

// Reference is the transaction candidates are compared against.
type Reference struct {
	Description string
	Amount      decimal.Decimal
	Date        time.Time
}

// Score computes the sub-scores and their mean for one candidate whose
// posting date has already been parsed into date.
func Score(ref Reference, cand model.Transaction, date time.Time) model.SimilarityCandidate {
	desc := DescriptionSimilarity(strings.ToLower(ref.Description), cand.Description)
	amount := AmountSimilarity(ref.Amount, cand.Amount)
	day := DateSimilarity(ref.Date, date)

	return model.SimilarityCandidate{
		Transaction:           cand,
		Similarity:            (desc + amount + day) / 3,
		DescriptionSimilarity: desc,
		AmountSimilarity:      amount,
		DateSimilarity:        day,
	}
}

// DescriptionSimilarity is the sequence-matcher ratio of a and b over
// their runes: 2*M/T where M is the matched rune count and T the total.
func DescriptionSimilarity(a, b string) float64 {
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// AmountSimilarity is 1 - |a-b| / max(|a|,|b|), and 1 when both are zero.
func AmountSimilarity(a, b decimal.Decimal) float64 {
	denom := decimal.Max(a.Abs(), b.Abs())
	if denom.IsZero() {
		return 1
	}
	return 1 - a.Sub(b).Abs().Div(denom).InexactFloat64()
}

// DateSimilarity averages a same-weekday flag with day-of-month and
// day-of-year closeness. The latter two are not clamped at zero.
func DateSimilarity(a, b time.Time) float64 {
	var weekday float64
	if a.Weekday() == b.Weekday() {
		weekday = 1
	}
	dom := 1 - absInt(a.Day()-b.Day())/30
	doy := 1 - absInt(a.YearDay()-b.YearDay())/365
	return (weekday + dom + doy) / 3
}

func absInt(n int) float64 {
	if n < 0 {
		n = -n
	}
	return float64(n)
}
