package similarity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cuentas-dev/cuentas/internal/model"
)

// ErrInvalidDate is returned when the reference date is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid reference date")

// CandidateSource returns stored transactions posted within [from, to].
type CandidateSource interface {
	TransactionsBetween(ctx context.Context, from, to string) ([]model.Transaction, error)
}

// Request describes one similarity query.
type Request struct {
	Description string
	Amount      decimal.Decimal
	Date        string // YYYY-MM-DD
	// Threshold of zero selects the finder's default.
	Threshold float64
	// TopK > 0 returns exactly that many candidates, ignoring Threshold.
	TopK int
}

// Finder fetches the one-year candidate window and ranks it.
type Finder struct {
	source    CandidateSource
	threshold float64
	log       zerolog.Logger
}

// NewFinder returns a Finder. threshold <= 0 uses DefaultThreshold.
func NewFinder(source CandidateSource, threshold float64, log zerolog.Logger) *Finder {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Finder{source: source, threshold: threshold, log: log}
}

// Find scores every transaction posted in the year up to and including
// req.Date. A stored copy of the reference itself is a candidate too.
func (f *Finder) Find(ctx context.Context, req Request) ([]model.SimilarityCandidate, error) {
	date, err := time.Parse(model.DateFormat, req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrInvalidDate, req.Date)
	}

	from := date.AddDate(-1, 0, 0).Format(model.DateFormat)
	to := date.Format(model.DateFormat)
	pool, err := f.source.TransactionsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetching candidates: %w", err)
	}

	ref := Reference{Description: req.Description, Amount: req.Amount, Date: date}
	scored := make([]model.SimilarityCandidate, 0, len(pool))
	for _, tx := range pool {
		d, err := time.Parse(model.DateFormat, tx.PostingDate)
		if err != nil {
			f.log.Warn().Int64("transaction_id", tx.ID).Str("posting_date", tx.PostingDate).
				Msg("skipping candidate with unparseable date")
			continue
		}
		scored = append(scored, Score(ref, tx, d))
	}

	threshold := req.Threshold
	if threshold == 0 {
		threshold = f.threshold
	}
	out := Select(scored, threshold, req.TopK)

	f.log.Debug().Str("date", req.Date).Int("pool", len(pool)).Int("returned", len(out)).
		Msg("similarity query")
	return out, nil
}
