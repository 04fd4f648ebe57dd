package similarity

import (
	"sort"

	"github.com/cuentas-dev/cuentas/internal/model"
)

// DefaultThreshold is the minimum score kept when no limit is requested.
const DefaultThreshold = 0.8

// Select orders cands by score, highest first, keeping retrieval order
// among equal scores. A positive topK returns that many regardless of
// score; otherwise only candidates scoring at least threshold are kept.
// cands is reordered in place.
func Select(cands []model.SimilarityCandidate, threshold float64, topK int) []model.SimilarityCandidate {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Similarity > cands[j].Similarity
	})

	if topK > 0 {
		if topK < len(cands) {
			return cands[:topK]
		}
		return cands
	}

	out := cands[:0:0]
	for _, c := range cands {
		if c.Similarity >= threshold {
			out = append(out, c)
		}
	}
	return out
}
