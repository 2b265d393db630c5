package strategy

import (
	"SmartPortfolio/internal/calculator"
	"SmartPortfolio/internal/model"
)

// MaxSectorPenalty is the discount applied to a sector holding the whole batch.
const MaxSectorPenalty = 0.2

// ApplySectorPenalty discounts each score by MaxSectorPenalty times its
// sector's share of the batch. Unmapped tickers share the Unknown bucket.
// When disabled the rows are returned unchanged (as a copy).
func ApplySectorPenalty(rows []model.ScoredRow, enabled bool) []model.ScoredRow {
	out := make([]model.ScoredRow, len(rows))
	copy(out, rows)
	if !enabled || len(out) == 0 {
		return out
	}

	counts := make(map[string]int)
	for i := range out {
		counts[out[i].SectorOrUnknown()]++
	}
	n := float64(len(out))
	for i := range out {
		share := float64(counts[out[i].SectorOrUnknown()]) / n
		out[i].Score = calculator.Round2(out[i].Score * (1 - MaxSectorPenalty*share))
	}
	return out
}
