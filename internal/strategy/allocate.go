package strategy

import (
	"math"
	"sort"

	"SmartPortfolio/internal/calculator"
	"SmartPortfolio/internal/model"
)

// DefaultScoreThreshold is the minimum score for a ticker to be bought.
const DefaultScoreThreshold = 40

// AllocationParams controls which tickers qualify and how much is invested.
type AllocationParams struct {
	Threshold float64 `json:"threshold"`
	// MaxPE drops tickers whose raw PE is missing or not below it. Zero disables the filter.
	MaxPE  float64 `json:"max_pe"`
	Amount float64 `json:"amount"`
}

// DefaultAllocationParams returns the canonical policy for the given amount.
func DefaultAllocationParams(amount float64) AllocationParams {
	return AllocationParams{Threshold: DefaultScoreThreshold, Amount: amount}
}

// Allocate filters rows by score (and the optional PE ceiling), ranks them
// by descending score and splits the amount in proportion to score. Equal
// scores keep their upstream order. An empty result means nothing
// qualifies and is not an error.
func Allocate(rows []model.ScoredRow, p AllocationParams) []model.Allocation {
	amount := p.Amount
	if amount < 0 || !isFinite(amount) {
		amount = 0
	}

	picked := make([]model.ScoredRow, 0, len(rows))
	for _, r := range rows {
		if r.Score < p.Threshold {
			continue
		}
		if p.MaxPE > 0 && (r.PERatio == nil || !(*r.PERatio < p.MaxPE)) {
			continue
		}
		picked = append(picked, r)
	}
	out := make([]model.Allocation, 0, len(picked))
	if len(picked) == 0 {
		return out
	}

	sort.SliceStable(picked, func(i, j int) bool { return picked[i].Score > picked[j].Score })

	scores := make([]float64, len(picked))
	for i, r := range picked {
		scores[i] = r.Score
	}
	total := calculator.Sum(scores)

	for _, r := range picked {
		fraction := 1 / float64(len(picked))
		if total > 0 {
			fraction = r.Score / total
		}
		investment := calculator.Round2(fraction * amount)
		out = append(out, model.Allocation{
			ScoredRow:    r,
			Fraction:     fraction,
			Investment:   investment,
			TargetShares: targetShares(investment, r.Price),
		})
	}
	return out
}

// targetShares is the whole number of shares the investment buys, or 0
// when the price is unknown or not positive.
func targetShares(investment float64, price *float64) int {
	if price == nil || !isFinite(*price) || *price <= 0 {
		return 0
	}
	return int(math.Floor(investment / *price))
}
