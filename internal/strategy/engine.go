package strategy

import "SmartPortfolio/internal/model"

// Params are the user inputs of one evaluation.
type Params struct {
	Allocation    AllocationParams
	SectorPenalty bool
	Holdings      map[string]int
}

// State summarizes what a Result has to show.
type State string

const (
	StateNoData       State = "NO_DATA"
	StateNoQualifying State = "NO_QUALIFYING"
	StateReady        State = "READY"
)

// Result holds every table the pipeline produces.
type Result struct {
	Cleaned     *model.CleanTable    `json:"cleaned"`
	Scored      []model.ScoredRow    `json:"scored"`
	Allocations []model.Allocation   `json:"allocations"`
	Rebalance   []model.RebalanceRow `json:"rebalance"`
	Params      Params               `json:"-"`
}

// State reports whether there was anything to score and anything to buy.
func (r *Result) State() State {
	switch {
	case r == nil || len(r.Scored) == 0:
		return StateNoData
	case len(r.Allocations) == 0:
		return StateNoQualifying
	default:
		return StateReady
	}
}

// WithHoldings recomputes only the rebalance table for new holdings.
func (r *Result) WithHoldings(holdings map[string]int) *Result {
	next := *r
	next.Params.Holdings = holdings
	next.Rebalance = Rebalance(r.Allocations, holdings)
	return &next
}

// Evaluate runs the full pipeline. It has no side effects, so identical
// inputs always give identical results.
func Evaluate(records []model.FundamentalRecord, p Params) *Result {
	// Step a: clean and impute
	cleaned := Normalize(records)

	// Step b: composite score, then the optional diversification discount
	scored := ApplySectorPenalty(Score(cleaned), p.SectorPenalty)

	// Step c: threshold, rank and split the amount
	allocs := Allocate(scored, p.Allocation)

	// Step d: compare with current holdings
	return &Result{
		Cleaned:     cleaned,
		Scored:      scored,
		Allocations: allocs,
		Rebalance:   Rebalance(allocs, p.Holdings),
		Params:      p,
	}
}
