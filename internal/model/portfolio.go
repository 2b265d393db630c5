package model

import "fmt"

// CleanRow is a FundamentalRecord after normalization: every ratio is
// finite, lower-is-better ratios are inverted and gaps are imputed.
type CleanRow struct {
	FundamentalRecord
	Ratios  [RatioCount]float64 `json:"ratios"`
	Imputed [RatioCount]bool    `json:"imputed"`
}

// CleanTable is the output of the normalizer.
type CleanTable struct {
	Rows    []CleanRow `json:"rows"`
	Skipped []string   `json:"skipped,omitempty"` // tickers with no usable ratio
}

// ScoredRow carries the composite score, comparable only within its batch.
type ScoredRow struct {
	CleanRow
	Score float64 `json:"score"`
}

// Allocation is a scored row that cleared the threshold.
type Allocation struct {
	ScoredRow
	Fraction     float64 `json:"allocation_fraction"`
	Investment   float64 `json:"investment_amount"`
	TargetShares int     `json:"target_shares"`
}

// ActionKind is the direction of a rebalance action.
type ActionKind string

const (
	ActionBuy  ActionKind = "BUY"
	ActionSell ActionKind = "SELL"
	ActionHold ActionKind = "HOLD"
)

// Action is BUY(n), SELL(n) or HOLD. Shares is zero for HOLD.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Shares int        `json:"shares"`
}

func (a Action) String() string {
	if a.Kind == ActionHold || a.Kind == "" {
		return string(ActionHold)
	}
	return fmt.Sprintf("%s %d", a.Kind, a.Shares)
}

// RebalanceRow compares a target allocation to the current holding.
type RebalanceRow struct {
	Allocation
	CurrentShares int    `json:"current_shares"`
	Action        Action `json:"action"`
}

// ProjectionPoint is the projected wealth at the end of a year.
type ProjectionPoint struct {
	Year        int     `json:"year"`
	Value       float64 `json:"value"`
	Contributed float64 `json:"contributed"`
}
