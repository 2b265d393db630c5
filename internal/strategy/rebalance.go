package strategy

import "SmartPortfolio/internal/model"

// Rebalance compares each allocation's target share count with the
// current holding. Tickers absent from holdings are treated as zero.
func Rebalance(allocs []model.Allocation, holdings map[string]int) []model.RebalanceRow {
	out := make([]model.RebalanceRow, 0, len(allocs))
	for _, a := range allocs {
		current := holdings[a.Ticker]
		if current < 0 {
			current = 0
		}
		out = append(out, model.RebalanceRow{
			Allocation:    a,
			CurrentShares: current,
			Action:        decide(a.TargetShares, current),
		})
	}
	return out
}

func decide(target, current int) model.Action {
	switch {
	case current < target:
		return model.Action{Kind: model.ActionBuy, Shares: target - current}
	case current > target:
		return model.Action{Kind: model.ActionSell, Shares: current - target}
	default:
		return model.Action{Kind: model.ActionHold}
	}
}
