package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"SmartPortfolio/internal/model"
	"SmartPortfolio/internal/strategy"
)

const (
	msgNoData       = "⚠️ No data: none of the tickers returned usable fundamentals."
	msgNoQualifying = "⚠️ No qualifying stocks: nothing scored at or above the threshold."
)

// Money renders an amount as $1,234.50.
func Money(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "$" + humanize.FormatFloat("#,###.##", v)
}

func price(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return Money(*p)
}

// FormatSignals formats the ranked allocation table.
func FormatSignals(res *strategy.Result, pool string, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>SmartPortfolio signals</b> | %s | %s\n\n", html.EscapeString(pool), at.Format("2006-01-02 15:04"))

	switch res.State() {
	case strategy.StateNoData:
		b.WriteString(msgNoData)
		return b.String()
	case strategy.StateNoQualifying:
		fmt.Fprintf(&b, "Scored %d tickers, best %.2f.\n", len(res.Scored), bestScore(res.Scored))
		b.WriteString(msgNoQualifying)
		return b.String()
	}

	p := res.Params.Allocation
	fmt.Fprintf(&b, "Budget %s | threshold %.0f", Money(p.Amount), p.Threshold)
	if p.MaxPE > 0 {
		fmt.Fprintf(&b, " | PE &lt; %.0f", p.MaxPE)
	}
	if res.Params.SectorPenalty {
		b.WriteString(" | sector penalty on")
	}
	b.WriteString("\n\n")

	for i, a := range res.Allocations {
		fmt.Fprintf(&b, "%d. <b>%s</b> %s\n", i+1, html.EscapeString(a.Ticker), html.EscapeString(a.Name))
		fmt.Fprintf(&b, "   score %.2f | %s | %.1f%%\n", a.Score, html.EscapeString(a.SectorOrUnknown()), a.Fraction*100)
		fmt.Fprintf(&b, "   invest %s @ %s ≈ %d sh\n", Money(a.Investment), price(a.Price), a.TargetShares)
	}
	if skipped := res.Cleaned.Skipped; len(skipped) > 0 {
		fmt.Fprintf(&b, "\nNo data: %s\n", html.EscapeString(strings.Join(skipped, ", ")))
	}
	return b.String()
}

// FormatRebalance formats the BUY/SELL/HOLD list.
func FormatRebalance(res *strategy.Result) string {
	var b strings.Builder
	b.WriteString("🔁 <b>Rebalance</b>\n\n")

	switch res.State() {
	case strategy.StateNoData:
		b.WriteString(msgNoData)
		return b.String()
	case strategy.StateNoQualifying:
		b.WriteString(msgNoQualifying)
		return b.String()
	}

	for _, r := range res.Rebalance {
		icon := "⏸"
		switch r.Action.Kind {
		case model.ActionBuy:
			icon = "🟢"
		case model.ActionSell:
			icon = "🔴"
		}
		fmt.Fprintf(&b, "%s <b>%s</b> %d → %d: %s\n", icon, html.EscapeString(r.Ticker), r.CurrentShares, r.TargetShares, r.Action)
	}
	return b.String()
}

// FormatHoldings formats the current holdings book.
func FormatHoldings(holdings map[string]int) string {
	if len(holdings) == 0 {
		return "📦 <b>Holdings</b>\n\nNo holdings recorded. Use /hold TICKER SHARES."
	}
	tickers := make([]string, 0, len(holdings))
	for t := range holdings {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	var b strings.Builder
	b.WriteString("📦 <b>Holdings</b>\n\n")
	for _, t := range tickers {
		fmt.Fprintf(&b, "%s: %s\n", html.EscapeString(t), humanize.Comma(int64(holdings[t])))
	}
	return b.String()
}

// FormatRefresh is the short notice sent after a scheduled refresh.
func FormatRefresh(res *strategy.Result, tickers, skipped int, took time.Duration) string {
	return fmt.Sprintf("✅ Refreshed %d tickers in %s: %d scored, %d allocated, %d without data.",
		tickers, took.Round(time.Millisecond), len(res.Scored), len(res.Allocations), skipped)
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return "🤖 <b>SmartPortfolio commands</b>\n\n" +
		"/signals - ranked allocation\n" +
		"/rebalance - BUY/SELL/HOLD list\n" +
		"/hold TICKER SHARES - set a holding\n" +
		"/holdings - show holdings\n" +
		"/refresh - fetch and rescore now\n" +
		"/help - this message"
}

func bestScore(rows []model.ScoredRow) float64 {
	best := 0.0
	for _, r := range rows {
		if r.Score > best {
			best = r.Score
		}
	}
	return best
}
