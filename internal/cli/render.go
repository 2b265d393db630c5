package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"SmartPortfolio/internal/model"
	"SmartPortfolio/internal/notifier"
	"SmartPortfolio/internal/strategy"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	buyStyle  = cellStyle.Foreground(lipgloss.Color("#10B981"))
	sellStyle = cellStyle.Foreground(lipgloss.Color("#EF4444"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))).
		Headers(headers...)
}

func fixed(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func optPrice(p *float64) string {
	if p == nil {
		return "-"
	}
	return notifier.Money(*p)
}

func renderResult(w io.Writer, res *strategy.Result, pool string) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("SmartPortfolio | pool %s | %d scored", pool, len(res.Scored))))

	switch res.State() {
	case strategy.StateNoData:
		fmt.Fprintln(w, warnStyle.Render("No data: none of the tickers returned usable fundamentals."))
		return
	case strategy.StateNoQualifying:
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("No qualifying stocks at threshold %.0f.", res.Params.Allocation.Threshold)))
		renderScores(w, res.Scored)
		return
	}

	alloc := newTable("#", "Ticker", "Name", "Sector", "Score", "Price", "Invest", "Shares", "Alloc%").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for i, a := range res.Allocations {
		alloc.Row(strconv.Itoa(i+1), a.Ticker, a.Name, a.SectorOrUnknown(), fixed(a.Score),
			optPrice(a.Price), notifier.Money(a.Investment), humanize.Comma(int64(a.TargetShares)),
			fixed(a.Fraction*100))
	}
	fmt.Fprintln(w, alloc.Render())

	rows := res.Rebalance
	rebalance := newTable("Ticker", "Current", "Target", "Action").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 3 && row >= 0 && row < len(rows) {
				switch rows[row].Action.Kind {
				case model.ActionBuy:
					return buyStyle
				case model.ActionSell:
					return sellStyle
				}
			}
			return cellStyle
		})
	for _, r := range rows {
		rebalance.Row(r.Ticker, strconv.Itoa(r.CurrentShares), strconv.Itoa(r.TargetShares), r.Action.String())
	}
	fmt.Fprintln(w, rebalance.Render())
}

func renderScores(w io.Writer, rows []model.ScoredRow) {
	t := newTable("Ticker", "Sector", "Score").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, r := range rows {
		t.Row(r.Ticker, r.SectorOrUnknown(), fixed(r.Score))
	}
	fmt.Fprintln(w, t.Render())
}

// renderRaw prints the provider values behind each score. Imputed cells are
// marked with an asterisk.
func renderRaw(w io.Writer, rows []model.ScoredRow) {
	headers := []string{"Ticker", "Name", "Sector"}
	for d := model.Ratio(0); d < model.RatioCount; d++ {
		headers = append(headers, d.String())
	}
	headers = append(headers, "Price", "Score")

	t := newTable(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, r := range rows {
		cells := []string{r.Ticker, r.Name, r.SectorOrUnknown()}
		for d := model.Ratio(0); d < model.RatioCount; d++ {
			cell := "-"
			if v := r.Ratio(d); v != nil {
				cell = strconv.FormatFloat(*v, 'f', 4, 64)
			}
			if r.Imputed[d] {
				cell += "*"
			}
			cells = append(cells, cell)
		}
		cells = append(cells, optPrice(r.Price), fixed(r.Score))
		t.Row(cells...)
	}
	fmt.Fprintln(w, titleStyle.Render("Raw data"))
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, "* imputed with the batch mean")
}

func renderProjection(w io.Writer, points []model.ProjectionPoint) {
	t := newTable("Year", "Contributed", "Value", "Growth").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, p := range points {
		t.Row(strconv.Itoa(p.Year), notifier.Money(p.Contributed), notifier.Money(p.Value), notifier.Money(p.Value-p.Contributed))
	}
	fmt.Fprintln(w, t.Render())
}
