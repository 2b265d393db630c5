package strategy

import (
	"SmartPortfolio/internal/calculator"
	"SmartPortfolio/internal/model"
)

// flatColumnScore is what a column without variance contributes.
const flatColumnScore = 0.5

// Score rescales every ratio column to [0,1] using the batch's own min
// and max, then averages the five columns into a 0-100 score rounded to
// cents. Scores are only comparable within the same batch.
func Score(table *model.CleanTable) []model.ScoredRow {
	rows := make([]model.ScoredRow, len(table.Rows))
	if len(rows) == 0 {
		return rows
	}

	sums := make([]float64, len(rows))
	column := make([]float64, len(rows))
	for d := model.Ratio(0); d < model.RatioCount; d++ {
		for i := range table.Rows {
			column[i] = table.Rows[i].Ratios[d]
		}
		for i, v := range rescale(column) {
			sums[i] += v
		}
	}

	for i := range table.Rows {
		score := calculator.Round2(100 * sums[i] / model.RatioCount)
		rows[i] = model.ScoredRow{CleanRow: table.Rows[i], Score: clamp(score, 0, 100)}
	}
	return rows
}

// rescale applies min-max scaling to a single column.
func rescale(column []float64) []float64 {
	out := make([]float64, len(column))
	lo, hi, err := calculator.MinMax(column)
	if err != nil {
		return out
	}
	if hi == lo {
		for i := range out {
			out[i] = flatColumnScore
		}
		return out
	}

	span := hi - lo
	halved := !isFinite(span)
	if halved {
		// hi-lo overflowed; the ratio is unchanged when every term is halved
		span = hi/2 - lo/2
	}
	for i, v := range column {
		var x float64
		if halved {
			x = (v/2 - lo/2) / span
		} else {
			x = (v - lo) / span
		}
		out[i] = clamp(x, 0, 1)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
