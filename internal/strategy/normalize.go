package strategy

import (
	"math"
	"sort"

	"SmartPortfolio/internal/calculator"
	"SmartPortfolio/internal/model"
)

// Normalize turns raw provider records into a rectangular table of five
// finite ratios per row. Rows keep their input order; a repeated ticker
// keeps its first occurrence. A row with none of the five ratios cannot be
// scored and is reported in Skipped instead.
func Normalize(records []model.FundamentalRecord) *model.CleanTable {
	table := &model.CleanTable{Rows: make([]model.CleanRow, 0, len(records))}
	seen := make(map[string]bool, len(records))
	var cells [][model.RatioCount]*float64

	for _, rec := range records {
		if seen[rec.Ticker] {
			continue
		}
		seen[rec.Ticker] = true

		raw, present := finiteRatios(&rec)
		if present == 0 {
			table.Skipped = append(table.Skipped, rec.Ticker)
			continue
		}

		row := model.CleanRow{FundamentalRecord: rec}
		row.Sector = rec.SectorOrUnknown()
		table.Rows = append(table.Rows, row)
		cells = append(cells, invert(raw))
	}

	fillMissing(table, cells)
	return table
}

// NormalizeMap is Normalize for keyed input. Tickers are processed in
// lexical order so the output does not depend on map iteration.
func NormalizeMap(records map[string]model.FundamentalRecord) *model.CleanTable {
	tickers := make([]string, 0, len(records))
	for t := range records {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	list := make([]model.FundamentalRecord, 0, len(tickers))
	for _, t := range tickers {
		rec := records[t]
		if rec.Ticker == "" {
			rec.Ticker = t
		}
		list = append(list, rec)
	}
	return Normalize(list)
}

func finiteRatios(rec *model.FundamentalRecord) (raw [model.RatioCount]*float64, present int) {
	for d := model.Ratio(0); d < model.RatioCount; d++ {
		v := rec.Ratio(d)
		if v == nil || !isFinite(*v) {
			continue
		}
		x := *v
		raw[d] = &x
		present++
	}
	return raw, present
}

// invert flips lower-is-better ratios so that larger is better on every
// dimension. Zero has no inverse and becomes missing; so does any
// infinity the division produces.
func invert(raw [model.RatioCount]*float64) [model.RatioCount]*float64 {
	for d := model.Ratio(0); d < model.RatioCount; d++ {
		if raw[d] == nil || !d.LowerIsBetter() {
			continue
		}
		if *raw[d] == 0 {
			raw[d] = nil
			continue
		}
		inv := 1 / *raw[d]
		if !isFinite(inv) {
			raw[d] = nil
			continue
		}
		raw[d] = &inv
	}
	return raw
}

// fillMissing imputes each gap with its column's batch mean. A column
// with no values at all is filled with zero.
func fillMissing(table *model.CleanTable, cells [][model.RatioCount]*float64) {
	for d := model.Ratio(0); d < model.RatioCount; d++ {
		values := make([]float64, 0, len(cells))
		for _, c := range cells {
			if c[d] != nil {
				values = append(values, *c[d])
			}
		}
		mean, err := calculator.ColumnMean(values)
		if err != nil || !isFinite(mean) {
			mean = 0
		}
		for i, c := range cells {
			if c[d] == nil {
				table.Rows[i].Ratios[d] = mean
				table.Rows[i].Imputed[d] = true
				continue
			}
			table.Rows[i].Ratios[d] = *c[d]
		}
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
