package calculator

import (
	"errors"
	"fmt"
	"math"

	"SmartPortfolio/internal/model"
)

// PeriodsPerYear is the number of fortnightly compounding periods in a year.
const PeriodsPerYear = 26

// MaxYears bounds the projection horizon.
const MaxYears = 100

// ErrOverflow is returned when the projected value leaves the float64 range.
var ErrOverflow = errors.New("projection value overflows")

// ProjectionParams describes a fortnightly savings plan.
type ProjectionParams struct {
	LumpSum      float64 `json:"lump_sum"`
	Contribution float64 `json:"contribution"` // added every fortnight
	AnnualRate   float64 `json:"annual_rate"`  // percent, e.g. 7 for 7%
	Years        int     `json:"years"`
}

// Validate checks that the parameters describe a meaningful plan.
func (p ProjectionParams) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"lump sum", p.LumpSum}, {"contribution", p.Contribution}, {"annual rate", p.AnnualRate}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s must be a finite number", f.name)
		}
	}
	if p.LumpSum < 0 {
		return errors.New("lump sum must not be negative")
	}
	if p.Contribution < 0 {
		return errors.New("contribution must not be negative")
	}
	if p.AnnualRate < 0 {
		return errors.New("annual rate must not be negative")
	}
	if p.Years < 0 {
		return errors.New("years must not be negative")
	}
	if p.Years > MaxYears {
		return fmt.Errorf("years must not exceed %d", MaxYears)
	}
	return nil
}

// Project compounds the plan fortnightly and returns the value at the end
// of each year. Each period adds the contribution and then applies
// AnnualRate/26 percent of growth.
func Project(p ProjectionParams) ([]model.ProjectionPoint, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rate := p.AnnualRate / 100 / PeriodsPerYear
	value := p.LumpSum
	contributed := p.LumpSum

	points := make([]model.ProjectionPoint, 0, p.Years)
	for year := 1; year <= p.Years; year++ {
		for i := 0; i < PeriodsPerYear; i++ {
			value = (value + p.Contribution) * (1 + rate)
			contributed += p.Contribution
		}
		if math.IsInf(value, 0) || math.IsInf(contributed, 0) {
			return nil, fmt.Errorf("year %d: %w", year, ErrOverflow)
		}
		points = append(points, model.ProjectionPoint{
			Year:        year,
			Value:       Round2(value),
			Contributed: Round2(contributed),
		})
	}
	return points, nil
}
