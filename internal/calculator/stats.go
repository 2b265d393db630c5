package calculator

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Round2 rounds half away from zero to two decimal places. NaN and ±Inf
// are returned unchanged.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// ColumnMean returns the arithmetic mean of values, or an error when empty.
func ColumnMean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, errors.New("no values for mean calculation")
	}
	return stat.Mean(values, nil), nil
}

// MinMax returns the smallest and largest of values.
func MinMax(values []float64) (lo, hi float64, err error) {
	if len(values) == 0 {
		return 0, 0, errors.New("no values for min/max calculation")
	}
	return floats.Min(values), floats.Max(values), nil
}

// Sum adds up values. An empty slice sums to zero.
func Sum(values []float64) float64 {
	return floats.Sum(values)
}
