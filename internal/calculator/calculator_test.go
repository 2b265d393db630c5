package calculator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.005, 1.01},
		{2.675, 2.68},
		{-1.005, -1.01},
		{428.5714285, 428.57},
		{0, 0},
		{math.Inf(1), math.Inf(1)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round2(tt.in), "Round2(%v)", tt.in)
	}
	assert.True(t, math.IsNaN(Round2(math.NaN())))
}

func TestColumnMeanAndMinMax(t *testing.T) {
	_, err := ColumnMean(nil)
	assert.Error(t, err)
	_, _, err = MinMax(nil)
	assert.Error(t, err)

	mean, err := ColumnMean([]float64{1, 2, 3, 6})
	require.NoError(t, err)
	assert.Equal(t, 3.0, mean)

	lo, hi, err := MinMax([]float64{4, -2, 9})
	require.NoError(t, err)
	assert.Equal(t, -2.0, lo)
	assert.Equal(t, 9.0, hi)

	assert.Equal(t, 0.0, Sum(nil))
}

func TestProject_NoGrowth(t *testing.T) {
	points, err := Project(ProjectionParams{LumpSum: 1000, Contribution: 100, AnnualRate: 0, Years: 2})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 1, points[0].Year)
	assert.Equal(t, 3600.0, points[0].Value)
	assert.Equal(t, 6200.0, points[1].Value)
	assert.Equal(t, 6200.0, points[1].Contributed)
}

func TestProject_LumpSumCompounding(t *testing.T) {
	points, err := Project(ProjectionParams{LumpSum: 10000, AnnualRate: 7.8, Years: 10})
	require.NoError(t, err)
	require.Len(t, points, 10)

	want := 10000 * math.Pow(1+0.078/26, 26*10)
	assert.InDelta(t, want, points[9].Value, 0.01)
	assert.Equal(t, 10000.0, points[9].Contributed)
	for i := 1; i < len(points); i++ {
		assert.Greater(t, points[i].Value, points[i-1].Value)
	}
}

func TestProject_ContributionIsAddedBeforeGrowth(t *testing.T) {
	points, err := Project(ProjectionParams{Contribution: 100, AnnualRate: 26, Years: 1})
	require.NoError(t, err)
	// 26 periods at 1% each, contribution at the start of every period
	want := 0.0
	for i := 0; i < 26; i++ {
		want = (want + 100) * 1.01
	}
	assert.Equal(t, Round2(want), points[0].Value)
}

func TestProject_Validation(t *testing.T) {
	tests := []struct {
		name string
		p    ProjectionParams
	}{
		{"negative lump sum", ProjectionParams{LumpSum: -1, Years: 1}},
		{"negative contribution", ProjectionParams{Contribution: -1, Years: 1}},
		{"negative rate", ProjectionParams{AnnualRate: -1, Years: 1}},
		{"negative years", ProjectionParams{Years: -1}},
		{"years above cap", ProjectionParams{Years: MaxYears + 1}},
		{"huge years", ProjectionParams{Years: 2_000_000_000}},
		{"nan rate", ProjectionParams{LumpSum: 1000, AnnualRate: math.NaN(), Years: 1}},
		{"inf lump sum", ProjectionParams{LumpSum: math.Inf(1), Years: 1}},
		{"nan contribution", ProjectionParams{Contribution: math.NaN(), Years: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Project(tt.p)
			assert.Error(t, err)
		})
	}

	points, err := Project(ProjectionParams{LumpSum: 5})
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestProject_Overflow(t *testing.T) {
	_, err := Project(ProjectionParams{LumpSum: 1000, AnnualRate: 1e6, Years: 60})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverflow)

	points, err := Project(ProjectionParams{LumpSum: 1, AnnualRate: 7, Years: MaxYears})
	require.NoError(t, err)
	assert.Len(t, points, MaxYears)
}
