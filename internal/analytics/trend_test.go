package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitTrend_PerfectLine(t *testing.T) {
	result := FitTrend([]float64{1, 2, 3, 4, 5}, DefaultPolicy())

	assert.True(t, result.Sufficient)
	assert.InDelta(t, 1.0, result.Slope, 1e-9)
	assert.InDelta(t, 1.0, result.Intercept, 1e-9)
	assert.InDelta(t, 1.0, result.GoodnessOfFit, 1e-9)
	assert.Equal(t, TrendIncreasing, result.Classification)
}

func TestFitTrend_Decreasing(t *testing.T) {
	result := FitTrend([]float64{100, 90, 80, 70, 60}, DefaultPolicy())

	assert.InDelta(t, -10.0, result.Slope, 1e-9)
	assert.InDelta(t, 100.0, result.Intercept, 1e-9)
	assert.Equal(t, TrendDecreasing, result.Classification)
}

func TestFitTrend_TooFewPoints(t *testing.T) {
	for _, values := range [][]float64{nil, {4}, {4, 8}} {
		result := FitTrend(values, DefaultPolicy())
		assert.False(t, result.Sufficient)
		assert.Zero(t, result.Slope)
		assert.Zero(t, result.Intercept)
		assert.Zero(t, result.GoodnessOfFit)
		assert.Equal(t, TrendFlat, result.Classification)
	}
}

func TestFitTrend_Constant(t *testing.T) {
	result := FitTrend([]float64{7, 7, 7, 7}, DefaultPolicy())

	assert.True(t, result.Sufficient)
	assert.InDelta(t, 0.0, result.Slope, 1e-12)
	assert.InDelta(t, 7.0, result.Intercept, 1e-12)
	assert.Equal(t, 1.0, result.GoodnessOfFit)
	assert.Equal(t, TrendFlat, result.Classification)
}

func TestFitTrend_NoLinearSignal(t *testing.T) {
	result := FitTrend([]float64{1, 5, 1, 5, 1}, DefaultPolicy())

	assert.InDelta(t, 0.0, result.Slope, 1e-9)
	assert.InDelta(t, 0.0, result.GoodnessOfFit, 1e-9)
	assert.Equal(t, TrendFlat, result.Classification)
}

func TestFitTrend_GoodnessOfFitBounded(t *testing.T) {
	series := [][]float64{
		{3, 1, 4, 1, 5, 9, 2, 6},
		{10, 0, 10, 0},
		{1, 2, 2, 3, 3, 3, 4},
	}
	for _, values := range series {
		fit := FitTrend(values, DefaultPolicy()).GoodnessOfFit
		assert.GreaterOrEqual(t, fit, 0.0)
		assert.LessOrEqual(t, fit, 1.0)
	}
}
