package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// FitTrend fits an ordinary least squares line through (rank, value) pairs.
//
// The x coordinate is the rank of each value within its date-sorted group, not
// the date itself: unevenly spaced observations are treated as equally spaced.
// Series shorter than policy.MinTrendPoints yield a zero result with
// Sufficient set to false, which callers treat as low confidence.
func FitTrend(values []float64, policy Policy) TrendResult {
	minPoints := policy.MinTrendPoints
	if minPoints < 2 {
		minPoints = 2
	}
	if len(values) < minPoints {
		return TrendResult{Classification: TrendFlat}
	}

	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}

	intercept, slope := stat.LinearRegression(xs, values, nil, false)

	// A constant series is fitted exactly by the horizontal line.
	fit := 1.0
	if stat.Variance(values, nil) > 0 {
		fit = clamp(stat.RSquared(xs, values, nil, intercept, slope), 0, 1)
	}

	return TrendResult{
		Slope:          slope,
		Intercept:      intercept,
		GoodnessOfFit:  fit,
		Classification: classifySlope(slope, policy.FlatSlopeThreshold),
		Sufficient:     true,
	}
}

func classifySlope(slope, threshold float64) TrendClassification {
	switch {
	case slope > threshold:
		return TrendIncreasing
	case slope < -threshold:
		return TrendDecreasing
	default:
		return TrendFlat
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
