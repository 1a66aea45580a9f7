package analytics

import (
	"math"
	"time"
)

// MonthlyCounts buckets dates into calendar month counts, January first
func MonthlyCounts(dates []time.Time) [12]int {
	var counts [12]int
	for _, d := range dates {
		counts[d.Month()-1]++
	}
	return counts
}

// SeasonalFactor compares the count for month against the group's average
// monthly count. The factor never drops below policy.MinSeasonalFactor so a
// quiet month cannot suppress risk below half of baseline; with no history the
// factor is exactly 1.
func SeasonalFactor(dates []time.Time, month time.Month, policy Policy) float64 {
	counts := MonthlyCounts(dates)

	total := 0
	for _, c := range counts {
		total += c
	}
	average := float64(total) / 12
	if average == 0 {
		return 1
	}

	return math.Max(policy.MinSeasonalFactor, float64(counts[month-1])/average)
}

// peakMonth returns the busiest calendar month and its count. Ties go to the
// earlier month.
func peakMonth(dates []time.Time) (time.Month, int) {
	counts := MonthlyCounts(dates)
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return time.Month(best + 1), counts[best]
}
