package analytics

import "time"

// CorrelationAlignment selects how incident and population series are paired
type CorrelationAlignment string

const (
	// AlignPositional pairs the n-th monthly incident count with the n-th
	// population observation. Series are not matched by date, so uneven
	// sampling skews the result.
	AlignPositional CorrelationAlignment = "positional"
	// AlignByMonth pairs incident counts and mean population counts that fall
	// in the same calendar month.
	AlignByMonth CorrelationAlignment = "by_month"
)

// Policy holds the tunable thresholds of the analytics engine. The zero value
// is not usable; start from DefaultPolicy.
type Policy struct {
	// Severity weights; MaxSeverityWeight normalises the risk score.
	HighSeverityWeight   float64
	MediumSeverityWeight float64
	LowSeverityWeight    float64

	// Incidents older than RecencyHorizonDays carry no weight.
	RecencyHorizonDays float64
	// RecentActivityDays bounds the "recent incidents" contributing factor.
	RecentActivityDays float64

	// Trend multiplier.
	MinTrendIncidents        int
	NewActivityMultiplier    float64
	MaxTrendMultiplier       float64
	EscalatingTrendThreshold float64
	EasingTrendThreshold     float64

	// Seasonal factor.
	MinSeasonalFactor  float64
	HighSeasonalFactor float64
	LowSeasonalFactor  float64

	// Trend fitting.
	MinTrendPoints     int
	FlatSlopeThreshold float64

	// Confidence reaches 1 at ConfidenceSampleSize samples.
	ConfidenceSampleSize int
	LowConfidence        float64

	// Risk ladder and insight thresholds.
	CriticalRiskThreshold float64
	HighRiskThreshold     float64
	ModerateRiskThreshold float64
	ClampPredictedRisk    bool

	// Population policy.
	DeclineSlopeThreshold  float64
	CriticalPopulation     int
	PoachingPressureWeight float64
	MaxPoachingPressure    float64

	// Correlation.
	CorrelationThreshold float64
	MinCorrelationPoints int
	CorrelationAlignment CorrelationAlignment

	// Temporal insights require at least this many incidents overall.
	MinTemporalIncidents int
	// ResourceTopLocations caps how many locations a resource insight lists.
	ResourceTopLocations int

	// BreedingMonths lists the breeding months per species for seasonal outlooks.
	BreedingMonths map[string][]time.Month
}

// DefaultPolicy returns the stock thresholds
func DefaultPolicy() Policy {
	return Policy{
		HighSeverityWeight:   3,
		MediumSeverityWeight: 2,
		LowSeverityWeight:    1,

		RecencyHorizonDays: 365,
		RecentActivityDays: 30,

		MinTrendIncidents:        3,
		NewActivityMultiplier:    1.5,
		MaxTrendMultiplier:       3.0,
		EscalatingTrendThreshold: 1.2,
		EasingTrendThreshold:     0.8,

		MinSeasonalFactor:  0.5,
		HighSeasonalFactor: 1.25,
		LowSeasonalFactor:  0.75,

		MinTrendPoints:     3,
		FlatSlopeThreshold: 0.1,

		ConfidenceSampleSize: 10,
		LowConfidence:        0.6,

		CriticalRiskThreshold: 8,
		HighRiskThreshold:     6,
		ModerateRiskThreshold: 4,
		ClampPredictedRisk:    false,

		DeclineSlopeThreshold:  -0.5,
		CriticalPopulation:     50,
		PoachingPressureWeight: 0.5,
		MaxPoachingPressure:    3,

		CorrelationThreshold: 0.6,
		MinCorrelationPoints: 3,
		CorrelationAlignment: AlignPositional,

		MinTemporalIncidents: 6,
		ResourceTopLocations: 3,

		BreedingMonths: map[string][]time.Month{},
	}
}

// SeverityWeight returns the weight of a severity under this policy
func (p Policy) SeverityWeight(s Severity) float64 {
	switch s {
	case SeverityHigh:
		return p.HighSeverityWeight
	case SeverityMedium:
		return p.MediumSeverityWeight
	default:
		return p.LowSeverityWeight
	}
}

// MaxSeverityWeight returns the largest configured severity weight
func (p Policy) MaxSeverityWeight() float64 {
	weight := p.HighSeverityWeight
	if p.MediumSeverityWeight > weight {
		weight = p.MediumSeverityWeight
	}
	if p.LowSeverityWeight > weight {
		weight = p.LowSeverityWeight
	}
	return weight
}

// IsBreedingMonth reports whether month is a configured breeding month for species
func (p Policy) IsBreedingMonth(species string, month time.Month) bool {
	for _, m := range p.BreedingMonths[species] {
		if m == month {
			return true
		}
	}
	return false
}
