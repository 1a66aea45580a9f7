package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// MaxRisk is the upper bound of every risk score
const MaxRisk = 10.0

// LocationRiskScore scores a group of incidents on a 0-10 scale. Each incident
// contributes its severity weight scaled by a linear recency decay that reaches
// zero at policy.RecencyHorizonDays; the mean contribution is normalised by the
// largest severity weight.
func LocationRiskScore(incidents []IncidentRecord, now time.Time, policy Policy) float64 {
	if len(incidents) == 0 {
		return 0
	}
	maxWeight := policy.MaxSeverityWeight()
	if maxWeight <= 0 {
		return 0
	}

	total := 0.0
	for _, incident := range incidents {
		total += recencyWeight(incident.Date, now, policy) * policy.SeverityWeight(incident.Severity)
	}
	average := total / float64(len(incidents))

	return clamp(average*MaxRisk/maxWeight, 0, MaxRisk)
}

// recencyWeight is 1 for an incident at now, falling linearly to 0 at the
// recency horizon. Incidents dated after now count as current.
func recencyWeight(date, now time.Time, policy Policy) float64 {
	if policy.RecencyHorizonDays <= 0 {
		return 0
	}
	days := daysBetween(date, now)
	return clamp(1-days/policy.RecencyHorizonDays, 0, 1)
}

// TrendMultiplier compares the incident rate in the later half of the
// date-sorted history with the rate in the earlier half. Each half's rate is
// its incident count over its TimeSpanDays. Groups smaller than
// policy.MinTrendIncidents have no trend signal and return 1.
func TrendMultiplier(incidents []IncidentRecord, policy Policy) float64 {
	if len(incidents) < policy.MinTrendIncidents || len(incidents) < 2 {
		return 1
	}

	dates := incidentDates(incidents)
	sort.SliceStable(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	mid := len(dates) / 2
	older, recent := dates[:mid], dates[mid:]

	return trendRatio(
		float64(len(older))/TimeSpanDays(older),
		float64(len(recent))/TimeSpanDays(recent),
		policy,
	)
}

// trendRatio is recentRate/olderRate capped at policy.MaxTrendMultiplier. A
// zero older rate yields the fixed new activity multiplier.
func trendRatio(olderRate, recentRate float64, policy Policy) float64 {
	if olderRate <= 0 {
		if recentRate <= 0 {
			return 1
		}
		return policy.NewActivityMultiplier
	}
	return math.Min(recentRate/olderRate, policy.MaxTrendMultiplier)
}

// Confidence grows with sample count and reaches 1 at policy.ConfidenceSampleSize
func Confidence(samples int, policy Policy) float64 {
	if samples <= 0 {
		return 0
	}
	if policy.ConfidenceSampleSize <= 0 {
		return 1
	}
	return math.Min(1, float64(samples)/float64(policy.ConfidenceSampleSize))
}

// RiskRecommendation picks the patrol recommendation for a risk level
func RiskRecommendation(risk float64, policy Policy) string {
	switch {
	case risk >= policy.CriticalRiskThreshold:
		return "Deploy immediate patrol and surveillance"
	case risk >= policy.HighRiskThreshold:
		return "Increase patrol frequency and ranger presence"
	case risk >= policy.ModerateRiskThreshold:
		return "Maintain regular patrols and monitor closely"
	default:
		return "Continue standard monitoring"
	}
}

// riskFactors explains a location prediction
func riskFactors(incidents []IncidentRecord, now time.Time, trend, seasonal float64, policy Policy) []Factor {
	factors := make([]Factor, 0)

	high := 0
	recent := 0
	for _, incident := range incidents {
		if incident.Severity == SeverityHigh {
			high++
		}
		age := daysBetween(incident.Date, now)
		if age >= 0 && age <= policy.RecentActivityDays {
			recent++
		}
	}

	if high > 0 {
		share := float64(high) / float64(len(incidents))
		impact := ImpactMedium
		if share >= 0.5 {
			impact = ImpactHigh
		}
		factors = append(factors, Factor{
			Type:        "severity",
			Description: fmt.Sprintf("%d of %d incidents were high severity", high, len(incidents)),
			Impact:      impact,
		})
	}

	if recent > 0 {
		impact := ImpactMedium
		if recent >= 3 {
			impact = ImpactHigh
		}
		factors = append(factors, Factor{
			Type:        "recent_activity",
			Description: fmt.Sprintf("%d incidents in the last %.0f days", recent, policy.RecentActivityDays),
			Impact:      impact,
		})
	}

	switch {
	case trend >= policy.EscalatingTrendThreshold:
		impact := ImpactMedium
		if trend >= policy.MaxTrendMultiplier {
			impact = ImpactHigh
		}
		factors = append(factors, Factor{
			Type:        "trend",
			Description: fmt.Sprintf("Incident rate is escalating (x%.2f)", trend),
			Impact:      impact,
		})
	case trend <= policy.EasingTrendThreshold:
		factors = append(factors, Factor{
			Type:        "trend",
			Description: fmt.Sprintf("Incident rate is easing (x%.2f)", trend),
			Impact:      ImpactLow,
		})
	}

	if seasonal >= policy.HighSeasonalFactor {
		factors = append(factors, Factor{
			Type:        "seasonal",
			Description: fmt.Sprintf("Historically active month (x%.2f of average)", seasonal),
			Impact:      ImpactMedium,
		})
	}

	return factors
}
