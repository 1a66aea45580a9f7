package analytics

import (
	"fmt"
	"sort"
	"time"
)

// PredictPoachingHotspots scores every location in incidents and returns the
// predictions sorted by predicted risk, highest first. Equal risks keep the
// order in which locations first appear in incidents.
func PredictPoachingHotspots(incidents []IncidentRecord, now time.Time, policy Policy) []RiskPrediction {
	predictions := make([]RiskPrediction, 0)

	for _, group := range GroupIncidentsByLocation(incidents) {
		predictions = append(predictions, predictLocation(group.Key, group.Records, now, policy))
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].PredictedRisk > predictions[j].PredictedRisk
	})

	return predictions
}

func predictLocation(location string, incidents []IncidentRecord, now time.Time, policy Policy) RiskPrediction {
	current := LocationRiskScore(incidents, now, policy)
	trend := TrendMultiplier(incidents, policy)
	seasonal := SeasonalFactor(incidentDates(incidents), now.Month(), policy)

	// predicted risk is not bounded unless the policy asks for it
	predicted := current * trend * seasonal
	if policy.ClampPredictedRisk {
		predicted = clamp(predicted, 0, MaxRisk)
	}

	return RiskPrediction{
		Location:            location,
		IncidentCount:       len(incidents),
		CurrentRisk:         current,
		PredictedRisk:       predicted,
		TrendMultiplier:     trend,
		SeasonalFactor:      seasonal,
		Confidence:          Confidence(len(incidents), policy),
		Recommendation:      RiskRecommendation(predicted, policy),
		ContributingFactors: riskFactors(incidents, now, trend, seasonal, policy),
	}
}

// PredictPopulationTrends fits a trend per species and grades its conservation
// risk. incidents may be empty; when present, recent poaching of a species
// raises its risk level. Results are sorted by risk level, highest first.
func PredictPopulationTrends(population []PopulationRecord, incidents []IncidentRecord, now time.Time, policy Policy) []PopulationPrediction {
	predictions := make([]PopulationPrediction, 0)
	if len(population) == 0 {
		return predictions
	}

	pressure := make(map[string]int)
	for _, g := range GroupIncidentsBySpecies(incidents) {
		for _, incident := range g.Records {
			if recencyWeight(incident.Date, now, policy) > 0 {
				pressure[g.Key]++
			}
		}
	}

	for _, group := range GroupPopulationBySpecies(population) {
		predictions = append(predictions, predictSpecies(group.Key, group.Records, pressure[group.Key], policy))
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].RiskLevel > predictions[j].RiskLevel
	})

	return predictions
}

func predictSpecies(species string, observations []PopulationRecord, recentIncidents int, policy Policy) PopulationPrediction {
	counts := make([]float64, len(observations))
	for i, obs := range observations {
		counts[i] = float64(obs.Count)
	}

	trend := FitTrend(counts, policy)
	confidence := Confidence(len(observations), policy)
	// observations are date sorted, so the last one is the latest
	current := observations[len(observations)-1].Count

	risk := 0.0
	factors := make([]Factor, 0)
	recommendations := make([]string, 0)

	switch {
	case trend.Slope < policy.DeclineSlopeThreshold:
		risk += 3
		factors = append(factors, Factor{
			Type:        "decline",
			Description: fmt.Sprintf("Population is falling by %.1f per survey", -trend.Slope),
			Impact:      ImpactHigh,
		})
	case trend.Slope < 0:
		risk += 1
		factors = append(factors, Factor{
			Type:        "decline",
			Description: "Population shows a slight decline",
			Impact:      ImpactLow,
		})
	}

	switch {
	case current < policy.CriticalPopulation:
		risk += 3
		factors = append(factors, Factor{
			Type:        "population_size",
			Description: fmt.Sprintf("Only %d individuals recorded in the latest survey", current),
			Impact:      ImpactHigh,
		})
	case current < 2*policy.CriticalPopulation:
		risk += 1
		factors = append(factors, Factor{
			Type:        "population_size",
			Description: fmt.Sprintf("Small population of %d individuals", current),
			Impact:      ImpactMedium,
		})
	}

	if recentIncidents > 0 {
		added := float64(recentIncidents) * policy.PoachingPressureWeight
		if added > policy.MaxPoachingPressure {
			added = policy.MaxPoachingPressure
		}
		risk += added
		impact := ImpactMedium
		if added >= policy.MaxPoachingPressure {
			impact = ImpactHigh
		}
		factors = append(factors, Factor{
			Type:        "poaching_pressure",
			Description: fmt.Sprintf("%d poaching incidents in the last %.0f days", recentIncidents, policy.RecencyHorizonDays),
			Impact:      impact,
		})
	}

	insufficient := trend.Slope < policy.DeclineSlopeThreshold && confidence < policy.LowConfidence
	if insufficient {
		risk += 1
		factors = append(factors, Factor{
			Type:        "insufficient_data",
			Description: "Declining trend is based on few surveys",
			Impact:      ImpactMedium,
		})
	}

	critical := trend.Slope < policy.DeclineSlopeThreshold || current < policy.CriticalPopulation

	if critical {
		recommendations = append(recommendations, "Classify as critical and start an emergency conservation plan")
	}
	if trend.Slope < 0 {
		recommendations = append(recommendations, "Investigate the causes of the population decline")
	}
	if recentIncidents > 0 {
		recommendations = append(recommendations, "Increase anti-poaching patrols across the species range")
	}
	if insufficient || !trend.Sufficient {
		recommendations = append(recommendations, "Increase survey frequency to improve data quality")
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Continue routine population monitoring")
	}

	return PopulationPrediction{
		Species:           species,
		CurrentPopulation: current,
		PredictedChange:   trend.Slope,
		Trend:             trend,
		Confidence:        confidence,
		RiskLevel:         clamp(risk, 0, MaxRisk),
		Critical:          critical,
		Factors:           factors,
		Recommendations:   recommendations,
	}
}
