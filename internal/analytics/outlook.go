package analytics

import (
	"strings"
	"time"
)

const (
	levelHigh   = "High"
	levelMedium = "Medium"
	levelNormal = "Normal"
	levelLow    = "Low"
)

// SeasonalOutlookFor describes what to expect from species in month: activity
// from the seasonality of its population surveys, threat from the seasonality
// of poaching incidents against it, and breeding from the policy calendar.
// Without any history the neutral fallback outlook is returned.
func SeasonalOutlookFor(species string, month time.Month, incidents []IncidentRecord, population []PopulationRecord, policy Policy) SeasonalOutlook {
	species = strings.TrimSpace(species)
	breeding := policy.IsBreedingMonth(species, month)

	speciesIncidents := make([]time.Time, 0)
	for _, incident := range incidents {
		if strings.TrimSpace(incident.Species) == species {
			speciesIncidents = append(speciesIncidents, incident.Date)
		}
	}
	speciesSurveys := make([]time.Time, 0)
	for _, obs := range population {
		if strings.TrimSpace(obs.Species) == species {
			speciesSurveys = append(speciesSurveys, obs.Date)
		}
	}

	if len(speciesIncidents) == 0 && len(speciesSurveys) == 0 && !breeding {
		return SeasonalOutlook{
			Species:        species,
			Month:          month,
			ActivityLevel:  levelNormal,
			ThreatLevel:    levelLow,
			Recommendation: "Continue regular monitoring",
			Fallback:       true,
		}
	}

	activity := levelNormal
	if len(speciesSurveys) > 0 {
		factor := SeasonalFactor(speciesSurveys, month, policy)
		switch {
		case factor >= policy.HighSeasonalFactor:
			activity = levelHigh
		case factor <= policy.LowSeasonalFactor:
			activity = levelLow
		}
	}

	threat := levelLow
	if len(speciesIncidents) > 0 {
		threat = levelMedium
		factor := SeasonalFactor(speciesIncidents, month, policy)
		switch {
		case factor >= policy.HighSeasonalFactor:
			threat = levelHigh
		case factor <= policy.LowSeasonalFactor:
			threat = levelLow
		}
	}

	return SeasonalOutlook{
		Species:        species,
		Month:          month,
		ActivityLevel:  activity,
		ThreatLevel:    threat,
		BreedingSeason: breeding,
		Recommendation: monitoringRecommendation(activity, threat, breeding),
		Confidence:     Confidence(len(speciesIncidents)+len(speciesSurveys), policy),
	}
}

func monitoringRecommendation(activity, threat string, breeding bool) string {
	switch {
	case breeding && threat == levelHigh:
		return "CRITICAL: Increase monitoring - breeding season with high threat level"
	case breeding:
		return "Increase monitoring frequency - active breeding season"
	case threat == levelHigh:
		return "Enhanced surveillance recommended - high threat period"
	case activity == levelHigh:
		return "Optimal time for population surveys and data collection"
	case activity == levelLow:
		return "Reduced monitoring acceptable - natural low activity period"
	default:
		return "Continue standard monitoring protocols"
	}
}
