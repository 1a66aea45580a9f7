package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Insight priorities, higher is more urgent
const (
	PriorityCriticalHotspot = 9
	PriorityCorrelation     = 8
	PriorityConservation    = 8
	PriorityElevatedHotspot = 7
	PriorityUpcomingSeason  = 7
	PriorityResource        = 6
	PrioritySeasonal        = 5
)

var insightNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("wildlife-watchdog/insights"))

// GenerateInsights runs the predictors over the records and synthesises the
// ranked insight list.
func GenerateInsights(incidents []IncidentRecord, population []PopulationRecord, now time.Time, policy Policy) []Insight {
	hotspots := PredictPoachingHotspots(incidents, now, policy)
	populations := PredictPopulationTrends(population, incidents, now, policy)
	correlations := CorrelateSpecies(incidents, population, policy)
	return SynthesizeInsights(hotspots, populations, correlations, incidents, now, policy)
}

// SynthesizeInsights merges already computed predictions into insights sorted
// by priority, highest first. Equal priorities keep generation order: spatial,
// temporal, correlation, conservation, resource.
func SynthesizeInsights(
	hotspots []RiskPrediction,
	populations []PopulationPrediction,
	correlations []SpeciesCorrelation,
	incidents []IncidentRecord,
	now time.Time,
	policy Policy,
) []Insight {
	insights := make([]Insight, 0)
	asOf := now.UTC().Format("2006-01-02")

	insights = append(insights, spatialInsights(hotspots, asOf, policy)...)
	if insight, ok := temporalInsight(incidents, now, asOf, policy); ok {
		insights = append(insights, insight)
	}
	insights = append(insights, correlationInsights(correlations, asOf, policy)...)
	insights = append(insights, conservationInsights(populations, asOf, policy)...)
	if insight, ok := resourceInsight(hotspots, asOf, policy); ok {
		insights = append(insights, insight)
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Priority > insights[j].Priority
	})

	return insights
}

func insightID(t InsightType, subject, asOf string) string {
	return uuid.NewSHA1(insightNamespace, []byte(string(t)+"|"+subject+"|"+asOf)).String()
}

func spatialInsights(hotspots []RiskPrediction, asOf string, policy Policy) []Insight {
	insights := make([]Insight, 0)

	for _, h := range hotspots {
		var priority int
		var title string
		switch {
		case h.PredictedRisk >= policy.CriticalRiskThreshold:
			priority = PriorityCriticalHotspot
			title = fmt.Sprintf("Critical poaching risk at %s", h.Location)
		case h.PredictedRisk >= policy.HighRiskThreshold:
			priority = PriorityElevatedHotspot
			title = fmt.Sprintf("Elevated poaching risk at %s", h.Location)
		default:
			continue
		}

		insights = append(insights, Insight{
			ID:    insightID(InsightSpatial, h.Location, asOf),
			Type:  InsightSpatial,
			Title: title,
			Description: fmt.Sprintf(
				"Predicted risk is %.1f out of 10 based on %d incidents (current %.1f, trend x%.2f, seasonal x%.2f).",
				h.PredictedRisk, h.IncidentCount, h.CurrentRisk, h.TrendMultiplier, h.SeasonalFactor),
			Recommendation: RiskRecommendation(h.PredictedRisk, policy),
			Priority:       priority,
			Confidence:     h.Confidence,
			Data: &InsightData{
				Clusters: []Cluster{{Location: h.Location, IncidentCount: h.IncidentCount, Risk: h.PredictedRisk}},
			},
		})
	}

	return insights
}

func temporalInsight(incidents []IncidentRecord, now time.Time, asOf string, policy Policy) (Insight, bool) {
	if len(incidents) < policy.MinTemporalIncidents {
		return Insight{}, false
	}

	dates := incidentDates(incidents)
	peak, count := peakMonth(dates)
	factor := SeasonalFactor(dates, peak, policy)
	if factor < policy.HighSeasonalFactor {
		return Insight{}, false
	}

	priority := PrioritySeasonal
	// the peak is this month or next
	if peak == now.Month() || peak == now.AddDate(0, 1, 0).Month() {
		priority = PriorityUpcomingSeason
	}

	return Insight{
		ID:    insightID(InsightTemporal, peak.String(), asOf),
		Type:  InsightTemporal,
		Title: fmt.Sprintf("Poaching peaks in %s", peak),
		Description: fmt.Sprintf("%d of %d incidents occurred in %s, %.1f times the monthly average.",
			count, len(incidents), peak, factor),
		Recommendation: fmt.Sprintf("Schedule additional patrols ahead of %s", peak),
		Priority:       priority,
		Confidence:     Confidence(len(incidents), policy),
		Data:           &InsightData{Month: peak.String()},
	}, true
}

func correlationInsights(correlations []SpeciesCorrelation, asOf string, policy Policy) []Insight {
	insights := make([]Insight, 0)

	for _, c := range correlations {
		if math.Abs(c.Coefficient) <= policy.CorrelationThreshold {
			continue
		}

		insight := Insight{
			ID:         insightID(InsightCorrelation, c.Species, asOf),
			Type:       InsightCorrelation,
			Priority:   PriorityCorrelation,
			Confidence: Confidence(c.Points, policy),
			Data:       &InsightData{Species: []string{c.Species}, Correlation: c.Coefficient},
		}
		if c.Coefficient < 0 {
			insight.Title = fmt.Sprintf("Poaching linked to %s decline", c.Species)
			insight.Description = fmt.Sprintf(
				"Poaching incidents and %s counts move in opposite directions (r = %.2f over %d points).",
				c.Species, c.Coefficient, c.Points)
			insight.Recommendation = fmt.Sprintf(
				"Poaching may be suppressing the %s population; prioritise protection across its range", c.Species)
		} else {
			insight.Title = fmt.Sprintf("Poaching tracks %s population growth", c.Species)
			insight.Description = fmt.Sprintf(
				"Poaching incidents rise with %s counts (r = %.2f over %d points).",
				c.Species, c.Coefficient, c.Points)
			insight.Recommendation = fmt.Sprintf(
				"Population growth may be attracting poachers; extend surveillance as %s numbers recover", c.Species)
		}
		insights = append(insights, insight)
	}

	return insights
}

func conservationInsights(populations []PopulationPrediction, asOf string, policy Policy) []Insight {
	insights := make([]Insight, 0)

	for _, p := range populations {
		if !p.Critical {
			continue
		}

		reasons := make([]string, 0, 2)
		if p.PredictedChange < policy.DeclineSlopeThreshold {
			reasons = append(reasons, fmt.Sprintf("declining by %.1f per survey", -p.PredictedChange))
		}
		if p.CurrentPopulation < policy.CriticalPopulation {
			reasons = append(reasons, fmt.Sprintf("only %d individuals remain", p.CurrentPopulation))
		}

		insights = append(insights, Insight{
			ID:             insightID(InsightConservation, p.Species, asOf),
			Type:           InsightConservation,
			Title:          fmt.Sprintf("%s population is critical", p.Species),
			Description:    fmt.Sprintf("%s is %s.", p.Species, strings.Join(reasons, " and ")),
			Recommendation: p.Recommendations[0],
			Priority:       PriorityConservation,
			Confidence:     p.Confidence,
			Data:           &InsightData{Species: []string{p.Species}},
		})
	}

	return insights
}

func resourceInsight(hotspots []RiskPrediction, asOf string, policy Policy) (Insight, bool) {
	clusters := make([]Cluster, 0)
	names := make([]string, 0)
	confidence := 0.0

	for _, h := range hotspots {
		if h.PredictedRisk < policy.HighRiskThreshold {
			continue
		}
		if policy.ResourceTopLocations > 0 && len(clusters) >= policy.ResourceTopLocations {
			break
		}
		clusters = append(clusters, Cluster{Location: h.Location, IncidentCount: h.IncidentCount, Risk: h.PredictedRisk})
		names = append(names, h.Location)
		confidence += h.Confidence
	}

	if len(clusters) == 0 {
		return Insight{}, false
	}

	return Insight{
		ID:    insightID(InsightResource, strings.Join(names, ","), asOf),
		Type:  InsightResource,
		Title: fmt.Sprintf("Focus patrol resources on %d locations", len(clusters)),
		Description: fmt.Sprintf("%s carry the highest predicted poaching risk.",
			strings.Join(names, ", ")),
		Recommendation: fmt.Sprintf("Reallocate ranger teams toward %s", strings.Join(names, ", ")),
		Priority:       PriorityResource,
		Confidence:     confidence / float64(len(clusters)),
		Data:           &InsightData{Clusters: clusters},
	}, true
}
