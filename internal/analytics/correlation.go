package analytics

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// minCorrelationPoints is the shortest aligned series Correlate will score
const minCorrelationPoints = 3

// Correlate returns the Pearson correlation of a and b, truncated to the
// shorter series. Series are paired by position only; callers that need
// date-aligned pairs must align them first. Fewer than three points or a
// constant series yields 0.
func Correlate(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < minCorrelationPoints {
		return 0
	}
	a, b = a[:n], b[:n]

	if stat.Variance(a, nil) == 0 || stat.Variance(b, nil) == 0 {
		return 0
	}

	return clamp(stat.Correlation(a, b, nil), -1, 1)
}

// SpeciesCorrelation is the incident/population correlation for one species
type SpeciesCorrelation struct {
	Species     string  `json:"species"`
	Coefficient float64 `json:"coefficient"`
	Points      int     `json:"points"`
}

// CorrelateSpecies correlates poaching incidents with population counts for
// every species that has population observations. Species whose aligned
// series are shorter than policy.MinCorrelationPoints are omitted. Results
// follow the first-appearance order of species in population.
func CorrelateSpecies(incidents []IncidentRecord, population []PopulationRecord, policy Policy) []SpeciesCorrelation {
	results := make([]SpeciesCorrelation, 0)
	if len(incidents) == 0 || len(population) == 0 {
		return results
	}

	incidentsBySpecies := make(map[string][]IncidentRecord)
	for _, g := range GroupIncidentsBySpecies(incidents) {
		incidentsBySpecies[g.Key] = g.Records
	}

	minPoints := policy.MinCorrelationPoints
	if minPoints < minCorrelationPoints {
		minPoints = minCorrelationPoints
	}

	for _, g := range GroupPopulationBySpecies(population) {
		speciesIncidents := incidentsBySpecies[g.Key]
		if len(speciesIncidents) == 0 {
			continue
		}

		var a, b []float64
		switch policy.CorrelationAlignment {
		case AlignByMonth:
			a, b = monthAlignedSeries(speciesIncidents, g.Records)
		default:
			a, b = positionalSeries(speciesIncidents, g.Records)
		}

		points := len(a)
		if len(b) < points {
			points = len(b)
		}
		if points < minPoints {
			continue
		}

		results = append(results, SpeciesCorrelation{
			Species:     g.Key,
			Coefficient: Correlate(a, b),
			Points:      points,
		})
	}

	return results
}

// positionalSeries pairs monthly incident counts (chronological, gaps filled
// with zero) with population counts in date order.
func positionalSeries(incidents []IncidentRecord, population []PopulationRecord) ([]float64, []float64) {
	first := monthStart(incidents[0].Date)
	last := monthStart(incidents[len(incidents)-1].Date)

	counts := make(map[time.Time]int)
	for _, incident := range incidents {
		counts[monthStart(incident.Date)]++
	}

	a := make([]float64, 0)
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		a = append(a, float64(counts[m]))
	}

	b := make([]float64, len(population))
	for i, obs := range population {
		b[i] = float64(obs.Count)
	}

	return a, b
}

// monthAlignedSeries pairs, for every month with a population observation,
// the incident count of that month with the mean population count.
func monthAlignedSeries(incidents []IncidentRecord, population []PopulationRecord) ([]float64, []float64) {
	incidentCounts := make(map[time.Time]int)
	for _, incident := range incidents {
		incidentCounts[monthStart(incident.Date)]++
	}

	months := make([]time.Time, 0)
	sums := make(map[time.Time]float64)
	samples := make(map[time.Time]int)
	for _, obs := range population {
		m := monthStart(obs.Date)
		if _, seen := samples[m]; !seen {
			months = append(months, m)
		}
		sums[m] += float64(obs.Count)
		samples[m]++
	}

	a := make([]float64, len(months))
	b := make([]float64, len(months))
	for i, m := range months {
		a[i] = float64(incidentCounts[m])
		b[i] = sums[m] / float64(samples[m])
	}

	return a, b
}

// monthStart keys t by its own calendar month
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
