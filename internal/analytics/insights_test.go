package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldIncidents() []IncidentRecord {
	incidents := make([]IncidentRecord, 0)
	for _, age := range []int{1, 3, 5, 7, 9, 11} {
		incidents = append(incidents, incidentAt("Rhino", "North Ridge", age, SeverityHigh))
	}
	return append(incidents, incidentAt("Lion", "South Gate", 200, SeverityLow))
}

func findInsight(insights []Insight, t InsightType) (Insight, bool) {
	for _, insight := range insights {
		if insight.Type == t {
			return insight, true
		}
	}
	return Insight{}, false
}

func TestGenerateInsights_Empty(t *testing.T) {
	insights := GenerateInsights(nil, nil, referenceNow, DefaultPolicy())
	assert.NotNil(t, insights)
	assert.Empty(t, insights)
}

func TestGenerateInsights_RankedByPriority(t *testing.T) {
	population := populationSeries("Rhino", monthly(2025, time.January), 30, 28, 25)

	insights := GenerateInsights(fieldIncidents(), population, referenceNow, DefaultPolicy())

	types := make([]InsightType, 0, len(insights))
	for i, insight := range insights {
		types = append(types, insight.Type)
		if i > 0 {
			assert.GreaterOrEqual(t, insights[i-1].Priority, insight.Priority)
		}
	}
	assert.Equal(t, []InsightType{InsightSpatial, InsightConservation, InsightTemporal, InsightResource}, types)

	spatial := insights[0]
	assert.Equal(t, PriorityCriticalHotspot, spatial.Priority)
	assert.Equal(t, "Critical poaching risk at North Ridge", spatial.Title)
	require.NotNil(t, spatial.Data)
	require.Len(t, spatial.Data.Clusters, 1)
	assert.Equal(t, "North Ridge", spatial.Data.Clusters[0].Location)

	temporal, ok := findInsight(insights, InsightTemporal)
	require.True(t, ok)
	// the peak is the current month
	assert.Equal(t, PriorityUpcomingSeason, temporal.Priority)
	assert.Equal(t, "June", temporal.Data.Month)

	resource, ok := findInsight(insights, InsightResource)
	require.True(t, ok)
	assert.Len(t, resource.Data.Clusters, 1)
}

func TestGenerateInsights_TemporalNeedsEnoughIncidents(t *testing.T) {
	incidents := fieldIncidents()[:5]

	insights := GenerateInsights(incidents, nil, referenceNow, DefaultPolicy())
	_, ok := findInsight(insights, InsightTemporal)
	assert.False(t, ok)
}

func TestGenerateInsights_TemporalOffSeason(t *testing.T) {
	incidents := incidentsPerMonth("Rhino", "East Plains", monthly(2024, time.September), 8)

	insights := GenerateInsights(incidents, nil, referenceNow, DefaultPolicy())
	temporal, ok := findInsight(insights, InsightTemporal)
	require.True(t, ok)
	assert.Equal(t, PrioritySeasonal, temporal.Priority)
	assert.Equal(t, "Poaching peaks in September", temporal.Title)
}

func TestGenerateInsights_Correlation(t *testing.T) {
	incidents := incidentsPerMonth("Rhino", "East Plains", monthly(2025, time.January), 1, 2, 3, 4)

	t.Run("negative", func(t *testing.T) {
		population := populationSeries("Rhino", monthly(2025, time.January), 100, 90, 80, 70)
		insight, ok := findInsight(GenerateInsights(incidents, population, referenceNow, DefaultPolicy()), InsightCorrelation)
		require.True(t, ok)
		assert.Equal(t, PriorityCorrelation, insight.Priority)
		assert.InDelta(t, -1.0, insight.Data.Correlation, 1e-9)
		assert.Contains(t, insight.Recommendation, "suppressing the Rhino population")
	})

	t.Run("positive", func(t *testing.T) {
		population := populationSeries("Rhino", monthly(2025, time.January), 70, 80, 90, 100)
		insight, ok := findInsight(GenerateInsights(incidents, population, referenceNow, DefaultPolicy()), InsightCorrelation)
		require.True(t, ok)
		assert.InDelta(t, 1.0, insight.Data.Correlation, 1e-9)
		assert.Contains(t, insight.Recommendation, "attracting poachers")
	})

	t.Run("weak", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.CorrelationThreshold = 1
		population := populationSeries("Rhino", monthly(2025, time.January), 100, 90, 80, 70)
		_, ok := findInsight(GenerateInsights(incidents, population, referenceNow, policy), InsightCorrelation)
		assert.False(t, ok)
	})
}

func TestGenerateInsights_Deterministic(t *testing.T) {
	population := populationSeries("Rhino", monthly(2025, time.January), 30, 28, 25)

	first := GenerateInsights(fieldIncidents(), population, referenceNow, DefaultPolicy())
	second := GenerateInsights(fieldIncidents(), population, referenceNow, DefaultPolicy())
	assert.Equal(t, first, second)

	ids := make(map[string]bool)
	for _, insight := range first {
		assert.NotEmpty(t, insight.ID)
		assert.False(t, ids[insight.ID], "duplicate insight id %s", insight.ID)
		ids[insight.ID] = true
	}

	// a different analysis date yields different ids
	later := GenerateInsights(fieldIncidents(), population, referenceNow.AddDate(0, 0, 1), DefaultPolicy())
	require.NotEmpty(t, later)
	assert.NotEqual(t, first[0].ID, later[0].ID)
}
