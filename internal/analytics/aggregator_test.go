package analytics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupIncidentsByLocation(t *testing.T) {
	incidents := []IncidentRecord{
		incidentAt("Rhino", "North Ridge", 5, SeverityHigh),
		incidentAt("Elephant", "", 3, SeverityLow),
		incidentAt("Rhino", "North Ridge", 40, SeverityLow),
		incidentAt("Pangolin", "River Camp", 1, SeverityMedium),
		incidentAt("Rhino", "   ", 9, SeverityMedium),
	}
	original := append([]IncidentRecord(nil), incidents...)

	groups := GroupIncidentsByLocation(incidents)
	require.Len(t, groups, 3)

	// first appearance order
	assert.Equal(t, "North Ridge", groups[0].Key)
	assert.Equal(t, UnknownKey, groups[1].Key)
	assert.Equal(t, "River Camp", groups[2].Key)

	// date ascending inside a group
	require.Len(t, groups[0].Records, 2)
	assert.True(t, groups[0].Records[0].Date.Before(groups[0].Records[1].Date))
	require.Len(t, groups[1].Records, 2)
	assert.Equal(t, daysAgo(9), groups[1].Records[0].Date)

	assert.Equal(t, original, incidents, "input must not be reordered")
}

func TestGroupPopulationBySpecies_StableForEqualDates(t *testing.T) {
	day := monthly(2025, time.March)
	population := []PopulationRecord{
		{Species: "Lion", Date: day, Count: 10},
		{Species: "Lion", Date: day, Count: 20},
		{Species: "Lion", Date: day.AddDate(0, -1, 0), Count: 5},
	}

	groups := GroupPopulationBySpecies(population)
	require.Len(t, groups, 1)
	counts := []int{}
	for _, r := range groups[0].Records {
		counts = append(counts, r.Count)
	}
	assert.Equal(t, []int{5, 10, 20}, counts)
}

func TestTimeSpanDays(t *testing.T) {
	tests := []struct {
		name     string
		dates    []time.Time
		expected float64
	}{
		{name: "no dates", dates: nil, expected: 1},
		{name: "single date", dates: []time.Time{daysAgo(3)}, expected: 1},
		{name: "coinciding dates", dates: []time.Time{daysAgo(3), daysAgo(3)}, expected: 1},
		{name: "ten days", dates: []time.Time{daysAgo(2), daysAgo(12), daysAgo(5)}, expected: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TimeSpanDays(tt.dates))
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-09")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2024-03-09T10:30:00+02:00")
	require.NoError(t, err)
	assert.True(t, d.Equal(time.Date(2024, time.March, 9, 8, 30, 0, 0, time.UTC)))

	d, err = ParseDate("2024-03-09T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 9, 10, 30, 0, 0, time.UTC), d)

	_, err = ParseDate("09/03/2024")
	assert.True(t, errors.Is(err, ErrInvalidDate))

	_, err = ParseDate("")
	assert.True(t, errors.Is(err, ErrInvalidDate))
}

func TestParseDate_KeepsStoredCalendarMonth(t *testing.T) {
	d, err := ParseDate("2025-03-31T23:00:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 31, d.Day())
	assert.True(t, d.Equal(time.Date(2025, time.April, 1, 4, 0, 0, 0, time.UTC)))

	counts := MonthlyCounts([]time.Time{d})
	assert.Equal(t, 1, counts[time.March-1])
	assert.Equal(t, 0, counts[time.April-1])
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), monthStart(d))
}

func TestParseSeverity(t *testing.T) {
	s, ok := ParseSeverity("HIGH")
	assert.True(t, ok)
	assert.Equal(t, SeverityHigh, s)

	s, ok = ParseSeverity(" medium ")
	assert.True(t, ok)
	assert.Equal(t, SeverityMedium, s)

	s, ok = ParseSeverity("catastrophic")
	assert.False(t, ok)
	assert.Equal(t, SeverityLow, s)
}
