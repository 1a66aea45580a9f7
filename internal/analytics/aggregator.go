package analytics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// UnknownKey is the bucket for records with a missing grouping key
const UnknownKey = "Unknown"

// ErrInvalidDate is returned by ParseDate for values that are not a calendar
// date. The engine itself only ever sees parsed dates.
var ErrInvalidDate = errors.New("invalid record date")

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate parses an ISO date or timestamp as stored by the record
// collaborators. Values without an offset are UTC. A stored offset is kept, so
// month and day bucketing follow the calendar date the record was written in.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
}

// Group is a set of records sharing a key, ordered by date ascending
type Group[T any] struct {
	Key     string
	Records []T
}

// GroupBy buckets records by keyFn. Groups are returned in order of first
// appearance in records, and the records of each group are stably sorted by
// dateFn ascending. The input slice is not modified.
func GroupBy[T any](records []T, keyFn func(T) string, dateFn func(T) time.Time) []Group[T] {
	index := make(map[string]int)
	groups := make([]Group[T], 0)

	for _, record := range records {
		key := strings.TrimSpace(keyFn(record))
		if key == "" {
			key = UnknownKey
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group[T]{Key: key})
		}
		groups[i].Records = append(groups[i].Records, record)
	}

	for i := range groups {
		recs := groups[i].Records
		sort.SliceStable(recs, func(a, b int) bool {
			return dateFn(recs[a]).Before(dateFn(recs[b]))
		})
	}

	return groups
}

// GroupIncidentsByLocation groups incidents by location
func GroupIncidentsByLocation(incidents []IncidentRecord) []Group[IncidentRecord] {
	return GroupBy(incidents, func(r IncidentRecord) string { return r.Location }, incidentDate)
}

// GroupIncidentsBySpecies groups incidents by species
func GroupIncidentsBySpecies(incidents []IncidentRecord) []Group[IncidentRecord] {
	return GroupBy(incidents, func(r IncidentRecord) string { return r.Species }, incidentDate)
}

// GroupPopulationBySpecies groups population observations by species
func GroupPopulationBySpecies(population []PopulationRecord) []Group[PopulationRecord] {
	return GroupBy(population, func(r PopulationRecord) string { return r.Species }, populationDate)
}

func incidentDate(r IncidentRecord) time.Time     { return r.Date }
func populationDate(r PopulationRecord) time.Time { return r.Date }

// TimeSpanDays returns the whole days between the earliest and latest date,
// never less than 1.
func TimeSpanDays(dates []time.Time) float64 {
	if len(dates) == 0 {
		return 1
	}
	earliest, latest := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(earliest) {
			earliest = d
		}
		if d.After(latest) {
			latest = d
		}
	}
	days := float64(int64(latest.Sub(earliest).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

func incidentDates(incidents []IncidentRecord) []time.Time {
	dates := make([]time.Time, len(incidents))
	for i, r := range incidents {
		dates[i] = r.Date
	}
	return dates
}

func populationDates(population []PopulationRecord) []time.Time {
	dates := make([]time.Time, len(population))
	for i, r := range population {
		dates[i] = r.Date
	}
	return dates
}

func daysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}
