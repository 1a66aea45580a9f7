package analytics

import "time"

// referenceNow is the injected "current date" used across the package tests
var referenceNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(days int) time.Time {
	return referenceNow.AddDate(0, 0, -days)
}

func incidentAt(species, location string, age int, severity Severity) IncidentRecord {
	return IncidentRecord{
		Species:  species,
		Location: location,
		Date:     daysAgo(age),
		Severity: severity,
	}
}

func monthly(year int, month time.Month) time.Time {
	return time.Date(year, month, 15, 0, 0, 0, 0, time.UTC)
}

// populationSeries creates one observation per month starting at start
func populationSeries(species string, start time.Time, counts ...int) []PopulationRecord {
	records := make([]PopulationRecord, len(counts))
	for i, c := range counts {
		records[i] = PopulationRecord{
			Species:  species,
			Location: "Central Basin",
			Date:     start.AddDate(0, i, 0),
			Count:    c,
		}
	}
	return records
}

// incidentsPerMonth creates counts[i] incidents in the i-th month after start
func incidentsPerMonth(species, location string, start time.Time, counts ...int) []IncidentRecord {
	records := make([]IncidentRecord, 0)
	for i, c := range counts {
		for j := 0; j < c; j++ {
			records = append(records, IncidentRecord{
				Species:  species,
				Location: location,
				Date:     start.AddDate(0, i, j),
				Severity: SeverityMedium,
			})
		}
	}
	return records
}
