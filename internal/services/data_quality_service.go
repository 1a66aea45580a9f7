package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sambitmohanty1/wildlife-watchdog/internal/analytics"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/models"
)

// DataQualityReport summarises how fit the stored records are for analysis
type DataQualityReport struct {
	ID          string    `json:"id"`
	Scope       string    `json:"scope"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalRecords     int64 `json:"total_records"`
	ValidRecords     int64 `json:"valid_records"`
	InvalidRecords   int64 `json:"invalid_records"`
	MissingData      int64 `json:"missing_data"`
	DuplicateRecords int64 `json:"duplicate_records"`

	InvalidDates      int64 `json:"invalid_dates"`
	UnknownSeverities int64 `json:"unknown_severities"`
	NegativeCounts    int64 `json:"negative_counts"`

	// Quality scores (0-100)
	OverallQualityScore float64 `json:"overall_quality_score"`
	CompletenessScore   float64 `json:"completeness_score"`
	AccuracyScore       float64 `json:"accuracy_score"`
	ConsistencyScore    float64 `json:"consistency_score"`

	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// DataQualityService handles data quality assessment of stored records
type DataQualityService struct {
	records *RecordService
	logger  *zap.Logger
}

// NewDataQualityService creates a new data quality service
func NewDataQualityService(records *RecordService, logger *zap.Logger) *DataQualityService {
	return &DataQualityService{
		records: records,
		logger:  logger,
	}
}

// GenerateQualityReport assesses every record in scope
func (s *DataQualityService) GenerateQualityReport(ctx context.Context, parkID *uuid.UUID) (*DataQualityReport, error) {
	scope := ScopeOf(parkID)
	s.logger.Info("Generating data quality report", zap.String("scope", scope))

	filter := RecordFilter{ParkID: parkID}
	incidents, err := s.records.ListIncidents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get incident data: %w", err)
	}
	animals, err := s.records.ListAnimalRecords(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get animal data: %w", err)
	}

	report := AssessQuality(incidents, animals)
	report.ID = uuid.New().String()
	report.Scope = scope
	report.GeneratedAt = time.Now().UTC()

	s.logger.Info("Data quality report generated successfully",
		zap.String("scope", scope),
		zap.Int64("total_records", report.TotalRecords),
		zap.Float64("overall_score", report.OverallQualityScore))

	return report, nil
}

// recordCheck is the outcome of checking a single record
type recordCheck struct {
	missing   int64
	invalid   bool
	duplicate bool
}

// AssessQuality scores a set of records. A record counts as valid when it is
// complete, parses cleanly and is not a duplicate of an earlier record.
func AssessQuality(incidents []models.PoachingIncident, animals []models.AnimalRecord) *DataQualityReport {
	report := &DataQualityReport{
		TotalRecords:    int64(len(incidents) + len(animals)),
		Issues:          make([]string, 0),
		Recommendations: make([]string, 0),
	}

	if report.TotalRecords == 0 {
		report.Issues = append(report.Issues, "No records found")
		report.Recommendations = append(report.Recommendations, "Record poaching incidents and population observations to enable analysis")
		return report
	}

	var incomplete int64
	tally := func(check recordCheck) {
		report.MissingData += check.missing
		if check.missing > 0 {
			incomplete++
		}
		if check.invalid {
			report.InvalidRecords++
		}
		if check.duplicate {
			report.DuplicateRecords++
		}
		if check.missing == 0 && !check.invalid && !check.duplicate {
			report.ValidRecords++
		}
	}

	seenIncidents := make(map[string]bool)
	for _, incident := range incidents {
		var check recordCheck
		if strings.TrimSpace(incident.Species) == "" {
			check.missing++
		}
		if strings.TrimSpace(incident.Location) == "" {
			check.missing++
		}
		if _, err := analytics.ParseDate(incident.Date); err != nil {
			report.InvalidDates++
			check.invalid = true
		}
		if _, ok := analytics.ParseSeverity(incident.Severity); !ok {
			report.UnknownSeverities++
			check.invalid = true
		}

		key := strings.ToLower(strings.Join([]string{
			strings.TrimSpace(incident.Species),
			strings.TrimSpace(incident.Location),
			strings.TrimSpace(incident.Date),
			strings.TrimSpace(incident.Severity),
		}, "|"))
		check.duplicate = seenIncidents[key]
		seenIncidents[key] = true

		tally(check)
	}

	seenAnimals := make(map[string]bool)
	for _, animal := range animals {
		var check recordCheck
		if animal.SpeciesName() == "" {
			check.missing++
		}
		if strings.TrimSpace(animal.Location) == "" {
			check.missing++
		}
		if _, err := analytics.ParseDate(animal.Date); err != nil {
			report.InvalidDates++
			check.invalid = true
		}
		if animal.Count < 0 {
			report.NegativeCounts++
			check.invalid = true
		}

		key := strings.ToLower(fmt.Sprintf("%s|%s|%s|%d",
			animal.SpeciesName(),
			strings.TrimSpace(animal.Location),
			strings.TrimSpace(animal.Date),
			animal.Count))
		check.duplicate = seenAnimals[key]
		seenAnimals[key] = true

		tally(check)
	}

	total := float64(report.TotalRecords)
	report.CompletenessScore = float64(report.TotalRecords-incomplete) / total * 100
	report.AccuracyScore = float64(report.TotalRecords-report.InvalidRecords) / total * 100
	report.ConsistencyScore = float64(report.TotalRecords-report.DuplicateRecords) / total * 100
	report.OverallQualityScore = (report.CompletenessScore + report.AccuracyScore + report.ConsistencyScore) / 3

	if report.MissingData > 0 {
		report.Issues = append(report.Issues, fmt.Sprintf("%d records have missing species or location", incomplete))
		report.Recommendations = append(report.Recommendations, "Require species and location on every field report")
	}
	if report.InvalidDates > 0 {
		report.Issues = append(report.Issues, fmt.Sprintf("%d records have unparseable dates", report.InvalidDates))
		report.Recommendations = append(report.Recommendations, "Correct record dates to YYYY-MM-DD; analysis fails until they are fixed")
	}
	if report.UnknownSeverities > 0 {
		report.Issues = append(report.Issues, fmt.Sprintf("%d incidents have an unknown severity", report.UnknownSeverities))
		report.Recommendations = append(report.Recommendations, "Grade incident severity as High, Medium or Low")
	}
	if report.NegativeCounts > 0 {
		report.Issues = append(report.Issues, fmt.Sprintf("%d observations have negative counts", report.NegativeCounts))
	}
	if report.DuplicateRecords > 0 {
		report.Issues = append(report.Issues, fmt.Sprintf("%d duplicate records detected", report.DuplicateRecords))
		report.Recommendations = append(report.Recommendations, "Deduplicate field reports before submission")
	}
	if report.OverallQualityScore < 80 {
		report.Recommendations = append(report.Recommendations, "Review field data collection and validation")
	}

	return report
}
