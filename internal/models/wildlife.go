package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/analytics"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrInvalidRecord is returned when a record fails validation
var ErrInvalidRecord = errors.New("invalid record")

// Park represents a protected area that records can be filed under
type Park struct {
	ID      uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Name    string    `json:"name" gorm:"not null;uniqueIndex"`
	Region  string    `json:"region"`
	AreaKm2 float64   `json:"area_km2"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PoachingIncident is a reported poaching event
type PoachingIncident struct {
	ID     uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	ParkID *uuid.UUID `json:"park_id,omitempty" gorm:"type:uuid;index"`

	Species     string `json:"species" gorm:"index"`
	Location    string `json:"location" gorm:"index"`
	Date        string `json:"date" gorm:"not null"` // ISO date as reported
	Severity    string `json:"severity"`             // High, Medium, Low
	Description string `json:"description"`
	ReportedBy  string `json:"reported_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnimalRecord is a population observation. Older clients send the species in
// Name instead of Species.
type AnimalRecord struct {
	ID     uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	ParkID *uuid.UUID `json:"park_id,omitempty" gorm:"type:uuid;index"`

	Species  string `json:"species" gorm:"index"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Date     string `json:"date" gorm:"not null"`
	Count    int    `json:"count"`
	Notes    string `json:"notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InsightSnapshot stores a serialized analysis result
type InsightSnapshot struct {
	ID      uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	Scope   string         `json:"scope" gorm:"not null;index"` // "all" or a park ID
	AsOf    string         `json:"as_of" gorm:"not null;index"`
	Payload datatypes.JSON `json:"payload"`

	Insights  int       `json:"insights"`
	CreatedAt time.Time `json:"created_at"`
}

// Alert is a high priority insight raised for follow-up
type Alert struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	Scope     string         `json:"scope" gorm:"not null;uniqueIndex:idx_alert_scope_insight"`
	InsightID string         `json:"insight_id" gorm:"not null;uniqueIndex:idx_alert_scope_insight"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Priority  int            `json:"priority"`
	Status    string         `json:"status" gorm:"default:'open'"` // open, acknowledged, resolved
	Data      datatypes.JSON `json:"data"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Park) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (i *PoachingIncident) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (a *AnimalRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (s *InsightSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = "open"
	}
	return nil
}

// Validate checks that the incident can be fed to the analytics engine
func (i *PoachingIncident) Validate() error {
	if strings.TrimSpace(i.Species) == "" {
		return fmt.Errorf("%w: species is required", ErrInvalidRecord)
	}
	if _, err := analytics.ParseDate(i.Date); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if _, ok := analytics.ParseSeverity(i.Severity); !ok {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidRecord, i.Severity)
	}
	return nil
}

// Validate checks that the observation can be fed to the analytics engine
func (a *AnimalRecord) Validate() error {
	if a.SpeciesName() == "" {
		return fmt.Errorf("%w: species or name is required", ErrInvalidRecord)
	}
	if _, err := analytics.ParseDate(a.Date); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if a.Count < 0 {
		return fmt.Errorf("%w: count must not be negative", ErrInvalidRecord)
	}
	return nil
}

// SpeciesName returns Species, falling back to Name
func (a AnimalRecord) SpeciesName() string {
	if species := strings.TrimSpace(a.Species); species != "" {
		return species
	}
	return strings.TrimSpace(a.Name)
}

// ToIncidentRecord normalizes a stored incident. Unknown severities are
// treated as Low; an unparseable date is an error.
func (i PoachingIncident) ToIncidentRecord() (analytics.IncidentRecord, error) {
	date, err := analytics.ParseDate(i.Date)
	if err != nil {
		return analytics.IncidentRecord{}, fmt.Errorf("incident %s: %w", i.ID, err)
	}
	severity, _ := analytics.ParseSeverity(i.Severity)

	return analytics.IncidentRecord{
		Species:     strings.TrimSpace(i.Species),
		Location:    strings.TrimSpace(i.Location),
		Date:        date,
		Severity:    severity,
		Description: i.Description,
	}, nil
}

// ToPopulationRecord normalizes a stored observation. Negative counts are
// floored at zero.
func (a AnimalRecord) ToPopulationRecord() (analytics.PopulationRecord, error) {
	date, err := analytics.ParseDate(a.Date)
	if err != nil {
		return analytics.PopulationRecord{}, fmt.Errorf("animal record %s: %w", a.ID, err)
	}
	count := a.Count
	if count < 0 {
		count = 0
	}

	return analytics.PopulationRecord{
		Species:  a.SpeciesName(),
		Location: strings.TrimSpace(a.Location),
		Date:     date,
		Count:    count,
	}, nil
}

// ToIncidentRecords normalizes a batch of incidents, stopping at the first bad date
func ToIncidentRecords(incidents []PoachingIncident) ([]analytics.IncidentRecord, error) {
	records := make([]analytics.IncidentRecord, 0, len(incidents))
	for _, incident := range incidents {
		record, err := incident.ToIncidentRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// ToPopulationRecords normalizes a batch of observations, stopping at the first bad date
func ToPopulationRecords(animals []AnimalRecord) ([]analytics.PopulationRecord, error) {
	records := make([]analytics.PopulationRecord, 0, len(animals))
	for _, animal := range animals {
		record, err := animal.ToPopulationRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// AllModels lists every model managed by migrations
func AllModels() []interface{} {
	return []interface{}{
		&Park{},
		&PoachingIncident{},
		&AnimalRecord{},
		&InsightSnapshot{},
		&Alert{},
	}
}
