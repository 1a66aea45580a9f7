package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sambitmohanty1/wildlife-watchdog/internal/eventbus"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// RecordFilter narrows record listings. A zero Limit returns every record.
type RecordFilter struct {
	ParkID *uuid.UUID
	Limit  int
	Offset int
}

// RecordService manages parks, poaching incidents and animal records
type RecordService struct {
	db     *gorm.DB
	bus    eventbus.EventBus
	cache  ResultCache
	logger *zap.Logger
}

// NewRecordService creates a new record service. bus and cache may be nil.
func NewRecordService(db *gorm.DB, bus eventbus.EventBus, cache ResultCache, logger *zap.Logger) *RecordService {
	return &RecordService{
		db:     db,
		bus:    bus,
		cache:  cache,
		logger: logger,
	}
}

// CreatePark stores a new park
func (s *RecordService) CreatePark(ctx context.Context, park *models.Park) error {
	park.Name = strings.TrimSpace(park.Name)
	if park.Name == "" {
		return fmt.Errorf("%w: name is required", models.ErrInvalidRecord)
	}

	if err := s.db.WithContext(ctx).Create(park).Error; err != nil {
		return fmt.Errorf("failed to create park: %w", err)
	}

	s.logger.Info("Park created", zap.String("park_id", park.ID.String()), zap.String("name", park.Name))
	return nil
}

// GetPark returns a park by ID
func (s *RecordService) GetPark(ctx context.Context, id uuid.UUID) (*models.Park, error) {
	var park models.Park
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&park).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("park %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get park: %w", err)
	}
	return &park, nil
}

// ListParks returns all parks ordered by name
func (s *RecordService) ListParks(ctx context.Context) ([]models.Park, error) {
	parks := make([]models.Park, 0)
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&parks).Error; err != nil {
		return nil, fmt.Errorf("failed to list parks: %w", err)
	}
	return parks, nil
}

// CreateIncident validates and stores a poaching incident
func (s *RecordService) CreateIncident(ctx context.Context, incident *models.PoachingIncident) error {
	if err := incident.Validate(); err != nil {
		return err
	}
	if err := s.checkPark(ctx, incident.ParkID); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(incident).Error; err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}

	s.logger.Info("Poaching incident recorded",
		zap.String("incident_id", incident.ID.String()),
		zap.String("species", incident.Species),
		zap.String("location", incident.Location),
		zap.String("severity", incident.Severity))

	s.recordsChanged(ctx, "incident", incident.ID, incident.ParkID)
	return nil
}

// ListIncidents returns incidents ordered by date
func (s *RecordService) ListIncidents(ctx context.Context, filter RecordFilter) ([]models.PoachingIncident, error) {
	incidents := make([]models.PoachingIncident, 0)
	if err := s.filtered(ctx, filter).Find(&incidents).Error; err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	return incidents, nil
}

// CreateAnimalRecord validates and stores a population observation
func (s *RecordService) CreateAnimalRecord(ctx context.Context, record *models.AnimalRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if err := s.checkPark(ctx, record.ParkID); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create animal record: %w", err)
	}

	s.logger.Info("Animal record stored",
		zap.String("record_id", record.ID.String()),
		zap.String("species", record.SpeciesName()),
		zap.Int("count", record.Count))

	s.recordsChanged(ctx, "animal", record.ID, record.ParkID)
	return nil
}

// ListAnimalRecords returns animal records ordered by date
func (s *RecordService) ListAnimalRecords(ctx context.Context, filter RecordFilter) ([]models.AnimalRecord, error) {
	records := make([]models.AnimalRecord, 0)
	if err := s.filtered(ctx, filter).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list animal records: %w", err)
	}
	return records, nil
}

func (s *RecordService) filtered(ctx context.Context, filter RecordFilter) *gorm.DB {
	query := s.db.WithContext(ctx)
	if filter.ParkID != nil {
		query = query.Where("park_id = ?", *filter.ParkID)
	}
	query = query.Order("date ASC").Order("created_at ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}
	return query
}

func (s *RecordService) checkPark(ctx context.Context, parkID *uuid.UUID) error {
	if parkID == nil {
		return nil
	}
	_, err := s.GetPark(ctx, *parkID)
	return err
}

// recordsChanged invalidates cached analyses and notifies listeners. Failures
// are logged; the write itself has already succeeded.
func (s *RecordService) recordsChanged(ctx context.Context, kind string, id uuid.UUID, parkID *uuid.UUID) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("Failed to invalidate analysis cache", zap.Error(err))
		}
	}

	if s.bus == nil {
		return
	}
	change := eventbus.RecordsChanged{
		Kind:       kind,
		RecordID:   id.String(),
		OccurredAt: time.Now().UTC(),
	}
	if parkID != nil {
		change.ParkID = parkID.String()
	}
	if err := s.bus.Publish(ctx, eventbus.TopicRecordsChanged, change); err != nil {
		s.logger.Warn("Failed to publish records changed event",
			zap.String("record_id", change.RecordID),
			zap.Error(err))
	}
}
