package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sambitmohanty1/wildlife-watchdog/internal/analytics"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/models"
)

// ScopeAll is the scope of an analysis over every park
const ScopeAll = "all"

// ScopeOf returns the analysis scope for an optional park filter
func ScopeOf(parkID *uuid.UUID) string {
	if parkID == nil {
		return ScopeAll
	}
	return parkID.String()
}

// ParseScope is the inverse of ScopeOf
func ParseScope(scope string) (*uuid.UUID, error) {
	if scope == "" || scope == ScopeAll {
		return nil, nil
	}
	id, err := uuid.Parse(scope)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid scope %q", models.ErrInvalidRecord, scope)
	}
	return &id, nil
}

// AnalyticsService loads stored records and runs them through the analytics engine
type AnalyticsService struct {
	db      *gorm.DB
	records *RecordService
	engine  *analytics.Engine
	cache   ResultCache
	stats   *AnalysisStats
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewAnalyticsService creates a new analytics service. cache may be nil.
func NewAnalyticsService(db *gorm.DB, records *RecordService, engine *analytics.Engine, cache ResultCache, stats *AnalysisStats, logger *zap.Logger) *AnalyticsService {
	if stats == nil {
		stats = NewAnalysisStats()
	}
	return &AnalyticsService{
		db:      db,
		records: records,
		engine:  engine,
		cache:   cache,
		stats:   stats,
		tracer:  otel.Tracer("wildlife-analytics"),
		logger:  logger,
	}
}

// analysisDay pins an analysis to midnight UTC of the requested day
func analysisDay(asOf time.Time) time.Time {
	return asOf.UTC().Truncate(24 * time.Hour)
}

// Analyze runs the full analysis for a scope as of the given day
func (s *AnalyticsService) Analyze(ctx context.Context, parkID *uuid.UUID, asOf time.Time) (*analytics.AnalysisResult, error) {
	scope := ScopeOf(parkID)
	now := analysisDay(asOf)

	ctx, span := s.tracer.Start(ctx, "analytics.analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("scope", scope),
		attribute.String("as_of", now.Format("2006-01-02")),
	)

	// the generation is read before the records so a concurrent write
	// invalidates whatever this run stores
	cacheable := false
	var gen int64
	if s.cache != nil {
		var err error
		gen, err = s.cache.Generation(ctx)
		if err != nil {
			s.logger.Warn("Analysis cache unavailable", zap.String("scope", scope), zap.Error(err))
		} else {
			cacheable = true
			cached, ok, err := s.cache.Get(ctx, gen, scope, now)
			if err != nil {
				s.logger.Warn("Failed to read cached analysis", zap.String("scope", scope), zap.Error(err))
			} else if ok {
				s.stats.RecordCacheHit()
				span.SetAttributes(attribute.Bool("cache_hit", true))
				return cached, nil
			}
		}
	}

	startTime := time.Now()
	snapshot, err := s.loadSnapshot(ctx, parkID)
	if err != nil {
		s.stats.RecordRun(scope, time.Since(startTime), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load records")
		return nil, err
	}
	snapshot.Now = now

	span.SetAttributes(
		attribute.Int("incidents", len(snapshot.Incidents)),
		attribute.Int("observations", len(snapshot.Population)),
	)

	result := s.engine.Analyze(snapshot)
	s.stats.RecordRun(scope, time.Since(startTime), nil)

	if cacheable {
		if err := s.cache.Set(ctx, gen, scope, now, result); err != nil {
			s.logger.Warn("Failed to cache analysis", zap.String("scope", scope), zap.Error(err))
		}
	}

	return result, nil
}

// Hotspots returns the poaching hotspot predictions for a scope
func (s *AnalyticsService) Hotspots(ctx context.Context, parkID *uuid.UUID, asOf time.Time) ([]analytics.RiskPrediction, error) {
	result, err := s.Analyze(ctx, parkID, asOf)
	if err != nil {
		return nil, err
	}
	return result.Hotspots, nil
}

// Populations returns the population predictions for a scope
func (s *AnalyticsService) Populations(ctx context.Context, parkID *uuid.UUID, asOf time.Time) ([]analytics.PopulationPrediction, error) {
	result, err := s.Analyze(ctx, parkID, asOf)
	if err != nil {
		return nil, err
	}
	return result.Populations, nil
}

// Insights returns the ranked insights for a scope
func (s *AnalyticsService) Insights(ctx context.Context, parkID *uuid.UUID, asOf time.Time) ([]analytics.Insight, error) {
	result, err := s.Analyze(ctx, parkID, asOf)
	if err != nil {
		return nil, err
	}
	return result.Insights, nil
}

// Outlook returns the seasonal monitoring outlook for species in month
func (s *AnalyticsService) Outlook(ctx context.Context, parkID *uuid.UUID, species string, month time.Month) (analytics.SeasonalOutlook, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.outlook")
	defer span.End()
	span.SetAttributes(
		attribute.String("scope", ScopeOf(parkID)),
		attribute.String("species", species),
		attribute.Int("month", int(month)),
	)

	snapshot, err := s.loadSnapshot(ctx, parkID)
	if err != nil {
		span.RecordError(err)
		return analytics.SeasonalOutlook{}, err
	}
	return s.engine.SeasonalOutlook(species, month, snapshot.Incidents, snapshot.Population), nil
}

// SaveSnapshot persists an analysis result for history consumers
func (s *AnalyticsService) SaveSnapshot(ctx context.Context, scope string, result *analytics.AnalysisResult) (*models.InsightSnapshot, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis: %w", err)
	}

	snapshot := &models.InsightSnapshot{
		Scope:    scope,
		AsOf:     result.AsOf.Format("2006-01-02"),
		Payload:  datatypes.JSON(payload),
		Insights: len(result.Insights),
	}
	if err := s.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.logger.Info("Analysis snapshot saved",
		zap.String("snapshot_id", snapshot.ID.String()),
		zap.String("scope", scope),
		zap.Int("insights", snapshot.Insights))
	return snapshot, nil
}

// ListSnapshots returns the most recent snapshots for a scope
func (s *AnalyticsService) ListSnapshots(ctx context.Context, scope string, limit int) ([]models.InsightSnapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	snapshots := make([]models.InsightSnapshot, 0)
	err := s.db.WithContext(ctx).
		Where("scope = ?", scope).
		Order("created_at DESC").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snapshots, nil
}

func (s *AnalyticsService) loadSnapshot(ctx context.Context, parkID *uuid.UUID) (analytics.Snapshot, error) {
	filter := RecordFilter{ParkID: parkID}

	incidents, err := s.records.ListIncidents(ctx, filter)
	if err != nil {
		return analytics.Snapshot{}, err
	}
	animals, err := s.records.ListAnimalRecords(ctx, filter)
	if err != nil {
		return analytics.Snapshot{}, err
	}

	incidentRecords, err := models.ToIncidentRecords(incidents)
	if err != nil {
		return analytics.Snapshot{}, fmt.Errorf("failed to normalize incidents: %w", err)
	}
	populationRecords, err := models.ToPopulationRecords(animals)
	if err != nil {
		return analytics.Snapshot{}, fmt.Errorf("failed to normalize animal records: %w", err)
	}

	return analytics.Snapshot{
		Incidents:  incidentRecords,
		Population: populationRecords,
	}, nil
}
