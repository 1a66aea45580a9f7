package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sambitmohanty1/wildlife-watchdog/internal/analytics"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/eventbus"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/models"
)

// Alert statuses
const (
	AlertOpen         = "open"
	AlertAcknowledged = "acknowledged"
	AlertResolved     = "resolved"
)

// AlertService raises alerts for high priority insights
type AlertService struct {
	db          *gorm.DB
	bus         eventbus.EventBus
	minPriority int
	logger      *zap.Logger
}

// NewAlertService creates a new alert service. bus may be nil.
func NewAlertService(db *gorm.DB, bus eventbus.EventBus, minPriority int, logger *zap.Logger) *AlertService {
	return &AlertService{
		db:          db,
		bus:         bus,
		minPriority: minPriority,
		logger:      logger,
	}
}

// RaiseAlerts persists an alert for every insight at or above the minimum
// priority. Insights already alerted for the scope are skipped, so re-running
// an analysis for the same day raises nothing new.
func (s *AlertService) RaiseAlerts(ctx context.Context, scope string, insights []analytics.Insight) ([]models.Alert, error) {
	raised := make([]models.Alert, 0)

	for _, insight := range insights {
		if insight.Priority < s.minPriority {
			continue
		}

		var existing int64
		if err := s.db.WithContext(ctx).Model(&models.Alert{}).
			Where("scope = ? AND insight_id = ?", scope, insight.ID).
			Count(&existing).Error; err != nil {
			return raised, fmt.Errorf("failed to check existing alerts: %w", err)
		}
		if existing > 0 {
			continue
		}

		alert, err := s.generateAlert(ctx, scope, insight)
		if err != nil {
			s.logger.Error("Failed to generate alert",
				zap.String("insight_id", insight.ID),
				zap.Error(err))
			continue
		}
		raised = append(raised, *alert)
	}

	s.logger.Info("Processed insights for alerts",
		zap.String("scope", scope),
		zap.Int("insights", len(insights)),
		zap.Int("raised", len(raised)))

	return raised, nil
}

func (s *AlertService) generateAlert(ctx context.Context, scope string, insight analytics.Insight) (*models.Alert, error) {
	var data datatypes.JSON
	if insight.Data != nil {
		payload, err := json.Marshal(insight.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal insight data: %w", err)
		}
		data = datatypes.JSON(payload)
	}

	alert := &models.Alert{
		Scope:     scope,
		InsightID: insight.ID,
		Type:      string(insight.Type),
		Title:     insight.Title,
		Message:   fmt.Sprintf("%s %s", insight.Description, insight.Recommendation),
		Priority:  insight.Priority,
		Status:    AlertOpen,
		Data:      data,
	}
	if err := s.db.WithContext(ctx).Create(alert).Error; err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	s.logger.Info("Alert raised",
		zap.String("alert_id", alert.ID.String()),
		zap.String("type", alert.Type),
		zap.Int("priority", alert.Priority),
		zap.String("title", alert.Title))

	if s.bus != nil {
		event := eventbus.AlertRaised{
			AlertID:   alert.ID.String(),
			InsightID: alert.InsightID,
			Scope:     scope,
			Type:      alert.Type,
			Title:     alert.Title,
			Priority:  alert.Priority,
		}
		if err := s.bus.Publish(ctx, eventbus.TopicAlerts, event); err != nil {
			s.logger.Warn("Failed to publish alert", zap.String("alert_id", event.AlertID), zap.Error(err))
		}
	}

	return alert, nil
}

// ListAlerts returns alerts for a scope, highest priority first. Empty scope or status
// matches everything.
func (s *AlertService) ListAlerts(ctx context.Context, scope, status string, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		limit = 50
	}

	query := s.db.WithContext(ctx)
	if scope != "" {
		query = query.Where("scope = ?", scope)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	alerts := make([]models.Alert, 0)
	if err := query.Order("priority DESC").Order("created_at DESC").Limit(limit).Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// UpdateAlertStatus moves an alert to acknowledged or resolved
func (s *AlertService) UpdateAlertStatus(ctx context.Context, id uuid.UUID, status string) (*models.Alert, error) {
	switch status {
	case AlertOpen, AlertAcknowledged, AlertResolved:
	default:
		return nil, fmt.Errorf("%w: unknown alert status %q", models.ErrInvalidRecord, status)
	}

	var alert models.Alert
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&alert).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update alert status: %w", err)
	}
	alert.Status = status

	s.logger.Info("Alert status updated", zap.String("alert_id", id.String()), zap.String("status", status))
	return &alert, nil
}

// GetAlertStats returns alert counts by status and type
func (s *AlertService) GetAlertStats(ctx context.Context, scope string) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	base := func() *gorm.DB {
		query := s.db.WithContext(ctx).Model(&models.Alert{})
		if scope != "" {
			query = query.Where("scope = ?", scope)
		}
		return query
	}

	var totalAlerts int64
	if err := base().Count(&totalAlerts).Error; err != nil {
		return nil, err
	}
	stats["total_alerts"] = totalAlerts

	var statusStats []struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	if err := base().Select("status, count(*) as count").Group("status").Order("status").Find(&statusStats).Error; err != nil {
		return nil, err
	}
	stats["status_breakdown"] = statusStats

	var typeStats []struct {
		Type  string `json:"type"`
		Count int64  `json:"count"`
	}
	if err := base().Select("type, count(*) as count").Group("type").Order("type").Find(&typeStats).Error; err != nil {
		return nil, err
	}
	stats["type_breakdown"] = typeStats

	return stats, nil
}
