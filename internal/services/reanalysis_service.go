package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sambitmohanty1/wildlife-watchdog/internal/analytics"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/eventbus"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/models"
)

// ReanalysisService keeps snapshots and alerts current. It re-runs the analysis
// whenever records change and on a fixed schedule, since recency and seasonal
// scores drift as days pass even without new records.
type ReanalysisService struct {
	analytics *AnalyticsService
	alerts    *AlertService
	bus       eventbus.EventBus
	scopes    []string
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time

	subscription eventbus.Subscription
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewReanalysisService creates the worker service. scopes are refreshed every
// interval; "all" is always included. alerts may be nil to disable alerting.
func NewReanalysisService(analyticsService *AnalyticsService, alerts *AlertService, bus eventbus.EventBus, scopes []string, interval time.Duration, logger *zap.Logger) *ReanalysisService {
	refresh := []string{ScopeAll}
	for _, scope := range scopes {
		if scope != "" && scope != ScopeAll {
			refresh = append(refresh, scope)
		}
	}

	return &ReanalysisService{
		analytics: analyticsService,
		alerts:    alerts,
		bus:       bus,
		scopes:    refresh,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// Start subscribes to record changes and starts the refresh loop
func (s *ReanalysisService) Start(ctx context.Context) error {
	s.logger.Info("Starting reanalysis service",
		zap.Strings("scopes", s.scopes),
		zap.Duration("refresh_interval", s.interval))

	sub, err := s.bus.Subscribe(ctx, eventbus.TopicRecordsChanged, s.handleRecordsChanged)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", eventbus.TopicRecordsChanged, err)
	}
	s.subscription = sub

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.interval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.refreshLoop(loopCtx)
		}()
	}

	return nil
}

// Stop unsubscribes and waits for the refresh loop to exit
func (s *ReanalysisService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping reanalysis service")

	if s.subscription != nil {
		if err := s.subscription.Unsubscribe(); err != nil {
			s.logger.Warn("Failed to unsubscribe", zap.Error(err))
		}
	}
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ReanalysisService) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RefreshAll(ctx)
		}
	}
}

// RefreshAll re-analyses every configured scope, logging failures
func (s *ReanalysisService) RefreshAll(ctx context.Context) {
	for _, scope := range s.scopes {
		if _, err := s.Reanalyze(ctx, scope); err != nil {
			s.logger.Error("Scheduled reanalysis failed", zap.String("scope", scope), zap.Error(err))
		}
	}
}

func (s *ReanalysisService) handleRecordsChanged(ctx context.Context, event eventbus.Event) error {
	var change eventbus.RecordsChanged
	if err := event.Decode(&change); err != nil {
		// malformed events would only fail again
		s.logger.Error("Failed to parse records changed event", zap.String("event_id", event.ID), zap.Error(err))
		return nil
	}

	s.logger.Info("Records changed",
		zap.String("kind", change.Kind),
		zap.String("record_id", change.RecordID),
		zap.String("park_id", change.ParkID))

	scopes := []string{ScopeAll}
	if change.ParkID != "" {
		scopes = append(scopes, change.ParkID)
	}

	for _, scope := range scopes {
		if _, err := s.Reanalyze(ctx, scope); err != nil {
			if errors.Is(err, analytics.ErrInvalidDate) || errors.Is(err, models.ErrInvalidRecord) {
				s.logger.Warn("Skipping reanalysis of unusable records", zap.String("scope", scope), zap.Error(err))
				continue
			}
			return err
		}
	}
	return nil
}

// Reanalyze analyses scope as of today, stores a snapshot and raises alerts
func (s *ReanalysisService) Reanalyze(ctx context.Context, scope string) ([]models.Alert, error) {
	parkID, err := ParseScope(scope)
	if err != nil {
		return nil, err
	}

	result, err := s.analytics.Analyze(ctx, parkID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to analyze %s: %w", scope, err)
	}

	if _, err := s.analytics.SaveSnapshot(ctx, scope, result); err != nil {
		return nil, err
	}

	if s.alerts == nil {
		return nil, nil
	}
	return s.alerts.RaiseAlerts(ctx, scope, result.Insights)
}
