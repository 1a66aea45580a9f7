package services

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Component health states
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusCritical = "critical"
)

// AnalysisStats tracks analysis throughput for the metrics endpoint
type AnalysisStats struct {
	mu sync.RWMutex

	TotalRuns             int64
	FailedRuns            int64
	CacheHits             int64
	AverageProcessingTime time.Duration
	LastRun               time.Time
	ScopeCounts           map[string]int64
}

// NewAnalysisStats creates empty stats
func NewAnalysisStats() *AnalysisStats {
	return &AnalysisStats{ScopeCounts: make(map[string]int64)}
}

// RecordRun records one completed or failed analysis
func (s *AnalysisStats) RecordRun(scope string, duration time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.TotalRuns++
	s.LastRun = time.Now()
	s.ScopeCounts[scope]++
	if err != nil {
		s.FailedRuns++
		return
	}

	// running average over successful runs
	succeeded := s.TotalRuns - s.FailedRuns
	s.AverageProcessingTime += (duration - s.AverageProcessingTime) / time.Duration(succeeded)
}

// RecordCacheHit counts an analysis served from cache
func (s *AnalysisStats) RecordCacheHit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CacheHits++
}

// SuccessRate returns the percentage of successful runs, 100 when nothing ran
func (s *AnalysisStats) SuccessRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.TotalRuns == 0 {
		return 100.0
	}
	return float64(s.TotalRuns-s.FailedRuns) / float64(s.TotalRuns) * 100.0
}

func (s *AnalysisStats) toMap() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scopes := make(map[string]int64, len(s.ScopeCounts))
	for k, v := range s.ScopeCounts {
		scopes[k] = v
	}
	return map[string]interface{}{
		"total_runs":                 s.TotalRuns,
		"failed_runs":                s.FailedRuns,
		"cache_hits":                 s.CacheHits,
		"average_processing_time_ms": s.AverageProcessingTime.Milliseconds(),
		"last_run":                   s.LastRun,
		"scope_counts":               scopes,
	}
}

// HealthCheckFunc probes one dependency
type HealthCheckFunc func(ctx context.Context) error

// MonitoringService provides health and metrics endpoints for the application
type MonitoringService struct {
	stats        *AnalysisStats
	healthStatus *HealthStatus
	checks       map[string]HealthCheckFunc
	logger       *zap.Logger
	mu           sync.RWMutex
}

// HealthStatus represents the overall health of the system
type HealthStatus struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Uptime     time.Duration              `json:"uptime"`
	Components map[string]ComponentStatus `json:"components"`
	LastCheck  time.Time                  `json:"last_check"`
}

// ComponentStatus represents the status of a system component
type ComponentStatus struct {
	Status    string                 `json:"status"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	LastCheck time.Time              `json:"last_check"`
}

// NewMonitoringService creates a new monitoring service
func NewMonitoringService(stats *AnalysisStats, logger *zap.Logger) *MonitoringService {
	now := time.Now()
	return &MonitoringService{
		stats: stats,
		healthStatus: &HealthStatus{
			Status:     StatusHealthy,
			Timestamp:  now,
			Components: make(map[string]ComponentStatus),
			LastCheck:  now,
		},
		checks: make(map[string]HealthCheckFunc),
		logger: logger,
	}
}

// RegisterCheck adds a dependency probe. A failing probe marks the component
// critical.
func (m *MonitoringService) RegisterCheck(component string, check HealthCheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[component] = check
}

// GetHealthStatus returns a copy of the current health status
func (m *MonitoringService) GetHealthStatus() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := *m.healthStatus
	status.Uptime = time.Since(m.healthStatus.Timestamp)
	status.Components = make(map[string]ComponentStatus, len(m.healthStatus.Components))
	for k, v := range m.healthStatus.Components {
		status.Components[k] = v
	}
	return status
}

// UpdateComponentStatus updates the status of a specific component
func (m *MonitoringService) UpdateComponentStatus(component string, status, message string, details map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.healthStatus.Components[component] = ComponentStatus{
		Status:    status,
		Message:   message,
		Details:   details,
		LastCheck: time.Now(),
	}

	m.updateOverallHealth()
}

// updateOverallHealth derives the overall status from the components
func (m *MonitoringService) updateOverallHealth() {
	overallStatus := StatusHealthy

	for _, component := range m.healthStatus.Components {
		if component.Status == StatusCritical {
			overallStatus = StatusCritical
			break
		} else if component.Status == StatusDegraded && overallStatus == StatusHealthy {
			overallStatus = StatusDegraded
		}
	}

	m.healthStatus.Status = overallStatus
	m.healthStatus.LastCheck = time.Now()
}

// HandleHealthCheck answers liveness probes
func (m *MonitoringService) HandleHealthCheck(c *gin.Context) {
	health := m.GetHealthStatus()
	c.JSON(http.StatusOK, gin.H{
		"status":    health.Status,
		"service":   "wildlife-watchdog",
		"timestamp": time.Now(),
	})
}

// HandleDetailedHealthCheck runs every probe and reports component status
func (m *MonitoringService) HandleDetailedHealthCheck(c *gin.Context) {
	m.PerformHealthCheck(c.Request.Context())
	health := m.GetHealthStatus()

	statusCode := http.StatusOK
	if health.Status == StatusCritical {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, health)
}

// HandleMetrics reports analysis metrics
func (m *MonitoringService) HandleMetrics(c *gin.Context) {
	analysis := m.stats.toMap()
	analysis["success_rate"] = m.stats.SuccessRate()

	c.JSON(http.StatusOK, gin.H{
		"analysis_metrics": analysis,
		"health_status":    m.GetHealthStatus(),
		"timestamp":        time.Now(),
	})
}

// StartHealthMonitoring runs PerformHealthCheck every interval until ctx is done
func (m *MonitoringService) StartHealthMonitoring(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.PerformHealthCheck(ctx)
			}
		}
	}()
}

// PerformHealthCheck probes every registered dependency and grades analysis health
func (m *MonitoringService) PerformHealthCheck(ctx context.Context) {
	m.mu.RLock()
	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthCheckFunc, len(m.checks))
	for k, v := range m.checks {
		checks[k] = v
	}
	m.mu.RUnlock()
	sort.Strings(names)

	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := checks[name](checkCtx)
		cancel()

		if err != nil {
			m.logger.Warn("Health check failed", zap.String("component", name), zap.Error(err))
			m.UpdateComponentStatus(name, StatusCritical, err.Error(), nil)
			continue
		}
		m.UpdateComponentStatus(name, StatusHealthy, fmt.Sprintf("%s is reachable", name), nil)
	}

	successRate := m.stats.SuccessRate()
	analysisStatus := StatusHealthy
	analysisMessage := "Analysis runs are healthy"
	if successRate < 95.0 {
		analysisStatus = StatusDegraded
		analysisMessage = fmt.Sprintf("Analysis success rate is low: %.2f%%", successRate)
	}
	if successRate < 80.0 {
		analysisStatus = StatusCritical
		analysisMessage = fmt.Sprintf("Analysis success rate is critically low: %.2f%%", successRate)
	}

	m.UpdateComponentStatus("analysis", analysisStatus, analysisMessage, map[string]interface{}{
		"success_rate": successRate,
	})
}
