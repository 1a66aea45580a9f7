package analytics

import (
	"time"

	"go.uber.org/zap"
)

// Engine runs the analytics pipeline under a fixed policy. It holds no mutable
// state, so one Engine may serve concurrent callers.
type Engine struct {
	policy Policy
	logger *zap.Logger
}

// NewEngine creates a new analytics engine
func NewEngine(policy Policy, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		policy: policy,
		logger: logger,
	}
}

// Policy returns the policy the engine was built with
func (e *Engine) Policy() Policy {
	return e.policy
}

// Analyze performs the full analysis of a snapshot
func (e *Engine) Analyze(snapshot Snapshot) *AnalysisResult {
	startTime := time.Now()

	hotspots := PredictPoachingHotspots(snapshot.Incidents, snapshot.Now, e.policy)
	populations := PredictPopulationTrends(snapshot.Population, snapshot.Incidents, snapshot.Now, e.policy)
	correlations := CorrelateSpecies(snapshot.Incidents, snapshot.Population, e.policy)
	insights := SynthesizeInsights(hotspots, populations, correlations, snapshot.Incidents, snapshot.Now, e.policy)

	metrics := AnalysisMetrics{
		IncidentsProcessed:    len(snapshot.Incidents),
		ObservationsProcessed: len(snapshot.Population),
		LocationsAnalyzed:     len(hotspots),
		SpeciesAnalyzed:       len(populations),
		InsightsGenerated:     len(insights),
	}
	for _, h := range hotspots {
		if h.PredictedRisk >= e.policy.CriticalRiskThreshold {
			metrics.HighRiskLocations++
		}
	}
	for _, p := range populations {
		if p.Critical {
			metrics.CriticalSpecies++
		}
	}

	e.logger.Info("Analysis completed",
		zap.Int("incidents", metrics.IncidentsProcessed),
		zap.Int("observations", metrics.ObservationsProcessed),
		zap.Int("locations", metrics.LocationsAnalyzed),
		zap.Int("species", metrics.SpeciesAnalyzed),
		zap.Int("insights", metrics.InsightsGenerated),
		zap.Duration("processing_time", time.Since(startTime)))

	return &AnalysisResult{
		AsOf:        snapshot.Now,
		Hotspots:    hotspots,
		Populations: populations,
		Insights:    insights,
		Metrics:     metrics,
	}
}

// PredictPoachingHotspots scores every location in incidents
func (e *Engine) PredictPoachingHotspots(incidents []IncidentRecord, now time.Time) []RiskPrediction {
	return PredictPoachingHotspots(incidents, now, e.policy)
}

// PredictPopulationTrends grades every species in population
func (e *Engine) PredictPopulationTrends(population []PopulationRecord, incidents []IncidentRecord, now time.Time) []PopulationPrediction {
	return PredictPopulationTrends(population, incidents, now, e.policy)
}

// GenerateInsights returns the ranked insights for the records
func (e *Engine) GenerateInsights(incidents []IncidentRecord, population []PopulationRecord, now time.Time) []Insight {
	return GenerateInsights(incidents, population, now, e.policy)
}

// SeasonalOutlook returns the monitoring outlook for species in month
func (e *Engine) SeasonalOutlook(species string, month time.Month, incidents []IncidentRecord, population []PopulationRecord) SeasonalOutlook {
	return SeasonalOutlookFor(species, month, incidents, population, e.policy)
}
