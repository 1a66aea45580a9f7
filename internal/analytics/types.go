package analytics

import (
	"strings"
	"time"
)

// Severity represents the severity of a poaching incident
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// ParseSeverity maps a stored severity label onto a Severity. The second
// return value is false when the label is not one of High, Medium or Low, in
// which case SeverityLow is returned.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return SeverityHigh, true
	case "medium":
		return SeverityMedium, true
	case "low":
		return SeverityLow, true
	default:
		return SeverityLow, false
	}
}

// IncidentRecord is a single poaching incident as supplied by the caller
type IncidentRecord struct {
	Species     string    `json:"species"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description,omitempty"`
}

// PopulationRecord is a single population observation as supplied by the caller
type PopulationRecord struct {
	Species  string    `json:"species"`
	Location string    `json:"location"`
	Date     time.Time `json:"date"`
	Count    int       `json:"count"`
}

// TrendClassification represents the direction of a fitted trend
type TrendClassification string

const (
	TrendIncreasing TrendClassification = "increasing"
	TrendDecreasing TrendClassification = "decreasing"
	TrendFlat       TrendClassification = "flat"
)

// TrendResult is the outcome of a least squares fit over a ranked series
type TrendResult struct {
	Slope          float64             `json:"slope"`
	Intercept      float64             `json:"intercept"`
	GoodnessOfFit  float64             `json:"goodness_of_fit"`
	Classification TrendClassification `json:"classification"`
	// Sufficient is false when the series was too short to fit.
	Sufficient bool `json:"sufficient"`
}

// Impact grades how strongly a factor contributed to a prediction
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// Factor is a single contributing factor attached to a prediction
type Factor struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Impact      Impact `json:"impact"`
}

// RiskPrediction is the poaching risk outlook for one location
type RiskPrediction struct {
	Location            string   `json:"location"`
	IncidentCount       int      `json:"incident_count"`
	CurrentRisk         float64  `json:"current_risk"`
	PredictedRisk       float64  `json:"predicted_risk"`
	TrendMultiplier     float64  `json:"trend_multiplier"`
	SeasonalFactor      float64  `json:"seasonal_factor"`
	Confidence          float64  `json:"confidence"`
	Recommendation      string   `json:"recommendation"`
	ContributingFactors []Factor `json:"contributing_factors"`
}

// PopulationPrediction is the population outlook for one species
type PopulationPrediction struct {
	Species           string      `json:"species"`
	CurrentPopulation int         `json:"current_population"`
	PredictedChange   float64     `json:"predicted_change"`
	Trend             TrendResult `json:"trend"`
	Confidence        float64     `json:"confidence"`
	RiskLevel         float64     `json:"risk_level"`
	Critical          bool        `json:"critical"`
	Factors           []Factor    `json:"factors"`
	Recommendations   []string    `json:"recommendations"`
}

// InsightType represents the category of an insight
type InsightType string

const (
	InsightTemporal     InsightType = "temporal"
	InsightSpatial      InsightType = "spatial"
	InsightCorrelation  InsightType = "correlation"
	InsightConservation InsightType = "conservation"
	InsightResource     InsightType = "resource"
)

// Cluster summarises one location attached to a spatial or resource insight
type Cluster struct {
	Location      string  `json:"location"`
	IncidentCount int     `json:"incident_count"`
	Risk          float64 `json:"risk"`
}

// InsightData carries optional structured payload for an insight
type InsightData struct {
	Clusters    []Cluster `json:"clusters,omitempty"`
	Species     []string  `json:"species,omitempty"`
	Correlation float64   `json:"correlation,omitempty"`
	Month       string    `json:"month,omitempty"`
}

// Insight is a ranked, human readable observation. Description and
// Recommendation are plain sentences and are not meant to be parsed.
type Insight struct {
	ID             string       `json:"id"`
	Type           InsightType  `json:"type"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Recommendation string       `json:"recommendation"`
	Priority       int          `json:"priority"`
	Confidence     float64      `json:"confidence"`
	Data           *InsightData `json:"data,omitempty"`
}

// SeasonalOutlook is the monitoring outlook for a species in a calendar month
type SeasonalOutlook struct {
	Species        string     `json:"species"`
	Month          time.Month `json:"month"`
	ActivityLevel  string     `json:"activity_level"`
	ThreatLevel    string     `json:"threat_level"`
	BreedingSeason bool       `json:"breeding_season"`
	Recommendation string     `json:"recommendation"`
	Confidence     float64    `json:"confidence"`
	// Fallback is true when there was no history to base the outlook on.
	Fallback bool `json:"fallback"`
}

// Snapshot is the full input of one analysis. Now is the reference time every
// recency and seasonal calculation is measured against.
type Snapshot struct {
	Incidents  []IncidentRecord
	Population []PopulationRecord
	Now        time.Time
}

// AnalysisResult is the combined output of one analysis
type AnalysisResult struct {
	AsOf        time.Time              `json:"as_of"`
	Hotspots    []RiskPrediction       `json:"hotspots"`
	Populations []PopulationPrediction `json:"populations"`
	Insights    []Insight              `json:"insights"`
	Metrics     AnalysisMetrics        `json:"metrics"`
}

// AnalysisMetrics counts what went into and came out of an analysis
type AnalysisMetrics struct {
	IncidentsProcessed    int `json:"incidents_processed"`
	ObservationsProcessed int `json:"observations_processed"`
	LocationsAnalyzed     int `json:"locations_analyzed"`
	SpeciesAnalyzed       int `json:"species_analyzed"`
	InsightsGenerated     int `json:"insights_generated"`
	HighRiskLocations     int `json:"high_risk_locations"`
	CriticalSpecies       int `json:"critical_species"`
}
