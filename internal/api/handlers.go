package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sambitmohanty1/wildlife-watchdog/internal/models"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/services"
)

// Handlers contains all the API handlers with their dependencies
type Handlers struct {
	recordService      *services.RecordService
	analyticsService   *services.AnalyticsService
	alertService       *services.AlertService
	dataQualityService *services.DataQualityService
	logger             *zap.Logger
	now                func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	recordService *services.RecordService,
	analyticsService *services.AnalyticsService,
	alertService *services.AlertService,
	dataQualityService *services.DataQualityService,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		recordService:      recordService,
		analyticsService:   analyticsService,
		alertService:       alertService,
		dataQualityService: dataQualityService,
		logger:             logger,
		now:                time.Now,
	}
}

// RegisterRoutes mounts every endpoint on the /api/v1 group
func (h *Handlers) RegisterRoutes(apiV1 *gin.RouterGroup) {
	parksGroup := apiV1.Group("/parks")
	{
		parksGroup.GET("", h.GetParks)
		parksGroup.POST("", h.CreatePark)
		parksGroup.GET("/:id", h.GetPark)
	}

	incidentsGroup := apiV1.Group("/incidents")
	{
		incidentsGroup.GET("", h.GetIncidents)
		incidentsGroup.POST("", h.CreateIncident)
	}

	animalsGroup := apiV1.Group("/animals")
	{
		animalsGroup.GET("", h.GetAnimalRecords)
		animalsGroup.POST("", h.CreateAnimalRecord)
	}

	analyticsGroup := apiV1.Group("/analytics")
	{
		analyticsGroup.GET("/hotspots", h.GetHotspots)
		analyticsGroup.GET("/population", h.GetPopulationTrends)
		analyticsGroup.GET("/insights", h.GetInsights)
		analyticsGroup.GET("/summary", h.GetSummary)
		analyticsGroup.GET("/outlook", h.GetOutlook)
		analyticsGroup.GET("/snapshots", h.GetSnapshots)
	}

	alertsGroup := apiV1.Group("/alerts")
	{
		alertsGroup.GET("", h.GetAlerts)
		alertsGroup.GET("/stats", h.GetAlertStats)
		alertsGroup.PATCH("/:id", h.UpdateAlertStatus)
	}

	apiV1.GET("/quality", h.GetDataQualityReport)
}

// CreatePark registers a new park
func (h *Handlers) CreatePark(c *gin.Context) {
	var req struct {
		Name    string  `json:"name"`
		Region  string  `json:"region"`
		AreaKm2 float64 `json:"area_km2"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	park := &models.Park{Name: req.Name, Region: req.Region, AreaKm2: req.AreaKm2}
	if err := h.recordService.CreatePark(c.Request.Context(), park); err != nil {
		h.respondError(c, err, "Failed to create park")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": park})
}

// GetParks returns all parks
func (h *Handlers) GetParks(c *gin.Context) {
	parks, err := h.recordService.ListParks(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to list parks")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": parks, "total": len(parks)})
}

// GetPark returns a single park
func (h *Handlers) GetPark(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid park ID"})
		return
	}

	park, err := h.recordService.GetPark(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to get park")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": park})
}

// CreateIncident records a poaching incident
func (h *Handlers) CreateIncident(c *gin.Context) {
	var req struct {
		ParkID      *uuid.UUID `json:"park_id"`
		Species     string     `json:"species"`
		Location    string     `json:"location"`
		Date        string     `json:"date"`
		Severity    string     `json:"severity"`
		Description string     `json:"description"`
		ReportedBy  string     `json:"reported_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident := &models.PoachingIncident{
		ParkID:      req.ParkID,
		Species:     strings.TrimSpace(req.Species),
		Location:    strings.TrimSpace(req.Location),
		Date:        strings.TrimSpace(req.Date),
		Severity:    strings.TrimSpace(req.Severity),
		Description: req.Description,
		ReportedBy:  req.ReportedBy,
	}
	if err := h.recordService.CreateIncident(c.Request.Context(), incident); err != nil {
		h.respondError(c, err, "Failed to record incident")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": incident})
}

// GetIncidents lists incidents, optionally for one park
func (h *Handlers) GetIncidents(c *gin.Context) {
	parkID, err := parseParkID(c)
	if err != nil {
		h.respondError(c, err, "")
		return
	}
	limit, offset := parsePagination(c)

	incidents, err := h.recordService.ListIncidents(c.Request.Context(), services.RecordFilter{ParkID: parkID, Limit: limit, Offset: offset})
	if err != nil {
		h.respondError(c, err, "Failed to list incidents")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   incidents,
		"limit":  limit,
		"offset": offset,
	})
}

// CreateAnimalRecord records a population observation. The species may be
// sent as species or name.
func (h *Handlers) CreateAnimalRecord(c *gin.Context) {
	var req struct {
		ParkID   *uuid.UUID `json:"park_id"`
		Species  string     `json:"species"`
		Name     string     `json:"name"`
		Location string     `json:"location"`
		Date     string     `json:"date"`
		Count    int        `json:"count"`
		Notes    string     `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record := &models.AnimalRecord{
		ParkID:   req.ParkID,
		Species:  strings.TrimSpace(req.Species),
		Name:     strings.TrimSpace(req.Name),
		Location: strings.TrimSpace(req.Location),
		Date:     strings.TrimSpace(req.Date),
		Count:    req.Count,
		Notes:    req.Notes,
	}
	if err := h.recordService.CreateAnimalRecord(c.Request.Context(), record); err != nil {
		h.respondError(c, err, "Failed to record observation")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": record})
}

// GetAnimalRecords lists population observations, optionally for one park
func (h *Handlers) GetAnimalRecords(c *gin.Context) {
	parkID, err := parseParkID(c)
	if err != nil {
		h.respondError(c, err, "")
		return
	}
	limit, offset := parsePagination(c)

	records, err := h.recordService.ListAnimalRecords(c.Request.Context(), services.RecordFilter{ParkID: parkID, Limit: limit, Offset: offset})
	if err != nil {
		h.respondError(c, err, "Failed to list animal records")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   records,
		"limit":  limit,
		"offset": offset,
	})
}

// analysisParams reads park_id and as_of shared by the analytics endpoints
func (h *Handlers) analysisParams(c *gin.Context) (*uuid.UUID, time.Time, bool) {
	parkID, err := parseParkID(c)
	if err != nil {
		h.respondError(c, err, "")
		return nil, time.Time{}, false
	}
	asOf, err := parseAsOf(c, h.now)
	if err != nil {
		h.respondError(c, err, "")
		return nil, time.Time{}, false
	}
	return parkID, asOf, true
}

// GetHotspots returns poaching risk per location
func (h *Handlers) GetHotspots(c *gin.Context) {
	parkID, asOf, ok := h.analysisParams(c)
	if !ok {
		return
	}

	hotspots, err := h.analyticsService.Hotspots(c.Request.Context(), parkID, asOf)
	if err != nil {
		h.respondError(c, err, "Failed to predict poaching hotspots")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": hotspots})
}

// GetPopulationTrends returns population outlooks per species
func (h *Handlers) GetPopulationTrends(c *gin.Context) {
	parkID, asOf, ok := h.analysisParams(c)
	if !ok {
		return
	}

	populations, err := h.analyticsService.Populations(c.Request.Context(), parkID, asOf)
	if err != nil {
		h.respondError(c, err, "Failed to predict population trends")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": populations})
}

// GetInsights returns ranked insights
func (h *Handlers) GetInsights(c *gin.Context) {
	parkID, asOf, ok := h.analysisParams(c)
	if !ok {
		return
	}

	insights, err := h.analyticsService.Insights(c.Request.Context(), parkID, asOf)
	if err != nil {
		h.respondError(c, err, "Failed to generate insights")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": insights})
}

// GetSummary returns the full analysis. With persist=true the result is also
// stored as a snapshot.
func (h *Handlers) GetSummary(c *gin.Context) {
	parkID, asOf, ok := h.analysisParams(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	result, err := h.analyticsService.Analyze(ctx, parkID, asOf)
	if err != nil {
		h.respondError(c, err, "Failed to analyze records")
		return
	}

	response := gin.H{"success": true, "data": result}
	if c.Query("persist") == "true" {
		snapshot, err := h.analyticsService.SaveSnapshot(ctx, services.ScopeOf(parkID), result)
		if err != nil {
			h.respondError(c, err, "Failed to save snapshot")
			return
		}
		response["snapshot_id"] = snapshot.ID
	}

	c.JSON(http.StatusOK, response)
}

// GetOutlook returns the seasonal monitoring outlook for a species
func (h *Handlers) GetOutlook(c *gin.Context) {
	parkID, asOf, ok := h.analysisParams(c)
	if !ok {
		return
	}

	species := strings.TrimSpace(c.Query("species"))
	if species == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "species query parameter is required"})
		return
	}
	month, err := parseMonth(c, asOf.Month())
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	outlook, err := h.analyticsService.Outlook(c.Request.Context(), parkID, species, month)
	if err != nil {
		h.respondError(c, err, "Failed to build seasonal outlook")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": outlook})
}

// GetSnapshots lists stored analysis snapshots for a scope
func (h *Handlers) GetSnapshots(c *gin.Context) {
	parkID, err := parseParkID(c)
	if err != nil {
		h.respondError(c, err, "")
		return
	}
	limit, _ := parsePagination(c)

	snapshots, err := h.analyticsService.ListSnapshots(c.Request.Context(), services.ScopeOf(parkID), limit)
	if err != nil {
		h.respondError(c, err, "Failed to list snapshots")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshots})
}

// GetAlerts lists raised alerts
func (h *Handlers) GetAlerts(c *gin.Context) {
	parkID, err := parseParkID(c)
	if err != nil {
		h.respondError(c, err, "")
		return
	}
	scope := ""
	if parkID != nil {
		scope = parkID.String()
	} else if c.Query("scope") == services.ScopeAll {
		scope = services.ScopeAll
	}
	limit, _ := parsePagination(c)

	alerts, err := h.alertService.ListAlerts(c.Request.Context(), scope, c.Query("status"), limit)
	if err != nil {
		h.respondError(c, err, "Failed to list alerts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

// GetAlertStats returns alert counts
func (h *Handlers) GetAlertStats(c *gin.Context) {
	parkID, err := parseParkID(c)
	if err != nil {
		h.respondError(c, err, "")
		return
	}
	scope := ""
	if parkID != nil {
		scope = parkID.String()
	}

	stats, err := h.alertService.GetAlertStats(c.Request.Context(), scope)
	if err != nil {
		h.respondError(c, err, "Failed to get alert stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// UpdateAlertStatus acknowledges or resolves an alert
func (h *Handlers) UpdateAlertStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert ID"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alert, err := h.alertService.UpdateAlertStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.respondError(c, err, "Failed to update alert")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": alert})
}

// GetDataQualityReport assesses the stored records
func (h *Handlers) GetDataQualityReport(c *gin.Context) {
	parkID, err := parseParkID(c)
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	report, err := h.dataQualityService.GenerateQualityReport(c.Request.Context(), parkID)
	if err != nil {
		h.respondError(c, err, "Failed to generate quality report")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    report,
	})
}
