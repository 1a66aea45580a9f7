package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sambitmohanty1/wildlife-watchdog/internal/analytics"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/eventbus"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/models"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/services"
)

type testAPI struct {
	router   *gin.Engine
	handlers *Handlers
	db       *gorm.DB
	bus      *eventbus.MemoryEventBus
	alerts   *services.AlertService
}

func setupTestAPI(t *testing.T) *testAPI {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	bus := eventbus.NewMemoryEventBus()
	records := services.NewRecordService(db, bus, nil, logger)
	engine := analytics.NewEngine(analytics.DefaultPolicy(), logger)
	analyticsService := services.NewAnalyticsService(db, records, engine, nil, nil, logger)
	alerts := services.NewAlertService(db, bus, 8, logger)
	quality := services.NewDataQualityService(records, logger)

	handlers := NewHandlers(records, analyticsService, alerts, quality, logger)
	handlers.now = func() time.Time { return time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC) }

	router := gin.New()
	handlers.RegisterRoutes(router.Group("/api/v1"))

	return &testAPI{router: router, handlers: handlers, db: db, bus: bus, alerts: alerts}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

func (a *testAPI) seed(t *testing.T) uuid.UUID {
	w := a.do(t, http.MethodPost, "/api/v1/parks", gin.H{"name": "North Reserve", "region": "East"})
	require.Equal(t, http.StatusCreated, w.Code)
	var park models.Park
	decodeData(t, w, &park)

	for _, date := range []string{"2025-05-20", "2025-06-01", "2025-06-10"} {
		w = a.do(t, http.MethodPost, "/api/v1/incidents", gin.H{
			"park_id":  park.ID,
			"species":  "Rhino",
			"location": "North Ridge",
			"date":     date,
			"severity": "High",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	w = a.do(t, http.MethodPost, "/api/v1/incidents", gin.H{
		"species":  "Lion",
		"location": "South Gate",
		"date":     "2025-04-02",
		"severity": "Low",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	for i, count := range []int{40, 36, 31} {
		w = a.do(t, http.MethodPost, "/api/v1/animals", gin.H{
			"park_id":  park.ID,
			"name":     "Rhino",
			"location": "North Ridge",
			"date":     time.Date(2025, time.Month(3+i), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			"count":    count,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	return park.ID
}

func TestRecordEndpoints(t *testing.T) {
	a := setupTestAPI(t)
	parkID := a.seed(t)

	t.Run("list incidents", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/incidents", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var incidents []models.PoachingIncident
		decodeData(t, w, &incidents)
		assert.Len(t, incidents, 4)

		w = a.do(t, http.MethodGet, "/api/v1/incidents?park_id="+parkID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		decodeData(t, w, &incidents)
		assert.Len(t, incidents, 3)
	})

	t.Run("list animals keeps name", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/animals?limit=1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var animals []models.AnimalRecord
		decodeData(t, w, &animals)
		require.Len(t, animals, 1)
		assert.Equal(t, "Rhino", animals[0].SpeciesName())
	})

	t.Run("parks", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/parks", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "North Reserve")

		w = a.do(t, http.MethodGet, "/api/v1/parks/"+parkID.String(), nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = a.do(t, http.MethodGet, "/api/v1/parks/"+uuid.New().String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = a.do(t, http.MethodGet, "/api/v1/parks/north", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("events are published", func(t *testing.T) {
		assert.Len(t, a.bus.Events(eventbus.TopicRecordsChanged), 7)
	})
}

func TestRecordEndpoints_Errors(t *testing.T) {
	a := setupTestAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"unknown severity", http.MethodPost, "/api/v1/incidents", gin.H{"species": "Rhino", "date": "2025-06-01", "severity": "Extreme"}, http.StatusBadRequest},
		{"bad date", http.MethodPost, "/api/v1/incidents", gin.H{"species": "Rhino", "date": "June 1st", "severity": "High"}, http.StatusBadRequest},
		{"unknown park", http.MethodPost, "/api/v1/incidents", gin.H{"park_id": uuid.New(), "species": "Rhino", "date": "2025-06-01", "severity": "High"}, http.StatusNotFound},
		{"malformed park id", http.MethodPost, "/api/v1/animals", gin.H{"park_id": "north", "species": "Rhino", "date": "2025-06-01"}, http.StatusBadRequest},
		{"negative count", http.MethodPost, "/api/v1/animals", gin.H{"species": "Rhino", "date": "2025-06-01", "count": -4}, http.StatusBadRequest},
		{"park without name", http.MethodPost, "/api/v1/parks", gin.H{"region": "East"}, http.StatusBadRequest},
		{"park filter", http.MethodGet, "/api/v1/incidents?park_id=north", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	a := setupTestAPI(t)
	parkID := a.seed(t)

	t.Run("hotspots default to today", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/analytics/hotspots", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var hotspots []analytics.RiskPrediction
		decodeData(t, w, &hotspots)
		require.Len(t, hotspots, 2)
		assert.Equal(t, "North Ridge", hotspots[0].Location)
	})

	t.Run("hotspots for a park", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/analytics/hotspots?as_of=2025-06-15&park_id="+parkID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var hotspots []analytics.RiskPrediction
		decodeData(t, w, &hotspots)
		assert.Len(t, hotspots, 1)
	})

	t.Run("population", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/analytics/population?as_of=2025-06-15", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var populations []analytics.PopulationPrediction
		decodeData(t, w, &populations)
		require.Len(t, populations, 1)
		assert.Equal(t, 31, populations[0].CurrentPopulation)
	})

	t.Run("insights", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/analytics/insights", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var insights []analytics.Insight
		decodeData(t, w, &insights)
		for _, insight := range insights {
			assert.NotEmpty(t, insight.ID)
		}
	})

	t.Run("summary with snapshot", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/analytics/summary?as_of=2025-06-15&persist=true", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var result analytics.AnalysisResult
		decodeData(t, w, &result)
		assert.Equal(t, 4, result.Metrics.IncidentsProcessed)
		assert.Contains(t, w.Body.String(), "snapshot_id")

		w = a.do(t, http.MethodGet, "/api/v1/analytics/snapshots", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var snapshots []models.InsightSnapshot
		decodeData(t, w, &snapshots)
		require.Len(t, snapshots, 1)
		assert.Equal(t, "2025-06-15", snapshots[0].AsOf)
	})

	t.Run("outlook", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/analytics/outlook?species=Rhino", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var outlook analytics.SeasonalOutlook
		decodeData(t, w, &outlook)
		assert.Equal(t, time.June, outlook.Month)

		w = a.do(t, http.MethodGet, "/api/v1/analytics/outlook?species=Rhino&month=2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		decodeData(t, w, &outlook)
		assert.Equal(t, time.February, outlook.Month)

		assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/v1/analytics/outlook", nil).Code)
		assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/v1/analytics/outlook?species=Rhino&month=13", nil).Code)
	})

	t.Run("bad as_of", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/analytics/insights?as_of=15/06/2025", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("quality", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/quality", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var report services.DataQualityReport
		decodeData(t, w, &report)
		assert.Equal(t, int64(7), report.TotalRecords)
	})
}

func TestAnalyticsEndpoints_UnusableStoredDate(t *testing.T) {
	a := setupTestAPI(t)
	require.NoError(t, a.db.Create(&models.PoachingIncident{
		Species:  "Rhino",
		Location: "North Ridge",
		Date:     "sometime in May",
		Severity: "High",
	}).Error)

	w := a.do(t, http.MethodGet, "/api/v1/analytics/summary", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "invalid record date")

	w = a.do(t, http.MethodGet, "/api/v1/quality", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report services.DataQualityReport
	decodeData(t, w, &report)
	assert.Equal(t, int64(1), report.InvalidDates)
}

func TestAlertEndpoints(t *testing.T) {
	a := setupTestAPI(t)

	raised, err := a.alerts.RaiseAlerts(context.Background(), services.ScopeAll, []analytics.Insight{
		{ID: "spatial-1", Type: analytics.InsightSpatial, Title: "Hotspot", Priority: 9},
	})
	require.NoError(t, err)
	require.Len(t, raised, 1)

	w := a.do(t, http.MethodGet, "/api/v1/alerts?scope=all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var alerts []models.Alert
	decodeData(t, w, &alerts)
	require.Len(t, alerts, 1)

	w = a.do(t, http.MethodPatch, "/api/v1/alerts/"+raised[0].ID.String(), gin.H{"status": "resolved"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"resolved"`)

	w = a.do(t, http.MethodPatch, "/api/v1/alerts/"+raised[0].ID.String(), gin.H{"status": "ignored"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPatch, "/api/v1/alerts/"+uuid.New().String(), gin.H{"status": "resolved"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, http.MethodGet, "/api/v1/alerts/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_alerts":1`)
}
