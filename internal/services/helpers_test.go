package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sambitmohanty1/wildlife-watchdog/internal/analytics"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/eventbus"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/models"
)

// referenceDay is the analysis day used throughout the service tests
var referenceDay = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "Failed to connect to test database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// memoryCache is an in-process ResultCache
type memoryCache struct {
	mu            sync.Mutex
	gen           int64
	entries       map[string]*analytics.AnalysisResult
	hits          int
	sets          int
	invalidations int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]*analytics.AnalysisResult)}
}

func (c *memoryCache) Generation(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *memoryCache) Get(ctx context.Context, gen int64, scope string, asOf time.Time) (*analytics.AnalysisResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, ok := c.entries[resultKey(gen, scope, asOf)]
	if ok {
		c.hits++
	}
	return result, ok, nil
}

func (c *memoryCache) Set(ctx context.Context, gen int64, scope string, asOf time.Time, result *analytics.AnalysisResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[resultKey(gen, scope, asOf)] = result
	return nil
}

func (c *memoryCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	c.gen++
	return nil
}

type testServices struct {
	db        *gorm.DB
	bus       *eventbus.MemoryEventBus
	cache     *memoryCache
	stats     *AnalysisStats
	records   *RecordService
	analytics *AnalyticsService
	alerts    *AlertService
}

func newTestServices(t *testing.T) *testServices {
	logger := zap.NewNop()
	db := setupTestDB(t)
	bus := eventbus.NewMemoryEventBus()
	cache := newMemoryCache()
	stats := NewAnalysisStats()

	records := NewRecordService(db, bus, cache, logger)
	engine := analytics.NewEngine(analytics.DefaultPolicy(), logger)

	return &testServices{
		db:        db,
		bus:       bus,
		cache:     cache,
		stats:     stats,
		records:   records,
		analytics: NewAnalyticsService(db, records, engine, cache, stats, logger),
		alerts:    NewAlertService(db, bus, 8, logger),
	}
}

func (s *testServices) createPark(t *testing.T, name string) *models.Park {
	park := &models.Park{Name: name, Region: "East"}
	require.NoError(t, s.records.CreatePark(context.Background(), park))
	return park
}

// seedParks stores two parks: North with three recent high severity rhino
// incidents at one ridge plus a rhino survey series, South with one lion
// incident.
func (s *testServices) seedParks(t *testing.T) (north, south *models.Park) {
	ctx := context.Background()
	north = s.createPark(t, "North Reserve")
	south = s.createPark(t, "South Reserve")

	for _, date := range []string{"2025-05-20", "2025-06-01", "2025-06-10"} {
		require.NoError(t, s.records.CreateIncident(ctx, &models.PoachingIncident{
			ParkID:   &north.ID,
			Species:  "Rhino",
			Location: "North Ridge",
			Date:     date,
			Severity: "High",
		}))
	}
	for i, count := range []int{40, 36, 31} {
		require.NoError(t, s.records.CreateAnimalRecord(ctx, &models.AnimalRecord{
			ParkID:   &north.ID,
			Species:  "Rhino",
			Location: "North Ridge",
			Date:     time.Date(2025, time.Month(3+i), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			Count:    count,
		}))
	}
	require.NoError(t, s.records.CreateIncident(ctx, &models.PoachingIncident{
		ParkID:   &south.ID,
		Species:  "Lion",
		Location: "South Gate",
		Date:     "2025-04-02",
		Severity: "Low",
	}))

	return north, south
}
