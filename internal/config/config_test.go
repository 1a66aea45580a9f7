package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambitmohanty1/wildlife-watchdog/internal/analytics"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ANALYTICS_CORRELATION_ALIGNMENT", "by_month")
	t.Setenv("ALERTS_MIN_PRIORITY", "9")

	require.NoError(t, Load())
	cfg := Get()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 9, cfg.Alerts.MinPriority)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "by_month", cfg.Analytics.CorrelationAlignment)
	assert.Equal(t, analytics.AlignByMonth, cfg.Analytics.ToPolicy().CorrelationAlignment)
}

func TestAnalyticsConfig_ToPolicy(t *testing.T) {
	t.Run("zero value keeps the stock policy", func(t *testing.T) {
		assert.Equal(t, analytics.DefaultPolicy(), AnalyticsConfig{}.ToPolicy())
	})

	t.Run("overrides", func(t *testing.T) {
		policy := AnalyticsConfig{
			HighSeverityWeight: 5,
			CriticalPopulation: 80,
			ClampPredictedRisk: true,
			BreedingMonths:     map[string][]int{"Rhino": {3, 4, 13}},
		}.ToPolicy()

		assert.Equal(t, 5.0, policy.HighSeverityWeight)
		assert.Equal(t, 2.0, policy.MediumSeverityWeight)
		assert.Equal(t, 80, policy.CriticalPopulation)
		assert.True(t, policy.ClampPredictedRisk)
		assert.Equal(t, []time.Month{time.March, time.April}, policy.BreedingMonths["Rhino"])
		assert.True(t, policy.IsBreedingMonth("Rhino", time.April))
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	dsn := DatabaseConfig{Host: "db", Port: 5432, Name: "wildlife", User: "ranger", Password: "secret"}.DSN()
	assert.Equal(t, "host=db user=ranger password=secret dbname=wildlife port=5432 sslmode=disable", dsn)
}
