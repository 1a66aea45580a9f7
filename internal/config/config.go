package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sambitmohanty1/wildlife-watchdog/internal/analytics"
)

// Config holds all configuration for the service
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Vault     VaultConfig     `mapstructure:"vault"`
	Log       LogConfig       `mapstructure:"log"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port     string `mapstructure:"port"`
	Host     string `mapstructure:"host"`
	HTTPS    bool   `mapstructure:"https"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`
	// MigrationsDir holds optional *.up.sql files applied after the model migration
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// DSN returns the postgres connection string
func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, sslMode)
}

// RedisConfig holds redis configuration shared by the cache and the event bus
type RedisConfig struct {
	URL           string `mapstructure:"url"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	ConsumerGroup string `mapstructure:"consumer_group"`
}

// VaultConfig holds vault configuration. Secrets are only read when URL is set.
type VaultConfig struct {
	URL        string `mapstructure:"url"`
	Token      string `mapstructure:"token"`
	SecretPath string `mapstructure:"secret_path"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AlertsConfig controls which insights become alerts
type AlertsConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MinPriority int  `mapstructure:"min_priority"`
}

// CacheConfig controls the analysis result cache
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig controls the per-client request limiter
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	ConsumerName string `mapstructure:"consumer_name"`
	// Parks lists the scopes re-analysed on a schedule, in addition to "all"
	Parks           []string      `mapstructure:"parks"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// AnalyticsConfig mirrors analytics.Policy. Zero values keep the stock policy.
type AnalyticsConfig struct {
	HighSeverityWeight   float64 `mapstructure:"high_severity_weight"`
	MediumSeverityWeight float64 `mapstructure:"medium_severity_weight"`
	LowSeverityWeight    float64 `mapstructure:"low_severity_weight"`

	RecencyHorizonDays float64 `mapstructure:"recency_horizon_days"`
	RecentActivityDays float64 `mapstructure:"recent_activity_days"`

	MinTrendIncidents     int     `mapstructure:"min_trend_incidents"`
	NewActivityMultiplier float64 `mapstructure:"new_activity_multiplier"`
	MaxTrendMultiplier    float64 `mapstructure:"max_trend_multiplier"`

	MinSeasonalFactor float64 `mapstructure:"min_seasonal_factor"`

	MinTrendPoints     int     `mapstructure:"min_trend_points"`
	FlatSlopeThreshold float64 `mapstructure:"flat_slope_threshold"`

	ConfidenceSampleSize int     `mapstructure:"confidence_sample_size"`
	LowConfidence        float64 `mapstructure:"low_confidence"`

	CriticalRiskThreshold float64 `mapstructure:"critical_risk_threshold"`
	HighRiskThreshold     float64 `mapstructure:"high_risk_threshold"`
	ClampPredictedRisk    bool    `mapstructure:"clamp_predicted_risk"`

	DeclineSlopeThreshold float64 `mapstructure:"decline_slope_threshold"`
	CriticalPopulation    int     `mapstructure:"critical_population"`

	CorrelationThreshold float64 `mapstructure:"correlation_threshold"`
	CorrelationAlignment string  `mapstructure:"correlation_alignment"`

	// BreedingMonths maps a species to its breeding months (1-12)
	BreedingMonths map[string][]int `mapstructure:"breeding_months"`
}

// ToPolicy builds the analytics policy, starting from the stock thresholds
func (a AnalyticsConfig) ToPolicy() analytics.Policy {
	p := analytics.DefaultPolicy()

	setFloat := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}

	setFloat(&p.HighSeverityWeight, a.HighSeverityWeight)
	setFloat(&p.MediumSeverityWeight, a.MediumSeverityWeight)
	setFloat(&p.LowSeverityWeight, a.LowSeverityWeight)
	setFloat(&p.RecencyHorizonDays, a.RecencyHorizonDays)
	setFloat(&p.RecentActivityDays, a.RecentActivityDays)
	setInt(&p.MinTrendIncidents, a.MinTrendIncidents)
	setFloat(&p.NewActivityMultiplier, a.NewActivityMultiplier)
	setFloat(&p.MaxTrendMultiplier, a.MaxTrendMultiplier)
	setFloat(&p.MinSeasonalFactor, a.MinSeasonalFactor)
	setInt(&p.MinTrendPoints, a.MinTrendPoints)
	setFloat(&p.FlatSlopeThreshold, a.FlatSlopeThreshold)
	setInt(&p.ConfidenceSampleSize, a.ConfidenceSampleSize)
	setFloat(&p.LowConfidence, a.LowConfidence)
	setFloat(&p.CriticalRiskThreshold, a.CriticalRiskThreshold)
	setFloat(&p.HighRiskThreshold, a.HighRiskThreshold)
	setFloat(&p.DeclineSlopeThreshold, a.DeclineSlopeThreshold)
	setInt(&p.CriticalPopulation, a.CriticalPopulation)
	setFloat(&p.CorrelationThreshold, a.CorrelationThreshold)
	p.ClampPredictedRisk = a.ClampPredictedRisk

	switch analytics.CorrelationAlignment(strings.ToLower(a.CorrelationAlignment)) {
	case analytics.AlignByMonth:
		p.CorrelationAlignment = analytics.AlignByMonth
	case analytics.AlignPositional:
		p.CorrelationAlignment = analytics.AlignPositional
	}

	for species, months := range a.BreedingMonths {
		for _, m := range months {
			if m >= 1 && m <= 12 {
				p.BreedingMonths[species] = append(p.BreedingMonths[species], time.Month(m))
			}
		}
	}

	return p
}

// envBindings maps config keys to the environment variables that override them
var envBindings = map[string]string{
	"server.port":                     "SERVER_PORT",
	"server.host":                     "SERVER_HOST",
	"server.https":                    "SERVER_HTTPS",
	"server.cert_file":                "SERVER_CERT_FILE",
	"server.key_file":                 "SERVER_KEY_FILE",
	"database.host":                   "DATABASE_HOST",
	"database.port":                   "DATABASE_PORT",
	"database.name":                   "DATABASE_NAME",
	"database.user":                   "DATABASE_USER",
	"database.password":               "DATABASE_PASSWORD",
	"database.ssl_mode":               "DATABASE_SSL_MODE",
	"database.migrations_dir":         "DATABASE_MIGRATIONS_DIR",
	"redis.url":                       "REDIS_URL",
	"redis.password":                  "REDIS_PASSWORD",
	"redis.db":                        "REDIS_DB",
	"vault.url":                       "VAULT_URL",
	"vault.token":                     "VAULT_TOKEN",
	"vault.secret_path":               "VAULT_SECRET_PATH",
	"log.level":                       "LOG_LEVEL",
	"alerts.enabled":                  "ALERTS_ENABLED",
	"alerts.min_priority":             "ALERTS_MIN_PRIORITY",
	"cache.enabled":                   "CACHE_ENABLED",
	"cache.ttl":                       "CACHE_TTL",
	"analytics.clamp_predicted_risk":  "ANALYTICS_CLAMP_PREDICTED_RISK",
	"analytics.correlation_alignment": "ANALYTICS_CORRELATION_ALIGNMENT",
	"analytics.critical_population":   "ANALYTICS_CRITICAL_POPULATION",
	"analytics.recency_horizon_days":  "ANALYTICS_RECENCY_HORIZON_DAYS",
}

// Load loads configuration from file and environment variables
func Load() error {
	viper.SetDefault("server.port", "8085")
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.https", false)
	viper.SetDefault("server.cert_file", "./certs/server.crt")
	viper.SetDefault("server.key_file", "./certs/server.key")
	viper.SetDefault("database.host", "wildlife-postgres")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "wildlife_watchdog")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.migrations_dir", "migrations")
	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("redis.consumer_group", "wildlife-workers")
	viper.SetDefault("vault.secret_path", "wildlife-watchdog")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("alerts.enabled", true)
	viper.SetDefault("alerts.min_priority", 8)
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.ttl", "15m")
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests_per_second", 10)
	viper.SetDefault("rate_limit.burst", 20)
	viper.SetDefault("worker.consumer_name", "worker-1")
	viper.SetDefault("worker.refresh_interval", "1h")
	viper.SetDefault("analytics.correlation_alignment", string(analytics.AlignPositional))

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app/config") // Kubernetes ConfigMap mount path
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	viper.AutomaticEnv()

	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	return nil
}

// Get returns the current configuration
func Get() *Config {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("Failed to unmarshal config: %v", err))
	}
	return &config
}
