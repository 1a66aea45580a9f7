package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sambitmohanty1/wildlife-watchdog/internal/analytics"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/api"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/config"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/database"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/eventbus"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/services"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := initLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting Wildlife Watchdog - Conservation Intelligence Service")

	cfg := config.Get()

	// Secrets from Vault override file and env configuration
	if cfg.Vault.URL != "" && cfg.Vault.Token != "" {
		cfg = loadVaultSecrets(cfg, logger)
	} else {
		logger.Info("Using config-based secrets (Vault not configured)")
	}

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	if err := database.RunMigrations(db, cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Redis backs both the event bus and the result cache. Without it the
	// server still answers queries, it just recomputes every analysis.
	var (
		redisClient *redis.Client
		bus         eventbus.EventBus
		cache       services.ResultCache
	)
	redisClient, err = eventbus.Connect(ctx, cfg.Redis.URL, cfg.Redis.Password)
	if err != nil {
		logger.Warn("Redis unavailable, using in-process event bus without cache", zap.Error(err))
		bus = eventbus.NewMemoryEventBus()
	} else {
		bus = eventbus.NewRedisEventBus(redisClient, cfg.Redis.ConsumerGroup, cfg.Worker.ConsumerName, logger)
		if cfg.Cache.Enabled {
			cache = services.NewRedisResultCache(redisClient, cfg.Cache.TTL, logger)
		}
	}
	defer bus.Close()

	engine := analytics.NewEngine(cfg.Analytics.ToPolicy(), logger)
	stats := services.NewAnalysisStats()

	recordService := services.NewRecordService(db, bus, cache, logger)
	analyticsService := services.NewAnalyticsService(db, recordService, engine, cache, stats, logger)
	alertService := services.NewAlertService(db, bus, cfg.Alerts.MinPriority, logger)
	dataQualityService := services.NewDataQualityService(recordService, logger)

	monitoringService := services.NewMonitoringService(stats, logger)
	monitoringService.RegisterCheck("database", databaseCheck(db))
	if redisClient != nil {
		monitoringService.RegisterCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	monitoringService.StartHealthMonitoring(ctx, 30*time.Second)

	apiHandlers := api.NewHandlers(recordService, analyticsService, alertService, dataQualityService, logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(api.CORSMiddleware())

	if cfg.RateLimit.Enabled {
		limiter := api.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, 10*time.Minute)
		limiter.StartCleanup(ctx, time.Minute)
		router.Use(limiter.Middleware())
	}

	router.GET("/health", monitoringService.HandleHealthCheck)
	router.GET("/health/detailed", monitoringService.HandleDetailedHealthCheck)
	router.GET("/metrics", monitoringService.HandleMetrics)

	apiHandlers.RegisterRoutes(router.Group("/api/v1"))

	srv := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		if cfg.Server.HTTPS {
			logger.Info("Starting HTTPS server",
				zap.String("port", cfg.Server.Port),
				zap.String("cert_file", cfg.Server.CertFile),
				zap.String("key_file", cfg.Server.KeyFile))

			if err := srv.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
				logger.Fatal("Failed to start HTTPS server", zap.Error(err))
			}
		} else {
			logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("Failed to start HTTP server", zap.Error(err))
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func loadVaultSecrets(cfg *config.Config, logger *zap.Logger) *config.Config {
	vaultClient, err := services.NewVaultClient(cfg.Vault.URL, cfg.Vault.Token, logger)
	if err != nil {
		logger.Warn("Failed to initialize Vault client, using config-based secrets", zap.Error(err))
		return cfg
	}

	logger.Info("Loading secrets from Vault...")
	secrets, err := vaultClient.LoadSecretsFromVault(cfg.Vault.SecretPath)
	if err != nil {
		logger.Warn("Failed to load secrets from Vault, using config", zap.Error(err))
		return cfg
	}

	for key, value := range secrets {
		viper.Set(key, value)
	}
	logger.Info("Secrets loaded from Vault successfully", zap.Int("count", len(secrets)))
	return config.Get()
}

func databaseCheck(db *gorm.DB) services.HealthCheckFunc {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func initLogger() (*zap.Logger, error) {
	var logLevel zap.AtomicLevel

	switch viper.GetString("log.level") {
	case "debug":
		logLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		logLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		logLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config := zap.NewProductionConfig()
	config.Level = logLevel
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	return config.Build()
}
