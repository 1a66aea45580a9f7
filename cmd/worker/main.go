package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sambitmohanty1/wildlife-watchdog/internal/analytics"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/config"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/database"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/eventbus"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/services"
)

func main() {
	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
		fx.Provide(
			loadConfig,
			initLogger,
			initDatabase,
			initRedis,
			initEventBus,
			initResultCache,
			func(cfg *config.Config, logger *zap.Logger) *analytics.Engine {
				return analytics.NewEngine(cfg.Analytics.ToPolicy(), logger)
			},
			services.NewAnalysisStats,
			services.NewRecordService,
			services.NewAnalyticsService,
			initAlertService,
			initReanalysisService,
		),
		fx.Invoke(startWorker),
		fx.StopTimeout(30*time.Second),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal("Failed to start worker: ", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down worker...")
	if err := app.Stop(context.Background()); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Worker shutdown complete")
}

func loadConfig() (*config.Config, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}
	return config.Get(), nil
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	var logLevel zap.AtomicLevel
	switch cfg.Log.Level {
	case "debug":
		logLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		logLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		logLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = logLevel
	return zapConfig.Build()
}

// The server owns migrations; the worker only needs a connection.
func initDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	return database.Open(cfg.Database, logger)
}

func initRedis(cfg *config.Config) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return eventbus.Connect(ctx, cfg.Redis.URL, cfg.Redis.Password)
}

func initEventBus(lc fx.Lifecycle, client *redis.Client, cfg *config.Config, logger *zap.Logger) eventbus.EventBus {
	bus := eventbus.NewRedisEventBus(client, cfg.Redis.ConsumerGroup, cfg.Worker.ConsumerName, logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return bus.Close()
		},
	})
	return bus
}

func initResultCache(client *redis.Client, cfg *config.Config, logger *zap.Logger) services.ResultCache {
	if !cfg.Cache.Enabled {
		return nil
	}
	return services.NewRedisResultCache(client, cfg.Cache.TTL, logger)
}

func initAlertService(db *gorm.DB, bus eventbus.EventBus, cfg *config.Config, logger *zap.Logger) *services.AlertService {
	return services.NewAlertService(db, bus, cfg.Alerts.MinPriority, logger)
}

func initReanalysisService(analyticsService *services.AnalyticsService, alerts *services.AlertService, bus eventbus.EventBus, cfg *config.Config, logger *zap.Logger) *services.ReanalysisService {
	if !cfg.Alerts.Enabled {
		logger.Info("Alerting disabled, reanalysis only stores snapshots")
		alerts = nil
	}
	return services.NewReanalysisService(analyticsService, alerts, bus, cfg.Worker.Parks, cfg.Worker.RefreshInterval, logger)
}

func startWorker(lc fx.Lifecycle, reanalysis *services.ReanalysisService, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting Wildlife Watchdog Worker...")
			if err := reanalysis.Start(ctx); err != nil {
				return fmt.Errorf("failed to start reanalysis: %w", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping Wildlife Watchdog Worker...")
			return reanalysis.Stop(ctx)
		},
	})
}
