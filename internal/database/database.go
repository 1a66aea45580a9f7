package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/sambitmohanty1/wildlife-watchdog/internal/config"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/models"
)

// modelsVersion is recorded once the gorm models have been migrated
const modelsVersion = "0001_models"

// SchemaMigration records an applied migration
type SchemaMigration struct {
	ID        uint      `gorm:"primaryKey"`
	Version   string    `gorm:"not null;uniqueIndex"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// MigrationStatus represents a migration status
type MigrationStatus struct {
	Version   string    `json:"version"`
	AppliedAt time.Time `json:"applied_at"`
}

// Open connects to postgres and verifies the connection
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Database connection established successfully",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name))
	return db, nil
}

// RunMigrations migrates the models and then applies any *.up.sql files in
// dir in lexical order. Applied versions are recorded in schema_migrations.
func RunMigrations(db *gorm.DB, dir string) error {
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}
	if err := recordVersion(db, modelsVersion); err != nil {
		return err
	}

	if dir == "" {
		return nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to glob migration files: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		if err := runMigration(db, file); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", file, err)
		}
	}

	return nil
}

func runMigration(db *gorm.DB, path string) error {
	version := strings.TrimSuffix(filepath.Base(path), ".up.sql")

	applied, err := isApplied(db, version)
	if err != nil || applied {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, statement := range splitStatements(string(content)) {
			if err := tx.Exec(statement).Error; err != nil {
				return fmt.Errorf("failed to execute statement: %w", err)
			}
		}
		return tx.Create(&SchemaMigration{Version: version}).Error
	})
}

func isApplied(db *gorm.DB, version string) (bool, error) {
	var count int64
	if err := db.Model(&SchemaMigration{}).Where("version = ?", version).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", version, err)
	}
	return count > 0, nil
}

func recordVersion(db *gorm.DB, version string) error {
	applied, err := isApplied(db, version)
	if err != nil || applied {
		return err
	}
	if err := db.Create(&SchemaMigration{Version: version}).Error; err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return nil
}

// splitStatements splits SQL on semicolons that end a line, keeping
// dollar-quoted function bodies intact.
func splitStatements(content string) []string {
	var statements []string
	var current strings.Builder
	inDollarQuote := false

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") {
			continue
		}
		if strings.Count(trimmed, "$$")%2 == 1 {
			inDollarQuote = !inDollarQuote
		}

		current.WriteString(line)
		current.WriteString("\n")

		if !inDollarQuote && strings.HasSuffix(trimmed, ";") {
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

// GetMigrationStatus returns the applied migrations, oldest first
func GetMigrationStatus(db *gorm.DB) ([]MigrationStatus, error) {
	var migrations []MigrationStatus

	err := db.Model(&SchemaMigration{}).
		Select("version, applied_at").
		Order("id ASC").
		Find(&migrations).Error

	return migrations, err
}

// SeedData creates a demo park when it does not exist yet
func SeedData(db *gorm.DB) error {
	park := models.Park{
		Name:   "Demo Reserve",
		Region: "Savanna",
	}

	var existing models.Park
	err := db.Where("name = ?", park.Name).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := db.Create(&park).Error; err != nil {
			return fmt.Errorf("failed to create demo park: %w", err)
		}
		return nil
	}
	return err
}
