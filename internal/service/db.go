package service

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ifuryst/feedsync/internal/config"
	"github.com/ifuryst/feedsync/internal/models"
	"github.com/ifuryst/feedsync/internal/secrets"
)

// NewDatabase opens the legacy MySQL store. The handle is constructed once at
// process start and injected; the underlying pool is shared across all events
// and batches.
func NewDatabase(cfg *config.DatabaseConfig, provider secrets.Provider) (*gorm.DB, error) {
	creds, err := provider.DatabaseCredentials()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch database credentials: %w", err)
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=%s",
		creds.Username, creds.Password, cfg.Host, cfg.Port, cfg.Database, cfg.TimeZone)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	// Auto migrate the schema
	if err := MigrateSchema(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// MigrateSchema creates the legacy tables plus the telemetry table. Split out
// so tests can run it against an in-memory store.
func MigrateSchema(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Prospect{},
		&models.QueuedItem{},
		&models.CuratedItem{},
		&models.TileSource{},
		&models.DeletedItem{},
		&models.Domain{},
		&models.SyndicatedArticle{},
		&models.ErrorLog{},
	)
}
