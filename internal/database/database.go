// Package database handles database connections and schema migration.
package database

import (
	"fmt"
	"time"

	"forgedb/internal/config"
	"forgedb/internal/middleware"
	"forgedb/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// UserModels are always stored in SQL.
func UserModels() []interface{} {
	return []interface{}{&models.User{}}
}

// ContentModels are stored in SQL only when CONTENT_BACKEND=sql.
func ContentModels() []interface{} {
	return []interface{}{&models.Mod{}, &models.Review{}}
}

// PersistentModels returns the schema-managed models for the given content backend.
func PersistentModels(contentBackend string) []interface{} {
	out := UserModels()
	if contentBackend == config.BackendSQL {
		out = append(out, ContentModels()...)
	}
	return out
}

// Dialector builds the GORM dialector for cfg.DBDriver.
func Dialector(cfg *config.Config) gorm.Dialector {
	if cfg.DBDriver == "sqlite" {
		return sqlite.Open(cfg.SQLitePath)
	}

	sslMode := cfg.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, sslMode,
	)
	return postgres.Open(dsn)
}

// Connect opens the database, applies the pool settings and, outside
// production, auto-migrates the schema.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(Dialector(cfg), &gorm.Config{
		Logger:         newGormLogger(middleware.Logger),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	middleware.Logger.Info("Database connected", "driver", cfg.DBDriver)

	if !cfg.IsProduction() {
		if err := Migrate(db, cfg.ContentBackend); err != nil {
			return nil, err
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql DB: %w", err)
	}
	if cfg.DBDriver == "sqlite" {
		// one writer at a time
		sqlDB.SetMaxOpenConns(1)
	} else {
		maxOpen := cfg.DBMaxOpenConns
		if maxOpen <= 0 {
			maxOpen = 25
		}
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxOpen / 5)
	}
	if cfg.DBConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeMinutes) * time.Minute)
	}

	return db, nil
}

// Migrate creates or updates the tables for the configured content backend.
func Migrate(db *gorm.DB, contentBackend string) error {
	if err := db.AutoMigrate(PersistentModels(contentBackend)...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	middleware.Logger.Info("Database migration completed", "content_backend", contentBackend)
	return nil
}

// Close closes the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
