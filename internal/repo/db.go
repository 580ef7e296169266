// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and PostgreSQL, plus schema migrations.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/vendorbot/internal/domain"
)

// Open returns a database handle for the configured store: PostgreSQL when
// databaseURL is set, otherwise SQLite at sqlitePath.
func Open(databaseURL, sqlitePath string) (*gorm.DB, error) {
	if strings.TrimSpace(databaseURL) != "" {
		return OpenPostgres(databaseURL)
	}
	return OpenSQLite(sqlitePath)
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	tune(db, 10)
	return db, instrument(db)
}

// OpenPostgres connects to PostgreSQL using a URL or key/value DSN.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	tune(db, 25)
	return db, instrument(db)
}

// AutoMigrate creates or updates every table used by the bot.
func AutoMigrate(db *gorm.DB) error {
	if err := addNameKeys(db); err != nil {
		return err
	}
	return db.AutoMigrate(
		&domain.User{},
		&domain.MenuItem{},
		&domain.Order{},
		&domain.Message{},
		&domain.WebhookReceipt{},
	)
}

// addNameKeys adds and fills name_key on users and menu_items tables created
// before the column existed, so the unique index can be built afterwards.
func addNameKeys(db *gorm.DB) error {
	m := db.Migrator()
	for _, model := range []any{&domain.User{}, &domain.MenuItem{}} {
		if !m.HasTable(model) {
			continue
		}
		if !m.HasColumn(model, "NameKey") {
			if err := m.AddColumn(model, "NameKey"); err != nil {
				return fmt.Errorf("add name_key: %w", err)
			}
		}
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return err
		}
		var rows []struct {
			ID   uint
			Name string
		}
		table := stmt.Schema.Table
		if err := db.Table(table).Select("id, name").Where("name_key = ''").Find(&rows).Error; err != nil {
			return err
		}
		for _, r := range rows {
			if err := db.Table(table).Where("id = ?", r.ID).Update("name_key", domain.NameKey(r.Name)).Error; err != nil {
				return fmt.Errorf("backfill %s.name_key: %w", table, err)
			}
		}
	}
	return nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
}

// tune applies connection pool limits.
func tune(db *gorm.DB, maxOpen int) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxOpen)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
}

// instrument emits an OpenTelemetry span per query. Spans go to the global
// tracer provider, which is a no-op until observability.SetupOTel runs.
func instrument(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}
