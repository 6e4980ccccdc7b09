// Package datastore opens the SQLite or MySQL backend and exposes the
// repositories that persist networks, sightings, sessions, route points and
// identity keys.
package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"github.com/tphakala/rfscan-go/internal/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DefaultSlowQueryThreshold is the duration above which a statement is logged at WARN.
const DefaultSlowQueryThreshold = 500 * time.Millisecond

// Manager defines the interface for backend lifecycle operations.
type Manager interface {
	// Initialize creates or migrates the schema.
	Initialize() error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Path returns the database location (file path for SQLite, host:port/db for MySQL).
	Path() string
	// Close closes the database connection.
	Close() error
	// Delete removes the database (file for SQLite, tables for MySQL).
	Delete() error
	// Exists checks if the schema exists.
	Exists() bool
	// IsMySQL returns true if this is a MySQL manager.
	IsMySQL() bool
}

// SQLiteConfig holds configuration for the SQLite manager.
type SQLiteConfig struct {
	// Path is the database file. ":memory:" opens a private in-memory database.
	Path string
	// Logger receives SQL logging; nil uses the global datastore logger.
	Logger logger.Logger
	// SlowThreshold overrides DefaultSlowQueryThreshold when positive.
	SlowThreshold time.Duration
}

// SQLiteManager handles the SQLite backend.
type SQLiteManager struct {
	db     *gorm.DB
	dbPath string
}

// NewSQLiteManager opens (creating if needed) the SQLite database at cfg.Path.
func NewSQLiteManager(cfg SQLiteConfig) (*SQLiteManager, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	inMemory := cfg.Path == ":memory:"
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build DSN with recommended SQLite pragmas
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", cfg.Path)
	if inMemory {
		dsn = "file::memory:?_foreign_keys=ON"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger(cfg.Logger, cfg.SlowThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite has a single writer. One connection queues transactions instead
	// of failing them with SQLITE_BUSY, and keeps :memory: a single database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &SQLiteManager{
		db:     db,
		dbPath: cfg.Path,
	}, nil
}

// Initialize runs GORM auto-migrations for all entities.
func (m *SQLiteManager) Initialize() error {
	if err := m.db.AutoMigrate(entities.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DB returns the underlying GORM database.
func (m *SQLiteManager) DB() *gorm.DB {
	return m.db
}

// Path returns the database file path.
func (m *SQLiteManager) Path() string {
	return m.dbPath
}

// Close closes the database connection.
func (m *SQLiteManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// Delete closes and removes the database file.
func (m *SQLiteManager) Delete() error {
	if err := m.Close(); err != nil {
		return fmt.Errorf("failed to close database before deletion: %w", err)
	}
	if m.dbPath == ":memory:" {
		return nil
	}

	if err := os.Remove(m.dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete database file: %w", err)
	}

	// WAL and SHM files may not exist
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(m.dbPath + suffix)
	}
	return nil
}

// Exists checks if the networks table exists.
func (m *SQLiteManager) Exists() bool {
	return m.db.Migrator().HasTable(&entities.Network{})
}

// IsMySQL returns false for SQLite manager.
func (m *SQLiteManager) IsMySQL() bool {
	return false
}

// gormLogger routes GORM logging through the central logger.
func gormLogger(log logger.Logger, slow time.Duration) *logger.GormLoggerAdapter {
	if log == nil {
		log = GetLogger().Module("sql")
	}
	if slow <= 0 {
		slow = DefaultSlowQueryThreshold
	}
	return logger.NewGormLoggerAdapter(log, slow)
}
