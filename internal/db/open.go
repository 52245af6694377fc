package db

import (
	"errors"                          // Sentinel errors
	"expense_tracker/internal/config" // Custom package for configuration
	"fmt"                             // Error wrapping

	"github.com/glebarez/sqlite" // Pure Go SQLite driver for GORM
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/logger"        // GORM logger levels
)

// ErrUnsupportedDriver is returned by Open for unknown DB_DRIVER values
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Open connects to the database selected by cfg.DBDriver
func Open(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn), TranslateError: true} // Only slow queries and errors
	switch cfg.DBDriver {
	case "mysql":
		db, err := gorm.Open(mysql.Open(cfg.DSN()), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("connect mysql: %w", err)
		}
		return db, nil
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath, gormCfg)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.DBDriver)
}

// OpenSQLite opens a SQLite database. An in-memory database is pinned to a
// single connection so every query sees the same data.
func OpenSQLite(path string, gormCfg *gorm.Config) (*gorm.DB, error) {
	if gormCfg == nil {
		gormCfg = &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true} // Quiet by default
	}
	db, err := gorm.Open(sqlite.Open(path), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	sqlDB, err := db.DB() // Underlying *sql.DB
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	if path == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}
