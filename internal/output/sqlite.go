// internal/output/sqlite.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

var sqliteDialect = sqlDialect{
	name:          "sqlite",
	driver:        "sqlite3",
	autoIncrement: "INTEGER PRIMARY KEY AUTOINCREMENT",
	seedStats:     "INSERT OR IGNORE INTO %s (id) VALUES (1)",
}

// NewSQLiteStore opens or creates the database file at config.Path
func NewSQLiteStore(ctx context.Context, config StoreConfig) (*SQLStore, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("SQLite database path is required")
	}

	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(sqliteDialect.driver, config.Path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return openSQLStore(ctx, db, sqliteDialect, config)
}
