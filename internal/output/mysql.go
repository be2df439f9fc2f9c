// internal/output/mysql.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

var mysqlDialect = sqlDialect{
	name:          "mysql",
	driver:        "mysql",
	autoIncrement: "BIGINT AUTO_INCREMENT PRIMARY KEY",
	seedStats:     "INSERT IGNORE INTO %s (id) VALUES (1)",
}

// NewMySQLStore connects using config.DSN
func NewMySQLStore(ctx context.Context, config StoreConfig) (*SQLStore, error) {
	dsn, err := buildMySQLDSN(config)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(mysqlDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)

	return openSQLStore(ctx, db, mysqlDialect, config)
}

// buildMySQLDSN applies the store timeout to a DSN that sets none
func buildMySQLDSN(config StoreConfig) (string, error) {
	if config.DSN == "" {
		return "", fmt.Errorf("MySQL connection string is required")
	}
	cfg, err := mysql.ParseDSN(config.DSN)
	if err != nil {
		return "", fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	if config.Timeout > 0 {
		if cfg.Timeout == 0 {
			cfg.Timeout = config.Timeout
		}
		if cfg.ReadTimeout == 0 {
			cfg.ReadTimeout = config.Timeout
		}
		if cfg.WriteTimeout == 0 {
			cfg.WriteTimeout = config.Timeout
		}
	}
	return cfg.FormatDSN(), nil
}
