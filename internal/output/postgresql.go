// internal/output/postgresql.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

var postgresDialect = sqlDialect{
	name:          "postgresql",
	driver:        "postgres",
	autoIncrement: "BIGSERIAL PRIMARY KEY",
	seedStats:     "INSERT INTO %s (id) VALUES (1) ON CONFLICT DO NOTHING",
	numbered:      true,
}

// NewPostgreSQLStore connects using config.DSN
func NewPostgreSQLStore(ctx context.Context, config StoreConfig) (*SQLStore, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("PostgreSQL connection string is required")
	}

	db, err := sql.Open(postgresDialect.driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return openSQLStore(ctx, db, postgresDialect, config)
}
