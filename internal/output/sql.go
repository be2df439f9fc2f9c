// internal/output/sql.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/valpere/VidSieve/pkg/types"
)

// sqlDialect holds the statements that differ between database engines
type sqlDialect struct {
	name string
	// driver is the database/sql driver name
	driver string
	// autoIncrement is the column definition of the history primary key
	autoIncrement string
	// seedStats inserts the single stats row unless it exists; %s is the table
	seedStats string
	// numbered placeholders ($1) instead of ?
	numbered bool
}

func (d sqlDialect) placeholder(n int) string {
	if d.numbered {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// SQLStore persists history and stats in two tables: <prefix>_history and
// <prefix>_stats. The stats table holds one row with id 1.
type SQLStore struct {
	db           *sql.DB
	dialect      sqlDialect
	historyTable string
	statsTable   string
	limit        int
	timeout      time.Duration
}

func openSQLStore(ctx context.Context, db *sql.DB, dialect sqlDialect, config StoreConfig) (*SQLStore, error) {
	if err := ValidateSQLIdentifier(config.TablePrefix); err != nil {
		db.Close()
		return nil, fmt.Errorf("invalid table prefix: %w", err)
	}

	s := &SQLStore{
		db:           db,
		dialect:      dialect,
		historyTable: config.TablePrefix + "_history",
		statsTable:   config.TablePrefix + "_stats",
		limit:        config.HistoryLimit,
		timeout:      config.Timeout,
	}
	if s.limit <= 0 {
		s.limit = types.HistoryLimit
	}

	pingCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect.name, err)
	}

	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *SQLStore) createTables(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id %s,
			title TEXT NOT NULL,
			reason TEXT NOT NULL,
			recorded_at VARCHAR(40) NOT NULL
		)`, s.historyTable, s.dialect.autoIncrement),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			views BIGINT NOT NULL DEFAULT 0,
			duration BIGINT NOT NULL DEFAULT 0,
			age BIGINT NOT NULL DEFAULT 0,
			keyword BIGINT NOT NULL DEFAULT 0,
			total BIGINT NOT NULL DEFAULT 0
		)`, s.statsTable),
		fmt.Sprintf(s.dialect.seedStats, s.statsTable),
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare %s schema: %w", s.dialect.name, err)
		}
	}
	return nil
}

// AppendHistory inserts the entry and trims the table to the most recent
// entries in one transaction
func (s *SQLStore) AppendHistory(ctx context.Context, entry types.HistoryEntry) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p := s.dialect.placeholder
	insert := fmt.Sprintf("INSERT INTO %s (title, reason, recorded_at) VALUES (%s, %s, %s)",
		s.historyTable, p(1), p(2), p(3))
	if _, err := tx.ExecContext(ctx, insert, entry.Title, entry.Reason, entry.Timestamp); err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	// the nested derived table keeps MySQL from rejecting a self-referencing delete
	trim := fmt.Sprintf(
		"DELETE FROM %[1]s WHERE id <= (SELECT id FROM (SELECT id FROM %[1]s ORDER BY id DESC LIMIT 1 OFFSET %[2]s) t)",
		s.historyTable, p(1))
	if _, err := tx.ExecContext(ctx, trim, s.limit); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}

	return tx.Commit()
}

func (s *SQLStore) AddStats(ctx context.Context, delta types.StatsDelta) error {
	if delta.IsZero() {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p := s.dialect.placeholder
	update := fmt.Sprintf(`UPDATE %s SET views = views + %s, duration = duration + %s,
		age = age + %s, keyword = keyword + %s, total = total + %s WHERE id = 1`,
		s.statsTable, p(1), p(2), p(3), p(4), p(5))
	_, err := s.db.ExecContext(ctx, update, delta.Views, delta.Duration, delta.Age, delta.Keyword, delta.Total)
	if err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}
	return nil
}

func (s *SQLStore) History(ctx context.Context) ([]types.HistoryEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT title, reason, recorded_at FROM %s ORDER BY id ASC", s.historyTable)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []types.HistoryEntry
	for rows.Next() {
		var entry types.HistoryEntry
		if err := rows.Scan(&entry.Title, &entry.Reason, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return entries, nil
}

func (s *SQLStore) Stats(ctx context.Context) (types.StatsDelta, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var stats types.StatsDelta
	query := fmt.Sprintf("SELECT views, duration, age, keyword, total FROM %s WHERE id = 1", s.statsTable)
	err := s.db.QueryRowContext(ctx, query).Scan(&stats.Views, &stats.Duration, &stats.Age, &stats.Keyword, &stats.Total)
	if err == sql.ErrNoRows {
		return types.StatsDelta{}, nil
	}
	if err != nil {
		return types.StatsDelta{}, fmt.Errorf("failed to query stats: %w", err)
	}
	return stats, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
