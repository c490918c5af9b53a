package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store persists the activity summary as a single logical record.
type Store interface {
	// Load returns the stored summary, or an empty one if nothing was saved.
	Load(ctx context.Context) (Summary, error)
	// Save replaces the stored summary wholesale.
	Save(ctx context.Context, s Summary) error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sqlx.DB

	// Prepared statements
	selectAll *sqlx.Stmt
	selectTop *sqlx.Stmt
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: sqlx.NewDb(db, "sqlite3")}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.selectAll, err = s.db.Preparex(`SELECT address, duration_ms FROM site_durations`)
	if err != nil {
		return err
	}

	s.selectTop, err = s.db.Preparex(`
		SELECT address, duration_ms FROM site_durations
		ORDER BY duration_ms DESC, address ASC
		LIMIT ?
	`)
	if err != nil {
		return err
	}

	return nil
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.999999999-07:00",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

// Load reads every row into a Summary. An empty table yields an empty,
// non-nil map.
func (s *SQLiteStore) Load(ctx context.Context) (Summary, error) {
	var rows []Entry
	if err := s.selectAll.SelectContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}

	summary := make(Summary, len(rows))
	for _, r := range rows {
		summary[r.Address] = r.DurationMs
	}
	return summary, nil
}

// Save replaces the table contents with sum in a single transaction.
// Negative durations are rejected before anything is written.
func (s *SQLiteStore) Save(ctx context.Context, sum Summary) error {
	for addr, ms := range sum {
		if ms < 0 {
			return fmt.Errorf("save summary: negative duration %d for %q", ms, addr)
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM site_durations"); err != nil {
		return fmt.Errorf("clear summary: %w", err)
	}

	insert, err := tx.PreparexContext(ctx,
		"INSERT INTO site_durations (address, duration_ms, updated_at) VALUES (?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer insert.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for addr, ms := range sum {
		if _, err := insert.ExecContext(ctx, addr, ms, now); err != nil {
			return fmt.Errorf("insert %q: %w", addr, err)
		}
	}

	return tx.Commit()
}

// Top returns up to limit entries ordered by descending duration. A
// non-positive limit returns every entry.
func (s *SQLiteStore) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}

	entries := []Entry{}
	if err := s.selectTop.SelectContext(ctx, &entries, limit); err != nil {
		return nil, fmt.Errorf("top entries: %w", err)
	}
	return entries, nil
}

// Clear removes every stored duration.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.Save(ctx, Summary{})
}

// GetStats returns aggregate statistics about the stored summary.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(duration_ms), 0) FROM site_durations",
	).Scan(&stats.Addresses, &stats.TotalMs)
	if err != nil {
		return nil, fmt.Errorf("count addresses: %w", err)
	}

	if stats.Addresses > 0 {
		var lastStr string
		err = s.db.QueryRowContext(ctx, "SELECT MAX(updated_at) FROM site_durations").Scan(&lastStr)
		if err != nil {
			return nil, fmt.Errorf("last update: %w", err)
		}
		stats.LastUpdated, _ = parseTimestamp(lastStr)
	}

	return stats, nil
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sqlx.Stmt{s.selectAll, s.selectTop}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
