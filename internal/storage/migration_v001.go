package storage

import "database/sql"

// migrateV001 creates the summary table and its ordering index. Every
// statement uses IF NOT EXISTS for idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS site_durations (
			address     TEXT PRIMARY KEY,
			duration_ms INTEGER NOT NULL DEFAULT 0 CHECK (duration_ms >= 0),
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_site_durations_duration ON site_durations(duration_ms DESC)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
