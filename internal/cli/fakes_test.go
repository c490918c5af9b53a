package cli

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/sitetime/internal/ingest"
	"github.com/runnerr0/sitetime/internal/storage"
)

var errDaemonDown = errors.New("connection refused")

// fakeDaemon stands in for ingest.Client. A nil status means not running.
type fakeDaemon struct {
	status  *ingest.StatusResponse
	summary *ingest.SummaryResponse
	cleared int
}

func (f *fakeDaemon) Status(ctx context.Context) (*ingest.StatusResponse, error) {
	if f.status == nil {
		return nil, errDaemonDown
	}
	return f.status, nil
}

func (f *fakeDaemon) Summary(ctx context.Context) (*ingest.SummaryResponse, error) {
	if f.status == nil || f.summary == nil {
		return nil, errDaemonDown
	}
	return f.summary, nil
}

func (f *fakeDaemon) Clear(ctx context.Context) error {
	if f.status == nil {
		return errDaemonDown
	}
	f.cleared++
	return nil
}

// openTestDB creates a migrated in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.NewMigrationRunner(db).Run())
	return db
}

func openTestStore(t *testing.T, seed storage.Summary) (*storage.SQLiteStore, *sql.DB) {
	t.Helper()
	db := openTestDB(t)
	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if seed != nil {
		require.NoError(t, store.Save(context.Background(), seed))
	}
	return store, db
}
