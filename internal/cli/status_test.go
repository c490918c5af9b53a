package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/sitetime/internal/ingest"
	"github.com/runnerr0/sitetime/internal/storage"
)

func TestStatus_EmptyDB(t *testing.T) {
	store, db := openTestStore(t, nil)

	cmd := &StatusCommand{globals: &GlobalFlags{}, version: "dev"}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store, db, ":memory:", &fakeDaemon{}))
	})

	assert.Contains(t, output, "sitetime status")
	assert.Contains(t, output, "Version:")
	assert.Contains(t, output, "dev")
	assert.Contains(t, output, "Addresses:     0")
	assert.Contains(t, output, "Saved time:    0s")
	assert.Contains(t, output, "not running")
	assert.NotContains(t, output, "Last saved:")
}

func TestStatus_WithDataAndDaemon(t *testing.T) {
	store, db := openTestStore(t, storage.Summary{"a.com": 3600000, "b.com": 61000})
	daemon := &fakeDaemon{
		status:  &ingest.StatusResponse{SessionID: "sess-1", Tracking: true, Address: "b.com"},
		summary: &ingest.SummaryResponse{Address: "b.com", Tracking: true, LiveMs: 65000},
	}

	cmd := &StatusCommand{globals: &GlobalFlags{}, version: "dev"}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store, db, ":memory:", daemon))
	})

	assert.Contains(t, output, "Addresses:     2")
	assert.Contains(t, output, "1h 1m 1s")
	assert.Contains(t, output, "Last saved:")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "sess-1")
	assert.Contains(t, output, "b.com for 1m 5s")
}

func TestStatus_DaemonIdle(t *testing.T) {
	store, db := openTestStore(t, nil)
	daemon := &fakeDaemon{status: &ingest.StatusResponse{SessionID: "s"}}

	cmd := &StatusCommand{globals: &GlobalFlags{}}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store, db, ":memory:", daemon))
	})

	assert.Contains(t, output, "no active address")
}

func TestStatus_JSON(t *testing.T) {
	store, db := openTestStore(t, storage.Summary{"a.com": 1500})

	cmd := &StatusCommand{globals: &GlobalFlags{JSON: true}, version: "1.0.0"}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store, db, ":memory:", &fakeDaemon{}))
	})

	var got statusJSON
	require.NoError(t, json.Unmarshal([]byte(output), &got))
	assert.Equal(t, "1.0.0", got.Version)
	assert.Equal(t, ":memory:", got.DatabasePath)
	assert.Greater(t, got.DatabaseSizeBytes, int64(0))
	assert.Equal(t, int64(1), got.Addresses)
	assert.Equal(t, int64(1500), got.TotalMs)
	assert.NotEmpty(t, got.LastUpdated)
	assert.False(t, got.DaemonRunning)
}
