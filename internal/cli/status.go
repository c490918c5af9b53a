package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/sitetime/internal/storage"
	"github.com/runnerr0/sitetime/internal/tracker"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string `json:"version"`
	DatabasePath      string `json:"database_path"`
	DatabaseSizeBytes int64  `json:"database_size_bytes"`
	Addresses         int64  `json:"addresses"`
	TotalMs           int64  `json:"total_ms"`
	LastUpdated       string `json:"last_updated,omitempty"`
	DaemonRunning     bool   `json:"daemon_running"`
	SessionID         string `json:"session_id,omitempty"`
	Tracking          bool   `json:"tracking"`
	Address           string `json:"address,omitempty"`
	LiveMs            int64  `json:"live_ms,omitempty"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	dbPath, err := cfg.Storage.DBPath()
	if err != nil {
		return fmt.Errorf("resolve db path: %w", err)
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(context.Background(), store, db, dbPath, newClient(cfg))
}

// executeWithStore runs status against a provided store and daemon client (for testing).
func (c *StatusCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore, db *sql.DB, dbPath string, api daemonAPI) error {
	stats, err := store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	out := statusJSON{
		Version:           c.version,
		DatabasePath:      dbPath,
		DatabaseSizeBytes: getDatabaseSize(db, dbPath),
		Addresses:         stats.Addresses,
		TotalMs:           stats.TotalMs,
	}
	if !stats.LastUpdated.IsZero() {
		out.LastUpdated = stats.LastUpdated.UTC().Format(time.RFC3339)
	}

	if st, err := api.Status(ctx); err == nil {
		out.DaemonRunning = true
		out.SessionID = st.SessionID
		out.Tracking = st.Tracking
		out.Address = st.Address
		if live, err := api.Summary(ctx); err == nil && live.Tracking {
			out.LiveMs = live.LiveMs
		}
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(out)
	}
	c.printStatusHuman(out, stats)
	return nil
}

func (c *StatusCommand) printStatusHuman(s statusJSON, stats *storage.Stats) {
	fmt.Println(titleStyle.Render("sitetime status"))
	fmt.Println()
	fmt.Printf("Version:       %s\n", s.Version)
	fmt.Printf("Database:      %s (%s)\n", s.DatabasePath, formatBytes(s.DatabaseSizeBytes))
	fmt.Printf("Addresses:     %s\n", formatNumber(s.Addresses))
	fmt.Printf("Saved time:    %s\n", tracker.FormatDuration(s.TotalMs))
	if !stats.LastUpdated.IsZero() {
		fmt.Printf("Last saved:    %s\n", stats.LastUpdated.Local().Format("2006-01-02 15:04:05"))
	}

	fmt.Println()
	if !s.DaemonRunning {
		fmt.Printf("Daemon:        %s\n", idleStyle.Render("not running"))
		return
	}
	fmt.Printf("Daemon:        %s (session %s)\n", trackingStyle.Render("running"), s.SessionID)
	if s.Tracking {
		fmt.Printf("Tracking:      %s for %s\n", s.Address, tracker.FormatDuration(s.LiveMs))
	} else {
		fmt.Println("Tracking:      no active address")
	}
}

// getDatabaseSize returns the database file size in bytes.
// For on-disk databases, it uses os.Stat. For in-memory databases,
// it queries page_count * page_size.
func getDatabaseSize(db *sql.DB, dbPath string) int64 {
	if info, err := os.Stat(dbPath); err == nil {
		return info.Size()
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}
