package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/runnerr0/sitetime/internal/ingest"
	"github.com/runnerr0/sitetime/internal/storage"
	"github.com/runnerr0/sitetime/internal/tracker"
)

// summaryJSON is the JSON output structure for the summary command.
type summaryJSON struct {
	Source  string             `json:"source"`
	Address string             `json:"address,omitempty"`
	LiveMs  int64              `json:"live_ms,omitempty"`
	Live    string             `json:"live,omitempty"`
	TotalMs int64              `json:"total_ms"`
	Total   string             `json:"total"`
	Entries []ingest.EntryJSON `json:"entries"`
}

// Execute implements the go-flags Commander interface for SummaryCommand.
func (c *SummaryCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	api := c.api
	if api == nil {
		api = newClient(cfg)
	}
	return c.executeWithStore(context.Background(), store, api)
}

// executeWithStore prints the summary. A running daemon holds durations that
// may not be saved yet, so its view wins over the database.
func (c *SummaryCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore, api daemonAPI) error {
	out := summaryJSON{Source: "database"}

	if live, err := api.Summary(ctx); err == nil {
		out.Source = "daemon"
		out.Address = live.Address
		if live.Tracking {
			out.LiveMs, out.Live = live.LiveMs, live.Live
		}
		out.TotalMs, out.Total = live.TotalMs, live.Total
		out.Entries = live.Entries
		if c.Limit > 0 && len(out.Entries) > c.Limit {
			out.Entries = out.Entries[:c.Limit]
		}
	} else {
		entries, err := store.Top(ctx, c.Limit)
		if err != nil {
			return err
		}
		stats, err := store.GetStats(ctx)
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
		out.TotalMs, out.Total = stats.TotalMs, tracker.FormatDuration(stats.TotalMs)
		out.Entries = make([]ingest.EntryJSON, len(entries))
		for i, e := range entries {
			out.Entries[i] = ingest.EntryJSON{
				Address:    e.Address,
				DurationMs: e.DurationMs,
				Duration:   tracker.FormatDuration(e.DurationMs),
			}
		}
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(out)
	}
	c.printSummaryHuman(out)
	return nil
}

func (c *SummaryCommand) printSummaryHuman(s summaryJSON) {
	fmt.Println(titleStyle.Render("sitetime"))
	fmt.Println()

	switch {
	case s.Source != "daemon":
		fmt.Println(mutedStyle.Render("Daemon not running; showing saved durations."))
	case s.Address != "":
		fmt.Printf("Now:  %s  %s\n", trackingStyle.Render(s.Address), s.Live)
	default:
		fmt.Printf("Now:  %s\n", idleStyle.Render("no active address"))
	}
	fmt.Println()

	if len(s.Entries) == 0 {
		fmt.Println("No time recorded yet.")
		return
	}

	width := len("Address")
	for _, e := range s.Entries {
		if len(e.Address) > width {
			width = len(e.Address)
		}
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-*s  %s", width, "Address", "Time")))
	for _, e := range s.Entries {
		fmt.Printf("%-*s  %s\n", width, e.Address, e.Duration)
	}
	fmt.Println(strings.Repeat("-", width+2+len(s.Total)))
	fmt.Printf("%-*s  %s\n", width, "Total", s.Total)
}
