package ingest

import (
	"time"

	"github.com/runnerr0/sitetime/internal/tracker"
)

// TabRequest is the body of /v1/tabs/activated, /v1/tabs/updated and
// /v1/tabs/removed.
type TabRequest struct {
	TabID int    `json:"tab_id"`
	URL   string `json:"url,omitempty"`
}

// FocusRequest is the body of /v1/window/focus.
type FocusRequest struct {
	Focused bool   `json:"focused"`
	TabID   int    `json:"tab_id,omitempty"`
	URL     string `json:"url,omitempty"`
}

// EntryJSON is one row of the summary.
type EntryJSON struct {
	Address    string `json:"address"`
	DurationMs int64  `json:"duration_ms"`
	Duration   string `json:"duration"`
}

// SummaryResponse is the display contract served at /v1/summary.
type SummaryResponse struct {
	Address     string      `json:"address"`
	Tracking    bool        `json:"tracking"`
	ActivatedAt string      `json:"activated_at,omitempty"`
	LiveMs      int64       `json:"live_ms"`
	Live        string      `json:"live"`
	TotalMs     int64       `json:"total_ms"`
	Total       string      `json:"total"`
	Entries     []EntryJSON `json:"entries"`
}

// StatusResponse is served at /status.
type StatusResponse struct {
	Version   string `json:"version"`
	SessionID string `json:"session_id"`
	StartedAt string `json:"started_at"`
	Tracking  bool   `json:"tracking"`
	Address   string `json:"address"`
	Tabs      int    `json:"tabs"`
}

// NewSummaryResponse converts a tracker snapshot to its wire form.
func NewSummaryResponse(s tracker.Snapshot) SummaryResponse {
	out := SummaryResponse{
		Address:  s.Address,
		Tracking: s.Tracking,
		LiveMs:   s.LiveMs,
		Live:     tracker.FormatDuration(s.LiveMs),
		TotalMs:  s.TotalMs,
		Total:    tracker.FormatDuration(s.TotalMs),
		Entries:  make([]EntryJSON, len(s.Entries)),
	}
	if s.Tracking {
		out.ActivatedAt = s.ActivatedAt.UTC().Format(time.RFC3339)
	}
	for i, e := range s.Entries {
		out.Entries[i] = EntryJSON{
			Address:    e.Address,
			DurationMs: e.DurationMs,
			Duration:   tracker.FormatDuration(e.DurationMs),
		}
	}
	return out
}
