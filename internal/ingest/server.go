package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/runnerr0/sitetime/internal/tracker"
)

// Display is the tracker surface the HTTP API reads and clears.
type Display interface {
	Snapshot(ctx context.Context) (tracker.Snapshot, error)
	Clear(ctx context.Context) error
}

// ServerConfig contains tunables for the HTTP server.
type ServerConfig struct {
	Address        string
	AuthToken      string
	MaxRequestSize int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// Handler serves the extension endpoints, the display API and metrics.
type Handler struct {
	source    *Source
	display   Display
	logger    *slog.Logger
	version   string
	sessionID string
	startedAt time.Time
	token     string
	maxBody   int64
}

// NewHandler wires a Handler. Each handler gets a fresh session id that
// appears in /status and in its log lines.
func NewHandler(cfg ServerConfig, source *Source, display Display, logger *slog.Logger, version string) *Handler {
	sessionID := uuid.NewString()
	if cfg.MaxRequestSize <= 0 {
		cfg.MaxRequestSize = 1 << 20
	}
	return &Handler{
		source:    source,
		display:   display,
		logger:    logger.With("session", sessionID),
		version:   version,
		sessionID: sessionID,
		startedAt: time.Now(),
		token:     cfg.AuthToken,
		maxBody:   cfg.MaxRequestSize,
	}
}

// SessionID identifies this daemon run.
func (h *Handler) SessionID() string { return h.sessionID }

// Routes returns the mux with every endpoint registered and middleware applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/tabs/activated", h.handleTabActivated)
	mux.HandleFunc("POST /v1/tabs/updated", h.handleTabUpdated)
	mux.HandleFunc("POST /v1/tabs/removed", h.handleTabRemoved)
	mux.HandleFunc("POST /v1/window/focus", h.handleFocus)
	mux.HandleFunc("GET /v1/summary", h.handleSummary)
	mux.HandleFunc("POST /v1/summary/clear", h.handleClear)
	mux.HandleFunc("GET /status", h.handleStatus)
	mux.Handle("GET /metrics", promhttp.Handler())

	return h.logRequests(h.authenticate(mux))
}

// NewHTTPServer creates *http.Server with provided handler.
func NewHTTPServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func (h *Handler) authenticate(next http.Handler) http.Handler {
	if h.token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if got != h.token {
			writeError(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func (h *Handler) handleTabActivated(w http.ResponseWriter, r *http.Request) {
	var req TabRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.source.TabActivated(req.TabID, req.URL)
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleTabUpdated(w http.ResponseWriter, r *http.Request) {
	var req TabRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	h.source.TabUpdated(req.TabID, req.URL)
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleTabRemoved(w http.ResponseWriter, r *http.Request) {
	var req TabRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.source.TabRemoved(req.TabID)
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleFocus(w http.ResponseWriter, r *http.Request) {
	var req FocusRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.source.FocusChanged(req.Focused, req.TabID, req.URL)
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap, err := h.display.Snapshot(r.Context())
	if err != nil {
		h.logger.Warn("snapshot failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, NewSummaryResponse(snap))
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.display.Clear(r.Context()); err != nil {
		h.logger.Warn("clear failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	out := StatusResponse{
		Version:   h.version,
		SessionID: h.sessionID,
		StartedAt: h.startedAt.UTC().Format(time.RFC3339),
		Tabs:      h.source.Tabs(),
	}
	if snap, err := h.display.Snapshot(r.Context()); err == nil {
		out.Tracking = snap.Tracking
		out.Address = snap.Address
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
