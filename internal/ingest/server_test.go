package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/sitetime/internal/logging"
	"github.com/runnerr0/sitetime/internal/storage"
	"github.com/runnerr0/sitetime/internal/tracker"
)

type fakeDisplay struct {
	snap    tracker.Snapshot
	err     error
	cleared int
}

func (d *fakeDisplay) Snapshot(ctx context.Context) (tracker.Snapshot, error) {
	return d.snap, d.err
}

func (d *fakeDisplay) Clear(ctx context.Context) error {
	if d.err != nil {
		return d.err
	}
	d.cleared++
	return nil
}

func newTestHandler(t *testing.T, display Display, token string) (*Source, http.Handler) {
	t.Helper()
	src := NewSource()
	h := NewHandler(ServerConfig{AuthToken: token, MaxRequestSize: 256}, src, display, logging.Discard(), "test")
	return src, h.Routes()
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_TabEndpointsFeedSource(t *testing.T) {
	src, h := newTestHandler(t, &fakeDisplay{}, "")

	rec := post(t, h, "/v1/tabs/activated", TabRequest{TabID: 3, URL: "https://a.com/"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	raw, err := src.CurrentAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://a.com/", raw)

	rec = post(t, h, "/v1/tabs/updated", TabRequest{TabID: 4, URL: "https://b.com/"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 2, src.Tabs())

	rec = post(t, h, "/v1/tabs/removed", TabRequest{TabID: 4})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, src.Tabs())

	rec = post(t, h, "/v1/window/focus", FocusRequest{Focused: false})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	_, err = src.CurrentAddress(context.Background())
	assert.ErrorIs(t, err, tracker.ErrNoAddress)
}

func TestHandler_RejectsBadBodies(t *testing.T) {
	_, h := newTestHandler(t, &fakeDisplay{}, "")

	req := httptest.NewRequest(http.MethodPost, "/v1/tabs/activated", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, h, "/v1/tabs/updated", TabRequest{TabID: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, h, "/v1/tabs/activated", TabRequest{TabID: 1, URL: "https://a.com/" + strings.Repeat("x", 512)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	_, h := newTestHandler(t, &fakeDisplay{}, "")

	req := httptest.NewRequest(http.MethodGet, "/v1/tabs/activated", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_Summary(t *testing.T) {
	display := &fakeDisplay{snap: tracker.Snapshot{
		Address:     "b.com",
		Tracking:    true,
		ActivatedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		LiveMs:      65000,
		TotalMs:     3661000,
		Entries: []storage.Entry{
			{Address: "a.com", DurationMs: 3600000},
			{Address: "b.com", DurationMs: 61000},
		},
	}}
	_, h := newTestHandler(t, display, "")

	req := httptest.NewRequest(http.MethodGet, "/v1/summary", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got SummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "b.com", got.Address)
	assert.True(t, got.Tracking)
	assert.Equal(t, "2025-06-01T09:00:00Z", got.ActivatedAt)
	assert.Equal(t, "1m 5s", got.Live)
	assert.Equal(t, "1h 1m 1s", got.Total)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, EntryJSON{Address: "a.com", DurationMs: 3600000, Duration: "1h"}, got.Entries[0])
}

func TestHandler_SummaryWhenTrackerStopped(t *testing.T) {
	_, h := newTestHandler(t, &fakeDisplay{err: tracker.ErrStopped}, "")

	req := httptest.NewRequest(http.MethodGet, "/v1/summary", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandler_Clear(t *testing.T) {
	display := &fakeDisplay{}
	_, h := newTestHandler(t, display, "")

	rec := post(t, h, "/v1/summary/clear", struct{}{})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, display.cleared)
}

func TestHandler_AuthToken(t *testing.T) {
	_, h := newTestHandler(t, &fakeDisplay{}, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_StatusAndMetrics(t *testing.T) {
	display := &fakeDisplay{snap: tracker.Snapshot{Address: "a.com", Tracking: true}}
	_, h := newTestHandler(t, display, "")

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var st StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "test", st.Version)
	assert.Len(t, st.SessionID, 36)
	assert.Equal(t, "a.com", st.Address)
	assert.True(t, st.Tracking)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sitetime_tracker_flushes_total")
}

// End to end: extension posts -> Source -> Tracker -> /v1/summary.
func TestHandler_WithRealTracker(t *testing.T) {
	src := NewSource()
	store := storage.NewMemoryStore(nil)
	tr, err := tracker.New(tracker.Options{
		Store:        store,
		Source:       src,
		Logger:       logging.Discard(),
		TickInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	h := NewHandler(ServerConfig{}, src, tr, logging.Discard(), "test")
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	client := &Client{BaseURL: srv.URL, HTTP: srv.Client()}

	post(t, h.Routes(), "/v1/tabs/activated", TabRequest{TabID: 1, URL: "https://www.a.com/x"})
	time.Sleep(20 * time.Millisecond)
	post(t, h.Routes(), "/v1/tabs/activated", TabRequest{TabID: 2, URL: "https://b.com/"})

	sum, err := client.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b.com", sum.Address)
	require.Len(t, sum.Entries, 1)
	assert.Equal(t, "a.com", sum.Entries[0].Address)
	assert.GreaterOrEqual(t, sum.Entries[0].DurationMs, int64(20))

	require.NoError(t, client.Clear(context.Background()))
	sum, err = client.Summary(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sum.Entries)

	cancel()
	require.NoError(t, <-done)

	saved, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, saved, "b.com")
	assert.NotContains(t, saved, "a.com")
}

func TestClient_ErrorsOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "nope")
	}))
	defer srv.Close()

	client := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	_, err := client.Status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_SendsToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, StatusResponse{Version: "v"})
	}))
	defer srv.Close()

	client := &Client{BaseURL: srv.URL, Token: "tok", HTTP: srv.Client()}
	st, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v", st.Version)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestClient_UnreachableDaemon(t *testing.T) {
	client := NewClient("127.0.0.1:1", "")
	_, err := client.Status(context.Background())
	assert.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}
