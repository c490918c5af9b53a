package tracker

import (
	"time"

	"github.com/runnerr0/sitetime/internal/observability"
	"github.com/runnerr0/sitetime/internal/storage"
)

// ActivationRecord is the address being tracked and when it became active.
type ActivationRecord struct {
	Address     string
	ActivatedAt time.Time
}

// machine holds the Idle/Tracking state and the accumulated summary. It is
// driven with explicit timestamps and never reads a clock itself.
type machine struct {
	current *ActivationRecord // nil while Idle
	summary storage.Summary
	liveMs  int64

	// persist is called with the summary after every mutation.
	persist func(storage.Summary)
}

func newMachine(initial storage.Summary, persist func(storage.Summary)) *machine {
	if initial == nil {
		initial = storage.Summary{}
	}
	if persist == nil {
		persist = func(storage.Summary) {}
	}
	return &machine{summary: initial, persist: persist}
}

func (m *machine) tracking() bool { return m.current != nil }

// activate closes any open interval at now and starts tracking addr from now.
// Re-activating the current address still flushes and restarts.
func (m *machine) activate(addr string, now time.Time) {
	m.closeInterval(now)
	m.current = &ActivationRecord{Address: addr, ActivatedAt: now}
	m.liveMs = 0
	observability.SetTracking(true)
}

// idle closes any open interval at now and stops tracking.
func (m *machine) idle(now time.Time) {
	m.closeInterval(now)
	m.current = nil
	m.liveMs = 0
	observability.SetTracking(false)
}

// tick refreshes the live duration. It never touches the summary.
func (m *machine) tick(now time.Time) {
	if m.current == nil {
		return
	}
	m.liveMs = elapsedMs(m.current.ActivatedAt, now)
}

// clear empties the summary. An open interval keeps its start time.
func (m *machine) clear() {
	m.summary = storage.Summary{}
	m.persist(m.summary)
}

// closeInterval captures the address from the record being replaced so the
// interval can never be charged to the incoming address.
func (m *machine) closeInterval(now time.Time) {
	if m.current == nil {
		return
	}
	rec := *m.current
	m.flush(rec.Address, elapsedMs(rec.ActivatedAt, now))
}

func (m *machine) flush(addr string, ms int64) {
	m.summary[addr] += ms
	observability.RecordFlush(ms)
	m.persist(m.summary)
}

// elapsedMs is end-start in whole milliseconds, clamped at zero for clocks
// that step backwards.
func elapsedMs(start, end time.Time) int64 {
	d := end.Sub(start).Milliseconds()
	if d < 0 {
		return 0
	}
	return d
}
