// Package tracker attributes browser wall-clock time to web addresses.
//
// A Tracker owns all state on the goroutine running Run. Host events,
// snapshot reads and clears are queued in arrival order and handled one at
// a time, so the summary needs no locking and an activation that waits on
// tab resolution can never be overtaken by a later one.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/runnerr0/sitetime/internal/observability"
	"github.com/runnerr0/sitetime/internal/storage"
)

// ErrStopped is returned by calls made after Run has returned.
var ErrStopped = errors.New("tracker stopped")

const (
	defaultTickInterval = time.Second
	defaultQueueSize    = 64
	resolveTimeout      = 2 * time.Second
)

// Options configures a Tracker. Store and Source are required.
type Options struct {
	Store        storage.Store
	Source       EventSource
	Normalizer   *Normalizer
	Clock        Clock
	Logger       *slog.Logger
	TickInterval time.Duration
	QueueSize    int
}

// Snapshot is what the presentation layer reads.
type Snapshot struct {
	Address     string // empty when idle
	Tracking    bool
	ActivatedAt time.Time
	LiveMs      int64
	TotalMs     int64
	Entries     []storage.Entry // descending duration
}

// item is one unit of queued work. Exactly one field is set.
type item struct {
	event *Event
	at    time.Time
	snap  chan Snapshot
	clear chan struct{}
}

// Tracker is the activity state machine plus its runtime.
type Tracker struct {
	store  storage.Store
	source EventSource
	norm   *Normalizer
	clock  Clock
	logger *slog.Logger
	tick   time.Duration

	queue    chan item
	stopping chan struct{} // closed when teardown begins
	done     chan struct{}
	started  sync.Once
}

// New validates opts and returns a Tracker ready for Run.
func New(opts Options) (*Tracker, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("tracker: store is required")
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("tracker: event source is required")
	}
	if opts.Normalizer == nil {
		opts.Normalizer = NewNormalizer(true, nil)
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	return &Tracker{
		store:    opts.Store,
		source:   opts.Source,
		norm:     opts.Normalizer,
		clock:    opts.Clock,
		logger:   opts.Logger,
		tick:     opts.TickInterval,
		queue:    make(chan item, opts.QueueSize),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Run loads the summary, subscribes to the source, and handles events until
// ctx is cancelled. On the way out it unsubscribes, handles anything already
// queued, flushes the open interval, stops the ticker and waits for the last
// save. Run may be called once.
func (t *Tracker) Run(ctx context.Context) error {
	first := false
	t.started.Do(func() { first = true })
	if !first {
		return fmt.Errorf("tracker: Run called twice")
	}
	defer close(t.done)

	summary, err := t.store.Load(ctx)
	if err != nil {
		t.logger.Error("load summary failed; starting empty", "error", err)
		summary = storage.Summary{}
	}

	sv := newSaver(t.store, t.logger)
	m := newMachine(summary, func(s storage.Summary) { sv.offer(s.Clone()) })
	observability.SetTracking(false)

	startAt := t.clock.Now()
	unsubscribe := t.source.Subscribe(t.enqueue)
	t.startup(ctx, m, startAt)

	ticker := t.clock.NewTicker(t.tick)

	for {
		select {
		case <-ctx.Done():
			// Release any publisher blocked on a full queue so unsubscribe,
			// which waits for in-flight deliveries, can return.
			close(t.stopping)
			unsubscribe()
			t.drain(m)
			m.idle(t.clock.Now())
			ticker.Stop()
			sv.close()
			t.logger.Info("tracker stopped", "addresses", len(m.summary))
			return nil
		case it := <-t.queue:
			t.handle(m, it)
		case <-ticker.C():
			m.tick(t.clock.Now())
		}
	}
}

// startup begins tracking whatever the host reports as active. A source
// that cannot answer leaves the tracker idle.
func (t *Tracker) startup(ctx context.Context, m *machine, at time.Time) {
	rctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	raw, err := t.source.CurrentAddress(rctx)
	if err != nil {
		if !errors.Is(err, ErrNoAddress) {
			t.logger.Warn("event source unavailable at startup", "error", err)
		}
		return
	}
	t.enter(m, raw, at, "startup")
}

// drain handles everything queued before teardown.
func (t *Tracker) drain(m *machine) {
	for {
		select {
		case it := <-t.queue:
			t.handle(m, it)
		default:
			return
		}
	}
}

// enqueue drops events that arrive once teardown has begun.
func (t *Tracker) enqueue(ev Event) {
	it := item{event: &ev, at: t.clock.Now()}
	select {
	case t.queue <- it:
	case <-t.stopping:
	case <-t.done:
	}
}

func (t *Tracker) handle(m *machine, it item) {
	switch {
	case it.event != nil:
		t.handleEvent(m, *it.event, it.at)
	case it.snap != nil:
		it.snap <- snapshotOf(m)
	case it.clear != nil:
		m.clear()
		t.logger.Info("summary cleared")
		close(it.clear)
	}
}

func (t *Tracker) handleEvent(m *machine, ev Event, at time.Time) {
	// Resolution must not be cut short by shutdown; queued events are still
	// handled after ctx is cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	switch ev.Kind {
	case EventActivated:
		raw := ev.URL
		if raw == "" {
			var err error
			raw, err = t.source.ResolveTab(ctx, ev.TabID)
			if err != nil {
				t.resolveFailed(ev.Kind.String(), ev.TabID, fmt.Errorf("%w: %v", ErrUnresolvable, err))
				return
			}
		}
		t.enter(m, raw, at, ev.Kind.String())

	case EventFocusLost:
		if m.tracking() {
			t.logger.Debug("focus lost", "address", m.current.Address)
		}
		m.idle(at)

	case EventFocusGained:
		// A URL captured at publish time wins; asking the source now could
		// return an address that only became active after this event.
		raw := ev.URL
		if raw == "" {
			var err error
			raw, err = t.source.CurrentAddress(ctx)
			if errors.Is(err, ErrNoAddress) {
				return
			}
			if err != nil {
				t.resolveFailed(ev.Kind.String(), ev.TabID, err)
				return
			}
		}
		t.enter(m, raw, at, ev.Kind.String())

	default:
		t.logger.Warn("ignoring unknown event", "kind", int(ev.Kind))
	}
}

// enter moves to Tracking(addr, at), or to Idle when the page is not a
// trackable web address or is ignored. Unresolvable URLs keep the state.
func (t *Tracker) enter(m *machine, raw string, at time.Time, cause string) {
	addr, err := t.norm.Normalize(raw)
	switch {
	case errors.Is(err, ErrNotTrackable):
		t.logger.Debug("non-web page active; idling", "cause", cause, "error", err)
		m.idle(at)
		return
	case err != nil:
		t.resolveFailed(cause, 0, err)
		return
	}

	if t.norm.Ignored(addr) {
		t.logger.Debug("ignored address active; idling", "cause", cause, "address", addr)
		m.idle(at)
		return
	}

	m.activate(addr, at)
	t.logger.Debug("tracking", "cause", cause, "address", addr)
}

func (t *Tracker) resolveFailed(cause string, tabID int, err error) {
	observability.RecordResolveFailure()
	t.logger.Warn("address resolution failed; keeping state",
		"cause", cause, "tab_id", tabID, "error", err)
}

func snapshotOf(m *machine) Snapshot {
	s := Snapshot{
		LiveMs:  m.liveMs,
		TotalMs: m.summary.Total(),
		Entries: m.summary.Sorted(),
	}
	if m.current != nil {
		s.Address = m.current.Address
		s.Tracking = true
		s.ActivatedAt = m.current.ActivatedAt
	}
	return s
}

// submit queues it behind every earlier event.
func (t *Tracker) submit(ctx context.Context, it item) error {
	select {
	case t.queue <- it:
		return nil
	case <-t.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current address, live duration and sorted summary as
// of every event queued before the call.
func (t *Tracker) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := t.submit(ctx, item{snap: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-t.done:
		// The reply may have been sent during the final drain.
		select {
		case s := <-reply:
			return s, nil
		default:
			return Snapshot{}, ErrStopped
		}
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Clear resets the summary to empty and persists it.
func (t *Tracker) Clear(ctx context.Context) error {
	reply := make(chan struct{})
	if err := t.submit(ctx, item{clear: reply}); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-t.done:
		select {
		case <-reply:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Run has returned.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}
