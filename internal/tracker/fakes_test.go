package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// fakeClock is a manually advanced Clock whose ticker fires only when told.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	ticker *fakeTicker
}

func newFakeClock() *fakeClock { return &fakeClock{now: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// set moves the clock to ms after epoch.
func (c *fakeClock) set(ms int64) {
	c.mu.Lock()
	c.now = at(ms)
	c.mu.Unlock()
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticker = &fakeTicker{ch: make(chan time.Time)}
	return c.ticker
}

// fire delivers one tick and returns once the tracker has received it.
func (c *fakeClock) fire() {
	c.mu.Lock()
	tk, now := c.ticker, c.now
	c.mu.Unlock()
	tk.ch <- now
}

type fakeTicker struct {
	ch    chan time.Time
	stops atomic.Int32
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               { t.stops.Add(1) }

// fakeSource is an in-process EventSource.
type fakeSource struct {
	mu         sync.Mutex
	current    string
	currentErr error
	tabs       map[int]string
	gate       map[int]chan struct{} // ResolveTab blocks until closed
	subs       map[int]func(Event)
	nextID     int
}

func newFakeSource(current string) *fakeSource {
	return &fakeSource{
		current: current,
		tabs:    map[int]string{},
		gate:    map[int]chan struct{}{},
		subs:    map[int]func(Event){},
	}
}

func (s *fakeSource) setCurrent(raw string, err error) {
	s.mu.Lock()
	s.current, s.currentErr = raw, err
	s.mu.Unlock()
}

func (s *fakeSource) CurrentAddress(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentErr != nil {
		return "", s.currentErr
	}
	if s.current == "" {
		return "", ErrNoAddress
	}
	return s.current, nil
}

func (s *fakeSource) ResolveTab(ctx context.Context, tabID int) (string, error) {
	s.mu.Lock()
	gate := s.gate[tabID]
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.tabs[tabID]
	if !ok {
		return "", errors.New("no such tab")
	}
	return raw, nil
}

func (s *fakeSource) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *fakeSource) emit(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *fakeSource) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
