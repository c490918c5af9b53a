// Package ingest receives tab and focus notifications from the browser
// extension over local HTTP and serves the tracker's display state back.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/runnerr0/sitetime/internal/tracker"
)

// ErrUnknownTab is returned when a tab id has never been reported.
var ErrUnknownTab = errors.New("unknown tab")

// Source is the extension-fed tracker.EventSource. It caches the last URL
// reported for each tab, which tab is active, and whether a browser window
// has focus.
type Source struct {
	// order serializes state change plus publish so events reach
	// subscribers in the order their requests changed state.
	order sync.Mutex

	mu        sync.Mutex
	tabs      map[int]string
	activeTab int
	hasActive bool
	focused   bool

	// subMu is held for reading while callbacks run, so unsubscribe
	// waits out any delivery already in progress.
	subMu   sync.RWMutex
	subs    map[int]func(tracker.Event)
	nextSub int
}

// NewSource returns a Source with no tabs. Until the extension reports a
// focused window, CurrentAddress returns tracker.ErrNoAddress.
func NewSource() *Source {
	return &Source{
		tabs: make(map[int]string),
		subs: make(map[int]func(tracker.Event)),
	}
}

// CurrentAddress implements tracker.EventSource.
func (s *Source) CurrentAddress(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.focused || !s.hasActive {
		return "", tracker.ErrNoAddress
	}
	raw, ok := s.tabs[s.activeTab]
	if !ok || raw == "" {
		return "", tracker.ErrNoAddress
	}
	return raw, nil
}

// ResolveTab implements tracker.EventSource.
func (s *Source) ResolveTab(ctx context.Context, tabID int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.tabs[tabID]
	if !ok || raw == "" {
		return "", fmt.Errorf("tab %d: %w", tabID, ErrUnknownTab)
	}
	return raw, nil
}

// Subscribe implements tracker.EventSource. The returned function blocks
// until in-flight deliveries finish, so fn must not call it.
func (s *Source) Subscribe(fn func(tracker.Event)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// TabActivated records tabID as active and publishes an activation. An
// empty url is filled from the tab cache; if the tab is unknown the tracker
// resolves it later.
func (s *Source) TabActivated(tabID int, url string) {
	s.order.Lock()
	defer s.order.Unlock()

	s.mu.Lock()
	if url != "" {
		s.tabs[tabID] = url
	} else {
		url = s.tabs[tabID]
	}
	s.activeTab, s.hasActive = tabID, true
	// A tab can only be activated in a focused window.
	s.focused = true
	s.mu.Unlock()

	s.publish(tracker.Event{Kind: tracker.EventActivated, TabID: tabID, URL: url})
}

// TabUpdated caches a navigation. When the active tab navigates somewhere
// new it is published as an activation.
func (s *Source) TabUpdated(tabID int, url string) {
	s.order.Lock()
	defer s.order.Unlock()

	s.mu.Lock()
	prev := s.tabs[tabID]
	s.tabs[tabID] = url
	republish := s.hasActive && s.activeTab == tabID && s.focused && prev != url
	s.mu.Unlock()

	if republish {
		s.publish(tracker.Event{Kind: tracker.EventActivated, TabID: tabID, URL: url})
	}
}

// TabRemoved forgets a tab.
func (s *Source) TabRemoved(tabID int) {
	s.mu.Lock()
	delete(s.tabs, tabID)
	if s.hasActive && s.activeTab == tabID {
		s.hasActive = false
	}
	s.mu.Unlock()
}

// FocusChanged records window focus. On gain, a reported tab becomes the
// active one and the event carries its cached URL, so the tracker charges
// time to the page focused now rather than whatever is active when the
// event is handled.
func (s *Source) FocusChanged(focused bool, tabID int, url string) {
	s.order.Lock()
	defer s.order.Unlock()

	s.mu.Lock()
	s.focused = focused
	if focused && tabID != 0 {
		s.activeTab, s.hasActive = tabID, true
		if url != "" {
			s.tabs[tabID] = url
		}
	}
	var current string
	if focused && s.hasActive {
		tabID, current = s.activeTab, s.tabs[s.activeTab]
	}
	s.mu.Unlock()

	if focused {
		s.publish(tracker.Event{Kind: tracker.EventFocusGained, TabID: tabID, URL: current})
		return
	}
	s.publish(tracker.Event{Kind: tracker.EventFocusLost})
}

// Tabs reports how many tabs are cached.
func (s *Source) Tabs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tabs)
}

func (s *Source) publish(ev tracker.Event) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for _, fn := range s.subs {
		fn(ev)
	}
}
