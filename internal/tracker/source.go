package tracker

import (
	"context"
	"errors"
)

// ErrNoAddress is returned by EventSource.CurrentAddress when the host has
// no focused window or no active tab.
var ErrNoAddress = errors.New("no active address")

// EventKind identifies what the host reported.
type EventKind int

const (
	// EventActivated reports that a tab became the active one.
	EventActivated EventKind = iota + 1
	// EventFocusLost reports that the browser window lost focus.
	EventFocusLost
	// EventFocusGained reports that a browser window regained focus.
	EventFocusGained
)

func (k EventKind) String() string {
	switch k {
	case EventActivated:
		return "activated"
	case EventFocusLost:
		return "focus_lost"
	case EventFocusGained:
		return "focus_gained"
	default:
		return "unknown"
	}
}

// Event is a single host notification. URL is the address active when the
// event was published. For EventActivated an empty URL makes the tracker
// resolve TabID; for EventFocusGained it falls back to CurrentAddress.
type Event struct {
	Kind  EventKind
	TabID int
	URL   string
}

// EventSource is the host environment the tracker observes.
type EventSource interface {
	// CurrentAddress returns the raw URL of the active tab in the focused
	// window, or ErrNoAddress when there is none.
	CurrentAddress(ctx context.Context) (string, error)
	// ResolveTab returns the raw URL of a tab by id.
	ResolveTab(ctx context.Context, tabID int) (string, error)
	// Subscribe registers fn for every later event. The returned function
	// removes the subscription; fn is not called after it returns.
	Subscribe(fn func(Event)) (unsubscribe func())
}
