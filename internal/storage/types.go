package storage

import (
	"sort"
	"time"
)

// Summary maps an address to the milliseconds it has been active.
type Summary map[string]int64

// Entry is one row of a sorted summary.
type Entry struct {
	Address    string `db:"address"`
	DurationMs int64  `db:"duration_ms"`
}

// Stats holds aggregate statistics about the stored summary.
type Stats struct {
	Addresses   int64
	TotalMs     int64
	LastUpdated time.Time
}

// Clone returns a deep copy. A nil summary clones to an empty one.
func (s Summary) Clone() Summary {
	out := make(Summary, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Total returns the sum of all durations.
func (s Summary) Total() int64 {
	var total int64
	for _, v := range s {
		total += v
	}
	return total
}

// Sorted returns the entries ordered by descending duration, ties broken
// by address so output is stable.
func (s Summary) Sorted() []Entry {
	entries := make([]Entry, 0, len(s))
	for addr, ms := range s {
		entries = append(entries, Entry{Address: addr, DurationMs: ms})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].DurationMs != entries[j].DurationMs {
			return entries[i].DurationMs > entries[j].DurationMs
		}
		return entries[i].Address < entries[j].Address
	})
	return entries
}
