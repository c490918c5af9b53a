package tracker

import (
	"strconv"
	"strings"
)

// FormatDuration renders whole milliseconds as "1h 2m 3s", omitting zero
// components. Seconds are dropped only when hours or minutes were printed
// and the seconds remainder is zero, so 0 renders as "0s".
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	parts := make([]string, 0, 3)
	if h >= 1 {
		parts = append(parts, strconv.FormatInt(h, 10)+"h")
	}
	if m >= 1 {
		parts = append(parts, strconv.FormatInt(m, 10)+"m")
	}
	if s > 0 || len(parts) == 0 {
		parts = append(parts, strconv.FormatInt(s, 10)+"s")
	}
	return strings.Join(parts, " ")
}
