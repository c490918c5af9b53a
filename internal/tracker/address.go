package tracker

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrUnresolvable means an event could not be mapped to an address.
	// The tracker keeps its state when it sees one.
	ErrUnresolvable = errors.New("address unresolvable")
	// ErrNotTrackable means the page is not a web address (browser
	// internal pages, files). The tracker goes idle when it sees one.
	ErrNotTrackable = errors.New("address not trackable")
)

// Normalizer turns raw tab URLs into addresses.
type Normalizer struct {
	stripWWW bool
	ignore   map[string]struct{}
}

// NewNormalizer builds a Normalizer. Ignored domains match themselves and
// all of their subdomains.
func NewNormalizer(stripWWW bool, ignore []string) *Normalizer {
	n := &Normalizer{stripWWW: stripWWW, ignore: make(map[string]struct{}, len(ignore))}
	for _, d := range ignore {
		d = n.host(strings.TrimSpace(d))
		if d != "" {
			n.ignore[d] = struct{}{}
		}
	}
	return n
}

func (n *Normalizer) host(h string) string {
	h = strings.TrimSuffix(strings.ToLower(h), ".")
	if n.stripWWW {
		h = strings.TrimPrefix(h, "www.")
	}
	return h
}

// Normalize maps a raw URL to its address: the lower-cased hostname.
func (n *Normalizer) Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", ErrUnresolvable)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnresolvable, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	case "":
		return "", fmt.Errorf("%w: missing scheme in %q", ErrUnresolvable, raw)
	default:
		return "", fmt.Errorf("%w: scheme %q", ErrNotTrackable, u.Scheme)
	}

	h := n.host(u.Hostname())
	if h == "" {
		return "", fmt.Errorf("%w: no host in %q", ErrUnresolvable, raw)
	}
	return h, nil
}

// Ignored reports whether addr or one of its parent domains is ignored.
func (n *Normalizer) Ignored(addr string) bool {
	if len(n.ignore) == 0 {
		return false
	}
	for d := addr; d != ""; {
		if _, ok := n.ignore[d]; ok {
			return true
		}
		i := strings.IndexByte(d, '.')
		if i < 0 {
			break
		}
		d = d[i+1:]
	}
	return false
}
