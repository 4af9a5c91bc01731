package expand

import (
	"strconv"
	"strings"
	"sync"

	"github.com/anmitsu/go-shlex"
	"mvdan.cc/sh/v3/syntax"
)

// HistoryMarker starts a history event.
const HistoryMarker = "!"

// DefaultHistorySize is used when a History is created with a size <= 0.
const DefaultHistorySize = 500

// History is a bounded list of previously run lines, safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	max     int
	entries []string
}

// NewHistory creates a history keeping at most max entries.
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultHistorySize
	}
	return &History{max: max}
}

// Add appends a line, blank lines are ignored.
func (h *History) Add(line string) {
	line = strings.TrimRight(line, "\n")
	if strings.TrimSpace(line) == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, line)
	if over := len(h.entries) - h.max; over > 0 {
		h.entries = append([]string(nil), h.entries[over:]...)
	}
}

// Entries returns a copy of the entries, oldest first.
func (h *History) Entries() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.entries...)
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Clear removes all entries.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}

// IsEvent reports whether a bare word is a history event.
func IsEvent(word string) bool {
	return strings.HasPrefix(word, HistoryMarker) && len(word) > len(HistoryMarker)
}

// Lookup resolves an event to the source text that replaces it:
//
//	!!       the last entry
//	!N       entry N, counting from 1
//	!-N      the Nth most recent entry
//	!$       the last word of the last entry
//	!^       the first argument of the last entry
//	!:N      word N of the last entry
//	!prefix  the most recent entry starting with prefix
//
// Words are quoted so they read back as a single word.
func (h *History) Lookup(event string) (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	notFound := &EventNotFound{Event: event}
	if !IsEvent(event) {
		return "", notFound
	}
	spec := strings.TrimPrefix(event, HistoryMarker)
	n := len(h.entries)

	entry := func(i int) (string, error) {
		if i < 0 || i >= n {
			return "", notFound
		}
		return h.entries[i], nil
	}

	word := func(i int) (string, error) {
		last, err := entry(n - 1)
		if err != nil {
			return "", err
		}
		words, err := shlex.Split(last, true)
		if err != nil {
			return "", notFound
		}
		if i < 0 {
			i = len(words) - 1
		}
		if i < 0 || i >= len(words) {
			return "", notFound
		}
		quoted, err := syntax.Quote(words[i], syntax.LangBash)
		if err != nil {
			return words[i], nil
		}
		return quoted, nil
	}

	switch {
	case spec == "!":
		return entry(n - 1)
	case spec == "$":
		return word(-1)
	case spec == "^":
		return word(1)
	case strings.HasPrefix(spec, ":"):
		i, err := strconv.Atoi(spec[1:])
		if err != nil {
			return "", notFound
		}
		return word(i)
	case strings.HasPrefix(spec, "-"):
		i, err := strconv.Atoi(spec[1:])
		if err != nil || i <= 0 {
			return "", notFound
		}
		return entry(n - i)
	}

	if i, err := strconv.Atoi(spec); err == nil {
		return entry(i - 1)
	}

	for i := n - 1; i >= 0; i-- {
		if strings.HasPrefix(h.entries[i], spec) {
			return h.entries[i], nil
		}
	}
	return "", notFound
}
