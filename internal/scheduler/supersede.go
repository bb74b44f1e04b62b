package scheduler

import (
	"strings"
	"sync"
)

// Token identifies one recomputation request for a form key.
type Token struct {
	Key string
	Seq uint64
}

// Tracker hands out monotonically increasing tokens per key so callers can discard results
// of recomputations that a newer request has superseded. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	latest map[string]uint64
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{latest: make(map[string]uint64)}
}

// Begin issues the next token for key, superseding every earlier token.
func (t *Tracker) Begin(key string) Token {
	t.mu.Lock()
	defer t.mu.Unlock()

	seq := t.latest[key] + 1
	t.latest[key] = seq
	return Token{Key: key, Seq: seq}
}

// Observe records a client-supplied sequence number for key. It returns a token that is
// current when seq is at least the highest seen so far; lower values come back already stale.
func (t *Tracker) Observe(key string, seq uint64) Token {
	t.mu.Lock()
	defer t.mu.Unlock()

	if seq > t.latest[key] {
		t.latest[key] = seq
	}
	return Token{Key: key, Seq: seq}
}

// Current reports whether tok is still the latest token for its key.
func (t *Tracker) Current(tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.latest[tok.Key] == tok.Seq
}

// ForgetPrefix drops the history of every key starting with prefix.
func (t *Tracker) ForgetPrefix(prefix string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key := range t.latest {
		if strings.HasPrefix(key, prefix) {
			delete(t.latest, key)
		}
	}
}
