// Package dedup suppresses duplicate and near-duplicate events re-emitted
// by the upstream runtime.
//
// The engine keeps, per session, a bounded window of recently accepted
// events. A candidate is a duplicate when its content is byte-identical to
// a recent entry within the time window, or when its word-set similarity
// against any recent entry meets the threshold. This is advisory noise
// suppression, not a correctness guarantee: false negatives are acceptable,
// suppressing genuinely new content is not.
package dedup

import (
	"strings"
	"sync"
	"time"
)

// Config tunes the deduplication window. The defaults match the upstream
// runtime's observed re-emission behavior; they are configuration rather
// than policy, but should not be changed without a product decision.
type Config struct {
	// Window is the recency window within which re-emissions are
	// considered duplicates.
	Window time.Duration

	// Threshold is the minimum Jaccard word-set similarity for two
	// non-identical texts to be considered duplicates.
	Threshold float64

	// Capacity is the number of accepted events retained per session,
	// oldest dropped first.
	Capacity int
}

// DefaultConfig returns the standard window configuration.
func DefaultConfig() Config {
	return Config{
		Window:    5 * time.Second,
		Threshold: 0.85,
		Capacity:  20,
	}
}

// entry is one accepted event in a session's window.
type entry struct {
	eventType string
	content   string
	at        time.Time
}

// Engine performs per-session duplicate detection. It is safe for
// concurrent use across sessions; entries for different sessions never
// influence each other.
type Engine struct {
	mu       sync.Mutex
	config   Config
	sessions map[string][]entry
}

// NewEngine creates a deduplication engine with the given configuration.
// Zero-valued config fields fall back to their defaults.
func NewEngine(config Config) *Engine {
	def := DefaultConfig()
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.Threshold <= 0 {
		config.Threshold = def.Threshold
	}
	if config.Capacity <= 0 {
		config.Capacity = def.Capacity
	}
	return &Engine{
		config:   config,
		sessions: make(map[string][]entry),
	}
}

// IsDuplicate reports whether content duplicates a recently accepted event
// of the same type for the session, as of now.
func (e *Engine) IsDuplicate(sessionID, eventType, content string, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ent := range e.sessions[sessionID] {
		if ent.eventType != eventType {
			continue
		}
		if now.Sub(ent.at) > e.config.Window {
			continue
		}
		if ent.content == content {
			return true
		}
		if Similarity(ent.content, content) >= e.config.Threshold {
			return true
		}
	}
	return false
}

// RecordAccepted appends an accepted event to the session's window, then
// prunes entries older than the window and any overflow beyond capacity.
func (e *Engine) RecordAccepted(sessionID, eventType, content string, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := append(e.sessions[sessionID], entry{
		eventType: eventType,
		content:   content,
		at:        now,
	})

	// Age pruning first, then cap overflow (oldest dropped first).
	kept := entries[:0]
	for _, ent := range entries {
		if now.Sub(ent.at) <= e.config.Window {
			kept = append(kept, ent)
		}
	}
	if overflow := len(kept) - e.config.Capacity; overflow > 0 {
		kept = kept[overflow:]
	}
	e.sessions[sessionID] = kept
}

// Forget drops all window state for a session. Used by the session
// manager's garbage collection sweep.
func (e *Engine) Forget(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, sessionID)
}

// Window returns the configured recency window.
func (e *Engine) Window() time.Duration {
	return e.config.Window
}

// Similarity computes the Jaccard index of the distinct word sets of a and
// b. Words shorter than three characters are ignored and comparison is
// case-folded. Identical texts (including both empty) score 1.0; if exactly
// one side is empty the score is 0.0.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1.0
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if len(w) > 2 {
			set[w] = true
		}
	}
	return set
}
