// Package sources aggregates knowledge-base citations per agent per
// session.
//
// Sources arrive from the runtime as loosely structured JSON objects. The
// aggregator stores them exactly as received; downstream consumers may
// depend on exact backend-provided structure, so field content is never
// rewritten. The only transformation is a read-time normalization of
// tabular payloads, cached onto the source's metadata the first time it is
// requested.
package sources

import (
	"strings"
	"sync"
)

// Source is one knowledge-base citation as received from the runtime.
type Source = map[string]any

// Metadata keys read and written by the aggregator.
const (
	// columnHeadersKey marks a source as tabular.
	columnHeadersKey = "columnHeaders"

	// parsedRowsKey caches the read-time row normalization.
	parsedRowsKey = "parsedRows"
)

// Aggregator stores citations keyed by session and agent. Identity for
// de-duplication is the pair (source URI or empty string, content text).
// It is safe for concurrent use.
type Aggregator struct {
	mu    sync.Mutex
	store map[string]map[string][]Source
	seen  map[string]map[string]map[sourceKey]bool
}

type sourceKey struct {
	uri  string
	text string
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		store: make(map[string]map[string][]Source),
		seen:  make(map[string]map[string]map[sourceKey]bool),
	}
}

// Add appends the sources not already present for the agent in the
// session. Objects are stored as received.
func (a *Aggregator) Add(sessionID, agent string, sources []Source) {
	a.mu.Lock()
	defer a.mu.Unlock()

	byAgent, ok := a.store[sessionID]
	if !ok {
		byAgent = make(map[string][]Source)
		a.store[sessionID] = byAgent
		a.seen[sessionID] = make(map[string]map[sourceKey]bool)
	}
	seen, ok := a.seen[sessionID][agent]
	if !ok {
		seen = make(map[sourceKey]bool)
		a.seen[sessionID][agent] = seen
	}

	for _, src := range sources {
		key := identity(src)
		if seen[key] {
			continue
		}
		seen[key] = true
		byAgent[agent] = append(byAgent[agent], src)
	}
}

// Get returns the stored sources for the agent in the session, applying
// the one-time tabular normalization pass.
func (a *Aggregator) Get(sessionID, agent string) []Source {
	a.mu.Lock()
	defer a.mu.Unlock()

	stored := a.store[sessionID][agent]
	for _, src := range stored {
		normalizeTabular(src)
	}
	out := make([]Source, len(stored))
	copy(out, stored)
	return out
}

// Agents returns the agents with stored sources for the session.
func (a *Aggregator) Agents(sessionID string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var agents []string
	for agent := range a.store[sessionID] {
		agents = append(agents, agent)
	}
	return agents
}

// Forget drops all citations for a session. Used by the session manager's
// garbage collection sweep.
func (a *Aggregator) Forget(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.store, sessionID)
	delete(a.seen, sessionID)
}

// identity derives the de-duplication key: the source URI (empty when the
// source has no location) paired with its content text.
func identity(src Source) sourceKey {
	return sourceKey{
		uri:  locationURI(src),
		text: contentText(src),
	}
}

func contentText(src Source) string {
	content, ok := src["content"].(map[string]any)
	if !ok {
		return ""
	}
	text, _ := content["text"].(string)
	return text
}

// locationURI digs the source URI out of the nested location object. The
// runtime nests it differently per storage backend, so any "uri" value one
// level down is accepted.
func locationURI(src Source) string {
	location, ok := src["location"].(map[string]any)
	if !ok {
		return ""
	}
	if uri, ok := location["uri"].(string); ok {
		return uri
	}
	for _, v := range location {
		nested, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if uri, ok := nested["uri"].(string); ok {
			return uri
		}
	}
	return ""
}

// normalizeTabular parses a tabular source's delimited text into row
// arrays and caches them onto the metadata. Rows split on the row
// separator (newline when present, otherwise runs of whitespace); each row
// splits on commas. Runs once per source.
func normalizeTabular(src Source) {
	metadata, ok := src["metadata"].(map[string]any)
	if !ok {
		return
	}
	if _, done := metadata[parsedRowsKey]; done {
		return
	}
	if _, tabular := metadata[columnHeadersKey]; !tabular {
		return
	}
	text := contentText(src)
	if text == "" {
		return
	}

	var rawRows []string
	if strings.Contains(text, "\n") {
		rawRows = strings.Split(text, "\n")
	} else {
		rawRows = strings.Fields(text)
	}

	rows := make([][]string, 0, len(rawRows))
	for _, raw := range rawRows {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		cells := strings.Split(raw, ",")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		rows = append(rows, cells)
	}
	metadata[parsedRowsKey] = rows
}
