// Package session tracks per-conversation state for the streaming engine.
//
// Each session is keyed by an opaque, externally generated identifier and
// holds the active agent, the direct-mention flag, and the response
// accumulator. Contexts are created lazily on first touch and garbage
// collected once no event has been recorded within the retention window.
// All mutation is routed through the Manager; no two contexts ever share
// mutable state.
package session

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// mentionRe matches an explicit agent mention in an outbound query: one or
// more word characters followed by the literal suffix "Agent".
var mentionRe = regexp.MustCompile(`@(\w+Agent)`)

// Config tunes session retention.
type Config struct {
	// Retention is how long an idle session's state is kept. The
	// convention is ten times the duplicate-detection window.
	Retention time.Duration

	// SweepInterval is how often the garbage collection sweep runs.
	SweepInterval time.Duration
}

// DefaultConfig returns the standard retention configuration, derived from
// the given duplicate-detection window.
func DefaultConfig(dedupWindow time.Duration) Config {
	return Config{
		Retention:     10 * dedupWindow,
		SweepInterval: dedupWindow,
	}
}

// Context is the state of one conversation. Snapshot copies are returned
// to callers; the live context is owned by the Manager.
type Context struct {
	// ActiveAgent is the agent currently attributed with responses.
	ActiveAgent string

	// DirectMentionMode is set when the outbound query explicitly named
	// a target agent. It is cleared only by an explicit session clear,
	// not automatically after one response.
	DirectMentionMode bool

	// ResponseAccumulator collects partial text deltas before they are
	// treated as a complete message.
	ResponseAccumulator string

	// LastActivity is the time of the most recent event for the session.
	LastActivity time.Time
}

// Manager owns all session contexts. It is safe for concurrent use across
// sessions.
type Manager struct {
	mu       sync.Mutex
	config   Config
	sessions map[string]*Context
	log      logrus.FieldLogger

	// onEvict hooks run for each session removed by the sweep, so sibling
	// subsystems keyed by the same identifier can drop their state too.
	onEvict []func(sessionID string)

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewManager creates a session manager and starts its periodic garbage
// collection sweep. Call Stop to halt the sweep.
func NewManager(config Config, log logrus.FieldLogger) *Manager {
	if config.Retention <= 0 {
		config.Retention = DefaultConfig(5 * time.Second).Retention
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = config.Retention / 10
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	m := &Manager{
		config:   config,
		sessions: make(map[string]*Context),
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// OnEvict registers a hook invoked with the session identifier whenever a
// session is garbage collected or explicitly cleared.
func (m *Manager) OnEvict(fn func(sessionID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvict = append(m.onEvict, fn)
}

// Touch records activity for the session, creating its context lazily.
func (m *Manager) Touch(sessionID string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(sessionID).LastActivity = now
}

// ResolveAgent determines the target agent for an outbound query. When the
// query carries an explicit @WordAgent mention, the mentioned agent becomes
// active and direct-mention mode is set; otherwise the previously resolved
// agent is kept, falling back to defaultAgent.
func (m *Manager) ResolveAgent(sessionID, query, defaultAgent string, now time.Time) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx := m.get(sessionID)
	ctx.LastActivity = now

	if agent, ok := DetectMention(query); ok {
		ctx.ActiveAgent = agent
		ctx.DirectMentionMode = true
		return agent
	}
	if ctx.ActiveAgent == "" {
		ctx.ActiveAgent = defaultAgent
	}
	return ctx.ActiveAgent
}

// SetActiveAgent records the agent currently responding for the session.
func (m *Manager) SetActiveAgent(sessionID, agent string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx := m.get(sessionID)
	ctx.ActiveAgent = agent
	ctx.LastActivity = now
}

// InDirectMentionMode reports whether the session is in direct-mention
// mode. Unknown sessions are not.
func (m *Manager) InDirectMentionMode(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx, ok := m.sessions[sessionID]
	return ok && ctx.DirectMentionMode
}

// AppendResponse accumulates a partial text delta for the session.
func (m *Manager) AppendResponse(sessionID, delta string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx := m.get(sessionID)
	ctx.ResponseAccumulator += delta
	ctx.LastActivity = now
}

// TakeResponse returns the accumulated response text and resets the
// accumulator.
func (m *Manager) TakeResponse(sessionID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx, ok := m.sessions[sessionID]
	if !ok {
		return ""
	}
	text := ctx.ResponseAccumulator
	ctx.ResponseAccumulator = ""
	return text
}

// Clear removes all state for the session, including direct-mention mode,
// and runs the eviction hooks.
func (m *Manager) Clear(sessionID string) {
	m.mu.Lock()
	_, existed := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	hooks := append([]func(string){}, m.onEvict...)
	m.mu.Unlock()

	if existed {
		for _, fn := range hooks {
			fn(sessionID)
		}
	}
}

// Snapshot returns a copy of the session's context and whether it exists.
func (m *Manager) Snapshot(sessionID string) (Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx, ok := m.sessions[sessionID]
	if !ok {
		return Context{}, false
	}
	return *ctx, true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stop halts the garbage collection sweep. It is safe to call more than
// once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	<-m.done
}

// get returns the live context for sessionID, creating it if needed.
// Callers must hold m.mu.
func (m *Manager) get(sessionID string) *Context {
	ctx, ok := m.sessions[sessionID]
	if !ok {
		ctx = &Context{}
		m.sessions[sessionID] = ctx
	}
	return ctx
}

func (m *Manager) sweepLoop() {
	defer close(m.done)
	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

// sweep removes sessions with no activity inside the retention window.
// Idle sessions have no in-flight events, so this cannot race an active
// read in a way that loses data.
func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	var expired []string
	for id, ctx := range m.sessions {
		if now.Sub(ctx.LastActivity) > m.config.Retention {
			expired = append(expired, id)
			delete(m.sessions, id)
		}
	}
	hooks := append([]func(string){}, m.onEvict...)
	m.mu.Unlock()

	for _, id := range expired {
		for _, fn := range hooks {
			fn(id)
		}
	}
	if len(expired) > 0 {
		m.log.WithField("sessions", len(expired)).Debug("swept idle sessions")
	}
}

// DetectMention extracts an explicit agent mention from an outbound query.
func DetectMention(query string) (string, bool) {
	match := mentionRe.FindStringSubmatch(query)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// StripMention removes explicit mentions from a query, returning the query
// text the runtime should receive.
func StripMention(query string) string {
	return strings.TrimSpace(mentionRe.ReplaceAllString(query, ""))
}
