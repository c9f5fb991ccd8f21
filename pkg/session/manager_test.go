package session

import (
	"testing"
	"time"
)

func newTestManager(t *testing.T, config Config) *Manager {
	t.Helper()
	m := NewManager(config, nil)
	t.Cleanup(m.Stop)
	return m
}

func TestDetectMention(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantAgent string
		wantOK    bool
	}{
		{"plain mention", "@PlannerAgent set the budget", "PlannerAgent", true},
		{"mention mid-query", "please ask @DataAgent for numbers", "DataAgent", true},
		{"suffix required", "@Planner set the budget", "", false},
		{"no mention", "set the budget", "", false},
		{"underscore word chars", "@field_opsAgent report in", "field_opsAgent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent, ok := DetectMention(tt.query)
			if ok != tt.wantOK || agent != tt.wantAgent {
				t.Errorf("DetectMention(%q) = (%q, %v), want (%q, %v)",
					tt.query, agent, ok, tt.wantAgent, tt.wantOK)
			}
		})
	}
}

func TestResolveAgent_MentionSetsDirectMode(t *testing.T) {
	m := newTestManager(t, DefaultConfig(5*time.Second))
	now := time.Now()

	agent := m.ResolveAgent("s1", "@PlannerAgent handle this", "SupervisorAgent", now)
	if agent != "PlannerAgent" {
		t.Errorf("ResolveAgent() = %q, want PlannerAgent", agent)
	}
	if !m.InDirectMentionMode("s1") {
		t.Error("direct-mention mode should be set after an explicit mention")
	}

	// Direct-mention mode persists across later queries without mentions.
	agent = m.ResolveAgent("s1", "follow up question", "SupervisorAgent", now)
	if agent != "PlannerAgent" {
		t.Errorf("ResolveAgent() fallback = %q, want previously resolved PlannerAgent", agent)
	}
	if !m.InDirectMentionMode("s1") {
		t.Error("direct-mention mode must not clear automatically after one response")
	}
}

func TestResolveAgent_FallbackToDefault(t *testing.T) {
	m := newTestManager(t, DefaultConfig(5*time.Second))

	agent := m.ResolveAgent("s1", "no mention here", "SupervisorAgent", time.Now())
	if agent != "SupervisorAgent" {
		t.Errorf("ResolveAgent() = %q, want SupervisorAgent", agent)
	}
	if m.InDirectMentionMode("s1") {
		t.Error("direct-mention mode should not be set without a mention")
	}
}

func TestClear_ResetsDirectMentionMode(t *testing.T) {
	m := newTestManager(t, DefaultConfig(5*time.Second))
	now := time.Now()

	m.ResolveAgent("s1", "@PlannerAgent go", "SupervisorAgent", now)
	m.Clear("s1")

	if m.InDirectMentionMode("s1") {
		t.Error("explicit clear should reset direct-mention mode")
	}
	if _, ok := m.Snapshot("s1"); ok {
		t.Error("cleared session should not have a context")
	}
}

func TestResponseAccumulator(t *testing.T) {
	m := newTestManager(t, DefaultConfig(5*time.Second))
	now := time.Now()

	m.AppendResponse("s1", "Hello, ", now)
	m.AppendResponse("s1", "world", now)

	if got := m.TakeResponse("s1"); got != "Hello, world" {
		t.Errorf("TakeResponse() = %q, want %q", got, "Hello, world")
	}
	if got := m.TakeResponse("s1"); got != "" {
		t.Errorf("TakeResponse() after take = %q, want empty", got)
	}
}

func TestSweep_RemovesIdleSessions(t *testing.T) {
	m := newTestManager(t, Config{
		Retention:     50 * time.Millisecond,
		SweepInterval: time.Hour, // sweep driven manually below
	})
	now := time.Now()

	m.Touch("idle", now)
	m.Touch("busy", now)

	var evicted []string
	m.OnEvict(func(id string) { evicted = append(evicted, id) })

	later := now.Add(100 * time.Millisecond)
	m.Touch("busy", later)
	m.sweep(later)

	if _, ok := m.Snapshot("idle"); ok {
		t.Error("idle session should have been swept")
	}
	if _, ok := m.Snapshot("busy"); !ok {
		t.Error("active session must survive the sweep")
	}
	if len(evicted) != 1 || evicted[0] != "idle" {
		t.Errorf("evicted = %v, want [idle]", evicted)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	m := newTestManager(t, DefaultConfig(5*time.Second))
	now := time.Now()

	m.AppendResponse("a", "text for a", now)
	m.ResolveAgent("b", "@DataAgent hi", "SupervisorAgent", now)

	ctxA, _ := m.Snapshot("a")
	if ctxA.DirectMentionMode {
		t.Error("session A picked up session B's direct-mention mode")
	}
	if got := m.TakeResponse("b"); got != "" {
		t.Errorf("session B accumulator = %q, want empty", got)
	}
}

func TestStripMention(t *testing.T) {
	if got := StripMention("@PlannerAgent set the budget"); got != "set the budget" {
		t.Errorf("StripMention() = %q", got)
	}
	if got := StripMention("no mention"); got != "no mention" {
		t.Errorf("StripMention() = %q", got)
	}
}
