package engine

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agentrelay/go-sdk/pkg/core/events"
	"github.com/agentrelay/go-sdk/pkg/extract"
)

// DefaultDelegationToolName is the tool the supervisor invokes to hand a
// sub-query to a named collaborator agent.
const DefaultDelegationToolName = "delegate_to_specialist"

// emptyResultMarker flags a delegation tool use the runtime emitted with
// nothing to forward.
const emptyResultMarker = "[EMPTY_RESPONSE]"

// directMentionFragment is the optional attribute the runtime injects into
// a delegation wrapper; it is stripped before pattern matching.
const directMentionFragment = " direct_mention='true'"

// agentMessageRe matches the delegation wrapper carrying a collaborator's
// response.
var agentMessageRe = regexp.MustCompile(`(?s)<agent-message agent='([^']+)'>(.*?)</agent-message>`)

// emitFunc delivers one normalized event downstream.
type emitFunc func(*events.StreamEvent)

// classify interprets one decoded frame payload and emits zero or more
// normalized events. Unclassifiable or JSON-parse-failing payloads are
// expected stream noise and are skipped silently.
func (e *Engine) classify(sessionID, payload string, now time.Time, emit emitFunc) {
	env, err := decodeEnvelope(payload)
	if err != nil {
		e.log.WithField("session", sessionID).Debug("skipping unparseable frame")
		return
	}

	e.sessions.Touch(sessionID, now)

	// Suppression gate: drop supervisor commentary while the user is
	// talking to a specific agent.
	if env.Suppressible && e.sessions.InDirectMentionMode(sessionID) {
		e.log.WithField("session", sessionID).Debug("suppressed envelope in direct-mention mode")
		return
	}

	matched := false
	if env.Event != nil {
		matched = true
		e.classifyLowLevel(sessionID, env.Event, now, emit)
	}
	if env.Message != nil {
		matched = true
		for _, item := range env.Message.Content {
			e.classifyContentItem(sessionID, item, now, emit)
		}
	}
	if env.Content != nil && env.Content.Text != "" {
		matched = true
		e.emitFinalResponse(sessionID, env.Content.Text, now, emit)
	}
	if env.Type == "sources" {
		matched = true
		e.classifySources(sessionID, env, emit)
	}

	if !matched {
		// Initialization and other no-op envelopes.
		e.log.WithFields(logrus.Fields{
			"session": sessionID,
			"type":    env.Type,
		}).Debug("unroutable envelope, ignoring")
	}
}

// classifyLowLevel handles the incremental event.* shapes. Deltas are
// accumulated rather than re-emitted per chunk to avoid flooding the
// consumer; the full text arrives via message-level handling.
func (e *Engine) classifyLowLevel(sessionID string, ev *LowLevelEvent, now time.Time, emit emitFunc) {
	agent := e.activeAgent(sessionID)

	switch {
	case ev.MessageStart != nil:
		emit(events.NewTrace("agent reasoning started",
			events.WithMessageType(events.MessageTypeReasoning),
			events.WithAgent(agent)))

	case ev.ContentBlockStart != nil:
		start := ev.ContentBlockStart.Start
		if start != nil && start.ToolUse != nil && start.ToolUse.Name != "" {
			emit(events.NewTrace("using tool "+start.ToolUse.Name,
				events.WithMessageType(events.MessageTypeToolUse),
				events.WithAgent(agent)))
		}

	case ev.ContentBlockDelta != nil:
		if d := ev.ContentBlockDelta.Delta; d != nil && d.Text != "" {
			e.sessions.AppendResponse(sessionID, d.Text, now)
		}

	case ev.MessageStop != nil:
		// The message-level envelope carries the complete text, so no
		// chunk is emitted here; the accumulated deltas still get an
		// extraction pass since payloads may only exist in them.
		accumulated := e.sessions.TakeResponse(sessionID)
		if accumulated != "" {
			e.emitExtractedPayloads(sessionID, accumulated, now, emit)
		}
	}
}

// classifyContentItem dispatches one message-level content entry.
func (e *Engine) classifyContentItem(sessionID string, item ContentItem, now time.Time, emit emitFunc) {
	switch {
	case item.ReasoningContent != nil:
		if rt := item.ReasoningContent.ReasoningText; rt != nil && rt.Text != "" {
			emit(events.NewChunk(rt.Text,
				events.WithMessageType(events.MessageTypeReasoning),
				events.WithAgent(e.activeAgent(sessionID))))
		}

	case item.ToolResult != nil:
		for _, rc := range item.ToolResult.Content {
			if rc.Text == "" {
				continue
			}
			e.emitToolResult(sessionID, rc.Text, now, emit)
		}

	case item.ToolUse != nil:
		e.emitDelegation(sessionID, item.ToolUse, emit)

	case item.Text != "":
		// A text entry that still carries a delegation wrapper was
		// already emitted via the toolResult path; skip it to avoid
		// double emission.
		if agentMessageRe.MatchString(stripDirectMention(item.Text)) {
			return
		}
		e.emitTextChunk(sessionID, item.Text, events.MessageTypeChunk, now, emit)
	}
}

// emitToolResult unwraps a collaborator response when the tool result text
// carries a delegation wrapper, and emits a generic tool-result chunk
// otherwise.
func (e *Engine) emitToolResult(sessionID, text string, now time.Time, emit emitFunc) {
	if agent, content, ok := parseAgentMessage(text); ok {
		e.sessions.SetActiveAgent(sessionID, agent, now)
		emit(events.NewChunk(content,
			events.WithMessageType(events.MessageTypeCollaboratorResponse),
			events.WithAgent(agent)))
		return
	}
	emit(events.NewChunk(text,
		events.WithMessageType(events.MessageTypeToolResult),
		events.WithAgent(e.activeAgent(sessionID))))
}

// emitDelegation handles a supervisor-to-collaborator hand-off expressed
// as a delegation tool use. The prompt is rewritten to open with an
// @agent_name mention when it does not already.
func (e *Engine) emitDelegation(sessionID string, tu *ToolUse, emit emitFunc) {
	if tu.Name != e.config.DelegationToolName {
		return
	}
	agentName := tu.InputString("agent_name")
	prompt := tu.InputString("agent_prompt")
	if agentName == "" || prompt == "" || strings.Contains(prompt, emptyResultMarker) {
		return
	}
	mention := "@" + agentName
	if !strings.HasPrefix(prompt, mention) {
		prompt = mention + " " + prompt
	}
	emit(events.NewChunk(prompt,
		events.WithMessageType(events.MessageTypeSupervisorDelegation),
		events.WithAgent(agentName)))
}

// emitTextChunk emits a deduplicated chunk event for free-form agent text,
// then surfaces any structured payloads embedded in it.
func (e *Engine) emitTextChunk(sessionID, text, messageType string, now time.Time, emit emitFunc) {
	if !e.dedup.IsDuplicate(sessionID, string(events.EventKindChunk), text, now) {
		e.dedup.RecordAccepted(sessionID, string(events.EventKindChunk), text, now)
		emit(events.NewChunk(text,
			events.WithMessageType(messageType),
			events.WithAgent(e.activeAgent(sessionID))))
	}
	e.emitExtractedPayloads(sessionID, text, now, emit)
}

// emitFinalResponse handles the flat content.text shape.
func (e *Engine) emitFinalResponse(sessionID, text string, now time.Time, emit emitFunc) {
	e.emitTextChunk(sessionID, text, events.MessageTypeFinalResponse, now, emit)
}

// emitExtractedPayloads runs the embedded-structure extractor over text
// and emits one trace event per payload that survives deduplication.
func (e *Engine) emitExtractedPayloads(sessionID, text string, now time.Time, emit emitFunc) {
	for _, payload := range extract.Extract(text) {
		key, err := json.Marshal(payload)
		if err != nil {
			continue
		}
		if e.dedup.IsDuplicate(sessionID, string(events.EventKindTrace), string(key), now) {
			continue
		}
		e.dedup.RecordAccepted(sessionID, string(events.EventKindTrace), string(key), now)
		emit(events.NewTrace(payload,
			events.WithMessageType(events.MessageTypeVisualization),
			events.WithAgent(e.activeAgent(sessionID))))
	}
}

// classifySources forwards citation batches to the aggregator unmodified
// and emits a sources-update event carrying the original payload.
func (e *Engine) classifySources(sessionID string, env *Envelope, emit emitFunc) {
	batches := env.agentBatches()
	for agent, batch := range batches {
		e.sources.Add(sessionID, agent, batch)
	}

	var original any
	if len(env.Sources) > 0 {
		if err := json.Unmarshal(env.Sources, &original); err != nil {
			original = string(env.Sources)
		}
	}
	emit(events.NewSources(original))
}

func (e *Engine) activeAgent(sessionID string) string {
	ctx, ok := e.sessions.Snapshot(sessionID)
	if !ok || ctx.ActiveAgent == "" {
		return e.config.DefaultAgent
	}
	return ctx.ActiveAgent
}

// parseAgentMessage extracts the collaborator name and unwrapped content
// from a delegation wrapper, stripping the optional direct-mention
// attribute fragment first.
func parseAgentMessage(text string) (agent, content string, ok bool) {
	match := agentMessageRe.FindStringSubmatch(stripDirectMention(text))
	if match == nil {
		return "", "", false
	}
	return match[1], strings.TrimSpace(match[2]), true
}

func stripDirectMention(text string) string {
	return strings.ReplaceAll(text, directMentionFragment, "")
}
