package engine

import (
	"encoding/json"
)

// Envelope is one decoded JSON document carried by a single "data:" frame.
// The wire format is loosely self-describing: an envelope's category is
// determined by which of these fields are populated, and one envelope may
// match more than one category.
type Envelope struct {
	// Suppressible marks supervisor commentary that is dropped while the
	// session is in direct-mention mode.
	Suppressible bool `json:"suppressible,omitempty"`

	// Event carries the low-level streaming envelope (event.*).
	Event *LowLevelEvent `json:"event,omitempty"`

	// Message carries the message-level envelope.
	Message *Message `json:"message,omitempty"`

	// Content carries the flat, non-array final-response shape.
	Content *FlatContent `json:"content,omitempty"`

	// Type tags sources and initialization envelopes.
	Type string `json:"type,omitempty"`

	// Sources is the raw citation payload; it arrives either grouped by
	// agent name or as a flat list, so it is decoded lazily.
	Sources json.RawMessage `json:"sources,omitempty"`
}

// FlatContent is the non-array final-response shape: a single content
// object carrying the whole answer text at once.
type FlatContent struct {
	Text string `json:"text,omitempty"`
}

// LowLevelEvent mirrors the runtime's incremental streaming shapes.
type LowLevelEvent struct {
	MessageStart      *MessageStart      `json:"messageStart,omitempty"`
	ContentBlockStart *ContentBlockStart `json:"contentBlockStart,omitempty"`
	ContentBlockDelta *ContentBlockDelta `json:"contentBlockDelta,omitempty"`
	ContentBlockStop  *struct{}          `json:"contentBlockStop,omitempty"`
	MessageStop       *MessageStop       `json:"messageStop,omitempty"`
}

// MessageStart opens a streamed message.
type MessageStart struct {
	Role string `json:"role,omitempty"`
}

// ContentBlockStart opens one content block; tool invocations announce
// themselves here.
type ContentBlockStart struct {
	Start *BlockStart `json:"start,omitempty"`
}

// BlockStart describes what kind of block is starting.
type BlockStart struct {
	ToolUse *ToolUseStart `json:"toolUse,omitempty"`
}

// ToolUseStart names the tool being invoked.
type ToolUseStart struct {
	Name      string `json:"name,omitempty"`
	ToolUseID string `json:"toolUseId,omitempty"`
}

// ContentBlockDelta carries one incremental text fragment.
type ContentBlockDelta struct {
	Delta *BlockDelta `json:"delta,omitempty"`
}

// BlockDelta is the delta payload of a content block.
type BlockDelta struct {
	Text string `json:"text,omitempty"`
}

// MessageStop closes a streamed message.
type MessageStop struct {
	StopReason string `json:"stopReason,omitempty"`
}

// Message is the message-level envelope; each content entry is dispatched
// independently.
type Message struct {
	Role    string        `json:"role,omitempty"`
	Content []ContentItem `json:"content,omitempty"`
}

// ContentItem is one entry of a message-level envelope. Exactly one of its
// fields is populated per entry, but the decoder tolerates overlap.
type ContentItem struct {
	Text             string            `json:"text,omitempty"`
	ReasoningContent *ReasoningContent `json:"reasoningContent,omitempty"`
	ToolResult       *ToolResult       `json:"toolResult,omitempty"`
	ToolUse          *ToolUse          `json:"toolUse,omitempty"`
}

// ReasoningContent carries a complete, self-contained reasoning emission.
type ReasoningContent struct {
	ReasoningText *ReasoningText `json:"reasoningText,omitempty"`
}

// ReasoningText is the text body of a reasoning entry.
type ReasoningText struct {
	Text string `json:"text,omitempty"`
}

// ToolResult carries the output of a completed tool invocation.
type ToolResult struct {
	ToolUseID string              `json:"toolUseId,omitempty"`
	Status    string              `json:"status,omitempty"`
	Content   []ToolResultContent `json:"content,omitempty"`
}

// ToolResultContent is one output entry of a tool result.
type ToolResultContent struct {
	Text string `json:"text,omitempty"`
}

// ToolUse is a tool invocation; specialist delegations arrive as a tool
// use naming the delegation tool.
type ToolUse struct {
	Name      string         `json:"name,omitempty"`
	ToolUseID string         `json:"toolUseId,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
}

// InputString returns a string field of the tool input, or "".
func (t *ToolUse) InputString(key string) string {
	if t.Input == nil {
		return ""
	}
	s, _ := t.Input[key].(string)
	return s
}

// decodeEnvelope parses one frame payload. A nil envelope with a nil error
// never occurs; parse failures are returned to the caller, which treats
// them as expected stream noise.
func decodeEnvelope(payload string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// agentBatches normalizes the two citation shapes into per-agent batches:
// either an object keyed by agent name, or a flat list where each item
// carries its own owning-agent field. Content is not rewritten.
func (e *Envelope) agentBatches() map[string][]map[string]any {
	if len(e.Sources) == 0 {
		return nil
	}

	var flat []map[string]any
	if err := json.Unmarshal(e.Sources, &flat); err == nil {
		batches := make(map[string][]map[string]any)
		for _, src := range flat {
			agent, _ := src["agent"].(string)
			batches[agent] = append(batches[agent], src)
		}
		return batches
	}

	var grouped map[string][]map[string]any
	if err := json.Unmarshal(e.Sources, &grouped); err == nil {
		return grouped
	}
	return nil
}
