package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind represents the kind of a normalized stream event
type EventKind string

// Event kind constants
const (
	EventKindChunk    EventKind = "chunk"
	EventKindTrace    EventKind = "trace"
	EventKindSources  EventKind = "sources"
	EventKindError    EventKind = "error"
	EventKindComplete EventKind = "complete"

	// EventKindUnknown represents an unrecognized event kind
	EventKindUnknown EventKind = "unknown"
)

// validEventKinds is a map for O(1) lookup of valid event kinds
var validEventKinds = map[EventKind]bool{
	EventKindChunk:    true,
	EventKindTrace:    true,
	EventKindSources:  true,
	EventKindError:    true,
	EventKindComplete: true,
}

// Message type constants carried by chunk and trace events. They identify
// the envelope shape the event was classified from.
const (
	MessageTypeChunk                = "chunk"
	MessageTypeReasoning            = "reasoning"
	MessageTypeToolUse              = "tool_use"
	MessageTypeToolResult           = "tool_result"
	MessageTypeFinalResponse        = "final_response"
	MessageTypeCollaboratorResponse = "collaborator_response"
	MessageTypeSupervisorDelegation = "supervisor_delegation"
	MessageTypeVisualization        = "visualization"
	MessageTypeSourcesUpdate        = "sources_update"
)

// StreamEvent is one normalized event produced by the engine. Events are
// immutable once emitted; ordering within a session is arrival order of the
// underlying stream.
type StreamEvent struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// Kind is the event kind (chunk, trace, sources, error, complete).
	Kind EventKind `json:"kind"`

	// Payload carries the event content: a string for text-bearing
	// events, an arbitrary JSON value for structured ones.
	Payload any `json:"payload,omitempty"`

	// AgentName attributes the event to a logical sub-agent.
	AgentName string `json:"agentName,omitempty"`

	// MessageType identifies the envelope shape this event was
	// classified from (see the MessageType constants).
	MessageType string `json:"messageType,omitempty"`

	// TimestampMs is the emission time in Unix milliseconds.
	TimestampMs int64 `json:"timestamp"`

	// Metadata carries optional event-specific annotations, such as the
	// requiresRefresh flag on credential errors.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Option configures a StreamEvent at construction time.
type Option func(*StreamEvent)

// WithAgent attributes the event to the named agent.
func WithAgent(name string) Option {
	return func(e *StreamEvent) {
		e.AgentName = name
	}
}

// WithMessageType sets the message type tag.
func WithMessageType(mt string) Option {
	return func(e *StreamEvent) {
		e.MessageType = mt
	}
}

// WithMetadata merges the given annotations into the event metadata.
func WithMetadata(md map[string]any) Option {
	return func(e *StreamEvent) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any, len(md))
		}
		for k, v := range md {
			e.Metadata[k] = v
		}
	}
}

// New creates a normalized event of the given kind with a fresh ID and the
// current timestamp.
func New(kind EventKind, payload any, opts ...Option) *StreamEvent {
	e := &StreamEvent{
		ID:          uuid.NewString(),
		Kind:        kind,
		Payload:     payload,
		TimestampMs: time.Now().UnixMilli(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewChunk creates a text-bearing chunk event.
func NewChunk(text string, opts ...Option) *StreamEvent {
	e := New(EventKindChunk, text, opts...)
	if e.MessageType == "" {
		e.MessageType = MessageTypeChunk
	}
	return e
}

// NewTrace creates a trace event carrying diagnostic or structured content.
func NewTrace(payload any, opts ...Option) *StreamEvent {
	return New(EventKindTrace, payload, opts...)
}

// NewSources creates a sources-update event carrying the original payload
// exactly as received.
func NewSources(payload any, opts ...Option) *StreamEvent {
	e := New(EventKindSources, payload, opts...)
	if e.MessageType == "" {
		e.MessageType = MessageTypeSourcesUpdate
	}
	return e
}

// NewError creates an error event carrying a human-readable message.
func NewError(message string, opts ...Option) *StreamEvent {
	return New(EventKindError, message, opts...)
}

// NewCredentialError creates the distinguished expired-credential error
// event. Its metadata carries requiresRefresh so the caller can prompt
// re-authentication instead of retrying.
func NewCredentialError(message string, opts ...Option) *StreamEvent {
	e := New(EventKindError, message, opts...)
	WithMetadata(map[string]any{"requiresRefresh": true})(e)
	return e
}

// NewComplete creates the terminal completion event.
func NewComplete(opts ...Option) *StreamEvent {
	return New(EventKindComplete, nil, opts...)
}

// Validate validates the event structure and content
func (e *StreamEvent) Validate() error {
	if e.Kind == "" {
		return fmt.Errorf("StreamEvent validation failed: kind field is required")
	}
	if !isValidEventKind(e.Kind) {
		return fmt.Errorf("StreamEvent validation failed: invalid event kind '%s'", e.Kind)
	}
	if e.ID == "" {
		return fmt.Errorf("StreamEvent validation failed: id field is required")
	}
	if e.Kind == EventKindError {
		if s, ok := e.Payload.(string); !ok || s == "" {
			return fmt.Errorf("StreamEvent validation failed: error events require a message payload")
		}
	}
	return nil
}

// ToJSON serializes the event to JSON for cross-SDK compatibility
func (e *StreamEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Text returns the payload as a string if the event carries text, and the
// empty string otherwise.
func (e *StreamEvent) Text() string {
	if s, ok := e.Payload.(string); ok {
		return s
	}
	return ""
}

// RequiresRefresh reports whether the event carries the expired-credential
// metadata flag.
func (e *StreamEvent) RequiresRefresh() bool {
	if e.Metadata == nil {
		return false
	}
	v, ok := e.Metadata["requiresRefresh"].(bool)
	return ok && v
}

// isValidEventKind checks if the given event kind is valid
func isValidEventKind(kind EventKind) bool {
	return validEventKinds[kind]
}
