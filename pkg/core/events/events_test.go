package events

import (
	"encoding/json"
	"testing"
)

func TestStreamEvent_Validate(t *testing.T) {
	tests := []struct {
		name          string
		event         *StreamEvent
		expectedValid bool
	}{
		{
			name:          "valid chunk event",
			event:         NewChunk("hello"),
			expectedValid: true,
		},
		{
			name:          "valid trace event with payload object",
			event:         NewTrace(map[string]any{"visualizationType": "metrics"}),
			expectedValid: true,
		},
		{
			name:          "missing kind",
			event:         &StreamEvent{ID: "ev-1"},
			expectedValid: false,
		},
		{
			name:          "invalid kind",
			event:         &StreamEvent{ID: "ev-1", Kind: EventKind("bogus")},
			expectedValid: false,
		},
		{
			name:          "missing id",
			event:         &StreamEvent{Kind: EventKindChunk},
			expectedValid: false,
		},
		{
			name:          "error event without message",
			event:         &StreamEvent{ID: "ev-1", Kind: EventKindError},
			expectedValid: false,
		},
		{
			name:          "error event with message",
			event:         NewError("stream read failed"),
			expectedValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err == nil) != tt.expectedValid {
				t.Errorf("Validate() error = %v, expectedValid %v", err, tt.expectedValid)
			}
		})
	}
}

func TestNewChunk_Defaults(t *testing.T) {
	ev := NewChunk("hello")

	if ev.ID == "" {
		t.Error("NewChunk() should assign an ID")
	}
	if ev.Kind != EventKindChunk {
		t.Errorf("Kind = %v, want %v", ev.Kind, EventKindChunk)
	}
	if ev.MessageType != MessageTypeChunk {
		t.Errorf("MessageType = %v, want %v", ev.MessageType, MessageTypeChunk)
	}
	if ev.TimestampMs == 0 {
		t.Error("TimestampMs should be set")
	}
	if ev.Text() != "hello" {
		t.Errorf("Text() = %q, want %q", ev.Text(), "hello")
	}
}

func TestNewChunk_Options(t *testing.T) {
	ev := NewChunk("Budget is set",
		WithAgent("PlannerAgent"),
		WithMessageType(MessageTypeCollaboratorResponse),
		WithMetadata(map[string]any{"directMention": true}),
	)

	if ev.AgentName != "PlannerAgent" {
		t.Errorf("AgentName = %q, want %q", ev.AgentName, "PlannerAgent")
	}
	if ev.MessageType != MessageTypeCollaboratorResponse {
		t.Errorf("MessageType = %q, want %q", ev.MessageType, MessageTypeCollaboratorResponse)
	}
	if v, ok := ev.Metadata["directMention"].(bool); !ok || !v {
		t.Errorf("Metadata[directMention] = %v, want true", ev.Metadata["directMention"])
	}
}

func TestNewCredentialError(t *testing.T) {
	ev := NewCredentialError("security token expired")

	if ev.Kind != EventKindError {
		t.Errorf("Kind = %v, want %v", ev.Kind, EventKindError)
	}
	if !ev.RequiresRefresh() {
		t.Error("RequiresRefresh() = false, want true")
	}

	generic := NewError("stream read failed")
	if generic.RequiresRefresh() {
		t.Error("generic error should not require refresh")
	}
}

func TestEventFromJSON_RoundTrip(t *testing.T) {
	original := NewTrace(map[string]any{"visualizationType": "metrics", "title": "KPIs"},
		WithAgent("SupervisorAgent"),
		WithMessageType(MessageTypeVisualization),
	)

	data, err := original.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := EventFromJSON(data)
	if err != nil {
		t.Fatalf("EventFromJSON() error = %v", err)
	}

	if parsed.Kind != EventKindTrace {
		t.Errorf("Kind = %v, want %v", parsed.Kind, EventKindTrace)
	}
	if parsed.AgentName != "SupervisorAgent" {
		t.Errorf("AgentName = %q, want %q", parsed.AgentName, "SupervisorAgent")
	}

	payload, ok := parsed.Payload.(map[string]any)
	if !ok {
		t.Fatalf("Payload type = %T, want map", parsed.Payload)
	}
	if payload["visualizationType"] != "metrics" {
		t.Errorf("payload visualizationType = %v, want metrics", payload["visualizationType"])
	}
}

func TestEventFromJSON_UnknownKind(t *testing.T) {
	data, _ := json.Marshal(map[string]any{"id": "ev-1", "kind": "bogus"})

	if _, err := EventFromJSON(data); err == nil {
		t.Error("EventFromJSON() expected error for unknown kind")
	}
}
