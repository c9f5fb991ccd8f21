package events

import (
	"encoding/json"
	"fmt"
)

// EventFromJSON parses a normalized event from JSON data
func EventFromJSON(data []byte) (*StreamEvent, error) {
	var event StreamEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if !isValidEventKind(event.Kind) {
		return nil, fmt.Errorf("unknown event kind: %s", event.Kind)
	}

	return &event, nil
}

// EventToJSONLine serializes the event to a single JSON line suitable for
// log replay, terminated by a newline.
func EventToJSONLine(event *StreamEvent) ([]byte, error) {
	if event == nil {
		return nil, fmt.Errorf("event is nil")
	}

	data, err := event.ToJSON()
	if err != nil {
		return nil, err
	}

	return append(data, '\n'), nil
}
