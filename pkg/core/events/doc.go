// Package events provides the normalized event model emitted by the
// AgentRelay streaming protocol engine.
//
// The engine consumes a chunked, server-pushed byte stream produced by a
// conversational multi-agent runtime and turns it into an ordered sequence
// of StreamEvent values. Every event carries one of five kinds:
//
// Content Events:
//   - chunk: a unit of agent-visible text (responses, reasoning, tool
//     results, collaborator responses, supervisor delegations)
//   - trace: diagnostic or structured content (reasoning traces, tool
//     traces, extracted visualization payloads)
//   - sources: a knowledge-base citation batch, forwarded verbatim
//
// Terminal Events:
//   - error: a transport or credential failure, emitted at most once
//   - complete: stream completion, emitted exactly once per invocation
//
// Events are immutable once emitted. Ordering within a session is the
// arrival order of the underlying stream.
//
// # Basic Usage
//
//	import "github.com/agentrelay/go-sdk/pkg/core/events"
//
//	// Create a chunk event attributed to an agent
//	chunk := events.NewChunk("Budget is set",
//		events.WithAgent("PlannerAgent"),
//		events.WithMessageType(events.MessageTypeCollaboratorResponse))
//
//	// Serialize to JSON for replay or persistence
//	data, err := chunk.ToJSON()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Parse an event back from JSON
//	parsed, err := events.EventFromJSON(data)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// The distinguished expired-credential error event carries a
// requiresRefresh metadata flag so callers can prompt re-authentication
// instead of retrying:
//
//	ev := events.NewCredentialError("security token expired")
//	if ev.RequiresRefresh() {
//		// prompt the user to re-authenticate
//	}
package events
