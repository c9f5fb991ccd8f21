// Package core provides the foundational types and interfaces for the
// AgentRelay streaming protocol engine.
//
// This package defines the abstractions shared by the framing, extraction,
// classification and session layers. It includes the frame source contract,
// engine-wide configuration and the error taxonomy used across the module.
//
// The AgentRelay protocol is a loosely self-describing, newline-delimited
// stream produced by a conversational multi-agent runtime. The engine turns
// that stream into a well-typed sequence of normalized events while keeping
// per-conversation state (active agent, de-duplication window, accumulators)
// across arbitrarily long-lived sessions:
//   - Real-time streaming of text deltas, tool traces and delegations
//   - Recovery of structured payloads embedded in free-form text
//   - Suppression of duplicate re-emissions from the upstream runtime
//   - Routing of events to the correct logical sub-agent
//
// Example usage:
//
//	import "github.com/agentrelay/go-sdk/pkg/core"
//
//	// Consume frames from any source that satisfies the contract
//	var src core.FrameSource = openStream()
//	defer src.Close()
package core
