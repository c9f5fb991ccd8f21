// Package transport provides frame sources for the AgentRelay protocol.
//
// The agent runtime pushes newline-delimited frames over a server-pushed
// byte stream. This package implements the two supported transports and
// exposes both as core.FrameSource values consumed by the engine:
//   - HTTP/SSE: Server-Sent Events over HTTP, the runtime's primary surface
//   - WebSocket: full-duplex connections carrying the same "data: " frames
//
// The transport layer also performs expired-credential detection: a failure
// whose text carries the runtime's expiration marker is surfaced as a
// core.CredentialError so callers can prompt re-authentication instead of
// retrying.
//
// Example usage:
//
//	import "github.com/agentrelay/go-sdk/pkg/transport"
//
//	t, err := transport.NewHTTPStream(transport.HTTPConfig{
//		Endpoint: "https://runtime.example.com/invoke",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	src, err := t.Open(ctx, core.QueryInput{Text: "hello", SessionID: "s1"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer src.Close()
package transport
