// Package encoding provides wire decoding for the AgentRelay protocol.
//
// The upstream runtime pushes newline-delimited frames over a byte stream.
// Frames of interest are prefixed "data: " followed by a JSON document; any
// other frame is transport noise and is discarded before parsing.
//
// The sse subpackage implements the byte/line framer: it turns a raw byte
// stream into discrete text frames, honoring UTF-8 multi-byte boundaries
// split across chunks and filtering out diagnostic noise interleaved in
// the stream.
//
// Example usage:
//
//	import "github.com/agentrelay/go-sdk/pkg/encoding/sse"
//
//	dec := sse.NewDecoder(resp.Body)
//	for {
//		frame, err := dec.Next(ctx)
//		if err != nil {
//			break
//		}
//		// frame is the JSON payload of one "data: " line
//	}
package encoding
