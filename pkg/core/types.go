package core

import (
	"context"
	"time"
)

// FrameSource yields raw text frames from an underlying transport.
// Implementations must be safe for sequential use by a single reader;
// the engine never calls Next concurrently for the same source.
type FrameSource interface {
	// Next returns the next raw frame. It returns io.EOF when the
	// transport signals completion and a transport error otherwise.
	Next(ctx context.Context) (string, error)

	// Close releases the underlying stream resource. It is safe to call
	// more than once.
	Close() error
}

// QueryInput is an outbound query to the agent runtime. This engine does
// not generate queries itself; they originate from the caller.
type QueryInput struct {
	// Text is the raw user query.
	Text string

	// SessionID is the opaque conversation key. Its format is
	// unconstrained; it is treated as an equality-comparable key only.
	SessionID string

	// Attachment optionally describes a file already uploaded by the
	// caller. The engine forwards it opaquely.
	Attachment *AttachmentRef
}

// AttachmentRef points at a file the caller has placed in external storage.
type AttachmentRef struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	MimeType string `json:"mimeType,omitempty"`
}

// StreamConfig contains configuration for event streaming.
type StreamConfig struct {
	// BufferSize is the size of the outbound event channel buffer.
	BufferSize int

	// ReadTimeout is the maximum time to wait between frames before the
	// transport is considered failed. Zero disables the timeout.
	ReadTimeout time.Duration
}

// DefaultStreamConfig returns the stream configuration used when the caller
// does not supply one.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		BufferSize: 64,
	}
}
