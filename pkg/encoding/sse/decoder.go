// Package sse implements the byte/line framer for the AgentRelay protocol.
//
// The framer turns a chunked byte stream into discrete text frames. Frames
// of interest are prefixed "data: " followed by a JSON document; everything
// else (keep-alives, interleaved diagnostic logging from the runtime) is
// discarded before any parse is attempted.
package sse

import (
	"bytes"
	"context"
	"io"
	"strings"
	"unicode/utf8"
)

// DataPrefix marks frames carrying a JSON envelope.
const DataPrefix = "data: "

// diagnosticMarkers identify non-JSON logging noise the runtime interleaves
// into the stream under a data prefix. Frames containing one are dropped
// without a parse attempt.
var diagnosticMarkers = []string{
	"[DEBUG]",
	"[INFO]",
	"[WARN]",
	"[ERROR]",
	"Traceback (most recent call last)",
}

// Decoder reads newline-delimited frames from a byte stream. It buffers a
// trailing partial UTF-8 multi-byte sequence until more bytes arrive, so a
// rune split across two chunks is never mangled.
//
// A Decoder is driven by a single sequential reader; it is not safe for
// concurrent use.
type Decoder struct {
	r       io.Reader
	buf     []byte
	pending []byte
	eof     bool
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, 4096),
	}
}

// Next returns the JSON payload of the next "data: " frame, with the prefix
// removed. Frames that are not data frames, whose payload does not begin
// with '{', or that carry diagnostic noise are skipped. Next returns io.EOF
// when the stream is exhausted.
func (d *Decoder) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		line, ok := d.takeLine()
		if ok {
			payload, keep := ParseFrame(line)
			if keep {
				return payload, nil
			}
			continue
		}

		if d.eof {
			// Flush a final unterminated line, if any.
			if len(d.pending) > 0 {
				line := string(d.pending)
				d.pending = nil
				payload, keep := ParseFrame(line)
				if keep {
					return payload, nil
				}
			}
			return "", io.EOF
		}

		if err := d.fill(); err != nil {
			if err == io.EOF {
				d.eof = true
				continue
			}
			return "", err
		}
	}
}

// Close releases the underlying stream resource when it is closable.
func (d *Decoder) Close() error {
	if c, ok := d.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// takeLine pops one complete line from the pending buffer. A line is only
// complete at a newline, so a trailing partial multi-byte rune stays
// buffered until the next chunk arrives.
func (d *Decoder) takeLine() (string, bool) {
	i := bytes.IndexByte(d.pending, '\n')
	if i < 0 {
		return "", false
	}
	line := string(bytes.TrimSuffix(d.pending[:i], []byte{'\r'}))
	d.pending = d.pending[i+1:]
	return line, true
}

func (d *Decoder) fill() error {
	n, err := d.r.Read(d.buf)
	if n > 0 {
		d.pending = append(d.pending, d.buf[:n]...)
	}
	if n == 0 && err == nil {
		return nil
	}
	if err != nil && err != io.EOF {
		return err
	}
	if err == io.EOF {
		return io.EOF
	}
	return nil
}

// ParseFrame extracts the JSON payload from a raw line, reporting whether
// the line is a parseable data frame. Transports that deliver whole lines
// without byte framing (e.g. WebSocket messages) apply it directly.
func ParseFrame(line string) (string, bool) {
	if !strings.HasPrefix(line, DataPrefix) {
		return "", false
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, DataPrefix))
	if !strings.HasPrefix(payload, "{") {
		return "", false
	}
	for _, marker := range diagnosticMarkers {
		if strings.Contains(payload, marker) {
			return "", false
		}
	}
	return payload, true
}

// ValidUTF8Boundary reports whether b ends on a complete UTF-8 sequence.
// The decoder itself defers rune handling to line boundaries; this helper
// exists for transports that deliver frames without newline framing.
func ValidUTF8Boundary(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	// Walk back at most utf8.UTFMax-1 bytes to the last rune start.
	for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
		c := b[len(b)-i]
		if utf8.RuneStart(c) {
			r, size := utf8.DecodeRune(b[len(b)-i:])
			return r != utf8.RuneError && size == i
		}
	}
	return false
}
