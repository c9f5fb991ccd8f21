package sse

import (
	"context"
	"io"
	"strings"
	"testing"
)

// chunkReader yields its chunks one Read at a time, regardless of the
// buffer size, to simulate arbitrary transport chunking.
type chunkReader struct {
	chunks [][]byte
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	if n < len(c.chunks[0]) {
		c.chunks[0] = c.chunks[0][n:]
	} else {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func collectFrames(t *testing.T, d *Decoder) []string {
	t.Helper()
	var frames []string
	for {
		frame, err := d.Next(context.Background())
		if err == io.EOF {
			return frames
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		frames = append(frames, frame)
	}
}

func TestDecoder_FiltersNonDataFrames(t *testing.T) {
	input := strings.Join([]string{
		`data: {"message":{"content":[{"text":"hello"}]}}`,
		`event: ping`,
		``,
		`data: not json at all`,
		`data: {"type":"sources"}`,
		`some raw noise`,
	}, "\n") + "\n"

	d := NewDecoder(strings.NewReader(input))
	frames := collectFrames(t, d)

	want := []string{
		`{"message":{"content":[{"text":"hello"}]}}`,
		`{"type":"sources"}`,
	}
	if len(frames) != len(want) {
		t.Fatalf("got %d frames, want %d: %v", len(frames), len(want), frames)
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Errorf("frame %d = %q, want %q", i, frames[i], want[i])
		}
	}
}

func TestDecoder_DropsDiagnosticNoise(t *testing.T) {
	input := "data: {\"msg\":\"[DEBUG] resolver warm-up\"}\n" +
		"data: {\"message\":{\"content\":[{\"text\":\"ok\"}]}}\n"

	d := NewDecoder(strings.NewReader(input))
	frames := collectFrames(t, d)

	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1: %v", len(frames), frames)
	}
	if !strings.Contains(frames[0], `"ok"`) {
		t.Errorf("surviving frame = %q", frames[0])
	}
}

func TestDecoder_MultiByteRuneSplitAcrossChunks(t *testing.T) {
	// "données" carries a two-byte rune; split the stream in the middle
	// of the é sequence.
	full := []byte(`data: {"text":"données"}` + "\n")
	split := -1
	for i, b := range full {
		if b >= 0x80 {
			split = i + 1 // between the two bytes of é
			break
		}
	}
	if split < 0 {
		t.Fatal("test input has no multi-byte rune")
	}

	d := NewDecoder(&chunkReader{chunks: [][]byte{full[:split], full[split:]}})
	frames := collectFrames(t, d)

	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0] != `{"text":"données"}` {
		t.Errorf("frame = %q", frames[0])
	}
}

func TestDecoder_FlushesUnterminatedFinalLine(t *testing.T) {
	d := NewDecoder(strings.NewReader(`data: {"tail":true}`))
	frames := collectFrames(t, d)

	if len(frames) != 1 || frames[0] != `{"tail":true}` {
		t.Fatalf("frames = %v", frames)
	}
}

func TestDecoder_CRLF(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: {\"a\":1}\r\ndata: {\"b\":2}\r\n"))
	frames := collectFrames(t, d)

	if len(frames) != 2 || frames[0] != `{"a":1}` || frames[1] != `{"b":2}` {
		t.Fatalf("frames = %v", frames)
	}
}

func TestDecoder_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDecoder(strings.NewReader("data: {\"a\":1}\n"))
	if _, err := d.Next(ctx); err == nil {
		t.Error("Next() expected error after cancellation")
	}
}

func TestValidUTF8Boundary(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
		want bool
	}{
		{"empty", nil, true},
		{"ascii", []byte("abc"), true},
		{"complete two-byte rune", []byte("é"), true},
		{"partial two-byte rune", []byte("é")[:1], false},
		{"partial three-byte rune", []byte("世")[:2], false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidUTF8Boundary(tt.b); got != tt.want {
				t.Errorf("ValidUTF8Boundary(%v) = %v, want %v", tt.b, got, tt.want)
			}
		})
	}
}
