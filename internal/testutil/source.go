package testutil

import (
	"context"
	"io"
)

// ReplaySource is a frame source that replays canned frames and then ends
// with io.EOF, or with Err when one is configured.
type ReplaySource struct {
	Frames []string
	Err    error
	Closed bool

	i int
}

// Next returns the next canned frame.
func (s *ReplaySource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.i < len(s.Frames) {
		frame := s.Frames[s.i]
		s.i++
		return frame, nil
	}
	if s.Err != nil {
		return "", s.Err
	}
	return "", io.EOF
}

// Close records that the source was released.
func (s *ReplaySource) Close() error {
	s.Closed = true
	return nil
}
