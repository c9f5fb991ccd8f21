package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/agentrelay/go-sdk/pkg/core"
	"github.com/agentrelay/go-sdk/pkg/encoding/sse"
)

// WSConfig configures the WebSocket transport.
type WSConfig struct {
	// URL is the runtime's WebSocket endpoint (ws:// or wss://).
	URL string

	// Header carries optional handshake headers (authorization etc).
	Header http.Header

	// Dialer is the dialer to use; websocket.DefaultDialer when nil.
	Dialer *websocket.Dialer
}

// WSSource is a frame source over a WebSocket connection. Each text
// message carries one or more newline-delimited "data: " frames identical
// to the SSE wire format.
type WSSource struct {
	conn *websocket.Conn

	// queue holds frames from a message not yet handed to the caller.
	queue []string

	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// DialWS connects to the runtime's WebSocket endpoint and returns a frame
// source. The caller owns the source and must close it.
func DialWS(ctx context.Context, config WSConfig) (*WSSource, error) {
	if config.URL == "" {
		return nil, &core.ConfigError{
			Field: "URL",
			Value: config.URL,
			Err:   errors.New("url cannot be empty"),
		}
	}
	dialer := config.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, config.URL, config.Header)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, classifyFailure("websocket dial", err)
	}

	return &WSSource{conn: conn}, nil
}

// Next returns the next data frame payload. It returns io.EOF when the
// peer closes the connection normally and a transport error otherwise.
func (s *WSSource) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if s.closed {
			return "", core.ErrStreamClosed
		}

		if len(s.queue) > 0 {
			frame := s.queue[0]
			s.queue = s.queue[1:]
			return frame, nil
		}

		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "", io.EOF
			}
			return "", classifyFailure("websocket read", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSuffix(line, "\r")
			if payload, ok := sse.ParseFrame(line); ok {
				s.queue = append(s.queue, payload)
			}
		}
	}
}

// Close sends a normal closure frame and tears down the connection. It is
// safe to call more than once.
func (s *WSSource) Close() error {
	s.closeOnce.Do(func() {
		s.closed = true
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteMessage(websocket.CloseMessage, msg)
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
