package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/http2"

	"github.com/agentrelay/go-sdk/pkg/core"
	"github.com/agentrelay/go-sdk/pkg/encoding/sse"
)

// HTTPConfig configures the HTTP/SSE transport.
type HTTPConfig struct {
	// Endpoint is the runtime's invoke URL.
	Endpoint string

	// Token is an optional bearer token attached to each request.
	Token string

	// Client is the HTTP client to use. When nil, a client with an
	// HTTP/2-enabled transport is created. The client must not set a
	// Timeout: the stream is long-lived and governed by the caller's
	// context.
	Client *http.Client
}

// HTTPStream opens server-pushed event streams over HTTP.
type HTTPStream struct {
	config HTTPConfig
	client *http.Client
}

// NewHTTPStream creates the HTTP/SSE transport.
func NewHTTPStream(config HTTPConfig) (*HTTPStream, error) {
	if config.Endpoint == "" {
		return nil, &core.ConfigError{
			Field: "Endpoint",
			Value: config.Endpoint,
			Err:   errors.New("endpoint cannot be empty"),
		}
	}

	client := config.Client
	if client == nil {
		tr := &http.Transport{}
		if err := http2.ConfigureTransport(tr); err != nil {
			return nil, fmt.Errorf("configuring http2 transport: %w", err)
		}
		client = &http.Client{Transport: tr}
	}

	return &HTTPStream{config: config, client: client}, nil
}

// invokeRequest is the body posted to the runtime.
type invokeRequest struct {
	Input      string              `json:"input"`
	SessionID  string              `json:"sessionId"`
	Attachment *core.AttachmentRef `json:"attachment,omitempty"`
}

// Open posts the query and returns a frame source over the response
// stream. The caller owns the source and must close it.
func (t *HTTPStream) Open(ctx context.Context, query core.QueryInput) (core.FrameSource, error) {
	body, err := json.Marshal(invokeRequest{
		Input:      query.Text,
		SessionID:  query.SessionID,
		Attachment: query.Attachment,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding invoke request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &core.TransportError{Operation: "open stream", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if t.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.config.Token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, classifyFailure("open stream", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("runtime returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
		return nil, classifyFailure("open stream", err)
	}
	if resp.Body == nil {
		return nil, core.ErrNoResponseStream
	}

	return sse.NewDecoder(resp.Body), nil
}

// classifyFailure wraps a transport failure, promoting it to a credential
// error when the failure text carries the expiration marker.
func classifyFailure(operation string, err error) error {
	if core.IsCredentialExpired(err) {
		return &core.CredentialError{Err: err}
	}
	return &core.TransportError{Operation: operation, Err: err}
}
