package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/agentrelay/go-sdk/pkg/core"
	"github.com/agentrelay/go-sdk/pkg/core/events"
	"github.com/agentrelay/go-sdk/pkg/engine"
	"github.com/agentrelay/go-sdk/pkg/session"
	"github.com/agentrelay/go-sdk/pkg/transport"
)

// Opener opens a frame stream for an outbound query. Both transports in
// the transport package satisfy it.
type Opener interface {
	Open(ctx context.Context, query core.QueryInput) (core.FrameSource, error)
}

// Config contains configuration options for the client.
type Config struct {
	// BaseURL is the runtime's invoke endpoint.
	BaseURL string

	// Token is an optional bearer token for the runtime.
	Token string

	// Engine overrides the engine configuration. Zero value uses
	// engine.DefaultConfig().
	Engine engine.Config

	// Opener overrides the transport; when nil an HTTP/SSE transport is
	// built from BaseURL and Token.
	Opener Opener
}

// Client streams normalized events from an AgentRelay runtime.
type Client struct {
	baseURL *url.URL
	opener  Opener
	engine  *engine.Engine
}

// New creates a new client with the specified configuration.
func New(config Config) (*Client, error) {
	if config.BaseURL == "" && config.Opener == nil {
		return nil, &core.ConfigError{
			Field: "BaseURL",
			Value: config.BaseURL,
			Err:   errors.New("base URL cannot be empty"),
		}
	}

	var baseURL *url.URL
	if config.BaseURL != "" {
		var err error
		baseURL, err = url.Parse(config.BaseURL)
		if err != nil {
			return nil, &core.ConfigError{
				Field: "BaseURL",
				Value: config.BaseURL,
				Err:   fmt.Errorf("invalid base URL: %w", err),
			}
		}
	}

	opener := config.Opener
	if opener == nil {
		httpStream, err := transport.NewHTTPStream(transport.HTTPConfig{
			Endpoint: config.BaseURL,
			Token:    config.Token,
		})
		if err != nil {
			return nil, err
		}
		opener = httpStream
	}

	return &Client{
		baseURL: baseURL,
		opener:  opener,
		engine:  engine.New(config.Engine),
	}, nil
}

// Stream sends the query and returns a channel of normalized events. The
// channel is closed after the terminal event: exactly one completion, or
// one error followed by one completion. An error opening the stream is
// returned directly; mid-stream failures arrive as error events.
//
// The query's session identifier keys all per-conversation state. An
// explicit @WordAgent mention in the query selects that agent and enables
// direct-mention mode for the session.
func (c *Client) Stream(ctx context.Context, query core.QueryInput) (<-chan *events.StreamEvent, error) {
	if query.SessionID == "" {
		return nil, &core.ConfigError{
			Field: "SessionID",
			Value: query.SessionID,
			Err:   errors.New("session ID cannot be empty"),
		}
	}

	c.engine.ResolveAgent(query.SessionID, query.Text)

	// The mention is a routing directive for this side, not part of the
	// question; the runtime receives the stripped text.
	query.Text = session.StripMention(query.Text)

	src, err := c.opener.Open(ctx, query)
	if err != nil {
		return nil, err
	}

	return c.engine.Process(ctx, query.SessionID, src), nil
}

// StreamEach runs one query per session concurrently, invoking handle for
// every event. Sessions are independent; within each session events arrive
// in stream order. StreamEach returns the first stream-opening or handler
// error, cancelling the remaining sessions.
func (c *Client) StreamEach(ctx context.Context, queries []core.QueryInput, handle func(sessionID string, ev *events.StreamEvent) error) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, query := range queries {
		query := query
		g.Go(func() error {
			ch, err := c.Stream(ctx, query)
			if err != nil {
				return fmt.Errorf("session %s: %w", query.SessionID, err)
			}
			for ev := range ch {
				if err := handle(query.SessionID, ev); err != nil {
					return fmt.Errorf("session %s: %w", query.SessionID, err)
				}
			}
			return nil
		})
	}

	return g.Wait()
}

// ClearSession removes all per-conversation state for a session.
func (c *Client) ClearSession(sessionID string) {
	c.engine.ClearSession(sessionID)
}

// Engine exposes the underlying engine for citation lookups and session
// inspection.
func (c *Client) Engine() *engine.Engine {
	return c.engine
}

// Close releases client resources.
func (c *Client) Close() error {
	c.engine.Close()
	return nil
}
