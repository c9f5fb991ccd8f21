// Package engine turns the runtime's chunked byte stream into an ordered
// sequence of normalized events.
//
// One logical reader per session consumes frames strictly sequentially, so
// event order within a session is exactly the arrival order of the
// underlying stream. Sessions are fully independent and may be processed
// concurrently. The consuming loop exits when the stream signals
// completion or the caller cancels, releasing the held stream resource.
package engine

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agentrelay/go-sdk/pkg/core"
	"github.com/agentrelay/go-sdk/pkg/core/events"
	"github.com/agentrelay/go-sdk/pkg/dedup"
	"github.com/agentrelay/go-sdk/pkg/encoding/sse"
	"github.com/agentrelay/go-sdk/pkg/session"
	"github.com/agentrelay/go-sdk/pkg/sources"
)

// Config configures an Engine.
type Config struct {
	// Dedup tunes the duplicate-suppression window.
	Dedup dedup.Config

	// Stream tunes channel buffering.
	Stream core.StreamConfig

	// DelegationToolName is the tool name marking supervisor-to-
	// collaborator hand-offs.
	DelegationToolName string

	// DefaultAgent is attributed with events when no agent has been
	// resolved for a session.
	DefaultAgent string

	// Logger receives engine diagnostics. Defaults to the standard
	// logrus logger.
	Logger logrus.FieldLogger
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		Dedup:              dedup.DefaultConfig(),
		Stream:             core.DefaultStreamConfig(),
		DelegationToolName: DefaultDelegationToolName,
		DefaultAgent:       "SupervisorAgent",
	}
}

// Engine owns all per-session state and classifies incoming frames into
// normalized events. One Engine instance serves many concurrent sessions.
type Engine struct {
	config   Config
	log      logrus.FieldLogger
	sessions *session.Manager
	dedup    *dedup.Engine
	sources  *sources.Aggregator
}

// New creates an Engine. Call Close to stop its background sweep.
func New(config Config) *Engine {
	def := DefaultConfig()
	if config.DelegationToolName == "" {
		config.DelegationToolName = def.DelegationToolName
	}
	if config.DefaultAgent == "" {
		config.DefaultAgent = def.DefaultAgent
	}
	if config.Stream.BufferSize <= 0 {
		config.Stream.BufferSize = def.Stream.BufferSize
	}
	log := config.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	dedupEngine := dedup.NewEngine(config.Dedup)
	mgr := session.NewManager(session.DefaultConfig(dedupEngine.Window()), log)
	agg := sources.NewAggregator()

	// Session eviction drops the sibling state keyed by the same
	// identifier, so an expired session leaves nothing behind.
	mgr.OnEvict(dedupEngine.Forget)
	mgr.OnEvict(agg.Forget)

	return &Engine{
		config:   config,
		log:      log,
		sessions: mgr,
		dedup:    dedupEngine,
		sources:  agg,
	}
}

// Process consumes frames from src until completion, cancellation or a
// transport failure, delivering normalized events one at a time on the
// returned channel. The channel is closed after the terminal event:
// exactly one completion, or one error followed by one completion. The
// frame source is closed when the loop exits.
func (e *Engine) Process(ctx context.Context, sessionID string, src core.FrameSource) <-chan *events.StreamEvent {
	ch := make(chan *events.StreamEvent, e.config.Stream.BufferSize)

	go func() {
		defer close(ch)
		defer func() {
			if err := src.Close(); err != nil {
				e.log.WithError(err).Debug("closing frame source")
			}
		}()

		emit := func(ev *events.StreamEvent) {
			select {
			case ch <- ev:
			case <-ctx.Done():
			}
		}

		for {
			frame, err := e.nextFrame(ctx, src)
			if err == io.EOF {
				emit(events.NewComplete())
				return
			}
			if err != nil {
				e.emitTerminalError(err, emit)
				return
			}
			if ctx.Err() != nil {
				emit(events.NewComplete())
				return
			}
			e.classify(sessionID, frame, time.Now(), emit)
		}
	}()

	return ch
}

// nextFrame reads one frame, bounding the wait by the configured read
// timeout when one is set.
func (e *Engine) nextFrame(ctx context.Context, src core.FrameSource) (string, error) {
	if e.config.Stream.ReadTimeout <= 0 {
		return src.Next(ctx)
	}
	frameCtx, cancel := context.WithTimeout(ctx, e.config.Stream.ReadTimeout)
	defer cancel()
	return src.Next(frameCtx)
}

// ProcessReader is a convenience wrapper that frames a raw byte stream
// before processing it.
func (e *Engine) ProcessReader(ctx context.Context, sessionID string, r io.Reader) <-chan *events.StreamEvent {
	return e.Process(ctx, sessionID, sse.NewDecoder(r))
}

// ResolveAgent routes an outbound query: an explicit @WordAgent mention
// selects that agent for the session and enables direct-mention mode;
// otherwise the previously resolved agent (or the configured default) is
// kept.
func (e *Engine) ResolveAgent(sessionID, query string) string {
	return e.sessions.ResolveAgent(sessionID, query, e.config.DefaultAgent, time.Now())
}

// ClearSession removes all state for a session, including direct-mention
// mode, its deduplication window and its citations.
func (e *Engine) ClearSession(sessionID string) {
	e.sessions.Clear(sessionID)
}

// Sources returns the citation aggregator.
func (e *Engine) Sources() *sources.Aggregator {
	return e.sources
}

// Sessions returns the session manager.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Close stops the background session sweep.
func (e *Engine) Close() {
	e.sessions.Stop()
}

// emitTerminalError surfaces a transport failure as exactly one error
// event followed by one completion event. Expired credentials are
// distinguished so the caller can prompt re-authentication instead of
// retrying.
func (e *Engine) emitTerminalError(err error, emit emitFunc) {
	e.log.WithError(err).Error("stream transport failed")
	if core.IsCredentialExpired(err) {
		emit(events.NewCredentialError(err.Error()))
	} else {
		emit(events.NewError(err.Error()))
	}
	emit(events.NewComplete())
}
