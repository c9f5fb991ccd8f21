package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agentrelay/go-sdk/pkg/encoding/sse"
)

// DefaultPath is the invoke endpoint the replay server answers on.
const DefaultPath = "/invoke"

// Config contains configuration options for the replay server.
type Config struct {
	// Address is the server listen address (e.g., ":8080").
	Address string

	// Path is the invoke endpoint path. Defaults to DefaultPath.
	Path string

	// FrameDelay is an optional pause between frames, which makes replayed
	// streams pace like a live agent instead of arriving in one burst.
	FrameDelay time.Duration

	// Logger receives request logs. A default logger is used when nil.
	Logger *logrus.Logger
}

// Server replays recorded agent streams over SSE. Recordings are keyed by
// session ID; requests for an unknown session fall back to the default
// recording.
type Server struct {
	config Config
	log    *logrus.Logger

	mu         sync.RWMutex
	recordings map[string][]string
	fallback   []string

	httpServer *http.Server
}

// invokeRequest mirrors the request body the HTTP transport sends.
type invokeRequest struct {
	Input     string `json:"input"`
	SessionID string `json:"sessionId"`
}

// New creates a replay server with the specified configuration.
func New(config Config) *Server {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	log := config.Logger
	if log == nil {
		log = logrus.New()
	}
	return &Server{
		config:     config,
		log:        log,
		recordings: make(map[string][]string),
	}
}

// Record registers a frame sequence to replay for the given session.
func (s *Server) Record(sessionID string, frames []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordings[sessionID] = frames
}

// SetDefault registers the frame sequence replayed for sessions that have
// no recording of their own.
func (s *Server) SetDefault(frames []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = frames
}

// Forget removes the recording for a session.
func (s *Server) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recordings, sessionID)
}

// Handler returns the HTTP handler serving the invoke endpoint, for use
// with a caller-managed http.Server or httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.handleInvoke)
	return mux
}

// ListenAndServe starts the server and blocks until it is shut down.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:    s.config.Address,
		Handler: s.Handler(),
	}
	s.log.WithField("address", s.config.Address).Info("replay server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down a server started with ListenAndServe.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	frames := s.framesFor(req.SessionID)
	s.log.WithFields(logrus.Fields{
		"session": req.SessionID,
		"frames":  len(frames),
	}).Debug("replaying stream")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for _, frame := range frames {
		if _, err := w.Write([]byte(sse.DataPrefix + frame + "\n\n")); err != nil {
			return
		}
		flusher.Flush()
		if s.config.FrameDelay > 0 {
			select {
			case <-time.After(s.config.FrameDelay):
			case <-r.Context().Done():
				return
			}
		}
	}
}

func (s *Server) framesFor(sessionID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if frames, ok := s.recordings[sessionID]; ok {
		return frames
	}
	return s.fallback
}
