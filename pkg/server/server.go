// Package server accepts one websocket connection per transcription
// session, wiring pkg/wire framing to a session.Orchestrator and
// driving it to completion, the server-side counterpart to the
// teacher's LokutorTTS websocket client in pkg/providers/tts/lokutor.go.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/lokutor-ai/transcribe-core/pkg/session"
	"github.com/lokutor-ai/transcribe-core/pkg/wire"
)

// Server accepts websocket connections and spawns a session for each.
type Server struct {
	addr        string
	transcriber session.Transcriber
	logger      session.Logger
	metrics     serverMetrics
	drainWait   time.Duration

	// modelSlots bounds how many Transcribe calls may be in flight at
	// once across every session, sized to what the backend can
	// actually serve concurrently (1 for a single local GPU process,
	// N for a hosted API).
	modelSlots *semaphore.Weighted

	mu       sync.Mutex
	sessions map[string]context.CancelFunc
	closed   bool

	httpServer *http.Server
}

// serverMetrics is session.Metrics plus the session-open/close gauge
// methods the server calls directly.
type serverMetrics interface {
	session.Metrics
	SessionOpened()
	SessionClosed()
}

// Config configures a new Server.
type Config struct {
	Addr                 string
	Transcriber          session.Transcriber
	Logger               session.Logger
	Metrics              serverMetrics
	ModelConcurrency     int64 // max in-flight Transcribe calls; 0 means 1
	ShutdownDrainSeconds int
}

// New builds a Server ready to ListenAndServe.
func New(cfg Config) *Server {
	if cfg.ModelConcurrency <= 0 {
		cfg.ModelConcurrency = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = session.NoOpLogger{}
	}
	drain := cfg.ShutdownDrainSeconds
	if drain <= 0 {
		drain = 5
	}

	s := &Server{
		addr:        cfg.Addr,
		transcriber: cfg.Transcriber,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		drainWait:   time.Duration(drain) * time.Second,
		modelSlots:  semaphore.NewWeighted(cfg.ModelConcurrency),
		sessions:    make(map[string]context.CancelFunc),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/stream", s.handleStream)
	mux.Handle("/metrics", promhttp.Handler())
	s.httpServer = &http.Server{Addr: cfg.Addr, Handler: mux}
	return s
}

// Handler returns the server's HTTP handler (websocket upgrade plus
// /metrics), useful for exercising it against an httptest.Server
// without binding a real listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks serving the websocket and /metrics endpoints
// until ctx is cancelled, then drains in-flight sessions for up to the
// configured drain duration before returning.
func (s *Server) ListenAndServe(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

func (s *Server) shutdown() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	drainCtx, cancel := context.WithTimeout(context.Background(), s.drainWait)
	defer cancel()

	if err := s.httpServer.Shutdown(drainCtx); err != nil {
		s.logger.Warn("http server shutdown error", "error", err)
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		s.mu.Lock()
		remaining := len(s.sessions)
		s.mu.Unlock()
		if remaining == 0 {
			return nil
		}
		select {
		case <-drainCtx.Done():
			s.forceCancelAll()
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Server) forceCancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cancel := range s.sessions {
		s.logger.Warn("force-cancelling session past drain deadline", "session", id)
		cancel()
	}
}

func (s *Server) registerSession(id string, cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sessions[id] = cancel
	return true
}

func (s *Server) unregisterSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sessionID := fmt.Sprintf("%p", conn)
	if !s.registerSession(sessionID, cancel) {
		conn.Close(websocket.StatusServiceRestart, "server shutting down")
		return
	}
	defer s.unregisterSession(sessionID)

	if s.metrics != nil {
		s.metrics.SessionOpened()
		defer s.metrics.SessionClosed()
	}

	throttled := &throttledTranscriber{inner: s.transcriber, slots: s.modelSlots}
	orch, err := session.New(sessionID, throttled, s.logger, s.metrics)
	if err != nil {
		s.logger.Error("failed to create session", "error", err)
		conn.Close(websocket.StatusInternalError, "session init failed")
		return
	}

	s.runSession(ctx, conn, orch)
}

// initFrame is the optional JSON text message a client may send before
// (or between) binary audio frames to declare the sample rate that
// subsequent zero-rate frames should be interpreted at.
type initFrame struct {
	SampleRate uint32 `json:"sample_rate"`
}

func (s *Server) runSession(ctx context.Context, conn *websocket.Conn, orch *session.Orchestrator) {
	var lastRate uint32

	for {
		msgType, payload, err := conn.Read(ctx)
		if err != nil {
			s.finalizeAndClose(context.Background(), conn, orch)
			return
		}
		if msgType == websocket.MessageText {
			var init initFrame
			if err := json.Unmarshal(payload, &init); err == nil && init.SampleRate > 0 {
				lastRate = init.SampleRate
			}
			continue
		}
		if msgType != websocket.MessageBinary {
			continue
		}
		chunk, err := wire.DecodeAudioChunk(payload)
		if err != nil {
			s.logger.Warn("dropping malformed audio frame", "session", orch.SessionID(), "error", err)
			continue
		}
		if chunk.SampleRate == 0 {
			chunk.SampleRate = lastRate
		} else {
			lastRate = chunk.SampleRate
		}
		results, err := orch.PushChunk(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("push chunk failed", "session", orch.SessionID(), "error", err)
			continue
		}
		if err := s.sendResults(ctx, conn, results); err != nil {
			return
		}
	}
}

func (s *Server) finalizeAndClose(ctx context.Context, conn *websocket.Conn, orch *session.Orchestrator) {
	finalizeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	results, err := orch.Finalize(finalizeCtx)
	if err != nil {
		s.logger.Warn("finalize error on close", "session", orch.SessionID(), "error", err)
	}
	_ = s.sendResults(finalizeCtx, conn, results)
	conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) sendResults(ctx context.Context, conn *websocket.Conn, results []session.TranscriptionResult) error {
	for _, r := range results {
		data, err := wire.EncodeResult(r)
		if err != nil {
			return err
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			return err
		}
	}
	return nil
}

// throttledTranscriber bounds concurrent model calls to modelSlots,
// implementing the "single shared lock if required by the backend"
// clause across every session sharing this Server.
type throttledTranscriber struct {
	inner session.Transcriber
	slots *semaphore.Weighted
}

func (t *throttledTranscriber) Transcribe(ctx context.Context, window []float32, initialPrompt string) ([]session.Segment, error) {
	if err := t.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer t.slots.Release(1)
	return t.inner.Transcribe(ctx, window, initialPrompt)
}
