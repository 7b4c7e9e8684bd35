// Package monitor exposes the engine's operational HTTP surface: liveness
// and readiness probes, Prometheus metrics, a point-in-time graph snapshot,
// and a WebSocket feed streaming snapshots to dashboards.
//
// The package exposes five endpoints:
//
//   - /healthz   — liveness probe; always returns 200 OK.
//   - /readyz    — readiness probe; 200 only when the graph is active and
//     all registered [Checker] functions pass.
//   - /metrics   — Prometheus scrape endpoint.
//   - /api/graph — the current [graph.Snapshot] as JSON.
//   - /ws        — snapshots streamed as JSON text frames at a fixed interval.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jamesmcarthur-3999/taskerino-sub015/internal/observe"
	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/graph"
)

// shutdownTimeout bounds graceful HTTP shutdown when the run context ends.
const shutdownTimeout = 5 * time.Second

// Server serves the monitoring endpoints for one graph.
type Server struct {
	graph    *graph.Graph
	logger   *slog.Logger
	metrics  *observe.Metrics
	checkers []Checker

	streamInterval time.Duration

	srv *http.Server
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics used by the HTTP middleware.
// Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithChecker adds an extra readiness check evaluated by /readyz alongside
// the built-in graph state check.
func WithChecker(c Checker) Option {
	return func(s *Server) {
		s.checkers = append(s.checkers, c)
	}
}

// WithStreamInterval sets the period between WebSocket snapshot frames.
// The default is 1 second.
func WithStreamInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.streamInterval = d
		}
	}
}

// New creates a monitoring server for g listening on addr.
func New(addr string, g *graph.Graph, opts ...Option) *Server {
	s := &Server{
		graph:          g,
		logger:         slog.Default(),
		streamInterval: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the full route tree wrapped in the observability
// middleware. Exposed separately so tests can drive it with httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/graph", s.handleSnapshot)
	mux.HandleFunc("GET /ws", s.handleStream)
	return observe.Middleware(s.metrics)(mux)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("monitor server listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

// handleSnapshot returns the current graph snapshot as JSON.
func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.graph.Snapshot())
}

// handleStream upgrades to WebSocket and streams snapshots as JSON text
// frames until the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	ctx := r.Context()
	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	// Send an initial frame immediately so dashboards do not wait a full
	// interval for the first paint.
	if err := s.writeSnapshot(ctx, conn); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return
		case <-ticker.C:
			if err := s.writeSnapshot(ctx, conn); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeSnapshot(ctx context.Context, conn *websocket.Conn) error {
	data, err := json.Marshal(s.graph.Snapshot())
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
