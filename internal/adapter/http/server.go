package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/pipeline"
	"github.com/couchcryptid/quake-feed-service/internal/store"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EventSource is the subscriber boundary of the event store.
type EventSource interface {
	Current() []domain.Event
	Subscribe(fn func([]domain.Event)) *store.Subscription
	Unsubscribe(sub *store.Subscription)
}

// StatusReporter exposes the fetch coordinator's health to operators.
type StatusReporter interface {
	sharedobs.ReadinessChecker
	LastCycle() (pipeline.CycleResult, bool)
	Stage() pipeline.Stage
}

// Server exposes the event snapshot plus health, readiness, status, and
// metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	events     EventSource
	status     StatusReporter
	sseBuffer  int
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /events, /events/stream, /status,
// /healthz, /readyz, and /metrics routes.
func NewServer(addr string, events EventSource, status StatusReporter, sseBuffer int, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		events:    events,
		status:    status,
		sseBuffer: max(sseBuffer, 1),
		logger:    logger,
	}

	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /events/stream", s.handleStream)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(status))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.events.Current())
}

// handleStream pushes every snapshot as a Server-Sent Event until the client
// disconnects. A client that falls behind skips to the newest snapshot.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// Streams outlive the server-wide write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	updates := make(chan []domain.Event, s.sseBuffer)
	sub := s.events.Subscribe(func(events []domain.Event) {
		offerLatest(updates, events)
	})
	defer s.events.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.Warn("sse flush unsupported", "error", err)
		return
	}

	s.logger.Debug("sse client connected", "remote", r.RemoteAddr)
	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("sse client disconnected", "remote", r.RemoteAddr)
			return
		case events := <-updates:
			data, err := json.Marshal(events)
			if err != nil {
				s.logger.Error("sse encode snapshot", "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// offerLatest enqueues events, discarding the oldest queued snapshot when the
// buffer is full. Store callbacks are serialized so there is a single producer.
func offerLatest(ch chan []domain.Event, events []domain.Event) {
	for {
		select {
		case ch <- events:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

type statusResponse struct {
	Ready     bool                  `json:"ready"`
	Stage     pipeline.Stage        `json:"stage"`
	Events    int                   `json:"events"`
	LastCycle *pipeline.CycleResult `json:"last_cycle"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Ready:  s.status.CheckReadiness(r.Context()) == nil,
		Stage:  s.status.Stage(),
		Events: len(s.events.Current()),
	}
	if last, ok := s.status.LastCycle(); ok {
		resp.LastCycle = &last
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}
