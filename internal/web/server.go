// Package web serves a local HTTP mirror of the job store: JSON snapshots
// and a server-sent event stream of store changes and push notifications.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/RevCBH/reeldeck/internal/events"
	"github.com/RevCBH/reeldeck/internal/logging"
	"github.com/RevCBH/reeldeck/internal/store"
)

// Source is a Mirror that also relays push notifications.
type Source interface {
	Mirror
	OnNotification(h events.Handler) func()
}

// Server is the mirror's HTTP server.
type Server struct {
	addr   string
	source Source
	hub    *Hub
	log    *logging.Logger

	httpServer   *http.Server
	httpListener net.Listener

	mu    sync.Mutex
	stops []func()
}

// New creates a mirror server. lookup may be nil. Does not start
// listening; call Start for that.
func New(cfg Config, src Source, lookup JobLookup, log *logging.Logger) (*Server, error) {
	if src == nil {
		return nil, errors.New("web: nil source")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("component", "web")

	s := &Server{
		addr:   cfg.Addr,
		source: src,
		hub:    NewHub(),
		log:    log,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg, lookup),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(cfg Config, lookup JobLookup) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLog(s.log))
	r.Use(recovery(s.log))

	r.Get("/healthz", HealthHandler(s.hub))
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", StateHandler(s.source))
		r.Get("/jobs/{id}", JobHandler(s.source, lookup))
		r.Get("/events", EventsHandler(s.source, s.hub, cfg.ClientBuffer))
		r.Post("/refresh", RefreshHandler(s.source))
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" not allowed on "+r.URL.Path)
	})
	return r
}

// Handler returns the router, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Hub returns the SSE hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening and forwarding store changes to SSE clients.
// Non-blocking; the server runs in goroutines.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("HTTP listen: %w", err)
	}
	s.httpListener = listener

	// actual address, for ephemeral ports
	s.addr = listener.Addr().String()

	go s.hub.Run()

	stopState := s.source.Store().OnChange(func(st store.State) {
		s.hub.Broadcast(stateEvent(st, string(s.source.Mode()), s.source.Subscribed()))
	})
	stopNotes := s.source.OnNotification(func(n events.Notification) {
		s.hub.Broadcast(notificationEvent(n))
	})
	s.mu.Lock()
	s.stops = append(s.stops, stopState, stopNotes)
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("mirror server stopped", "error", err)
		}
	}()

	s.log.Info("mirror listening", "addr", s.addr)
	return nil
}

// Stop detaches from the store, closes SSE streams and shuts down HTTP.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	stops := s.stops
	s.stops = nil
	s.mu.Unlock()
	for _, stop := range stops {
		stop()
	}

	s.hub.Stop()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (s *Server) Addr() string {
	return s.addr
}
