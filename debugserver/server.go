// Package debugserver exposes runner state over HTTP while the application
// runs.
package debugserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GoCodeAlone/doodle"
)

const defaultShutdownTimeout = 5 * time.Second

// ErrNotStarted is returned by Addr before Init.
var ErrNotStarted = errors.New("debug server not started")

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address. The default ":0" picks a free port.
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithMetrics mounts handler at /metrics and makes the server start after
// the subsystem named dependency.
func WithMetrics(dependency string, handler http.Handler) Option {
	return func(s *Server) {
		s.metricsName = dependency
		s.metrics = handler
	}
}

// WithShutdownTimeout bounds how long Stop waits for open requests.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// Server is a subsystem serving /status, /healthz and, optionally, /metrics.
type Server struct {
	addr            string
	shutdownTimeout time.Duration
	metricsName     string
	metrics         http.Handler

	mu       sync.Mutex
	host     doodle.Host
	server   *http.Server
	listener net.Listener
	done     chan error
}

var (
	_ doodle.Subsystem       = (*Server)(nil)
	_ doodle.Initializable   = (*Server)(nil)
	_ doodle.Stoppable       = (*Server)(nil)
	_ doodle.DependencyAware = (*Server)(nil)
)

// New creates a debug server.
func New(opts ...Option) *Server {
	s := &Server{
		addr:            ":0",
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Name() string { return "debugserver" }

// Dependencies implements doodle.DependencyAware.
func (s *Server) Dependencies() []string {
	if s.metricsName == "" {
		return nil
	}
	return []string{s.metricsName}
}

// Init binds the listener and starts serving.
func (s *Server) Init(_ context.Context, host doodle.Host) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("debug server listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.host = host
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.done = make(chan error, 1)
	srv, done := s.server, s.done
	s.mu.Unlock()

	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
	}()

	host.Logger().Info("Debug server listening", "addr", ln.Addr().String())
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.server, s.done
	s.server = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("debug server shutdown: %w", err)
	}
	return <-done
}

// Addr returns the bound listen address.
func (s *Server) Addr() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return "", ErrNotStarted
	}
	return s.listener.Addr().String(), nil
}

// Router builds the HTTP routes. It is exported for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

type healthResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	host := s.currentHost()
	if host == nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "starting"})
		return
	}

	state := host.State()
	resp := healthResponse{Status: "ok", State: state.String()}
	code := http.StatusOK
	if state != doodle.StateRunning {
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	host := s.currentHost()
	if host == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": ErrNotStarted.Error()})
		return
	}
	writeJSON(w, http.StatusOK, host.Stats())
}

func (s *Server) currentHost() doodle.Host {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
