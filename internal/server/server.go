package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/muurk/ecofan/internal/fan"
)

const shutdownTimeout = 10 * time.Second

// Controller is the part of the platform the API drives.
type Controller interface {
	Snapshots() []fan.Snapshot
	Entity(id string) (*fan.Entity, bool)
	Subscribe(fn func(fan.Snapshot)) func()
	TurnOn(ctx context.Context, id string, preset *fan.Speed) (fan.Snapshot, error)
	TurnOff(ctx context.Context, id string) (fan.Snapshot, error)
	SetPresetMode(ctx context.Context, id string, preset fan.Speed) (fan.Snapshot, error)
}

// Config holds the server configuration
type Config struct {
	Listen string // host:port
}

// Server is the local HTTP API.
type Server struct {
	config   *Config
	ctrl     Controller
	gatherer prometheus.Gatherer
	hub      *Hub
	log      *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	http     *http.Server
}

// New creates a Server. gatherer may be nil to disable /metrics.
func New(config *Config, ctrl Controller, gatherer prometheus.Gatherer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		config:   config,
		ctrl:     ctrl,
		gatherer: gatherer,
		hub:      NewHub(log.Named("events")),
		log:      log,
	}
}

// Start listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Start with a caller-provided listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	unsubscribe := s.ctrl.Subscribe(s.hub.Broadcast)
	defer unsubscribe()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.http = srv
	s.mu.Unlock()

	s.log.Info("API listening", zap.String("addr", listener.Addr().String()))

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Addr returns the bound address once serving, or "".
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down API server")

	s.hub.CloseAll()

	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		s.log.Warn("Shutdown timeout, forcing close", zap.Error(err))
		return srv.Close()
	}
	return nil
}

// ActiveStreams returns the number of connected event stream clients.
func (s *Server) ActiveStreams() int {
	return s.hub.Count()
}
