// Package server serves the installed applications over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/storefront/pkg/web/support/util/exception"
	"github.com/tigerroll/storefront/pkg/web/support/util/logger"
)

// Server owns the http.Server and its listener.
type Server struct {
	params RouterParams

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewServer creates a Server. Nothing is bound until Start.
func NewServer(p RouterParams) *Server {
	return &Server{params: p}
}

// Start builds the router, binds the listener and serves in the background.
// A bind failure is returned, so it fails application start-up.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return exception.NewAppError("server", "server already started", exception.ErrConflict, nil)
	}

	cfg := s.params.Config
	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return exception.NewAppErrorf("server", exception.ErrUnavailable, "failed to listen on %s", addr, err)
	}

	s.srv = &http.Server{
		Handler:           NewRouter(s.params),
		ReadTimeout:       time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	}
	s.listener = ln
	s.done = make(chan struct{})

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("HTTP server stopped unexpectedly: %v", err)
		}
	}(s.srv, s.done)

	logger.Infof("HTTP server listening on %s.", ln.Addr())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the server down gracefully, bounded by shutdown_timeout_seconds.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv, s.listener, s.done = nil, nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	timeout := time.Duration(s.params.Config.ShutdownTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Infof("Shutting down HTTP server...")
	err := srv.Shutdown(shutdownCtx)
	<-done
	if err != nil {
		return exception.NewAppError("server", "graceful shutdown failed", nil, err)
	}
	return nil
}

// NewServerProvider creates the Server and ties it to the application lifecycle.
// Its hooks run after the registry's, so routes see a populated registry.
func NewServerProvider(lc fx.Lifecycle, p RouterParams) *Server {
	s := NewServer(p)
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})
	return s
}

// Module provides the HTTP server. Including it starts the server with the application.
var Module = fx.Options(
	fx.Provide(NewServerProvider),
	fx.Invoke(func(*Server) {}),
)
