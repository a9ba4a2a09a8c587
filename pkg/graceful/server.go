// Package graceful runs an http.Server until its context ends, then drains
// in-flight requests.
package graceful

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Server serves HTTP until its context is canceled.
type Server struct {
	httpServer   *http.Server
	log          *slog.Logger
	drainTimeout time.Duration

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewServer wraps srv. Zero drainTimeout waits for in-flight requests
// without bound.
func NewServer(log *slog.Logger, srv *http.Server, drainTimeout time.Duration) *Server {
	if log == nil {
		log = slog.Default()
	}

	return &Server{
		httpServer:   srv,
		log:          log,
		drainTimeout: drainTimeout,
		stopped:      make(chan struct{}),
	}
}

// Stopped is closed once serving has ended and requests are drained.
func (s *Server) Stopped() <-chan struct{} {
	return s.stopped
}

// ListenAndServe binds the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.httpServer == nil {
		s.markStopped()
		return nil
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.markStopped()
		return fmt.Errorf("listen on %q: %w", s.httpServer.Addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled or serving fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.markStopped()

	if s.httpServer == nil {
		return ln.Close()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(ln)
	}()
	s.log.Info("http server listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.log.Error("http server failed", slog.Any("error", err))
		return err
	case <-ctx.Done():
	}

	return s.drain(serveErr)
}

func (s *Server) drain(serveErr <-chan error) error {
	drainCtx := context.Background()
	if s.drainTimeout > 0 {
		var cancel context.CancelFunc
		drainCtx, cancel = context.WithTimeout(drainCtx, s.drainTimeout)
		defer cancel()
	}

	s.log.Info("draining http server", slog.Duration("timeout", s.drainTimeout))
	start := time.Now()

	err := s.httpServer.Shutdown(drainCtx)
	<-serveErr
	if err != nil {
		s.log.Error("http server drain incomplete", slog.Any("error", err))
		return fmt.Errorf("drain http server: %w", err)
	}

	s.log.Info("http server stopped", slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Server) markStopped() {
	s.stopOnce.Do(func() { close(s.stopped) })
}
