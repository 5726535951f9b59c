package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Server wraps the http.Server with the timeouts the API expects.
type Server struct {
	inner *http.Server
}

// New constructs a server listening on the provided port. Port 0 picks a free port.
func New(port int, handler http.Handler) *Server {
	return &Server{
		inner: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Listen binds the configured address without serving yet.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.inner.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.inner.Addr, err)
	}
	return ln, nil
}

// Serve handles connections on ln until the server is shut down. A graceful
// shutdown is not reported as an error.
func (s *Server) Serve(ln net.Listener) error {
	if err := s.inner.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully terminates the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
