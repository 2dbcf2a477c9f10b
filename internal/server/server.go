package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// WriteTimeout is how long a handler has to answer. Work done on behalf of a
// request must finish well inside it.
const WriteTimeout = 30 * time.Second

// Server represents an HTTP server
type Server struct {
	srv  *http.Server
	errs chan error
}

// New creates a new server instance
func New(handler http.Handler, port string) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadTimeout:       30 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      WriteTimeout,
			IdleTimeout:       120 * time.Second,
		},
		errs: make(chan error, 1),
	}
}

// Start binds the listener and serves in the background.
// Bind failures are returned directly; later serve failures arrive on Errors.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener in the background.
func (s *Server) Serve(ln net.Listener) error {
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
		close(s.errs)
	}()
	return nil
}

// Errors reports a fatal serve error; it is closed once the server stops.
func (s *Server) Errors() <-chan error {
	return s.errs
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
