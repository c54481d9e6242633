package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"shield-go/internal/shield"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP server for the inspection API.
type Server struct {
	httpServer *http.Server
	handler    *Handler
	logger     shield.Logger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, handler *Handler, logger shield.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		handler: handler,
		logger:  logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully and waits
// for background scans to stop.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", "addr", s.httpServer.Addr)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.handler.Wait()
	s.logger.Info("http server stopped")
	return nil
}
