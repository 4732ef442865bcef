package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"todoagent/internal/delivery/http/routes"
	"todoagent/internal/infrastructure"
	. "todoagent/pkg/config"
)

// Server is the HTTP API bound to one dependency container.
type Server struct {
	container *infrastructure.Container
	http      *http.Server
}

// NewServer wires the container and router for config.
func NewServer(ctx context.Context, metrics *AppMetrics, logger *LokiLogger, config *AppConfig) (*Server, error) {
	container, err := infrastructure.NewContainer(ctx, config, logger, metrics)
	if err != nil {
		return nil, err
	}

	router := routes.SetupRouter(routes.HandlersConfig{
		TodoHandler:    container.TodoHandler,
		ToolHandler:    container.ToolHandler,
		SessionHandler: container.SessionHandler,
	}, metrics, logger, config)

	return &Server{
		container: container,
		http: &http.Server{
			Addr:         ":" + config.Server.Port,
			Handler:      router,
			ReadTimeout:  config.Server.ReadTimeout,
			WriteTimeout: config.Server.WriteTimeout,
		},
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks until the server stops; a graceful Shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	slog.Info("Server starting", "addr", s.http.Addr)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed to start", "error", err)
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return errors.Join(s.http.Shutdown(ctx), s.container.Close())
}
