package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"focusmru/internal/config"
	"focusmru/internal/database"
)

type Server struct {
	config  *config.Config
	handler *Handler
	server  *http.Server
	logger  *slog.Logger
}

func NewServer(cfg *config.Config, repo *database.Repository, rec Recorder, customPort int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	handler := NewHandler(cfg, repo, rec, logger)
	mux := http.NewServeMux()
	handler.SetupRoutes(mux)

	port := cfg.Web.Port
	if customPort > 0 {
		port = customPort
	}

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		config:  cfg,
		handler: handler,
		server:  httpServer,
		logger:  logger,
	}
}

// Start serves until Shutdown; http.ErrServerClosed is not reported.
func (s *Server) Start() error {
	s.logger.Info("starting web server", "url", "http://"+s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web server")
	return s.server.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return s.server.Addr
}
