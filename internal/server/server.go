// Package server exposes health, metrics, manual ingestion and ad-hoc
// extraction over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flateze/flateze/internal/config"
	"github.com/flateze/flateze/internal/extractor"
	"github.com/flateze/flateze/internal/ingest"
	"github.com/flateze/flateze/internal/logger"
)

// FlatRunner runs ingestion for one flat.
type FlatRunner interface {
	RunFlat(ctx context.Context, flatID string, since time.Time) (ingest.Report, error)
}

// Server is the flateze HTTP API.
type Server struct {
	cfg       config.ServerConfig
	runner    FlatRunner
	extractor *extractor.Extractor
	log       logger.Logger
	router    *gin.Engine
	now       func() time.Time
}

// New builds the router.
func New(cfg config.ServerConfig, runner FlatRunner, ex *extractor.Extractor, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		cfg:       cfg,
		runner:    runner,
		extractor: ex,
		log:       log,
		router:    gin.New(),
		now:       time.Now,
	}

	s.router.Use(gin.Recovery(), requestLogger(log))
	s.router.GET("/health", s.health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api/v1")
	if cfg.RateLimit > 0 {
		api.Use(rateLimit(cfg.RateLimit, cfg.Burst))
	}
	api.POST("/flats/:flatID/ingest", s.ingestFlat)
	api.POST("/extract", s.extract)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
