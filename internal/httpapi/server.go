// Package httpapi provides the HTTP API for stafflined.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/stafflinehq/staffline/internal/extract"
	"github.com/stafflinehq/staffline/internal/pipeline"
	"github.com/stafflinehq/staffline/internal/revise"
	"github.com/stafflinehq/staffline/internal/store"
)

// Generator runs the plan generation pipeline.
type Generator interface {
	Generate(ctx context.Context, rfpText string, approach pipeline.Approach, totalFTE float64) (*pipeline.Result, error)
}

// Reviser runs one conversational revision turn.
type Reviser interface {
	Revise(ctx context.Context, req revise.Request) (*revise.Response, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// Server wires the pipeline, reviser, extractor, and store behind the HTTP
// endpoints.
type Server struct {
	echo      *echo.Echo
	generator Generator
	reviser   Reviser
	extractor extract.Extractor
	store     store.Store
	logger    *zap.Logger
	config    *Config
}

// NewServer creates the HTTP server with routes registered.
func NewServer(gen Generator, rev Reviser, ext extract.Extractor, st store.Store, logger *zap.Logger, cfg *Config) (*Server, error) {
	if gen == nil || rev == nil || ext == nil || st == nil {
		return nil, fmt.Errorf("generator, reviser, extractor, and store are all required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8080, ShutdownTimeout: 10 * time.Second}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:      e,
		generator: gen,
		reviser:   rev,
		extractor: ext,
		store:     st,
		logger:    logger,
		config:    cfg,
	}

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.POST("/generate-plan", s.handleGeneratePlan)
	s.echo.POST("/chat", s.handleChat)
	s.echo.POST("/upload", s.handleUpload)

	s.echo.GET("/plans/:id", s.handleGetPlan)
	s.echo.DELETE("/plans/:id", s.handleDeletePlan)
	s.echo.GET("/plans/:id/messages", s.handleListMessages)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down http server")
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}

// Echo returns the underlying Echo instance, mainly for handler tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
