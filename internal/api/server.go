// Package api exposes the workflow engine over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/roach88/finflow/internal/checkpoint"
	"github.com/roach88/finflow/internal/engine"
	"github.com/roach88/finflow/internal/fin"
)

// Service is the engine surface the handlers use. Implemented by
// *engine.Engine.
type Service interface {
	Start(ctx context.Context, req engine.StartRequest) (*engine.Result, error)
	Resume(ctx context.Context, runID string, corrections []engine.Correction) (*engine.Result, error)
	Continue(ctx context.Context, runID string) (*engine.Result, error)
	WhatIf(ctx context.Context, req engine.WhatIfRequest) (*engine.Result, error)
	Status(ctx context.Context, runID string) (*engine.StatusView, error)
	List(ctx context.Context, filter checkpoint.ListFilter) ([]fin.RunSummary, error)
	History(ctx context.Context, runID string) ([]checkpoint.Checkpoint, error)
}

// DocumentStore persists uploaded files. Implemented by *docstore.Local.
type DocumentStore interface {
	Save(docID, name string, r io.Reader) (string, error)
}

// DefaultBodyLimit caps request bodies when no limit is configured.
const DefaultBodyLimit = 25 << 20

// Server holds the handler dependencies.
type Server struct {
	svc       Service
	docs      DocumentStore
	ids       engine.IDGenerator
	validate  *validator.Validate
	logger    *slog.Logger
	bodyLimit int
	accessLog io.Writer
}

// Option configures a Server.
type Option func(*Server)

// WithIDGenerator sets the generator for document ids of uploads.
func WithIDGenerator(g engine.IDGenerator) Option {
	return func(s *Server) {
		s.ids = g
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithBodyLimit caps request bodies, in bytes.
func WithBodyLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.bodyLimit = n
		}
	}
}

// WithAccessLog enables request logging to w.
func WithAccessLog(w io.Writer) Option {
	return func(s *Server) {
		s.accessLog = w
	}
}

// New creates a Server.
func New(svc Service, docs DocumentStore, opts ...Option) *Server {
	s := &Server{
		svc:       svc,
		docs:      docs,
		ids:       engine.UUIDv7Generator{},
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    slog.Default(),
		bodyLimit: DefaultBodyLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("system", "api")
	return s
}

// App builds the fiber application with every route registered.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "finflow",
		BodyLimit:    s.bodyLimit,
		ErrorHandler: s.errorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	if s.accessLog != nil {
		app.Use(logger.New(logger.Config{
			Output:        s.accessLog,
			DisableColors: true,
		}))
	}

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())
	app.Get("/health", s.Health)

	v1 := app.Group("/api/v1")
	v1.Post("/ingest", s.Ingest)
	v1.Post("/review", s.Review)
	v1.Post("/ratios/whatif", s.WhatIf)
	v1.Get("/runs", s.ListRuns)
	v1.Get("/runs/:id", s.GetRun)
	v1.Get("/runs/:id/history", s.GetHistory)
	v1.Post("/runs/:id/continue", s.ContinueRun)

	return app
}

// Serve listens on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	app := s.App()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	s.logger.InfoContext(ctx, "listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
