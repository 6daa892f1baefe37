// Package app assembles a running finflow instance from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/finflow/internal/checkpoint"
	"github.com/roach88/finflow/internal/config"
	"github.com/roach88/finflow/internal/docstore"
	"github.com/roach88/finflow/internal/engine"
	"github.com/roach88/finflow/internal/events"
	"github.com/roach88/finflow/internal/extract"
	"github.com/roach88/finflow/internal/parse"
	"github.com/roach88/finflow/internal/telemetry"
)

// App holds the wired components. Close releases them in reverse order.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     checkpoint.Store
	Docs      *docstore.Local
	Uploader  *docstore.AzureUploader
	Bus       *events.Bus
	Telemetry *telemetry.Provider
	Engine    *engine.Engine

	closers []func() error
}

// Option adjusts engine construction, mainly for tests.
type Option func(*options)

type options struct {
	adapter extract.Adapter
	engine  []engine.Option
}

// WithAdapter replaces the configured extraction provider.
func WithAdapter(a extract.Adapter) Option {
	return func(o *options) {
		o.adapter = a
	}
}

// WithEngineOptions appends engine options after the configured ones.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *options) {
		o.engine = append(o.engine, opts...)
	}
}

// New opens every backend named by cfg and builds the engine. On error,
// anything already opened is closed.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (_ *App, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Telemetry, err = telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return a.Telemetry.Shutdown(context.Background()) })

	if a.Store, err = openStore(ctx, cfg.Checkpoint, logger); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Store.Close)

	if a.Docs, err = docstore.NewLocal(cfg.Documents.Dir); err != nil {
		return nil, err
	}

	if cfg.Documents.Driver == "azblob" {
		a.Uploader, err = docstore.NewAzureUploader(docstore.AzureConfig{
			Container:        cfg.Documents.Container,
			ConnectionString: cfg.Documents.ConnectionString,
			AccountURL:       cfg.Documents.AccountURL,
		}, logger)
		if err != nil {
			return nil, err
		}
	}

	a.Bus, err = events.Open(events.Config{
		Driver:  cfg.Events.Driver,
		Brokers: cfg.Events.Brokers,
		Topic:   cfg.Events.Topic,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Bus.Close)

	adapter := o.adapter
	if adapter == nil {
		if adapter, err = NewAdapter(ctx, cfg.Extraction, logger); err != nil {
			return nil, err
		}
	}

	engineOpts := []engine.Option{
		engine.WithDefaults(cfg.Defaults.Normalizer()),
		engine.WithThresholds(cfg.Thresholds),
		engine.WithMaxReviewRounds(cfg.Review.MaxRounds),
		engine.WithPublisher(a.Bus.Publisher),
		engine.WithTracer(a.Telemetry.Tracer()),
		engine.WithLogger(logger),
	}
	if a.Uploader != nil {
		engineOpts = append(engineOpts, engine.WithUploader(a.Uploader))
	}
	engineOpts = append(engineOpts, o.engine...)

	a.Engine = engine.New(a.Store, parse.New(logger), adapter, engineOpts...)
	logger.Info("finflow ready",
		"checkpoint", cfg.Checkpoint.Driver,
		"documents", cfg.Documents.Driver,
		"extraction", cfg.Extraction.Provider,
		"events", cfg.Events.Driver,
	)
	return a, nil
}

// Close releases every opened backend.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg config.CheckpointConfig, logger *slog.Logger) (checkpoint.Store, error) {
	if cfg.Driver == "" || cfg.Driver == "sqlite" {
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create checkpoint dir: %w", err)
			}
		}
	}
	store, err := checkpoint.Open(ctx, cfg.Driver, cfg.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}
	return store, nil
}

// NewAdapter builds the configured extraction provider. The none provider
// extracts nothing, which sends every run to manual review.
func NewAdapter(ctx context.Context, cfg config.ExtractionConfig, logger *slog.Logger) (extract.Adapter, error) {
	var adapter extract.Adapter
	switch cfg.Provider {
	case "", "none":
		return extract.Static{}, nil
	case "file":
		adapter = extract.FileAdapter{Dir: cfg.FixtureDir}
	case "vertex":
		va, err := extract.NewVertexAdapter(ctx, extract.VertexConfig{
			Project:  cfg.Project,
			Location: cfg.Location,
			Model:    cfg.Model,
			Limits:   cfg.Limits,
		}, logger)
		if err != nil {
			return nil, err
		}
		adapter = va
	default:
		return nil, fmt.Errorf("unknown extraction provider %q", cfg.Provider)
	}
	return extract.WithTimeout(adapter, cfg.Timeout), nil
}
