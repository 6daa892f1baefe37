package engine

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/roach88/finflow/internal/checkpoint"
	"github.com/roach88/finflow/internal/extract"
	"github.com/roach88/finflow/internal/fin"
	"github.com/roach88/finflow/internal/parse"
)

// DocumentParser turns a local document into text and tables.
// Implemented by *parse.Parser.
type DocumentParser interface {
	Parse(ctx context.Context, path string) (*parse.Document, error)
}

// Uploader copies a document to remote storage and returns a URI the
// extraction service can read. Implemented by the docstore package.
type Uploader interface {
	Upload(ctx context.Context, docID, path string) (string, error)
}

// Engine runs documents through the workflow.
//
// Thread-safety model:
//   - All operations are safe from any goroutine
//   - Operations on the same run are serialized
//   - Operations on different runs proceed in parallel
type Engine struct {
	store      checkpoint.Store
	parser     DocumentParser
	adapter    extract.Adapter
	normalizer *extract.Normalizer
	uploader   Uploader
	publisher  Publisher

	thresholds      fin.Thresholds
	maxReviewRounds int

	clock  Clock
	ids    IDGenerator
	tracer trace.Tracer
	logger *slog.Logger

	locks runLocks
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaults sets the record-level fallbacks for currency, scale and period.
func WithDefaults(d extract.Defaults) Option {
	return func(e *Engine) {
		e.normalizer = extract.NewNormalizer(d)
	}
}

// WithThresholds sets the confidence cutoffs stamped on new runs.
//
// Default: fin.DefaultThresholds() (0.80 / 0.50)
func WithThresholds(t fin.Thresholds) Option {
	return func(e *Engine) {
		e.thresholds = t
	}
}

// WithMaxReviewRounds caps how many times a run may suspend for review.
//
// Default: 0, meaning unlimited. When the cap is reached the gate lets the
// run proceed to ratios with its outstanding issues and records
// fin.DegradedReviewLimit.
func WithMaxReviewRounds(n int) Option {
	return func(e *Engine) {
		e.maxReviewRounds = n
	}
}

// WithUploader enables remote document references for runs started with
// RunOptions.UseRemote.
func WithUploader(u Uploader) Option {
	return func(e *Engine) {
		e.uploader = u
	}
}

// WithPublisher sets the sink for lifecycle events.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithClock sets the timestamp source.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the generator for run and document IDs.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithTracer sets the tracer used for operation and node spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine.
//
// The store, parser and adapter are required collaborators. Everything else
// has a default: standard normalizer defaults, default thresholds, unlimited
// review rounds, no uploader, no event publisher, the system clock, UUIDv7
// IDs, a no-op tracer and slog.Default.
func New(store checkpoint.Store, parser DocumentParser, adapter extract.Adapter, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		parser:     parser,
		adapter:    adapter,
		normalizer: extract.NewNormalizer(extract.StandardDefaults()),
		publisher:  nopPublisher{},
		thresholds: fin.DefaultThresholds(),
		clock:      SystemClock{},
		ids:        UUIDv7Generator{},
		tracer:     noop.NewTracerProvider().Tracer("finflow/engine"),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.logger = e.logger.With("system", "engine")
	return e
}
