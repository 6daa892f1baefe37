package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStart_EmitsOperationAndNodeSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer tp.Shutdown(context.Background())

	h := newHarness(t, balancedResult(), WithTracer(tp.Tracer("test")))
	h.start(t, "run-trace")

	var names []string
	for _, s := range rec.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{
		"node parse",
		"node extract",
		"node validate",
		"node review_gate",
		"node ratios",
		"engine.start",
	}, names)

	spans := rec.Ended()
	root := spans[len(spans)-1]
	for _, s := range spans[:len(spans)-1] {
		require.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID(), "%s is a child of engine.start", s.Name())
	}
}
