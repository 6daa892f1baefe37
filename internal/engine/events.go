package engine

import (
	"context"
	"time"

	"github.com/roach88/finflow/internal/fin"
)

// EventType names a run lifecycle event.
type EventType string

const (
	EventSuspended EventType = "run.suspended"
	EventResumed   EventType = "run.resumed"
	EventContinued EventType = "run.continued"
	EventCompleted EventType = "run.completed"
	EventWhatIf    EventType = "run.whatif"
)

// Event is a run lifecycle notification.
type Event struct {
	Type     EventType  `json:"type"`
	RunID    string     `json:"run_id"`
	DocID    string     `json:"doc_id"`
	Status   fin.Status `json:"status"`
	Node     fin.Node   `json:"node"`
	Issues   int        `json:"issues"`
	Round    int        `json:"review_round"`
	Scenario string     `json:"scenario,omitempty"`
	Degraded []string   `json:"degraded,omitempty"`
	At       time.Time  `json:"at"`
}

// Publisher delivers lifecycle events. Failures are logged by the engine
// and never fail the operation.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, ev Event) error

// Publish calls f(ctx, ev).
func (f PublisherFunc) Publish(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

func (e *Engine) publish(ctx context.Context, typ EventType, run *fin.Run, scenario string) {
	ev := Event{
		Type:     typ,
		RunID:    run.RunID,
		DocID:    run.DocID,
		Status:   run.Status,
		Node:     run.Node,
		Issues:   len(run.Issues),
		Round:    run.ReviewRounds,
		Scenario: scenario,
		Degraded: run.Degraded,
		At:       run.UpdatedAt,
	}
	if err := e.publisher.Publish(ctx, ev); err != nil {
		e.logger.WarnContext(ctx, "publish event failed",
			"run_id", run.RunID,
			"event", string(typ),
			"error", err,
		)
	}
}
