package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/roach88/finflow/internal/checkpoint"
	"github.com/roach88/finflow/internal/engine"
	"github.com/roach88/finflow/internal/extract"
	"github.com/roach88/finflow/internal/fin"
	"github.com/roach88/finflow/internal/parse"
	"github.com/roach88/finflow/internal/testutil"
)

// placeholderCSV is ingested when a scenario names no document. Its content
// does not matter: extraction comes from the scenario.
const placeholderCSV = "line,amount\nrevenue,0\n"

// eventRecorder captures published lifecycle events.
type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *eventRecorder) Publish(_ context.Context, ev engine.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, string(ev.Type))
	return nil
}

func (r *eventRecorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.events...)
}

// Harness executes one scenario.
type Harness struct {
	engine   *engine.Engine
	events   *eventRecorder
	scenario *Scenario
	docPath  string
}

// Run executes a scenario against a fresh in-memory store and returns the
// result. An error is returned only when the scenario cannot be executed
// at all; failed expectations are recorded in the result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	workDir, err := os.MkdirTemp("", "finflow-scenario-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	docPath := scenario.documentPath()
	if docPath == "" {
		docPath = filepath.Join(workDir, scenario.Name+".csv")
		if err := os.WriteFile(docPath, []byte(placeholderCSV), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write document: %w", err)
		}
	}

	h := newHarness(scenario, docPath)
	result := NewResult()

	h.start(ctx, result)
	for i, step := range scenario.Steps {
		h.step(ctx, i, step, result)
	}
	if err := h.collect(ctx, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(s *Scenario, docPath string) *Harness {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var adapter extract.Adapter = extract.Static{Result: s.Extraction}
	if s.ExtractionError != "" {
		adapter = extract.Static{Err: fmt.Errorf("%w: %s", extract.ErrServiceUnavailable, s.ExtractionError)}
	}

	events := &eventRecorder{}
	opts := []engine.Option{
		engine.WithClock(testutil.NewStepClock(testutil.Epoch, time.Second)),
		engine.WithPublisher(events),
		engine.WithLogger(logger),
		engine.WithMaxReviewRounds(s.Settings.MaxReviewRounds),
	}
	if s.Settings.Thresholds != nil {
		opts = append(opts, engine.WithThresholds(*s.Settings.Thresholds))
	}
	if s.Settings.DefaultCurrency != "" || s.Settings.DefaultScale != "" {
		scale, _ := fin.ParseScale(s.Settings.DefaultScale)
		opts = append(opts, engine.WithDefaults(extract.Defaults{
			Currency: s.Settings.DefaultCurrency,
			Scale:    scale,
		}))
	}

	eng := engine.New(checkpoint.NewMemoryStore(), parse.New(logger), adapter, opts...)
	return &Harness{engine: eng, events: events, scenario: s, docPath: docPath}
}

func (h *Harness) start(ctx context.Context, result *Result) {
	runID := h.scenario.runID()
	res, err := h.engine.Start(ctx, engine.StartRequest{
		RunID:   runID,
		DocID:   "doc-" + runID,
		DocPath: h.docPath,
		Options: fin.RunOptions{
			Period:   h.scenario.Options.Period,
			Currency: h.scenario.Options.Currency,
		},
	})
	h.record(result, "start", h.scenario.Start, res, err)
}

func (h *Harness) step(ctx context.Context, i int, step Step, result *Result) {
	runID := h.scenario.runID()
	var (
		res    *engine.Result
		err    error
		action string
	)
	switch {
	case step.Review != nil:
		action = "review"
		res, err = h.engine.Resume(ctx, runID, step.Review.Corrections)
	case step.WhatIf != nil:
		action = "whatif"
		res, err = h.engine.WhatIf(ctx, engine.WhatIfRequest{
			RunID:    runID,
			Scenario: step.WhatIf.Scenario,
			Changes:  step.WhatIf.Changes,
		})
	}
	h.record(result, fmt.Sprintf("%s (steps[%d])", action, i), step.Expect, res, err)
	result.Steps[len(result.Steps)-1].Action = action
}

// record appends the outcome and checks it against expect.
func (h *Harness) record(result *Result, label string, expect *Expect, res *engine.Result, err error) {
	outcome := StepOutcome{Action: label}
	if err != nil {
		outcome.Error = string(engine.CodeOf(err))
		if outcome.Error == "" {
			outcome.Error = err.Error()
		}
	} else {
		outcome.Status = string(res.Status)
		if res.Review != nil {
			result.Issues = issueCodes(res.Review.Issues)
		}
	}
	result.Steps = append(result.Steps, outcome)

	switch {
	case expect == nil:
		if err != nil {
			result.AddError(fmt.Sprintf("%s: unexpected error: %v", label, err))
		}
	case expect.Error != "":
		if outcome.Error != expect.Error {
			result.AddError(fmt.Sprintf("%s: expected error %s, got %q", label, expect.Error, outcome.Error))
		}
	default:
		if err != nil {
			result.AddError(fmt.Sprintf("%s: unexpected error: %v", label, err))
		} else if expect.Status != "" && outcome.Status != expect.Status {
			result.AddError(fmt.Sprintf("%s: expected status %s, got %s", label, expect.Status, outcome.Status))
		}
	}
}

// collect reads the final run, its checkpoint trail and the events.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	runID := h.scenario.runID()
	view, err := h.engine.Status(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to read final state: %w", err)
	}
	result.Run = view.State

	history, err := h.engine.History(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	for _, cp := range history {
		result.Nodes = append(result.Nodes, string(cp.Node))
	}
	result.Events = h.events.list()
	return nil
}

func issueCodes(issues []fin.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, string(is.Code))
	}
	return out
}
