package engine

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/finflow/internal/checkpoint"
	"github.com/roach88/finflow/internal/fin"
	"github.com/roach88/finflow/internal/ratios"
)

// DefaultScenario names a what-if request that did not name itself.
const DefaultScenario = "default"

// StartRequest describes a new run. Empty IDs are generated.
type StartRequest struct {
	RunID   string         `json:"run_id,omitempty"`
	DocID   string         `json:"doc_id,omitempty"`
	DocPath string         `json:"doc_path" validate:"required"`
	Options fin.RunOptions `json:"options"`
}

// Change is one what-if edit. NewValue wins over Factor; a Factor multiplies
// the current value.
type Change struct {
	Path     string   `json:"path" yaml:"path" validate:"required"`
	NewValue *float64 `json:"new_value,omitempty" yaml:"new_value,omitempty"`
	Factor   *float64 `json:"factor,omitempty" yaml:"factor,omitempty"`
}

// WhatIfRequest recomputes ratios for a completed run under a scenario.
type WhatIfRequest struct {
	RunID    string   `json:"run_id" validate:"required"`
	Scenario string   `json:"scenario_name"`
	Changes  []Change `json:"changes" validate:"dive"`
}

func (e *Engine) startOp(ctx context.Context, op, runID string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "engine."+op, trace.WithAttributes(
		attribute.String("finflow.op", op),
		attribute.String("finflow.run_id", runID),
	))
}

func endOp(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Start creates a run and drives it until it suspends for review or
// completes.
func (e *Engine) Start(ctx context.Context, req StartRequest) (res *Result, err error) {
	if req.RunID == "" {
		req.RunID = e.ids.Generate()
	}
	if req.DocID == "" {
		req.DocID = e.ids.Generate()
	}

	ctx, span := e.startOp(ctx, "start", req.RunID)
	defer func() { endOp(span, err) }()

	unlock := e.locks.lock(req.RunID)
	defer unlock()

	run := &fin.Run{
		RunID:      req.RunID,
		DocID:      req.DocID,
		DocPath:    req.DocPath,
		Options:    req.Options,
		Node:       fin.NodeParse,
		Status:     fin.StatusRunning,
		Fields:     []fin.ExtractedField{},
		Issues:     []fin.Issue{},
		Audit:      []fin.AuditEntry{},
		Thresholds: e.thresholds,
		CreatedAt:  e.clock.Now(),
	}
	if err := e.checkpoint(ctx, run); err != nil {
		return nil, newError("start", run.RunID, err)
	}

	e.logger.InfoContext(ctx, "run started",
		"run_id", run.RunID,
		"doc_id", run.DocID,
		"path", run.DocPath,
	)

	if err := e.drive(ctx, run, &pass{}); err != nil {
		return nil, newError("start", run.RunID, err)
	}
	e.announce(ctx, run)
	return resultOf(run), nil
}

// Resume applies reviewer corrections to a suspended run and drives it
// again. The run may suspend once more if validation still fails.
//
// Every correction is checked before the run is touched: an invalid path or
// value fails the whole call and leaves the persisted run as it was.
func (e *Engine) Resume(ctx context.Context, runID string, corrections []Correction) (res *Result, err error) {
	ctx, span := e.startOp(ctx, "resume", runID)
	defer func() { endOp(span, err) }()

	unlock := e.locks.lock(runID)
	defer unlock()

	run, err := e.store.Get(ctx, runID)
	if err != nil {
		return nil, newError("resume", runID, err)
	}
	if run.Status != fin.StatusAwaitingReview || !run.Suspended() {
		return nil, newError("resume", runID, fmt.Errorf("%w: status %s", ErrNotAwaitingReview, run.Status))
	}

	edits, err := planCorrections(corrections)
	if err != nil {
		return nil, newError("resume", runID, err)
	}

	run.Node = run.Next
	run.Next = ""
	run.Status = fin.StatusRunning

	e.logger.InfoContext(ctx, "run resumed",
		"run_id", run.RunID,
		"corrections", len(corrections),
		"round", run.ReviewRounds,
	)
	e.publish(ctx, EventResumed, run, "")

	if err := e.drive(ctx, run, &pass{edits: edits}); err != nil {
		return nil, newError("resume", runID, err)
	}
	e.announce(ctx, run)
	return resultOf(run), nil
}

// Continue re-drives a stalled run from the node named in its last
// checkpoint. Nodes that already committed are not replayed, so corrections
// and audit entries written before the failure are kept.
func (e *Engine) Continue(ctx context.Context, runID string) (res *Result, err error) {
	ctx, span := e.startOp(ctx, "continue", runID)
	defer func() { endOp(span, err) }()

	unlock := e.locks.lock(runID)
	defer unlock()

	run, err := e.store.Get(ctx, runID)
	if err != nil {
		return nil, newError("continue", runID, err)
	}
	if !run.Stalled() {
		return nil, newError("continue", runID, fmt.Errorf("%w: status %s at %s", ErrNotStalled, run.Status, run.Node))
	}

	e.logger.InfoContext(ctx, "run continued",
		"run_id", run.RunID,
		"node", string(run.Node),
		"round", run.ReviewRounds,
	)
	e.publish(ctx, EventContinued, run, "")

	if err := e.drive(ctx, run, &pass{}); err != nil {
		return nil, newError("continue", runID, err)
	}
	e.announce(ctx, run)
	return resultOf(run), nil
}

// Status returns the persisted state of a run.
func (e *Engine) Status(ctx context.Context, runID string) (view *StatusView, err error) {
	ctx, span := e.startOp(ctx, "status", runID)
	defer func() { endOp(span, err) }()

	run, err := e.store.Get(ctx, runID)
	if err != nil {
		return nil, newError("status", runID, err)
	}
	return &StatusView{RunID: run.RunID, State: run, Interrupted: run.Suspended()}, nil
}

// WhatIf recomputes ratios for a completed run with the given changes
// applied to a copy of its record.
//
// The audit entries and the scenario result are persisted; the run's own
// record and ratios are not changed, so successive what-ifs always start
// from the same baseline.
func (e *Engine) WhatIf(ctx context.Context, req WhatIfRequest) (res *Result, err error) {
	ctx, span := e.startOp(ctx, "whatif", req.RunID)
	defer func() { endOp(span, err) }()

	unlock := e.locks.lock(req.RunID)
	defer unlock()

	run, err := e.store.Get(ctx, req.RunID)
	if err != nil {
		return nil, newError("whatif", req.RunID, err)
	}
	if run.Status != fin.StatusCompleted {
		return nil, newError("whatif", req.RunID, fmt.Errorf("%w: status %s", ErrNotCompleted, run.Status))
	}

	paths, err := planChanges(req.Changes)
	if err != nil {
		return nil, newError("whatif", req.RunID, err)
	}

	scenario := req.Scenario
	if scenario == "" {
		scenario = DefaultScenario
	}

	rec := run.Record.Clone()
	at := e.clock.Now()
	applied := 0
	for i, ch := range req.Changes {
		p := paths[i]
		next := changedValue(rec.Get(p), ch)
		if next == nil {
			continue
		}
		old, _ := rec.Set(p, next)
		run.Audit = append(run.Audit, fin.AuditEntry{
			Seq:      run.NextAuditSeq(),
			Path:     p.String(),
			Old:      old,
			New:      copyFloat(next),
			By:       fin.ActorUser,
			Scenario: scenario,
			At:       at,
		})
		applied++
	}

	rs := ratios.Compute(rec)
	if run.Scenarios == nil {
		run.Scenarios = make(map[string]fin.ScenarioResult)
	}
	run.Scenarios[scenario] = fin.ScenarioResult{Name: scenario, Record: rec, Ratios: rs, At: at}

	if err := e.checkpoint(ctx, run); err != nil {
		return nil, newError("whatif", req.RunID, err)
	}

	e.logger.InfoContext(ctx, "what-if computed",
		"run_id", run.RunID,
		"scenario", scenario,
		"changes", len(req.Changes),
		"applied", applied,
	)
	e.publish(ctx, EventWhatIf, run, scenario)

	return &Result{
		RunID:      run.RunID,
		DocID:      run.DocID,
		Status:     ResultReady,
		Degraded:   run.Degraded,
		Financials: rec,
		Ratios:     &rs,
		Audit:      run.Audit,
		Scenario:   scenario,
	}, nil
}

// List returns run summaries, most recently updated first.
func (e *Engine) List(ctx context.Context, filter checkpoint.ListFilter) (out []fin.RunSummary, err error) {
	ctx, span := e.startOp(ctx, "list", "")
	defer func() { endOp(span, err) }()

	out, err = e.store.List(ctx, filter)
	if err != nil {
		return nil, newError("list", "", err)
	}
	return out, nil
}

// History returns the checkpoint trail of a run.
func (e *Engine) History(ctx context.Context, runID string) (out []checkpoint.Checkpoint, err error) {
	ctx, span := e.startOp(ctx, "history", runID)
	defer func() { endOp(span, err) }()

	out, err = e.store.History(ctx, runID)
	if err != nil {
		return nil, newError("history", runID, err)
	}
	return out, nil
}

func (e *Engine) announce(ctx context.Context, run *fin.Run) {
	switch {
	case run.Suspended():
		e.logger.InfoContext(ctx, "run awaiting review",
			"run_id", run.RunID,
			"node", string(run.Node),
			"issues", len(run.Issues),
			"round", run.ReviewRounds,
		)
		e.publish(ctx, EventSuspended, run, "")
	case run.Status == fin.StatusCompleted:
		e.logger.InfoContext(ctx, "run completed",
			"run_id", run.RunID,
			"node", string(run.Node),
			"degraded", run.Degraded,
		)
		e.publish(ctx, EventCompleted, run, "")
	}
}

// planChanges resolves every path and rejects non-finite numbers before any
// change is applied.
func planChanges(changes []Change) ([]fin.Path, error) {
	paths := make([]fin.Path, len(changes))
	for i, ch := range changes {
		p, err := fin.ParsePath(ch.Path)
		if err != nil {
			return nil, fmt.Errorf("change %d: %w", i, err)
		}
		for _, v := range []*float64{ch.NewValue, ch.Factor} {
			if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
				return nil, fmt.Errorf("change %d (%s): %w: %v", i, ch.Path, fin.ErrInvalidValue, *v)
			}
		}
		paths[i] = p
	}
	return paths, nil
}

// changedValue returns the value a change sets, or nil when the change has
// nothing to apply.
func changedValue(current *float64, ch Change) *float64 {
	if ch.NewValue != nil {
		return copyFloat(ch.NewValue)
	}
	if ch.Factor != nil && current != nil {
		v := *current * *ch.Factor
		return &v
	}
	return nil
}
