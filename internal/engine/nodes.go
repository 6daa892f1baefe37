package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/finflow/internal/extract"
	"github.com/roach88/finflow/internal/fin"
	"github.com/roach88/finflow/internal/parse"
	"github.com/roach88/finflow/internal/ratios"
	"github.com/roach88/finflow/internal/validation"
)

// pass holds node outputs that live only for one engine call: the parsed
// document between parse and extract, and the planned corrections for
// apply_feedback. Everything else flows through the persisted Run.
type pass struct {
	doc   *parse.Document
	edits []edit
}

// drive runs nodes from run.Node until the run suspends or reaches done,
// writing a checkpoint after every node.
func (e *Engine) drive(ctx context.Context, run *fin.Run, p *pass) error {
	for run.Node != fin.NodeDone && !run.Suspended() {
		if err := e.runNode(ctx, run, p); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runNode(ctx context.Context, run *fin.Run, p *pass) error {
	node := run.Node
	ctx, span := e.tracer.Start(ctx, "node "+string(node), trace.WithAttributes(
		attribute.String("finflow.run_id", run.RunID),
		attribute.String("finflow.node", string(node)),
	))
	defer span.End()

	started := time.Now()
	next, err := e.step(ctx, run, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	run.Node = next
	if next == fin.NodeDone {
		run.Status = fin.StatusCompleted
	}

	if err := e.checkpoint(ctx, run); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	e.logger.InfoContext(ctx, "node completed",
		"run_id", run.RunID,
		"node", string(node),
		"next", string(run.Node),
		"status", string(run.Status),
		"duration", time.Since(started),
	)
	return nil
}

func (e *Engine) step(ctx context.Context, run *fin.Run, p *pass) (fin.Node, error) {
	switch run.Node {
	case fin.NodeParse:
		if err := e.parseNode(ctx, run, p); err != nil {
			return "", err
		}
		return fin.NodeExtract, nil
	case fin.NodeExtract:
		if err := e.extractNode(ctx, run, p); err != nil {
			return "", err
		}
		return fin.NodeValidate, nil
	case fin.NodeValidate:
		e.validateNode(run)
		return fin.NodeReviewGate, nil
	case fin.NodeReviewGate:
		return e.gateNode(ctx, run), nil
	case fin.NodeApplyFeedback:
		e.applyFeedback(run, p.edits)
		p.edits = nil
		return fin.NodeValidate, nil
	case fin.NodeRatios:
		rs := ratios.Compute(run.Record)
		run.Ratios = &rs
		return fin.NodeDone, nil
	default:
		return "", fmt.Errorf("unknown node %q", run.Node)
	}
}

// checkpoint stamps and persists run. Put advances run.Version.
func (e *Engine) checkpoint(ctx context.Context, run *fin.Run) error {
	run.UpdatedAt = e.clock.Now()
	return e.store.Put(ctx, run)
}

// parseNode degrades on a parse failure unless the caller's context is done.
func (e *Engine) parseNode(ctx context.Context, run *fin.Run, p *pass) error {
	doc, err := e.parser.Parse(ctx, run.DocPath)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("parse: %w", ctx.Err())
		}
		e.logger.WarnContext(ctx, "parse failed, continuing without content",
			"run_id", run.RunID,
			"node", string(fin.NodeParse),
			"path", run.DocPath,
			"error", err,
		)
		run.MarkDegraded(fin.DegradedParse)
		doc = &parse.Document{MIMEType: parse.MIMEType(run.DocPath), Tables: []parse.Table{}}
	}
	p.doc = doc
	run.Source = fin.SourceSummary{
		MIMEType:  doc.MIMEType,
		Pages:     doc.Pages,
		Tables:    len(doc.Tables),
		TextChars: len(doc.Text),
	}
	return nil
}

// extractNode re-parses the document when the parse output did not survive
// the call, as happens when Continue picks a run up at extract.
func (e *Engine) extractNode(ctx context.Context, run *fin.Run, p *pass) error {
	if p.doc == nil {
		if err := e.parseNode(ctx, run, p); err != nil {
			return err
		}
	}
	req := extract.Request{
		DocPath:  run.DocPath,
		MIMEType: run.Source.MIMEType,
		Text:     p.doc.Text,
		Tables:   p.doc.Tables,
	}

	if run.Options.UseRemote && e.uploader != nil {
		uri, err := e.uploader.Upload(ctx, run.DocID, run.DocPath)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("upload: %w", ctx.Err())
			}
			e.logger.WarnContext(ctx, "upload failed, sending inline content",
				"run_id", run.RunID,
				"node", string(fin.NodeExtract),
				"error", err,
			)
			run.MarkDegraded(fin.DegradedUpload)
		} else {
			run.Source.RemoteURI = uri
			req.DocumentURI = uri
		}
	}

	res, err := e.adapter.Extract(ctx, req)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("extract: %w", ctx.Err())
	}
	if err != nil || res == nil {
		e.logger.WarnContext(ctx, "extraction unavailable, continuing with no fields",
			"run_id", run.RunID,
			"node", string(fin.NodeExtract),
			"error", err,
		)
		run.MarkDegraded(fin.DegradedExtraction)
		res = &extract.Result{}
	}

	period := res.Period
	if period == "" {
		period = run.Options.Period
	}
	currency := res.Currency
	if currency == "" {
		currency = run.Options.Currency
	}

	fields := e.normalizer.Fields(res.Fields)
	run.Fields = fields
	run.ScaleHint = res.ScaleHint
	run.Record = e.normalizer.Normalize(period, currency, res.ScaleHint, fields)
	run.Issues = []fin.Issue{}
	run.NeedReview = validation.LowConfidence(fields, run.Thresholds)
	return nil
}

func (e *Engine) validateNode(run *fin.Run) {
	run.Issues = validation.Check(run.Record)
	run.NeedReview = validation.NeedsReview(run.NeedReview, run.Issues)
}

// gateNode suspends the run when review is needed, unless the review cap
// has been reached.
func (e *Engine) gateNode(ctx context.Context, run *fin.Run) fin.Node {
	if !run.NeedReview {
		return fin.NodeRatios
	}
	if e.maxReviewRounds > 0 && run.ReviewRounds >= e.maxReviewRounds {
		e.logger.WarnContext(ctx, "review limit reached, computing ratios with open issues",
			"run_id", run.RunID,
			"node", string(fin.NodeReviewGate),
			"rounds", run.ReviewRounds,
			"issues", len(run.Issues),
		)
		run.MarkDegraded(fin.DegradedReviewLimit)
		return fin.NodeRatios
	}

	run.ReviewRounds++
	run.Next = fin.NodeApplyFeedback
	run.Status = fin.StatusAwaitingReview
	return fin.NodeReviewGate
}
