package engine

import (
	"encoding/json"

	"github.com/roach88/finflow/internal/fin"
)

// ResultStatus is the caller-facing outcome of an engine call.
type ResultStatus string

const (
	// ResultNeedsReview means the run is suspended at the review gate.
	ResultNeedsReview ResultStatus = "NEEDS_REVIEW"

	// ResultReady means ratios are available.
	ResultReady ResultStatus = "READY"
)

// ReviewPayload is everything a reviewer needs to correct a run.
type ReviewPayload struct {
	Period     string               `json:"period"`
	Currency   string               `json:"currency"`
	ScaleHint  string               `json:"scale_hint"`
	Issues     []fin.Issue          `json:"issues"`
	Fields     []fin.ExtractedField `json:"fields"`
	Thresholds fin.Thresholds       `json:"confidence_thresholds"`
}

// Result is returned by Start, Resume and WhatIf. Exactly one of Review or
// (Financials, Ratios, Audit) is populated, according to Status.
type Result struct {
	RunID    string
	DocID    string
	Status   ResultStatus
	Degraded []string

	Review *ReviewPayload

	Financials *fin.Record
	Ratios     *fin.RatioSet
	Audit      []fin.AuditEntry
	Scenario   string
}

type suspendedJSON struct {
	RunID  string       `json:"run_id"`
	DocID  string       `json:"doc_id"`
	Status ResultStatus `json:"status"`
	ReviewPayload
	Degraded []string `json:"degraded,omitempty"`
}

type readyJSON struct {
	RunID      string           `json:"run_id"`
	DocID      string           `json:"doc_id"`
	Status     ResultStatus     `json:"status"`
	Scenario   string           `json:"scenario,omitempty"`
	Financials *fin.Record      `json:"financials"`
	Ratios     *fin.RatioSet    `json:"ratios"`
	Audit      []fin.AuditEntry `json:"audit"`
	Degraded   []string         `json:"degraded,omitempty"`
}

// MarshalJSON flattens the review payload into the suspended shape, or emits
// the ready shape.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Status == ResultNeedsReview && r.Review != nil {
		return json.Marshal(suspendedJSON{
			RunID:         r.RunID,
			DocID:         r.DocID,
			Status:        r.Status,
			ReviewPayload: *r.Review,
			Degraded:      r.Degraded,
		})
	}
	audit := r.Audit
	if audit == nil {
		audit = []fin.AuditEntry{}
	}
	return json.Marshal(readyJSON{
		RunID:      r.RunID,
		DocID:      r.DocID,
		Status:     r.Status,
		Scenario:   r.Scenario,
		Financials: r.Financials,
		Ratios:     r.Ratios,
		Audit:      audit,
		Degraded:   r.Degraded,
	})
}

// resultOf projects a persisted run onto a Result.
func resultOf(run *fin.Run) *Result {
	res := &Result{
		RunID:    run.RunID,
		DocID:    run.DocID,
		Degraded: run.Degraded,
	}
	if run.Suspended() {
		res.Status = ResultNeedsReview
		res.Review = reviewPayload(run)
		return res
	}
	res.Status = ResultReady
	res.Financials = run.Record
	res.Ratios = run.Ratios
	res.Audit = run.Audit
	return res
}

func reviewPayload(run *fin.Run) *ReviewPayload {
	p := &ReviewPayload{
		ScaleHint:  run.ScaleHint,
		Issues:     run.Issues,
		Fields:     run.Fields,
		Thresholds: run.Thresholds,
	}
	if run.Record != nil {
		p.Period = run.Record.Period
		p.Currency = run.Record.Currency
		p.ScaleHint = string(run.Record.Scale)
	}
	if p.Issues == nil {
		p.Issues = []fin.Issue{}
	}
	if p.Fields == nil {
		p.Fields = []fin.ExtractedField{}
	}
	return p
}

// StatusView is the read-only projection returned by Status.
type StatusView struct {
	RunID       string   `json:"run_id"`
	State       *fin.Run `json:"state"`
	Interrupted bool     `json:"interrupted"`
}
