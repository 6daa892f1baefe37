package fin

import "time"

// Status is the lifecycle state of a Run.
type Status string

const (
	StatusRunning        Status = "RUNNING"
	StatusAwaitingReview Status = "AWAITING_REVIEW"
	StatusCompleted      Status = "COMPLETED"
)

// Node names a step of the workflow state machine.
type Node string

const (
	NodeParse         Node = "parse"
	NodeExtract       Node = "extract"
	NodeValidate      Node = "validate"
	NodeReviewGate    Node = "review_gate"
	NodeApplyFeedback Node = "apply_feedback"
	NodeRatios        Node = "ratios"
	NodeDone          Node = "done"
)

// Degradation reasons recorded on a Run.
const (
	DegradedParse       = "parse_failed"
	DegradedExtraction  = "extraction_unavailable"
	DegradedUpload      = "upload_failed"
	DegradedReviewLimit = "review_limit_reached"
)

// SourceSummary describes what the parse node produced.
type SourceSummary struct {
	MIMEType  string `json:"mime_type,omitempty"`
	Pages     int    `json:"pages"`
	Tables    int    `json:"tables"`
	TextChars int    `json:"text_chars"`
	RemoteURI string `json:"remote_uri,omitempty"`
}

// ScenarioResult is the outcome of the most recent what-if run under a name.
type ScenarioResult struct {
	Name   string    `json:"name"`
	Record *Record   `json:"record"`
	Ratios RatioSet  `json:"ratios"`
	At     time.Time `json:"at"`
}

// RunOptions are caller-supplied hints for a run.
type RunOptions struct {
	Period    string `json:"period,omitempty"`
	Currency  string `json:"currency,omitempty"`
	UseRemote bool   `json:"use_remote,omitempty"`
}

// Run is the full persisted state of one workflow execution.
//
// Next is the continuation: it is non-empty exactly when the run is
// suspended at the review gate. Version is the checkpoint sequence this
// snapshot was read from and is maintained by the checkpoint store.
type Run struct {
	RunID        string                    `json:"run_id"`
	DocID        string                    `json:"doc_id"`
	DocPath      string                    `json:"doc_path"`
	Options      RunOptions                `json:"options"`
	Node         Node                      `json:"node"`
	Next         Node                      `json:"next,omitempty"`
	Status       Status                    `json:"status"`
	Source       SourceSummary             `json:"source"`
	Record       *Record                   `json:"record,omitempty"`
	ScaleHint    string                    `json:"scale_hint,omitempty"`
	Fields       []ExtractedField          `json:"fields"`
	Issues       []Issue                   `json:"issues"`
	NeedReview   bool                      `json:"need_review"`
	Ratios       *RatioSet                 `json:"ratios,omitempty"`
	Audit        []AuditEntry              `json:"audit"`
	Thresholds   Thresholds                `json:"thresholds"`
	ReviewRounds int                       `json:"review_rounds"`
	Scenarios    map[string]ScenarioResult `json:"scenarios,omitempty"`
	Degraded     []string                  `json:"degraded,omitempty"`
	Version      int64                     `json:"version"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// Suspended reports whether the run is parked at the review gate.
func (r *Run) Suspended() bool {
	return r.Next != ""
}

// Stalled reports whether the run was left RUNNING between nodes by a call
// that failed or never returned. apply_feedback is excluded: it is only
// entered with the corrections Resume carries.
func (r *Run) Stalled() bool {
	return r.Status == StatusRunning && r.Next == "" &&
		r.Node != NodeDone && r.Node != NodeApplyFeedback
}

// NextAuditSeq returns the sequence number for the next audit entry.
func (r *Run) NextAuditSeq() int64 {
	if len(r.Audit) == 0 {
		return 1
	}
	return r.Audit[len(r.Audit)-1].Seq + 1
}

// MarkDegraded records reason once.
func (r *Run) MarkDegraded(reason string) {
	for _, d := range r.Degraded {
		if d == reason {
			return
		}
	}
	r.Degraded = append(r.Degraded, reason)
}

// Summary returns the listing projection of r.
func (r *Run) Summary() RunSummary {
	return RunSummary{
		RunID:     r.RunID,
		DocID:     r.DocID,
		Status:    r.Status,
		Node:      r.Node,
		Version:   r.Version,
		UpdatedAt: r.UpdatedAt,
	}
}

// RunSummary is the listing projection of a Run.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	DocID     string    `json:"doc_id"`
	Status    Status    `json:"status"`
	Node      Node      `json:"node"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}
