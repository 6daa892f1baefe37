package fin

import (
	"maps"
	"time"
)

// ExtractedField is one (path, value, confidence) triple reported by the
// extraction adapter, after normalization.
type ExtractedField struct {
	Path       string         `json:"path"`
	Label      string         `json:"label,omitempty"`
	Value      *float64       `json:"value"`
	Unit       string         `json:"unit,omitempty"`
	Confidence float64        `json:"confidence"`
	SourceHint map[string]any `json:"source_hint,omitempty"`
}

func (f ExtractedField) clone() ExtractedField {
	f.Value = copyFloat(f.Value)
	if f.SourceHint != nil {
		f.SourceHint = maps.Clone(f.SourceHint)
	}
	return f
}

// IssueCode enumerates validation findings.
type IssueCode string

const (
	IssueEquationImbalance  IssueCode = "EQ_IMBALANCE"
	IssueNegativeNotAllowed IssueCode = "NEGATIVE_NOT_ALLOWED"
	IssueMissingRequired    IssueCode = "MISSING_REQUIRED"
)

// Severity grades an Issue.
type Severity string

const (
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Issue is a validation finding. Issues are not errors: they drive the
// review gate and travel inside the review payload.
type Issue struct {
	Code     IssueCode `json:"code"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	Fields   []string  `json:"fields"`
}

// Actor identifies who made an audited change.
type Actor string

// ActorUser is the only actor today: reviewers and what-if callers.
const ActorUser Actor = "user"

// AuditEntry records one field mutation. Seq is 1-based and strictly
// increasing within a run; entries are never rewritten or pruned.
type AuditEntry struct {
	Seq      int64     `json:"seq"`
	Path     string    `json:"path"`
	Old      *float64  `json:"old"`
	New      *float64  `json:"new"`
	By       Actor     `json:"by"`
	Scenario string    `json:"scenario,omitempty"`
	At       time.Time `json:"at"`
}

// RatioSet is the full set of derived ratios. It is always recomputed from a
// Record and never updated incrementally.
type RatioSet struct {
	CurrentRatio      *float64 `json:"current_ratio"`
	QuickRatio        *float64 `json:"quick_ratio"`
	WorkingCapital    *float64 `json:"working_capital"`
	DebtToEquity      *float64 `json:"debt_to_equity"`
	InterestCoverage  *float64 `json:"interest_coverage"`
	GrossMargin       *float64 `json:"gross_margin"`
	OperatingMargin   *float64 `json:"operating_margin"`
	NetMargin         *float64 `json:"net_margin"`
	EBITDAMargin      *float64 `json:"ebitda_margin"`
	ROA               *float64 `json:"roa"`
	ROE               *float64 `json:"roe"`
	AssetTurnover     *float64 `json:"asset_turnover"`
	InventoryTurnover *float64 `json:"inventory_turnover"`
}

// Thresholds are the confidence cutoffs shown to reviewers. Fields below
// Medium force review.
type Thresholds struct {
	High   float64 `json:"high" yaml:"high"`
	Medium float64 `json:"medium" yaml:"medium"`
}

// DefaultThresholds returns the stock cutoffs (0.80 / 0.50).
func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.80, Medium: 0.50}
}
