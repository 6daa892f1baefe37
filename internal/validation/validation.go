// Package validation checks a financial record against accounting rules and
// decides whether a human must review it.
//
// Check is pure and deterministic: the same record always yields the same
// issues in the same order. Every rule is evaluated; the result is the union.
package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/finflow/internal/fin"
)

// Tolerance is the maximum absolute gap allowed in assets = liabilities + equity.
const Tolerance = 1e-6

// Check evaluates the rules in fixed order:
//  1. accounting equation (EQ_IMBALANCE, error)
//  2. sign constraint on interest expense (NEGATIVE_NOT_ALLOWED, warn)
//  3. presence of critical fields (MISSING_REQUIRED, error)
//
// The returned slice is never nil.
func Check(r *fin.Record) []fin.Issue {
	issues := []fin.Issue{}
	if r == nil {
		r = fin.NewRecord("", "", fin.ScaleUnit)
	}

	assets := r.Balance.TotalAssets
	liabilities := r.Balance.TotalLiabilities
	equity := r.Balance.ShareholdersEquity
	if assets != nil && liabilities != nil && equity != nil {
		gap := *liabilities + *equity - *assets
		if math.Abs(gap) > Tolerance {
			issues = append(issues, fin.Issue{
				Code:     fin.IssueEquationImbalance,
				Message:  fmt.Sprintf("Liabilities + Equity != Assets (difference %g)", gap),
				Severity: fin.SeverityError,
				Fields: []string{
					fin.BalanceTotalAssets.String(),
					fin.BalanceTotalLiabilities.String(),
					fin.BalanceShareholdersEquity.String(),
				},
			})
		}
	}

	if ie := r.Income.InterestExpense; ie != nil && *ie < 0 {
		issues = append(issues, fin.Issue{
			Code:     fin.IssueNegativeNotAllowed,
			Message:  "Interest expense should not be negative",
			Severity: fin.SeverityWarn,
			Fields:   []string{fin.IncomeInterestExpense.String()},
		})
	}

	var missing []string
	for _, p := range fin.CriticalPaths {
		if r.Get(p) == nil {
			missing = append(missing, p.String())
		}
	}
	if len(missing) > 0 {
		issues = append(issues, fin.Issue{
			Code:     fin.IssueMissingRequired,
			Message:  "Missing critical fields: " + strings.Join(missing, ", "),
			Severity: fin.SeverityError,
			Fields:   missing,
		})
	}

	return issues
}

// LowConfidence reports whether any extracted field falls below the medium
// threshold. An empty field list counts as low confidence: nothing was
// extracted with any confidence at all.
func LowConfidence(fields []fin.ExtractedField, t fin.Thresholds) bool {
	if len(fields) == 0 {
		return true
	}
	for _, f := range fields {
		if f.Confidence < t.Medium {
			return true
		}
	}
	return false
}

// NeedsReview applies the gate policy: review is required when the run was
// flagged for low confidence or any issue of any severity is present. The
// flag is cleared once a reviewer has seen the run, so after a review round
// only issues can send it back.
func NeedsReview(flagged bool, issues []fin.Issue) bool {
	return flagged || len(issues) > 0
}
