package harness

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/roach88/finflow/internal/fin"
)

// Tolerance bounds float comparison in ratio and field assertions.
const Tolerance = 1e-6

var ratioNames = map[string]func(*fin.RatioSet) *float64{
	"current_ratio":      func(r *fin.RatioSet) *float64 { return r.CurrentRatio },
	"quick_ratio":        func(r *fin.RatioSet) *float64 { return r.QuickRatio },
	"working_capital":    func(r *fin.RatioSet) *float64 { return r.WorkingCapital },
	"debt_to_equity":     func(r *fin.RatioSet) *float64 { return r.DebtToEquity },
	"interest_coverage":  func(r *fin.RatioSet) *float64 { return r.InterestCoverage },
	"gross_margin":       func(r *fin.RatioSet) *float64 { return r.GrossMargin },
	"operating_margin":   func(r *fin.RatioSet) *float64 { return r.OperatingMargin },
	"net_margin":         func(r *fin.RatioSet) *float64 { return r.NetMargin },
	"ebitda_margin":      func(r *fin.RatioSet) *float64 { return r.EBITDAMargin },
	"roa":                func(r *fin.RatioSet) *float64 { return r.ROA },
	"roe":                func(r *fin.RatioSet) *float64 { return r.ROE },
	"asset_turnover":     func(r *fin.RatioSet) *float64 { return r.AssetTurnover },
	"inventory_turnover": func(r *fin.RatioSet) *float64 { return r.InventoryTurnover },
}

// AssertionError describes one failed assertion.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("Assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages. Evaluation continues after a failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	run := result.Run
	if run == nil {
		return &AssertionError{Type: a.Type, Expected: "a persisted run", Actual: "none"}
	}

	switch a.Type {
	case AssertFinalStatus:
		if string(run.Status) != a.Status {
			return &AssertionError{Type: a.Type, Expected: a.Status, Actual: string(run.Status)}
		}
	case AssertRatio:
		return assertRatio(run, a)
	case AssertField:
		p, err := fin.ParsePath(a.Path)
		if err != nil {
			return err
		}
		var got *float64
		if run.Record != nil {
			got = run.Record.Get(p)
		}
		return compareValue(a.Type+" "+a.Path, a.Value, got)
	case AssertIssues:
		return compareList(a.Type, a.Codes, result.Issues)
	case AssertNodeOrder:
		return compareList(a.Type, a.Nodes, result.Nodes)
	case AssertEventOrder:
		return compareList(a.Type, a.Events, result.Events)
	case AssertAuditCount:
		if len(run.Audit) != *a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d entries", *a.Count),
				Actual:   fmt.Sprintf("%d entries", len(run.Audit)),
			}
		}
	case AssertDegraded:
		return compareList(a.Type, a.Reasons, run.Degraded)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func assertRatio(run *fin.Run, a Assertion) error {
	lookup := ratioNames[a.Ratio]
	label := a.Type + " " + a.Ratio

	if a.Scenario != "" {
		sc, ok := run.Scenarios[a.Scenario]
		if !ok {
			return &AssertionError{Type: label, Expected: "scenario " + a.Scenario, Actual: "not run"}
		}
		rs := sc.Ratios
		return compareValue(label, a.Value, lookup(&rs))
	}

	if run.Ratios == nil {
		return &AssertionError{Type: label, Expected: "computed ratios", Actual: "none"}
	}
	return compareValue(label, a.Value, lookup(run.Ratios))
}

func compareValue(label string, want, got *float64) error {
	switch {
	case want == nil && got == nil:
		return nil
	case want == nil:
		return &AssertionError{Type: label, Expected: "undefined", Actual: fmt.Sprintf("%g", *got)}
	case got == nil:
		return &AssertionError{Type: label, Expected: fmt.Sprintf("%g", *want), Actual: "undefined"}
	case math.Abs(*want-*got) > Tolerance:
		return &AssertionError{Type: label, Expected: fmt.Sprintf("%g", *want), Actual: fmt.Sprintf("%g", *got)}
	}
	return nil
}

func compareList(label string, want, got []string) error {
	if len(want) == 0 && len(got) == 0 {
		return nil
	}
	if !reflect.DeepEqual(want, got) {
		return &AssertionError{
			Type:     label,
			Expected: "[" + strings.Join(want, ", ") + "]",
			Actual:   "[" + strings.Join(got, ", ") + "]",
		}
	}
	return nil
}
