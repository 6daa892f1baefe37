package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/finflow/internal/fin"
	"github.com/roach88/finflow/internal/testutil"
)

func completedResult() *Result {
	run := testutil.NewRun("r1")
	run.Status = fin.StatusCompleted
	run.Node = fin.NodeDone
	run.Record = testutil.BalancedRecord()
	run.Ratios = &fin.RatioSet{CurrentRatio: testutil.F(2), DebtToEquity: testutil.F(1.5)}
	run.Scenarios = map[string]fin.ScenarioResult{
		"stress": {Name: "stress", Ratios: fin.RatioSet{DebtToEquity: testutil.F(2.25)}},
	}
	run.Audit = []fin.AuditEntry{{Seq: 1, Path: "income.revenue", By: fin.ActorUser}}

	res := NewResult()
	res.Run = run
	res.Nodes = []string{"parse", "extract", "done"}
	res.Events = []string{"run.completed"}
	res.Issues = []string{"EQ_IMBALANCE"}
	return res
}

func count(n int) *int { return &n }

func TestEvaluateAssertions_Pass(t *testing.T) {
	assertions := []Assertion{
		{Type: AssertFinalStatus, Status: "COMPLETED"},
		{Type: AssertRatio, Ratio: "current_ratio", Value: testutil.F(2.0000001)},
		{Type: AssertRatio, Ratio: "debt_to_equity", Scenario: "stress", Value: testutil.F(2.25)},
		{Type: AssertRatio, Ratio: "roe"},
		{Type: AssertField, Path: "balance.total_assets", Value: testutil.F(1000)},
		{Type: AssertField, Path: "cashflow.free_cf"},
		{Type: AssertIssues, Codes: []string{"EQ_IMBALANCE"}},
		{Type: AssertNodeOrder, Nodes: []string{"parse", "extract", "done"}},
		{Type: AssertEventOrder, Events: []string{"run.completed"}},
		{Type: AssertAuditCount, Count: count(1)},
		{Type: AssertDegraded, Reasons: []string{}},
	}
	assert.Empty(t, EvaluateAssertions(completedResult(), assertions))
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{"status", Assertion{Type: AssertFinalStatus, Status: "RUNNING"}, "Actual: COMPLETED"},
		{"ratio value", Assertion{Type: AssertRatio, Ratio: "current_ratio", Value: testutil.F(3)}, "Expected: 3"},
		{"ratio defined", Assertion{Type: AssertRatio, Ratio: "current_ratio"}, "Expected: undefined"},
		{"ratio missing", Assertion{Type: AssertRatio, Ratio: "roe", Value: testutil.F(1)}, "Actual: undefined"},
		{"scenario missing", Assertion{Type: AssertRatio, Ratio: "roe", Scenario: "calm"}, "not run"},
		{"field", Assertion{Type: AssertField, Path: "balance.total_assets", Value: testutil.F(1)}, "Actual: 1000"},
		{"issues", Assertion{Type: AssertIssues, Codes: []string{}}, "Actual: [EQ_IMBALANCE]"},
		{"node order", Assertion{Type: AssertNodeOrder, Nodes: []string{"extract", "parse", "done"}}, "node_order"},
		{"events", Assertion{Type: AssertEventOrder, Events: []string{"run.suspended"}}, "Expected: [run.suspended]"},
		{"audit", Assertion{Type: AssertAuditCount, Count: count(0)}, "Actual: 1 entries"},
		{"degraded", Assertion{Type: AssertDegraded, Reasons: []string{fin.DegradedParse}}, "parse_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failures := EvaluateAssertions(completedResult(), []Assertion{tt.assertion})
			require.Len(t, failures, 1)
			assert.Contains(t, failures[0], tt.want)
			assert.Contains(t, failures[0], "assertions[0]")
		})
	}
}

func TestEvaluateAssertions_ContinuesAfterFailure(t *testing.T) {
	failures := EvaluateAssertions(completedResult(), []Assertion{
		{Type: AssertFinalStatus, Status: "RUNNING"},
		{Type: AssertFinalStatus, Status: "COMPLETED"},
		{Type: AssertAuditCount, Count: count(9)},
	})
	require.Len(t, failures, 2)
	assert.Contains(t, failures[0], "assertions[0]")
	assert.Contains(t, failures[1], "assertions[2]")
}

func TestEvaluateAssertions_NoRun(t *testing.T) {
	failures := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertFinalStatus, Status: "COMPLETED"}})
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "a persisted run")
}

func TestAssertionError_Message(t *testing.T) {
	err := &AssertionError{Type: "ratio roe", Expected: "0.5", Actual: "undefined"}
	assert.Equal(t, "Assertion failed: ratio roe\n  Expected: 0.5\n  Actual: undefined", err.Error())
}
