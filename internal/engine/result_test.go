package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/finflow/internal/fin"
	"github.com/roach88/finflow/internal/testutil"
)

func decodeObject(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestResult_SuspendedShape(t *testing.T) {
	run := testutil.NewRun("r1")
	run.Node = fin.NodeReviewGate
	run.Next = fin.NodeApplyFeedback
	run.Status = fin.StatusAwaitingReview
	run.Issues = []fin.Issue{{Code: fin.IssueEquationImbalance, Severity: fin.SeverityError}}

	obj := decodeObject(t, resultOf(run))

	assert.Equal(t, "NEEDS_REVIEW", obj["status"])
	assert.Equal(t, "r1", obj["run_id"])
	assert.Equal(t, "2024-12-31", obj["period"])
	assert.Equal(t, "USD", obj["currency"])
	assert.Equal(t, "UNIT", obj["scale_hint"])
	assert.Contains(t, obj, "issues")
	assert.Contains(t, obj, "fields")
	assert.Equal(t, map[string]any{"high": 0.8, "medium": 0.5}, obj["confidence_thresholds"])
	assert.NotContains(t, obj, "financials")
	assert.NotContains(t, obj, "degraded")
}

func TestResult_ReadyShape(t *testing.T) {
	run := testutil.NewRun("r1")
	run.Node = fin.NodeDone
	run.Status = fin.StatusCompleted
	run.Record = testutil.BalancedRecord()
	run.Ratios = &fin.RatioSet{CurrentRatio: testutil.F(2)}
	run.Audit = nil
	run.MarkDegraded(fin.DegradedParse)

	obj := decodeObject(t, resultOf(run))

	assert.Equal(t, "READY", obj["status"])
	assert.Contains(t, obj, "financials")
	assert.Equal(t, []any{}, obj["audit"])
	assert.Equal(t, []any{"parse_failed"}, obj["degraded"])
	assert.NotContains(t, obj, "issues")
	assert.NotContains(t, obj, "scenario")

	ratios := obj["ratios"].(map[string]any)
	assert.Equal(t, 2.0, ratios["current_ratio"])
	assert.Nil(t, ratios["roe"])
}

func TestStatusView_JSON(t *testing.T) {
	run := testutil.NewRun("r1")
	run.Next = fin.NodeApplyFeedback

	obj := decodeObject(t, StatusView{RunID: "r1", State: run, Interrupted: true})
	assert.Equal(t, true, obj["interrupted"])
	assert.Equal(t, "apply_feedback", obj["state"].(map[string]any)["next"])
}
