package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/finflow/internal/fin"
	"github.com/roach88/finflow/internal/testutil"
)

func TestRun_ScenarioFiles(t *testing.T) {
	scenarios, err := LoadDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_IsDeterministic(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "imbalance_review.yaml"))
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, NewSnapshot(s, first), NewSnapshot(s, second))
	assert.Equal(t, first.Run.UpdatedAt, second.Run.UpdatedAt)
}

func TestRun_RecordsUnmetExpectations(t *testing.T) {
	s := &Scenario{
		Name:        "wrong_expectations",
		Description: "every expectation is wrong",
		Extraction:  testutil.BalancedExtraction(),
		Start:       &Expect{Status: "NEEDS_REVIEW"},
		Steps: []Step{
			{Review: &ReviewStep{}, Expect: &Expect{Status: "READY"}},
		},
		Assertions: []Assertion{
			{Type: AssertFinalStatus, Status: "AWAITING_REVIEW"},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expected status NEEDS_REVIEW, got READY")
	assert.Contains(t, result.Errors[1], "unexpected error")
	assert.Contains(t, result.Errors[2], "final_status")

	assert.Equal(t, []StepOutcome{
		{Action: "start", Status: "READY"},
		{Action: "review", Error: "NOT_AWAITING_REVIEW"},
	}, result.Steps)
}

func TestRun_ExpectedErrorMismatch(t *testing.T) {
	s := &Scenario{
		Name:        "error_mismatch",
		Description: "expects a failure that does not happen",
		Extraction:  testutil.ImbalancedExtraction(),
		Steps: []Step{
			{Review: &ReviewStep{}, Expect: &Expect{Error: "NO_SUCH_RUN"}},
		},
		Assertions: []Assertion{{Type: AssertFinalStatus, Status: "COMPLETED"}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected error NO_SUCH_RUN")
}

func TestRun_Settings(t *testing.T) {
	res := testutil.BalancedExtraction()
	res.Currency = ""
	res.ScaleHint = ""

	s := &Scenario{
		Name:        "settings",
		Description: "strict thresholds and custom defaults",
		Extraction:  res,
		Settings: Settings{
			Thresholds:      &fin.Thresholds{High: 0.99, Medium: 0.96},
			DefaultCurrency: "EUR",
			DefaultScale:    "MILES",
		},
		Assertions: []Assertion{{Type: AssertFinalStatus, Status: "AWAITING_REVIEW"}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "EUR", result.Run.Record.Currency)
	assert.Equal(t, fin.ScaleThousands, result.Run.Record.Scale)
	assert.Equal(t, fin.Thresholds{High: 0.99, Medium: 0.96}, result.Run.Thresholds)
}

func TestRun_ExtractionError(t *testing.T) {
	s := &Scenario{
		Name:            "outage",
		Description:     "adapter down",
		ExtractionError: "timeout",
		Assertions: []Assertion{
			{Type: AssertDegraded, Reasons: []string{fin.DegradedExtraction}},
		},
	}
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Run.Fields)
}
