package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	scenarios, err := LoadDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalSnapshot(t *testing.T) {
	s := &Scenario{Name: "tiny"}
	res := NewResult()
	res.Steps = append(res.Steps, StepOutcome{Action: "start", Error: "NO_SUCH_RUN"})

	data, err := MarshalSnapshot(NewSnapshot(s, res))
	require.NoError(t, err)
	assert.Equal(t, `{
  "scenario": "tiny",
  "run_id": "scenario-run",
  "steps": [
    {
      "action": "start",
      "error": "NO_SUCH_RUN"
    }
  ],
  "nodes": [],
  "events": [],
  "final_status": "",
  "degraded": [],
  "audit_count": 0
}
`, string(data))
}
