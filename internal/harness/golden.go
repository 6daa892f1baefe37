package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the golden-file view of a scenario run. It holds only values
// that are deterministic under the harness clock and ids.
type Snapshot struct {
	Scenario    string        `json:"scenario"`
	RunID       string        `json:"run_id"`
	Steps       []StepOutcome `json:"steps"`
	Nodes       []string      `json:"nodes"`
	Events      []string      `json:"events"`
	FinalStatus string        `json:"final_status"`
	Degraded    []string      `json:"degraded"`
	AuditCount  int           `json:"audit_count"`
}

// NewSnapshot builds the snapshot of result.
func NewSnapshot(scenario *Scenario, result *Result) Snapshot {
	snap := Snapshot{
		Scenario: scenario.Name,
		RunID:    scenario.runID(),
		Steps:    result.Steps,
		Nodes:    result.Nodes,
		Events:   result.Events,
		Degraded: []string{},
	}
	if run := result.Run; run != nil {
		snap.FinalStatus = string(run.Status)
		snap.AuditCount = len(run.Audit)
		if run.Degraded != nil {
			snap.Degraded = run.Degraded
		}
	}
	return snap
}

// MarshalSnapshot renders snap as indented JSON with a trailing newline.
func MarshalSnapshot(snap Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(NewSnapshot(scenario, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
