package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalScenario = `
name: minimal
description: "smallest valid scenario"
extraction:
  fields: []
assertions:
  - { type: final_status, status: AWAITING_REVIEW }
`

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "imbalance_review.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "imbalance_review", s.Name)
	require.NotNil(t, s.Extraction)
	assert.Len(t, s.Extraction.Fields, 5)
	require.Len(t, s.Steps, 4)
	require.NotNil(t, s.Steps[1].Review)
	assert.Equal(t, "balance.shareholders_equity", s.Steps[1].Review.Corrections[0].Path)
	require.NotNil(t, s.Steps[3].WhatIf)
	assert.Equal(t, 1.5, *s.Steps[3].WhatIf.Changes[0].Factor)
	assert.Equal(t, DefaultRunID, s.runID())
}

func TestLoadScenario_Minimal(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "minimal.yaml", minimalScenario)
	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Empty(t, s.Steps)
	assert.Empty(t, s.documentPath())
}

func TestLoadScenario_DocumentRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "q4.csv"), []byte("a\n1\n"), 0o644))
	path := writeScenario(t, dir, "doc.yaml", minimalScenario+"document: q4.csv\n")

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "q4.csv"), s.documentPath())
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "unknown key",
			body:    minimalScenario + "assertion: []\n",
			wantErr: "field assertion not found",
		},
		{
			name: "missing name",
			body: `
description: "x"
extraction: { fields: [] }
assertions: [{ type: final_status, status: COMPLETED }]
`,
			wantErr: "name is required",
		},
		{
			name: "missing extraction",
			body: `
name: x
description: "x"
assertions: [{ type: final_status, status: COMPLETED }]
`,
			wantErr: "extraction or extraction_error is required",
		},
		{
			name: "both extraction forms",
			body: `
name: x
description: "x"
extraction: { fields: [] }
extraction_error: "down"
assertions: [{ type: final_status, status: COMPLETED }]
`,
			wantErr: "mutually exclusive",
		},
		{
			name: "step with two actions",
			body: minimalScenario + `
steps:
  - review: { corrections: [] }
    whatif: { changes: [] }
`,
			wantErr: "exactly one of review or whatif",
		},
		{
			name: "step with neither action",
			body: minimalScenario + `
steps:
  - expect: { status: READY }
`,
			wantErr: "exactly one of review or whatif",
		},
		{
			name:    "bad expected status",
			body:    minimalScenario + "start: { status: DONE }\n",
			wantErr: "unknown status",
		},
		{
			name: "no assertions",
			body: `
name: x
description: "x"
extraction: { fields: [] }
assertions: []
`,
			wantErr: "assertions list is required",
		},
		{
			name: "unknown assertion",
			body: `
name: x
description: "x"
extraction: { fields: [] }
assertions: [{ type: trace_contains }]
`,
			wantErr: "unknown assertion type",
		},
		{
			name: "unknown ratio",
			body: `
name: x
description: "x"
extraction: { fields: [] }
assertions: [{ type: ratio, ratio: pe_ratio }]
`,
			wantErr: "unknown ratio",
		},
		{
			name: "undeclared field path",
			body: `
name: x
description: "x"
extraction: { fields: [] }
assertions: [{ type: field, path: balance.goodwill }]
`,
			wantErr: "assertions[0]",
		},
		{
			name: "inverted thresholds",
			body: minimalScenario + `
settings:
  thresholds: { high: 0.4, medium: 0.6 }
`,
			wantErr: "medium must not exceed high",
		},
		{
			name:    "missing document",
			body:    minimalScenario + "document: nowhere.pdf\n",
			wantErr: "document not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, t.TempDir(), "s.yaml", tt.body)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDir(t *testing.T) {
	scenarios, err := LoadDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"balanced_completes", "extraction_unavailable", "imbalance_review", "review_limit"}, names)
}

func TestLoadDir_ReportsBadFilesAndKeepsGoodOnes(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a.yaml", minimalScenario)
	writeScenario(t, dir, "b.yml", "name: broken\n")

	scenarios, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.yml")
	assert.Len(t, scenarios, 1)
}

func TestLoadDir_Empty(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	assert.Error(t, err)
}
