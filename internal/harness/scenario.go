package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/finflow/internal/engine"
	"github.com/roach88/finflow/internal/extract"
	"github.com/roach88/finflow/internal/fin"
)

// DefaultRunID is used when a scenario does not name its run.
const DefaultRunID = "scenario-run"

// Scenario is one end-to-end workflow case.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunID fixes the run id. Defaults to DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`

	// Document is the file to ingest, relative to the scenario file. When
	// empty a small CSV is generated.
	Document string `yaml:"document,omitempty"`

	// Extraction is what the adapter reports for the document.
	Extraction *extract.Result `yaml:"extraction,omitempty"`

	// ExtractionError makes the adapter fail with this message instead.
	ExtractionError string `yaml:"extraction_error,omitempty"`

	Options  StartOptions `yaml:"options,omitempty"`
	Settings Settings     `yaml:"settings,omitempty"`

	// Start is the expected outcome of starting the run.
	Start *Expect `yaml:"start,omitempty"`

	// Steps run in order after the start.
	Steps []Step `yaml:"steps,omitempty"`

	Assertions []Assertion `yaml:"assertions"`

	baseDir string
}

// StartOptions are the per-run hints given at ingest.
type StartOptions struct {
	Period   string `yaml:"period,omitempty"`
	Currency string `yaml:"currency,omitempty"`
}

// Settings override engine configuration for one scenario.
type Settings struct {
	Thresholds      *fin.Thresholds `yaml:"thresholds,omitempty"`
	MaxReviewRounds int             `yaml:"max_review_rounds,omitempty"`
	DefaultCurrency string          `yaml:"default_currency,omitempty"`
	DefaultScale    string          `yaml:"default_scale,omitempty"`
}

// Step is either a review or a what-if call.
type Step struct {
	Review *ReviewStep `yaml:"review,omitempty"`
	WhatIf *WhatIfStep `yaml:"whatif,omitempty"`
	Expect *Expect     `yaml:"expect,omitempty"`
}

// ReviewStep resumes the run with corrections.
type ReviewStep struct {
	Corrections []engine.Correction `yaml:"corrections"`
}

// WhatIfStep runs a named scenario against the completed run.
type WhatIfStep struct {
	Scenario string          `yaml:"scenario,omitempty"`
	Changes  []engine.Change `yaml:"changes"`
}

// Expect is the expected outcome of one call. Error is an engine error code
// such as NOT_AWAITING_REVIEW; when set the call must fail with it.
type Expect struct {
	Status string `yaml:"status,omitempty"`
	Error  string `yaml:"error,omitempty"`
}

// Assertion validates the final state. See the package documentation for
// the supported types.
type Assertion struct {
	Type string `yaml:"type"`

	Status   string   `yaml:"status,omitempty"`
	Ratio    string   `yaml:"ratio,omitempty"`
	Scenario string   `yaml:"scenario,omitempty"`
	Path     string   `yaml:"path,omitempty"`
	Value    *float64 `yaml:"value,omitempty"`
	Codes    []string `yaml:"codes,omitempty"`
	Nodes    []string `yaml:"nodes,omitempty"`
	Events   []string `yaml:"events,omitempty"`
	Reasons  []string `yaml:"reasons,omitempty"`
	Count    *int     `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalStatus = "final_status"
	AssertRatio       = "ratio"
	AssertField       = "field"
	AssertIssues      = "issues"
	AssertNodeOrder   = "node_order"
	AssertEventOrder  = "event_order"
	AssertAuditCount  = "audit_count"
	AssertDegraded    = "degraded"
)

// LoadScenario reads and parses a scenario YAML file. Unknown keys are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.baseDir = filepath.Dir(path)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", dir)
	}
	sort.Strings(paths)

	out := make([]*Scenario, 0, len(paths))
	var errs []error
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(p), err))
			continue
		}
		out = append(out, s)
	}
	return out, errors.Join(errs...)
}

// documentPath resolves Document against the scenario file.
func (s *Scenario) documentPath() string {
	if s.Document == "" || filepath.IsAbs(s.Document) {
		return s.Document
	}
	return filepath.Join(s.baseDir, s.Document)
}

func (s *Scenario) runID() string {
	if s.RunID == "" {
		return DefaultRunID
	}
	return s.RunID
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Extraction == nil && s.ExtractionError == "" {
		return fmt.Errorf("extraction or extraction_error is required")
	}
	if s.Extraction != nil && s.ExtractionError != "" {
		return fmt.Errorf("extraction and extraction_error are mutually exclusive")
	}
	if s.Document != "" {
		if _, err := os.Stat(s.documentPath()); err != nil {
			return fmt.Errorf("document not found: %s", s.Document)
		}
	}
	if s.Settings.Thresholds != nil && s.Settings.Thresholds.Medium > s.Settings.Thresholds.High {
		return fmt.Errorf("settings.thresholds: medium must not exceed high")
	}
	if s.Settings.DefaultScale != "" {
		if _, err := fin.ParseScale(s.Settings.DefaultScale); err != nil {
			return fmt.Errorf("settings.default_scale: %w", err)
		}
	}
	if err := validateExpect("start", s.Start); err != nil {
		return err
	}

	for i, step := range s.Steps {
		if (step.Review == nil) == (step.WhatIf == nil) {
			return fmt.Errorf("steps[%d]: exactly one of review or whatif is required", i)
		}
		if err := validateExpect(fmt.Sprintf("steps[%d].expect", i), step.Expect); err != nil {
			return err
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateExpect(where string, e *Expect) error {
	if e == nil {
		return nil
	}
	if e.Status != "" && e.Error != "" {
		return fmt.Errorf("%s: status and error are mutually exclusive", where)
	}
	switch engine.ResultStatus(e.Status) {
	case "", engine.ResultNeedsReview, engine.ResultReady:
	default:
		return fmt.Errorf("%s: unknown status %q", where, e.Status)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinalStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for final_status", index)
		}
	case AssertRatio:
		if a.Ratio == "" {
			return fmt.Errorf("assertions[%d]: ratio is required for ratio", index)
		}
		if _, ok := ratioNames[a.Ratio]; !ok {
			return fmt.Errorf("assertions[%d]: unknown ratio %q", index, a.Ratio)
		}
	case AssertField:
		if _, err := fin.ParsePath(a.Path); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertIssues:
		if a.Codes == nil {
			return fmt.Errorf("assertions[%d]: codes is required for issues (use [] for none)", index)
		}
	case AssertNodeOrder:
		if len(a.Nodes) == 0 {
			return fmt.Errorf("assertions[%d]: nodes list is required for node_order", index)
		}
	case AssertEventOrder:
		if a.Events == nil {
			return fmt.Errorf("assertions[%d]: events is required for event_order (use [] for none)", index)
		}
	case AssertAuditCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for audit_count", index)
		}
	case AssertDegraded:
		if a.Reasons == nil {
			return fmt.Errorf("assertions[%d]: reasons is required for degraded (use [] for none)", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
