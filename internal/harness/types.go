package harness

import "github.com/roach88/finflow/internal/fin"

// StepOutcome records what one engine call returned.
type StepOutcome struct {
	Action string `json:"action"` // "start", "review" or "whatif"
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Steps lists every engine call in order, the start included.
	Steps []StepOutcome `json:"steps"`

	// Nodes is the node of every checkpoint written, in order.
	Nodes []string `json:"nodes"`

	// Events lists the lifecycle events published, in order.
	Events []string `json:"events"`

	// Issues holds the issue codes of the last review payload.
	Issues []string `json:"issues"`

	Errors []string `json:"errors,omitempty"`

	// Run is the final persisted state.
	Run *fin.Run `json:"-"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepOutcome{},
		Nodes:  []string{},
		Events: []string{},
		Issues: []string{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
