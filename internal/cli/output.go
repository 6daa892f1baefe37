package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/roach88/finflow/internal/checkpoint"
	"github.com/roach88/finflow/internal/engine"
	"github.com/roach88/finflow/internal/fin"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The workflow rejected the request or scenarios failed
	ExitCommandError = 2 // Command error (bad flags, config, unreachable backend)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the JSON envelope for every command's output.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses. Code is the engine
// error code when there is one.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; defaults to Writer
	Verbose   bool
}

// Print writes data as a JSON envelope, or calls text in text mode.
func (f *OutputFormatter) Print(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Fail reports err and returns the ExitError the command should return.
// Engine rejections exit with ExitFailure; anything else is a command error.
func (f *OutputFormatter) Fail(message string, err error) error {
	code := errorCode(err)
	exit := ExitCommandError
	if code != "INTERNAL" && code != string(engine.CodePersistence) {
		exit = ExitFailure
	}

	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: err.Error()},
		}); encErr != nil {
			return encErr
		}
	}
	return WrapExitError(exit, message, err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// errorCode names err for the JSON envelope.
func errorCode(err error) string {
	switch {
	case checkpoint.IsConflict(err):
		return "CONFLICT"
	case engine.CodeOf(err) != "":
		return string(engine.CodeOf(err))
	default:
		return "INTERNAL"
	}
}

// writeResult renders an engine result for humans.
func writeResult(w io.Writer, res *engine.Result) {
	fmt.Fprintf(w, "run %s (doc %s): %s\n", res.RunID, res.DocID, res.Status)
	for _, reason := range res.Degraded {
		fmt.Fprintf(w, "  degraded: %s\n", reason)
	}

	if res.Review != nil {
		fmt.Fprintf(w, "  period %s, currency %s, scale %s\n", res.Review.Period, res.Review.Currency, res.Review.ScaleHint)
		for _, issue := range res.Review.Issues {
			fmt.Fprintf(w, "  [%s] %s: %s\n", issue.Severity, issue.Code, issue.Message)
		}
		return
	}

	if res.Scenario != "" {
		fmt.Fprintf(w, "  scenario: %s\n", res.Scenario)
	}
	writeRatios(w, res.Ratios)
	if n := len(res.Audit); n > 0 {
		fmt.Fprintf(w, "  %d audited change(s)\n", n)
	}
}

// writeRatios prints the computed ratios in name order, skipping the ones
// that could not be computed.
func writeRatios(w io.Writer, ratios *fin.RatioSet) {
	if ratios == nil {
		return
	}
	data, err := json.Marshal(ratios)
	if err != nil {
		return
	}
	var values map[string]*float64
	if err := json.Unmarshal(data, &values); err != nil {
		return
	}
	names := make([]string, 0, len(values))
	for name, v := range values {
		if v != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-18s %.4f\n", name, *values[name])
	}
}
