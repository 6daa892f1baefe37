package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/finflow/internal/engine"
)

// ReviewOptions holds flags for the review command.
type ReviewOptions struct {
	*RootOptions
	File string
	Set  []string
}

// NewReviewCommand creates the review command.
func NewReviewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReviewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "review <run-id>",
		Short: "Submit reviewer corrections and resume a run",
		Long: `Apply corrections to a run waiting at the review gate and resume it.

Corrections come from --set flags, a YAML or JSON file, or both. A value of
"null" clears a field; meta.scale_confirmed and meta.currency_confirmed
take strings.

Examples:
  finflow review 0190c1e2-... --set balance.shareholders_equity=40
  finflow review 0190c1e2-... --set meta.scale_confirmed=THOUSANDS
  finflow review 0190c1e2-... --file corrections.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "YAML or JSON list of {path, new_value}")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "correction as path=value (repeatable)")

	return cmd
}

func runReview(opts *ReviewOptions, runID string, cmd *cobra.Command) error {
	corrections, err := loadCorrections(opts.File, opts.Set)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid corrections", err)
	}

	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := opts.formatter(cmd)
	out.VerboseLog("resuming %s with %d correction(s)", runID, len(corrections))

	res, err := a.Engine.Resume(commandContext(cmd), runID, corrections)
	if err != nil {
		return out.Fail("review rejected", err)
	}
	return out.Print(res, func(w io.Writer) { writeResult(w, res) })
}

// loadCorrections merges corrections from file with --set assignments.
// File entries come first.
func loadCorrections(file string, sets []string) ([]engine.Correction, error) {
	corrections := []engine.Correction{}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &corrections); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
	}
	for _, set := range sets {
		path, raw, err := splitAssignment(set)
		if err != nil {
			return nil, err
		}
		corrections = append(corrections, engine.Correction{Path: path, NewValue: scalarValue(raw)})
	}
	return corrections, nil
}

// splitAssignment splits "path=value".
func splitAssignment(s string) (string, string, error) {
	path, value, ok := strings.Cut(s, "=")
	path = strings.TrimSpace(path)
	if !ok || path == "" {
		return "", "", fmt.Errorf("expected path=value, got %q", s)
	}
	return path, strings.TrimSpace(value), nil
}

// scalarValue reads a command-line value as null, a number or a string.
func scalarValue(raw string) any {
	if raw == "null" {
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
