package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/finflow/internal/engine"
)

// WhatIfOptions holds flags for the whatif command.
type WhatIfOptions struct {
	*RootOptions
	Scenario string
	File     string
	Set      []string
	Scale    []string
}

// NewWhatIfCommand creates the whatif command.
func NewWhatIfCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WhatIfOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "whatif <run-id>",
		Short: "Recompute ratios for a completed run under a scenario",
		Long: `Apply hypothetical changes to a completed run's financials and
recompute its ratios. The stored financials are not modified; the scenario
result is kept alongside them.

--set replaces a value; --scale multiplies the current one.

Examples:
  finflow whatif 0190c1e2-... --scenario stress --scale balance.total_liabilities=1.5
  finflow whatif 0190c1e2-... --set income.revenue=2500
  finflow whatif 0190c1e2-... --file scenario.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhatIf(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Scenario, "scenario", engine.DefaultScenario, "scenario name")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "YAML or JSON list of {path, new_value, factor}")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "replacement as path=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Scale, "scale", nil, "multiplier as path=factor (repeatable)")

	return cmd
}

func runWhatIf(opts *WhatIfOptions, runID string, cmd *cobra.Command) error {
	changes, err := loadChanges(opts.File, opts.Set, opts.Scale)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid changes", err)
	}

	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := opts.formatter(cmd)
	res, err := a.Engine.WhatIf(commandContext(cmd), engine.WhatIfRequest{
		RunID:    runID,
		Scenario: opts.Scenario,
		Changes:  changes,
	})
	if err != nil {
		return out.Fail("what-if rejected", err)
	}
	return out.Print(res, func(w io.Writer) { writeResult(w, res) })
}

// loadChanges merges changes from file with --set and --scale assignments.
func loadChanges(file string, sets, scales []string) ([]engine.Change, error) {
	changes := []engine.Change{}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &changes); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
	}
	for _, set := range sets {
		path, v, err := numericAssignment(set)
		if err != nil {
			return nil, err
		}
		changes = append(changes, engine.Change{Path: path, NewValue: &v})
	}
	for _, scale := range scales {
		path, f, err := numericAssignment(scale)
		if err != nil {
			return nil, err
		}
		changes = append(changes, engine.Change{Path: path, Factor: &f})
	}
	return changes, nil
}

func numericAssignment(s string) (string, float64, error) {
	path, raw, err := splitAssignment(s)
	if err != nil {
		return "", 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %q is not a number", path, raw)
	}
	return path, v, nil
}
