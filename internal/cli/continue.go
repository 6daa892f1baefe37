package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// NewContinueCommand creates the continue command.
func NewContinueCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "continue <run-id>",
		Short: "Re-drive a run left stalled by a failed call",
		Long: `Pick a run up from its last checkpoint and drive it on.

A run stalls when a checkpoint write fails or the process stops between
nodes. Its status stays RUNNING and review or what-if requests are
rejected. Nodes that committed before the failure are not run again, so
corrections already applied are kept.

Examples:
  finflow runs --status running
  finflow continue 0190c1e2-...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContinue(rootOpts, args[0], cmd)
		},
	}
}

func runContinue(opts *RootOptions, runID string, cmd *cobra.Command) error {
	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := opts.formatter(cmd)
	res, err := a.Engine.Continue(commandContext(cmd), runID)
	if err != nil {
		return out.Fail("continue rejected", err)
	}
	return out.Print(res, func(w io.Writer) { writeResult(w, res) })
}
