package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/finflow/internal/checkpoint"
	"github.com/roach88/finflow/internal/fin"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show the persisted state of a run",
		Long: `Show where a run stopped, its status and any outstanding issues.

Example:
  finflow status 0190c1e2-...
  finflow status 0190c1e2-... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, args[0], cmd)
		},
	}
}

func runStatus(opts *RootOptions, runID string, cmd *cobra.Command) error {
	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := opts.formatter(cmd)
	view, err := a.Engine.Status(commandContext(cmd), runID)
	if err != nil {
		return out.Fail("status failed", err)
	}

	return out.Print(view, func(w io.Writer) {
		run := view.State
		fmt.Fprintf(w, "run %s (doc %s)\n", run.RunID, run.DocID)
		fmt.Fprintf(w, "  status:      %s\n", run.Status)
		fmt.Fprintf(w, "  node:        %s\n", run.Node)
		fmt.Fprintf(w, "  interrupted: %t\n", view.Interrupted)
		fmt.Fprintf(w, "  version:     %d\n", run.Version)
		for _, reason := range run.Degraded {
			fmt.Fprintf(w, "  degraded:    %s\n", reason)
		}
		for _, issue := range run.Issues {
			fmt.Fprintf(w, "  [%s] %s: %s\n", issue.Severity, issue.Code, issue.Message)
		}
		writeRatios(w, run.Ratios)
	})
}

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Status string
	Limit  int
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs, most recently updated first",
		Long: `List runs from the checkpoint store.

Use --status AWAITING_REVIEW to see the reviewer queue.

Examples:
  finflow runs
  finflow runs --status awaiting_review --limit 20`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status (RUNNING|AWAITING_REVIEW|COMPLETED)")
	cmd.Flags().IntVar(&opts.Limit, "limit", checkpoint.DefaultListLimit, "maximum runs listed")

	return cmd
}

func runList(opts *RunsOptions, cmd *cobra.Command) error {
	filter := checkpoint.ListFilter{Limit: opts.Limit}
	if opts.Status != "" {
		status := fin.Status(strings.ToUpper(opts.Status))
		switch status {
		case fin.StatusRunning, fin.StatusAwaitingReview, fin.StatusCompleted:
			filter.Status = status
		default:
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown status %q", opts.Status))
		}
	}

	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := opts.formatter(cmd)
	runs, err := a.Engine.List(commandContext(cmd), filter)
	if err != nil {
		return out.Fail("list failed", err)
	}
	if runs == nil {
		runs = []fin.RunSummary{}
	}

	return out.Print(runs, func(w io.Writer) {
		if len(runs) == 0 {
			fmt.Fprintln(w, "No runs found.")
			return
		}
		for _, r := range runs {
			fmt.Fprintf(w, "%s  %-16s %-15s v%-3d %s\n",
				r.RunID, r.Status, r.Node, r.Version, r.UpdatedAt.Format(time.RFC3339))
		}
	})
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <run-id>",
		Short: "Show the checkpoint trail of a run",
		Long: `Show every checkpoint written for a run, oldest first.

Example:
  finflow history 0190c1e2-...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, args[0], cmd)
		},
	}
}

func runHistory(opts *RootOptions, runID string, cmd *cobra.Command) error {
	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := opts.formatter(cmd)
	history, err := a.Engine.History(commandContext(cmd), runID)
	if err != nil {
		return out.Fail("history failed", err)
	}

	return out.Print(history, func(w io.Writer) {
		for _, cp := range history {
			fmt.Fprintf(w, "%3d  %-15s %-16s %s\n", cp.Seq, cp.Node, cp.Status, cp.Checksum)
		}
	})
}
