package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/finflow/internal/checkpoint"
)

// MigrationStatus is the output of the migrate command.
type MigrationStatus struct {
	Direction string `json:"direction"`
	Version   uint   `json:"version"`
	Dirty     bool   `json:"dirty"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|down|version]",
		Short: "Manage the Postgres checkpoint schema",
		Long: `Apply or roll back the embedded Postgres migrations, or print the
current schema version. Requires checkpoint.driver: postgres.

The API applies pending migrations at startup; this command exists for
deployments that migrate ahead of a rollout.

Examples:
  finflow migrate
  finflow migrate version --format json
  FINFLOW_CHECKPOINT_DSN=postgres://... finflow migrate down`,
		Args:          cobra.MaximumNArgs(1),
		ValidArgs:     []string{"up", "down", "version"},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			return runMigrate(rootOpts, direction, cmd)
		},
	}
}

func runMigrate(opts *RootOptions, direction string, cmd *cobra.Command) error {
	cfg, logger, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Checkpoint.Driver != "postgres" {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("migrate requires the postgres checkpoint driver, configured driver is %q", cfg.Checkpoint.Driver))
	}
	dsn := cfg.Checkpoint.DSN

	switch direction {
	case "up":
		err = checkpoint.Migrate(dsn, checkpoint.MigrateUp)
	case "down":
		err = checkpoint.Migrate(dsn, checkpoint.MigrateDown)
	case "version":
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown migration direction %q", direction))
	}
	if err != nil {
		return WrapExitError(ExitFailure, "migration failed", err)
	}

	version, dirty, err := checkpoint.MigrationVersion(dsn)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read schema version", err)
	}
	logger.Info("checkpoint schema", "direction", direction, "version", version, "dirty", dirty)

	status := MigrationStatus{Direction: direction, Version: version, Dirty: dirty}
	return opts.formatter(cmd).Print(status, func(w io.Writer) {
		fmt.Fprintf(w, "schema version %d", version)
		if dirty {
			fmt.Fprint(w, " (dirty)")
		}
		fmt.Fprintln(w)
	})
}
