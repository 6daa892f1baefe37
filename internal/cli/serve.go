package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/finflow/internal/api"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Host      string
	Port      int
	AccessLog bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the finflow HTTP API.

Opens the configured checkpoint store, document store, extraction provider
and event bus, then serves /api/v1 until interrupted.

Example:
  finflow serve --config finflow.yaml
  finflow serve --port 9000 --access-log`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "", "listen host (overrides config)")
	cmd.Flags().IntVar(&opts.Port, "port", 0, "listen port (overrides config)")
	cmd.Flags().BoolVar(&opts.AccessLog, "access-log", false, "log every request to stderr")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Error("error closing backends", "error", closeErr)
		}
	}()

	server := a.Config.Server
	if opts.Host != "" {
		server.Host = opts.Host
	}
	if opts.Port != 0 {
		server.Port = opts.Port
	}

	apiOpts := []api.Option{
		api.WithLogger(a.Logger),
		api.WithBodyLimit(server.BodyLimitMB << 20),
	}
	if opts.AccessLog {
		apiOpts = append(apiOpts, api.WithAccessLog(cmd.ErrOrStderr()))
	}
	srv := api.New(a.Engine, a.Docs, apiOpts...)

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			a.Logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	addr := server.Addr()
	a.Logger.Info("api starting", "addr", addr, "checkpoint", a.Config.Checkpoint.Driver)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s. Press Ctrl-C to stop.\n", addr)

	if err := srv.Serve(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "server error", err)
	}

	a.Logger.Info("api stopped gracefully")
	return nil
}
