package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/roach88/reorder/internal/api"
	"github.com/roach88/reorder/internal/metrics"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reorder API over HTTP",
		Long: `Serve move, rebalance, check and list over HTTP, plus /health and
Prometheus metrics on /metrics. Stops gracefully on SIGINT or SIGTERM.

Examples:
  reorder serve --db ./admin.db --addr :8080
  reorder serve --config reorder.cue --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s, err := opts.openSession(cmd, metrics.New(reg))
	if err != nil {
		return err
	}
	defer s.close()

	addr := s.cfg.Server.Addr
	if cmd.Flags().Changed("addr") {
		addr = opts.Addr
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.New(s.engine,
		api.WithLogger(s.logger),
		api.WithGatherer(reg),
		api.WithTimeout(s.cfg.Server.RequestTimeout()),
	)

	s.logger.Info("server starting", "addr", addr, "driver", s.cfg.Database.Driver, "db", s.cfg.Database.Path)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s. Press Ctrl-C to stop.\n", addr)

	if err := srv.Run(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "server error", err)
	}

	s.logger.Info("server stopped gracefully")
	return nil
}
