package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reorder/internal/collection"
	"github.com/roach88/reorder/internal/config"
	"github.com/roach88/reorder/internal/metrics"
	"github.com/roach88/reorder/internal/reorder"
	"github.com/roach88/reorder/internal/scenario"
	"github.com/roach88/reorder/internal/store"
	"github.com/roach88/reorder/internal/store/memstore"
)

// DriverMemory selects the in-memory store. Data does not outlive the
// process, so it is mainly useful for serve and test.
const DriverMemory = "memory"

// settings resolves the configuration: schema defaults, then the --config
// file, then explicitly set flags.
func (o *RootOptions) settings(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if o.Config != "" {
		loaded, err := config.Load(o.Config)
		if err != nil {
			return cfg, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database.Path = o.Database
	}
	if flags.Changed("driver") {
		cfg.Database.Driver = o.Driver
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// formatter returns an OutputFormatter writing to the command's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// setupLogging installs a text handler on w as the default logger.
func setupLogging(cfg config.Config, w io.Writer) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// recordStore is what commands need from a backend.
type recordStore = scenario.Store

// openStore opens the configured store.
func openStore(cfg config.Config) (recordStore, error) {
	switch cfg.Database.Driver {
	case DriverMemory:
		return memstore.New(collection.Default().Tables()...), nil
	case store.DriverMattn, store.DriverModernc:
		if cfg.Database.Path == "" {
			return nil, NewExitError(ExitCommandError, "database path is required")
		}
		st, err := store.Open(cfg.Database.Path, store.WithDriver(cfg.Database.Driver))
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		return st, nil
	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown driver %q", cfg.Database.Driver))
	}
}

// session is an opened store plus an engine over it.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	store  recordStore
	engine *reorder.Engine
}

// openSession resolves settings, sets up logging and opens the store. The
// caller must call close.
func (o *RootOptions) openSession(cmd *cobra.Command, m *metrics.Metrics) (*session, error) {
	cfg, err := o.settings(cmd)
	if err != nil {
		return nil, err
	}
	logger := setupLogging(cfg, cmd.ErrOrStderr())

	logger.Debug("opening store", "driver", cfg.Database.Driver, "path", cfg.Database.Path)
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:    cfg,
		logger: logger,
		store:  st,
		engine: reorder.New(st, nil, reorder.WithLogger(logger), reorder.WithMetrics(m)),
	}, nil
}

func (s *session) close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing store", "error", err)
	}
}

// scopeFlags are shared by commands that accept a scope.
type scopeFlags struct {
	field string
	id    int64
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.field, "scope-field", "", "scope field (default: the table's first scope field)")
	cmd.Flags().Int64Var(&f.id, "scope-id", 0, "restrict to records with this scope value")
}

// scope returns nil unless --scope-id or --scope-field was set.
func (f *scopeFlags) scope(cmd *cobra.Command) *reorder.Scope {
	if !cmd.Flags().Changed("scope-id") && !cmd.Flags().Changed("scope-field") {
		return nil
	}
	return &reorder.Scope{Field: f.field, ID: f.id}
}

// parseFilters turns field=value pairs into an equality filter. Values
// "true"/"false" become booleans, integers become integers, anything else
// is a string.
func parseFilters(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		field, raw, ok := strings.Cut(pair, "=")
		if !ok || field == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid filter %q: want field=value", pair))
		}
		switch {
		case raw == "true" || raw == "false":
			out[field] = raw == "true"
		default:
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				out[field] = n
			} else {
				out[field] = raw
			}
		}
	}
	return out, nil
}

// commandContext returns the command's context, or Background.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
