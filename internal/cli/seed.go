package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/reorder/internal/collection"
	"github.com/roach88/reorder/internal/scenario"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <fixtures.yaml>",
		Short: "Insert fixture records into the database",
		Long: `Insert the records of a YAML fixture file. Rows are keyed by external
field names:

  fixtures:
    navigation:
      - {title: Home, parentId: 0, orderKey: 10}
      - {title: About, parentId: 0, orderKey: 20}

Examples:
  reorder seed --db ./admin.db fixtures.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runSeed(opts *RootOptions, path string, cmd *cobra.Command) error {
	fixtures, err := scenario.LoadFixtures(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load fixtures", err)
	}

	s, err := opts.openSession(cmd, nil)
	if err != nil {
		return err
	}
	defer s.close()

	n, err := scenario.Seed(commandContext(cmd), s.store, collection.Default(), fixtures)
	if err != nil {
		return WrapExitError(ExitFailure, "seed failed", err)
	}
	s.logger.Info("fixtures seeded", "records", n, "path", path)

	return opts.formatter(cmd).Success(map[string]any{"inserted": n}, func(w io.Writer) {
		fmt.Fprintf(w, "Seeded %d record(s)\n", n)
	})
}
