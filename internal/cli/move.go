package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/reorder/internal/reorder"
)

// MoveOptions holds flags for the move command.
type MoveOptions struct {
	*RootOptions
	Position   string
	Target     int64
	OrderField string
	scope      scopeFlags
}

// NewMoveCommand creates the move command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MoveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "move <table> <source-id>",
		Short: "Move a record before, after, first or last",
		Long: `Move a record relative to a target record, or to the start or end of
its scope. Only the source record's order key is rewritten.

When no integer gap is left at the requested position the move fails
with REBALANCE_REQUIRED; run "reorder rebalance" on the scope and retry.

Examples:
  reorder move navigation 5 --position after --target 3 --scope-id 0
  reorder move notice 12 --position first --order-field pinOrder
  reorder move menu 7 --position last --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Position, "position", "p", "", "before, after, first or last")
	cmd.Flags().Int64VarP(&opts.Target, "target", "t", 0, "target record id for before/after")
	cmd.Flags().StringVar(&opts.OrderField, "order-field", "", "order field (default orderKey)")
	opts.scope.register(cmd)

	return cmd
}

func runMove(opts *MoveOptions, table, source string, cmd *cobra.Command) error {
	sourceID, err := strconv.ParseInt(source, 10, 64)
	if err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid source id %q", source))
	}
	pos, err := reorder.ParsePosition(opts.Position)
	if err != nil {
		return engineError("move", err)
	}

	req := reorder.MoveRequest{
		Table:      table,
		SourceID:   sourceID,
		Position:   pos,
		OrderField: opts.OrderField,
		Scope:      opts.scope.scope(cmd),
	}
	if cmd.Flags().Changed("target") {
		req.TargetID = &opts.Target
	}

	s, err := opts.openSession(cmd, nil)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := s.engine.Move(commandContext(cmd), req)
	if err != nil {
		return engineError("move", err)
	}

	return opts.formatter(cmd).Success(res.Payload(), func(w io.Writer) {
		if res.UpdatedCount == 0 {
			fmt.Fprintf(w, "%s#%d already in position (key %d)\n", table, sourceID, res.Key)
			return
		}
		fmt.Fprintf(w, "Moved %s#%d %s: key %d\n", table, sourceID, pos, res.Key)
	})
}
