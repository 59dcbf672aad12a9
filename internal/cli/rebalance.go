package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/reorder/internal/queryir"
	"github.com/roach88/reorder/internal/reorder"
)

// RebalanceOptions holds flags for the rebalance command.
type RebalanceOptions struct {
	*RootOptions
	OrderField string
	OrderBy    string
	Direction  string
	Filters    []string
}

// NewRebalanceCommand creates the rebalance command.
func NewRebalanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RebalanceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rebalance <table>",
		Short: "Rewrite order keys to 10, 20, 30, ...",
		Long: `Rewrite the order key of every matching record to evenly spaced values
in --order-by order. All records are rewritten in one transaction.

Without --filter the whole table is rebalanced as a single sequence;
filter on the scope field to rebalance one scope.

Examples:
  reorder rebalance navigation --filter parentId=0
  reorder rebalance navigation --filter isDeleted=false --order-by createdTime
  reorder rebalance notice --order-field pinOrder --order-by pinOrder --direction desc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebalance(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OrderField, "order-field", "", "order field to rewrite (default orderKey)")
	cmd.Flags().StringVar(&opts.OrderBy, "order-by", "", "field deciding the new order (default id)")
	cmd.Flags().StringVar(&opts.Direction, "direction", "asc", "asc or desc")
	cmd.Flags().StringArrayVarP(&opts.Filters, "filter", "f", nil, "field=value equality filter (repeatable)")

	return cmd
}

func runRebalance(opts *RebalanceOptions, table string, cmd *cobra.Command) error {
	dir, err := queryir.ParseDirection(opts.Direction)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid direction", err)
	}
	fields, err := parseFilters(opts.Filters)
	if err != nil {
		return err
	}
	filter, err := reorder.FilterFromMap(fields)
	if err != nil {
		return engineError("rebalance", err)
	}

	s, err := opts.openSession(cmd, nil)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := s.engine.Rebalance(commandContext(cmd), reorder.RebalanceRequest{
		Table:      table,
		OrderField: opts.OrderField,
		OrderBy:    opts.OrderBy,
		Direction:  dir,
		Filter:     filter,
	})
	if err != nil {
		return engineError("rebalance", err)
	}

	return opts.formatter(cmd).Success(res.Payload(), func(w io.Writer) {
		fmt.Fprintf(w, "Rebalanced %s.%s: %d record(s) by %s %s\n",
			res.Table, res.OrderField, res.UpdatedCount, res.OrderBy, res.Direction)
	})
}
