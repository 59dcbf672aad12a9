package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/reorder/internal/ir"
	"github.com/roach88/reorder/internal/reorder"
)

// ScanOptions holds flags for the check and list commands.
type ScanOptions struct {
	*RootOptions
	OrderField string
	Filters    []string
	Limit      int
	scope      scopeFlags
}

func (o *ScanOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.OrderField, "order-field", "", "order field (default orderKey)")
	cmd.Flags().StringArrayVarP(&o.Filters, "filter", "f", nil, "field=value equality filter (repeatable)")
	o.scope.register(cmd)
}

func (o *ScanOptions) request(table string, cmd *cobra.Command) (reorder.ScanRequest, error) {
	fields, err := parseFilters(o.Filters)
	if err != nil {
		return reorder.ScanRequest{}, err
	}
	filter, err := reorder.FilterFromMap(fields)
	if err != nil {
		return reorder.ScanRequest{}, engineError("scan", err)
	}
	return reorder.ScanRequest{
		Table:      table,
		OrderField: o.OrderField,
		Scope:      o.scope.scope(cmd),
		Filter:     filter,
		Limit:      o.Limit,
	}, nil
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <table>",
		Short: "Report duplicate keys and exhausted gaps",
		Long: `Scan an ordering and report duplicate keys, negative keys and the
smallest gap between neighbours. Nothing is written.

Examples:
  reorder check navigation --scope-id 0
  reorder check notice --order-field pinOrder --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}
	opts.register(cmd)

	return cmd
}

func runCheck(opts *ScanOptions, table string, cmd *cobra.Command) error {
	req, err := opts.request(table, cmd)
	if err != nil {
		return err
	}

	s, err := opts.openSession(cmd, nil)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := s.engine.Check(commandContext(cmd), req)
	if err != nil {
		return engineError("check", err)
	}

	return opts.formatter(cmd).Success(res.Payload(), func(w io.Writer) {
		fmt.Fprintf(w, "%s.%s: %d record(s)\n", res.Table, res.OrderField, res.Count)
		fmt.Fprintf(w, "  duplicates: %d\n", res.Duplicates)
		fmt.Fprintf(w, "  negatives:  %d\n", res.Negatives)
		fmt.Fprintf(w, "  min gap:    %d\n", res.MinGap)
		if res.NeedsRebalance {
			fmt.Fprintln(w, "✗ needs rebalance")
		} else {
			fmt.Fprintln(w, "✓ healthy")
		}
	})
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "List records in display order",
		Long: `List records ordered by order key, then id.

Examples:
  reorder list navigation --scope-id 0
  reorder list todo --scope-field ownerId --scope-id 8 --limit 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, args[0], cmd)
		},
	}
	opts.register(cmd)
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of records (0 = all)")

	return cmd
}

func runList(opts *ScanOptions, table string, cmd *cobra.Command) error {
	req, err := opts.request(table, cmd)
	if err != nil {
		return err
	}

	s, err := opts.openSession(cmd, nil)
	if err != nil {
		return err
	}
	defer s.close()

	entries, err := s.engine.List(commandContext(cmd), req)
	if err != nil {
		return engineError("list", err)
	}

	payload := map[string]any{"table": table, "items": reorder.EntriesPayload(entries)}
	return opts.formatter(cmd).Success(payload, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tKEY\tTITLE")
		for _, e := range entries {
			title, _ := e.Fields["title"].(ir.IRString)
			fmt.Fprintf(tw, "%d\t%d\t%s\n", e.ID, e.Key, title)
		}
		tw.Flush()
	})
}
