package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/roach88/reorder/internal/collection"
	"github.com/roach88/reorder/internal/ir"
	"github.com/roach88/reorder/internal/queryir"
	"github.com/roach88/reorder/internal/reorder"
	"github.com/roach88/reorder/internal/store"
	"github.com/roach88/reorder/internal/testutil"
)

// Store is a backend a scenario can seed and run against.
type Store interface {
	store.RecordStore
	store.Loader
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool

	Steps []StepResult

	// Errors lists failed expectations and assertions.
	Errors []string

	// State is the final display order of every fixture collection.
	State map[string][]reorder.Entry
}

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// StepResult is what one step did.
type StepResult struct {
	Op           string
	OpID         string
	Table        string
	UpdatedCount int

	// Key is the source's new key, for moves that succeeded.
	Key *int64

	// Error is the engine error code, empty on success.
	Error string
}

// Seed inserts fixture rows, translating external field names to columns.
// Collections are seeded in name order and rows in file order.
func Seed(ctx context.Context, l store.Loader, registry *collection.Registry, fixtures map[string][]map[string]any) (int, error) {
	names := make([]string, 0, len(fixtures))
	for name := range fixtures {
		names = append(names, name)
	}
	sort.Strings(names)

	n := 0
	for _, name := range names {
		desc, err := registry.Lookup(name)
		if err != nil {
			return n, fmt.Errorf("fixtures: %w", err)
		}
		for i, fields := range fixtures[name] {
			row := make(ir.IRObject, len(fields))
			for field, raw := range fields {
				col, err := desc.Column(field)
				if err != nil {
					return n, fmt.Errorf("fixtures.%s[%d]: %w", name, i, err)
				}
				v, err := ir.FromAny(raw)
				if err != nil {
					return n, fmt.Errorf("fixtures.%s[%d].%s: %w", name, i, field, err)
				}
				row[col] = v
			}
			if _, err := l.Insert(ctx, desc.Table, row); err != nil {
				return n, fmt.Errorf("fixtures.%s[%d]: %w", name, i, err)
			}
			n++
		}
	}
	return n, nil
}

// Run seeds s with the scenario's fixtures, applies its steps and checks
// its assertions. Operation ids are sequential, so two runs of the same
// scenario produce identical results. The returned error covers setup
// failures only; expectation mismatches are reported in Result.
func Run(ctx context.Context, sc *Scenario, s Store, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	registry := collection.Default()
	if _, err := Seed(ctx, s, registry, sc.Fixtures); err != nil {
		return nil, err
	}

	e := reorder.New(s, registry,
		reorder.WithLogger(logger),
		reorder.WithOpIDGenerator(testutil.NewSequentialOpIDGenerator("op")),
	)

	res := &Result{Pass: true, State: make(map[string][]reorder.Entry)}
	for i, step := range sc.Steps {
		sr, err := runStep(ctx, e, step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		res.Steps = append(res.Steps, sr)
		checkExpect(res, i, step.Expect, sr)
	}

	for name := range sc.Fixtures {
		entries, err := e.List(ctx, reorder.ScanRequest{Table: name})
		if err != nil {
			return nil, fmt.Errorf("read state of %s: %w", name, err)
		}
		res.State[name] = entries
	}

	for i, a := range sc.Assertions {
		if err := checkAssertion(ctx, e, a); err != nil {
			res.addError("assertions[%d] (%s %s): %v", i, a.Type, a.Table, err)
		}
	}
	return res, nil
}

// runStep applies one step. Engine errors become part of the StepResult;
// only malformed steps are returned as errors.
func runStep(ctx context.Context, e *reorder.Engine, step Step) (StepResult, error) {
	if step.Move != nil {
		m := step.Move
		sr := StepResult{Op: "move", Table: m.Table}
		out, err := e.Move(ctx, m.Request())
		sr.OpID = out.OpID
		if err != nil {
			sr.Error = errorCode(err)
			return sr, nil
		}
		sr.UpdatedCount = out.UpdatedCount
		sr.Key = &out.Key
		return sr, nil
	}

	r := step.Rebalance
	dir, err := queryir.ParseDirection(r.Direction)
	if err != nil {
		return StepResult{}, err
	}
	filter, err := reorder.FilterFromMap(r.Filters)
	if err != nil {
		return StepResult{}, err
	}
	sr := StepResult{Op: "rebalance", Table: r.Table}
	out, err := e.Rebalance(ctx, reorder.RebalanceRequest{
		Table:      r.Table,
		OrderField: r.OrderField,
		OrderBy:    r.OrderBy,
		Direction:  dir,
		Filter:     filter,
	})
	sr.OpID = out.OpID
	if err != nil {
		sr.Error = errorCode(err)
		return sr, nil
	}
	sr.UpdatedCount = out.UpdatedCount
	return sr, nil
}

func errorCode(err error) string {
	if code := reorder.CodeOf(err); code != "" {
		return string(code)
	}
	return string(reorder.CodeStoreFailure)
}

func checkExpect(res *Result, i int, want *Expect, got StepResult) {
	if want == nil {
		if got.Error != "" {
			res.addError("steps[%d]: unexpected error %s", i, got.Error)
		}
		return
	}
	if want.Error != got.Error {
		res.addError("steps[%d]: error = %q, want %q", i, got.Error, want.Error)
	}
	if want.UpdatedCount != nil && *want.UpdatedCount != got.UpdatedCount {
		res.addError("steps[%d]: updatedCount = %d, want %d", i, got.UpdatedCount, *want.UpdatedCount)
	}
	if want.Key != nil {
		if got.Key == nil {
			res.addError("steps[%d]: no key, want %d", i, *want.Key)
		} else if *got.Key != *want.Key {
			res.addError("steps[%d]: key = %d, want %d", i, *got.Key, *want.Key)
		}
	}
}

func checkAssertion(ctx context.Context, e *reorder.Engine, a Assertion) error {
	req := reorder.ScanRequest{Table: a.Table}
	if a.ScopeID != nil {
		req.Scope = &reorder.Scope{ID: *a.ScopeID}
	}
	entries, err := e.List(ctx, req)
	if err != nil {
		return err
	}

	switch a.Type {
	case AssertOrder:
		ids := make([]int64, len(entries))
		for i, entry := range entries {
			ids[i] = entry.ID
		}
		if !slices.Equal(ids, a.IDs) {
			return fmt.Errorf("order = %v, want %v", ids, a.IDs)
		}
	case AssertKeys:
		got := make(map[int64]int64, len(entries))
		for _, entry := range entries {
			got[entry.ID] = entry.Key
		}
		ids := make([]int64, 0, len(a.Keys))
		for id := range a.Keys {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			key, ok := got[id]
			if !ok {
				return fmt.Errorf("record %d not found", id)
			}
			if key != a.Keys[id] {
				return fmt.Errorf("record %d key = %d, want %d", id, key, a.Keys[id])
			}
		}
	}
	return nil
}
