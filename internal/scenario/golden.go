package scenario

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/reorder/internal/ir"
)

// Snapshot renders a run as canonical JSON: the steps in order and the
// final (id, key) pairs of every fixture collection in display order.
func Snapshot(name string, res *Result) ([]byte, error) {
	steps := make([]any, len(res.Steps))
	for i, s := range res.Steps {
		m := map[string]any{
			"op":           s.Op,
			"opId":         s.OpID,
			"table":        s.Table,
			"updatedCount": s.UpdatedCount,
		}
		if s.Key != nil {
			m["key"] = *s.Key
		}
		if s.Error != "" {
			m["error"] = s.Error
		}
		steps[i] = m
	}

	state := make(map[string]any, len(res.State))
	for table, entries := range res.State {
		rows := make([]any, len(entries))
		for i, e := range entries {
			rows[i] = map[string]any{"id": e.ID, "key": e.Key}
		}
		state[table] = rows
	}

	return ir.MarshalCanonical(map[string]any{
		"scenario": name,
		"steps":    steps,
		"state":    state,
	})
}

// AssertGolden compares the run's snapshot with
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/scenario -update
func AssertGolden(t *testing.T, name string, res *Result) {
	t.Helper()

	data, err := Snapshot(name, res)
	if err != nil {
		t.Fatalf("snapshot %s: %v", name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
