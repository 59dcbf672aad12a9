// Package scenario runs YAML-described reorder scenarios: load fixture
// rows, apply a sequence of moves and rebalances, then check the resulting
// order. The same format seeds databases from the CLI.
package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reorder/internal/reorder"
)

// Scenario is one reorder test case.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description says what the scenario demonstrates.
	Description string `yaml:"description"`

	// Fixtures maps a collection name to rows keyed by external field
	// names. Rows are inserted in file order before the first step.
	Fixtures map[string][]map[string]any `yaml:"fixtures"`

	// Steps are applied in order. A failing step does not stop the run;
	// its error code is recorded and compared with the expectation.
	Steps []Step `yaml:"steps,omitempty"`

	// Assertions check the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is exactly one operation plus an optional expectation.
type Step struct {
	Move      *MoveStep      `yaml:"move,omitempty"`
	Rebalance *RebalanceStep `yaml:"rebalance,omitempty"`
	Expect    *Expect        `yaml:"expect,omitempty"`
}

// MoveStep mirrors the Move invocation surface.
type MoveStep struct {
	Table      string `yaml:"table"`
	SourceID   int64  `yaml:"sourceId"`
	TargetID   *int64 `yaml:"targetId,omitempty"`
	Position   string `yaml:"position"`
	OrderField string `yaml:"orderField,omitempty"`
	ScopeID    *int64 `yaml:"scopeId,omitempty"`
	ScopeField string `yaml:"scopeField,omitempty"`
}

// Request converts the step to an engine request.
func (m *MoveStep) Request() reorder.MoveRequest {
	req := reorder.MoveRequest{
		Table:      m.Table,
		SourceID:   m.SourceID,
		TargetID:   m.TargetID,
		Position:   reorder.Position(m.Position),
		OrderField: m.OrderField,
	}
	if m.ScopeID != nil {
		req.Scope = &reorder.Scope{Field: m.ScopeField, ID: *m.ScopeID}
	}
	return req
}

// RebalanceStep mirrors the Rebalance invocation surface.
type RebalanceStep struct {
	Table      string         `yaml:"table"`
	OrderField string         `yaml:"orderField,omitempty"`
	OrderBy    string         `yaml:"orderBy,omitempty"`
	Direction  string         `yaml:"direction,omitempty"`
	Filters    map[string]any `yaml:"filters,omitempty"`
}

// Expect is compared with a step's outcome. Omitted fields are not checked.
type Expect struct {
	UpdatedCount *int   `yaml:"updatedCount,omitempty"`
	Key          *int64 `yaml:"key,omitempty"`

	// Error is the expected engine error code, e.g. NOT_FOUND.
	Error string `yaml:"error,omitempty"`
}

// Assertion checks the final state of one collection.
type Assertion struct {
	// Type is AssertOrder or AssertKeys.
	Type string `yaml:"type"`

	Table string `yaml:"table"`

	// ScopeID restricts the check to one scope of the table's default
	// scope field.
	ScopeID *int64 `yaml:"scopeId,omitempty"`

	// IDs is the expected display order (AssertOrder).
	IDs []int64 `yaml:"ids,omitempty"`

	// Keys maps ids to expected order keys (AssertKeys). Unlisted ids are
	// not checked.
	Keys map[int64]int64 `yaml:"keys,omitempty"`
}

// Assertion types.
const (
	AssertOrder = "order"
	AssertKeys  = "keys"
)

// Load reads and validates a scenario file. Unknown fields are rejected so
// that typos fail loudly.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates scenario YAML.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validate(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

func validate(sc *Scenario) error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(sc.Fixtures) == 0 {
		return fmt.Errorf("fixtures are required")
	}

	for i, step := range sc.Steps {
		switch {
		case step.Move != nil && step.Rebalance != nil:
			return fmt.Errorf("steps[%d]: move and rebalance are mutually exclusive", i)
		case step.Move == nil && step.Rebalance == nil:
			return fmt.Errorf("steps[%d]: one of move or rebalance is required", i)
		}
	}

	for i, a := range sc.Assertions {
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required", i)
		}
		switch a.Type {
		case AssertOrder:
			if len(a.IDs) == 0 {
				return fmt.Errorf("assertions[%d]: ids are required for %s", i, AssertOrder)
			}
		case AssertKeys:
			if len(a.Keys) == 0 {
				return fmt.Errorf("assertions[%d]: keys are required for %s", i, AssertKeys)
			}
		case "":
			return fmt.Errorf("assertions[%d]: type is required", i)
		default:
			return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
		}
	}
	return nil
}

// FixtureFile is a YAML document holding fixtures only, as used by the
// seed command.
type FixtureFile struct {
	Fixtures map[string][]map[string]any `yaml:"fixtures"`
}

// LoadFixtures reads a fixture file.
func LoadFixtures(path string) (map[string][]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}

	var f FixtureFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(f.Fixtures) == 0 {
		return nil, fmt.Errorf("invalid fixture file: fixtures are required")
	}
	return f.Fixtures, nil
}
