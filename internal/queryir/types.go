package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/reorder/internal/ir"
)

// Predicate is a filter condition. Sealed to this package.
type Predicate interface {
	predicateNode()
}

// Equals matches rows where Field = Value.
type Equals struct {
	Field string
	Value ir.IRValue
}

func (Equals) predicateNode() {}

// NotEquals matches rows where Field != Value.
type NotEquals struct {
	Field string
	Value ir.IRValue
}

func (NotEquals) predicateNode() {}

// CompareOp is a range comparison operator.
type CompareOp string

const (
	OpLess         CompareOp = "<"
	OpLessEqual    CompareOp = "<="
	OpGreater      CompareOp = ">"
	OpGreaterEqual CompareOp = ">="
)

// Valid reports whether op is one of the four range operators.
func (op CompareOp) Valid() bool {
	switch op {
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return true
	}
	return false
}

// ParseCompareOp accepts the symbolic form ("<") or the short name ("lt").
func ParseCompareOp(s string) (CompareOp, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "<", "lt":
		return OpLess, nil
	case "<=", "lte":
		return OpLessEqual, nil
	case ">", "gt":
		return OpGreater, nil
	case ">=", "gte":
		return OpGreaterEqual, nil
	}
	return "", fmt.Errorf("unknown comparison operator %q", s)
}

// Compare matches rows where Field <Op> Value.
type Compare struct {
	Field string
	Op    CompareOp
	Value ir.IRValue
}

func (Compare) predicateNode() {}

// And matches rows satisfying every predicate. Empty is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// All builds an And from preds, dropping nils and flattening nested Ands.
// Returns nil when nothing remains and the lone predicate when one does.
func All(preds ...Predicate) Predicate {
	flat := flatten(nil, preds)
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return And{Predicates: flat}
}

func flatten(dst []Predicate, preds []Predicate) []Predicate {
	for _, p := range preds {
		switch v := p.(type) {
		case nil:
		case And:
			dst = flatten(dst, v.Predicates)
		case *And:
			if v != nil {
				dst = flatten(dst, v.Predicates)
			}
		default:
			dst = append(dst, p)
		}
	}
	return dst
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection parses "asc"/"desc" case-insensitively. Empty means Asc.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	}
	return "", fmt.Errorf("invalid direction %q: must be asc or desc", s)
}

// OrderTerm is one ORDER BY component.
type OrderTerm struct {
	Field     string
	Direction Direction
}

// Select reads rows from one table.
//
//	SELECT <Fields> FROM <From> WHERE <Filter> ORDER BY <OrderBy>, id LIMIT <Limit>
//
// Backends always append id as the final tiebreaker in the direction of the
// first order term, so results are deterministic even with duplicate keys.
// Limit <= 0 means unlimited. Empty Fields selects every column.
type Select struct {
	From    string
	Fields  []string
	Filter  Predicate
	OrderBy []OrderTerm
	Limit   int
}
