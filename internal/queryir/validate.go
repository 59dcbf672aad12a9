package queryir

import (
	"errors"
	"fmt"

	"github.com/roach88/reorder/internal/ir"
)

// Validate checks the structural rules every backend relies on:
//   - From is set
//   - every field reference is non-empty
//   - Compare operators are known
//   - predicate values are scalars (no arrays or objects)
//   - order directions are asc or desc
//
// Whether a field exists on the table is the registry's concern, not this one.
func Validate(q Select) error {
	if q.From == "" {
		return errors.New("select: table is required")
	}
	for _, f := range q.Fields {
		if f == "" {
			return errors.New("select: empty field name")
		}
	}
	for _, term := range q.OrderBy {
		if term.Field == "" {
			return errors.New("select: empty order field")
		}
		if term.Direction != Asc && term.Direction != Desc {
			return fmt.Errorf("select: invalid direction %q", term.Direction)
		}
	}
	return validatePredicate(q.Filter)
}

func validatePredicate(p Predicate) error {
	switch pred := p.(type) {
	case nil:
		return nil
	case Equals:
		return validateLeaf(pred.Field, pred.Value)
	case *Equals:
		return validateLeaf(pred.Field, pred.Value)
	case NotEquals:
		return validateLeaf(pred.Field, pred.Value)
	case *NotEquals:
		return validateLeaf(pred.Field, pred.Value)
	case Compare:
		if !pred.Op.Valid() {
			return fmt.Errorf("filter on %q: unknown operator %q", pred.Field, pred.Op)
		}
		return validateLeaf(pred.Field, pred.Value)
	case *Compare:
		return validatePredicate(*pred)
	case And:
		for _, sub := range pred.Predicates {
			if err := validatePredicate(sub); err != nil {
				return err
			}
		}
		return nil
	case *And:
		return validatePredicate(*pred)
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func validateLeaf(field string, v ir.IRValue) error {
	if field == "" {
		return errors.New("filter: empty field name")
	}
	switch v.(type) {
	case ir.IRNull, ir.IRString, ir.IRInt, ir.IRBool:
		return nil
	case nil:
		return fmt.Errorf("filter on %q: missing value", field)
	default:
		return fmt.Errorf("filter on %q: value must be a scalar, got %T", field, v)
	}
}
