package queryir

import (
	"fmt"

	"github.com/roach88/reorder/internal/ir"
)

// Eval reports whether row satisfies p. A missing field reads as NULL.
// Used by backends that filter in process rather than compiling to SQL.
func Eval(p Predicate, row ir.IRObject) (bool, error) {
	switch pred := p.(type) {
	case nil:
		return true, nil
	case Equals:
		if rowNull, wantNull := isNull(fieldValue(row, pred.Field)), isNull(pred.Value); rowNull || wantNull {
			return rowNull && wantNull, nil
		}
		c, err := compareField(row, pred.Field, pred.Value)
		return err == nil && c == 0, err
	case *Equals:
		return Eval(*pred, row)
	case NotEquals:
		// SQL semantics: NULL != x is unknown, and != NULL means IS NOT NULL.
		if rowNull, wantNull := isNull(fieldValue(row, pred.Field)), isNull(pred.Value); rowNull || wantNull {
			return !rowNull, nil
		}
		c, err := compareField(row, pred.Field, pred.Value)
		return err == nil && c != 0, err
	case *NotEquals:
		return Eval(*pred, row)
	case Compare:
		if isNull(fieldValue(row, pred.Field)) || isNull(pred.Value) {
			return false, nil
		}
		c, err := compareField(row, pred.Field, pred.Value)
		if err != nil {
			return false, err
		}
		switch pred.Op {
		case OpLess:
			return c < 0, nil
		case OpLessEqual:
			return c <= 0, nil
		case OpGreater:
			return c > 0, nil
		case OpGreaterEqual:
			return c >= 0, nil
		}
		return false, fmt.Errorf("unknown comparison operator %q", pred.Op)
	case *Compare:
		return Eval(*pred, row)
	case And:
		for _, sub := range pred.Predicates {
			ok, err := Eval(sub, row)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case *And:
		return Eval(*pred, row)
	default:
		return false, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func fieldValue(row ir.IRObject, field string) ir.IRValue {
	if v, ok := row[field]; ok && v != nil {
		return v
	}
	return ir.IRNull{}
}

func isNull(v ir.IRValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(ir.IRNull)
	return ok
}

func compareField(row ir.IRObject, field string, want ir.IRValue) (int, error) {
	c, err := ir.Compare(fieldValue(row, field), want)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", field, err)
	}
	return c, nil
}
