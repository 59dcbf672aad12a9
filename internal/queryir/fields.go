package queryir

import "fmt"

// Fields returns every field referenced by p, in first-seen order.
func Fields(p Predicate) []string {
	var out []string
	seen := map[string]bool{}
	Walk(p, func(field string) {
		if !seen[field] {
			seen[field] = true
			out = append(out, field)
		}
	})
	return out
}

// Walk calls fn for every field reference in p.
func Walk(p Predicate, fn func(field string)) {
	switch pred := p.(type) {
	case Equals:
		fn(pred.Field)
	case *Equals:
		fn(pred.Field)
	case NotEquals:
		fn(pred.Field)
	case *NotEquals:
		fn(pred.Field)
	case Compare:
		fn(pred.Field)
	case *Compare:
		fn(pred.Field)
	case And:
		for _, sub := range pred.Predicates {
			Walk(sub, fn)
		}
	case *And:
		for _, sub := range pred.Predicates {
			Walk(sub, fn)
		}
	}
}

// Rename returns a copy of p with every field passed through fn.
// The first error from fn aborts the rewrite.
func Rename(p Predicate, fn func(field string) (string, error)) (Predicate, error) {
	switch pred := p.(type) {
	case nil:
		return nil, nil
	case Equals:
		f, err := fn(pred.Field)
		if err != nil {
			return nil, err
		}
		return Equals{Field: f, Value: pred.Value}, nil
	case *Equals:
		return Rename(*pred, fn)
	case NotEquals:
		f, err := fn(pred.Field)
		if err != nil {
			return nil, err
		}
		return NotEquals{Field: f, Value: pred.Value}, nil
	case *NotEquals:
		return Rename(*pred, fn)
	case Compare:
		f, err := fn(pred.Field)
		if err != nil {
			return nil, err
		}
		return Compare{Field: f, Op: pred.Op, Value: pred.Value}, nil
	case *Compare:
		return Rename(*pred, fn)
	case And:
		out := And{Predicates: make([]Predicate, 0, len(pred.Predicates))}
		for _, sub := range pred.Predicates {
			r, err := Rename(sub, fn)
			if err != nil {
				return nil, err
			}
			out.Predicates = append(out.Predicates, r)
		}
		return out, nil
	case *And:
		return Rename(*pred, fn)
	default:
		return nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}
