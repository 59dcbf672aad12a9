package reorder

import "errors"

// Payload methods render results as plain maps for ir.MarshalCanonical,
// which the CLI and HTTP layers both use for JSON output.

func (r MoveResult) Payload() map[string]any {
	return map[string]any{
		"opId":         r.OpID,
		"updatedCount": r.UpdatedCount,
		"key":          r.Key,
	}
}

func (r RebalanceResult) Payload() map[string]any {
	return map[string]any{
		"opId":         r.OpID,
		"tableName":    r.Table,
		"orderField":   r.OrderField,
		"orderBy":      r.OrderBy,
		"direction":    string(r.Direction),
		"updatedCount": r.UpdatedCount,
	}
}

func (r CheckResult) Payload() map[string]any {
	return map[string]any{
		"opId":           r.OpID,
		"table":          r.Table,
		"orderField":     r.OrderField,
		"count":          r.Count,
		"duplicates":     r.Duplicates,
		"negatives":      r.Negatives,
		"minGap":         r.MinGap,
		"needsRebalance": r.NeedsRebalance,
	}
}

func (e Entry) Payload() map[string]any {
	return map[string]any{
		"id":     e.ID,
		"key":    e.Key,
		"fields": e.Fields,
	}
}

// EntriesPayload renders a List result.
func EntriesPayload(entries []Entry) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = e.Payload()
	}
	return out
}

// ErrorPayload renders an error as {"code", "message"} plus table and id
// when known. Errors without a code are reported as STORE_FAILURE.
func ErrorPayload(err error) map[string]any {
	code := CodeOf(err)
	if code == "" {
		code = CodeStoreFailure
	}
	m := map[string]any{
		"code":    string(code),
		"message": err.Error(),
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Table != "" {
			m["table"] = e.Table
		}
		if e.ID != 0 {
			m["id"] = e.ID
		}
	}
	return m
}
