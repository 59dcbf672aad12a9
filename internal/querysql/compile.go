// Package querysql compiles queryir selects into parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/reorder/internal/ir"
	"github.com/roach88/reorder/internal/queryir"
)

// IDColumn is the primary key of every orderable table and the final
// tiebreaker of every ORDER BY.
const IDColumn = "id"

// identPattern restricts table and column names to plain snake_case
// identifiers. Names reach SQL text, so anything else is rejected even
// though the registry should never produce it.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SQLCompiler compiles queryir.Select values to SQLite.
//
// CRITICAL: values are always bound as ? parameters, never interpolated.
// CRITICAL: every query ends in ORDER BY ..., id so results are deterministic
// even when order keys collide.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts q to SQL and its positional parameters.
func (c *SQLCompiler) Compile(q queryir.Select) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, err
	}
	if err := checkIdent(q.From); err != nil {
		return "", nil, err
	}

	cols := "*"
	if len(q.Fields) > 0 {
		for _, f := range q.Fields {
			if err := checkIdent(f); err != nil {
				return "", nil, err
			}
		}
		cols = strings.Join(q.Fields, ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", cols, q.From)

	var params []any
	if q.Filter != nil {
		where, whereParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
		params = whereParams
	}

	orderBy, err := c.orderBy(q.OrderBy)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderBy)

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		params = append(params, int64(q.Limit))
	}

	return sb.String(), params, nil
}

// CompileUpdate builds the single-column UPDATE used by Move and Rebalance.
func (c *SQLCompiler) CompileUpdate(table string, id int64, column string, value ir.IRValue) (string, []any, error) {
	if err := checkIdent(table); err != nil {
		return "", nil, err
	}
	if err := checkIdent(column); err != nil {
		return "", nil, err
	}
	if column == IDColumn {
		return "", nil, fmt.Errorf("column %q is immutable", IDColumn)
	}
	param, err := ir.ToParam(value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value: %w", err)
	}
	sql := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", table, column, IDColumn)
	return sql, []any{param, id}, nil
}

// CompileInsert builds an INSERT of row's columns in canonical key order.
// An id column is inserted like any other; omit it to let SQLite assign one.
func (c *SQLCompiler) CompileInsert(table string, row ir.IRObject) (string, []any, error) {
	if err := checkIdent(table); err != nil {
		return "", nil, err
	}
	if len(row) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", table), nil, nil
	}

	keys := row.SortedKeys()
	placeholders := make([]string, len(keys))
	params := make([]any, len(keys))
	for i, k := range keys {
		if err := checkIdent(k); err != nil {
			return "", nil, err
		}
		param, err := ir.ToParam(row[k])
		if err != nil {
			return "", nil, fmt.Errorf("convert value for %q: %w", k, err)
		}
		placeholders[i] = "?"
		params[i] = param
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(keys, ", "), strings.Join(placeholders, ", "))
	return sql, params, nil
}

// orderBy renders the ORDER BY list. id is appended in the direction of
// the first term unless the caller already ordered by it.
func (c *SQLCompiler) orderBy(terms []queryir.OrderTerm) (string, error) {
	tieDir := queryir.Asc
	if len(terms) > 0 {
		tieDir = terms[0].Direction
	}

	parts := make([]string, 0, len(terms)+1)
	hasID := false
	for _, term := range terms {
		if err := checkIdent(term.Field); err != nil {
			return "", err
		}
		if term.Field == IDColumn {
			hasID = true
		}
		parts = append(parts, term.Field+" "+sqlDirection(term.Direction))
	}
	if !hasID {
		parts = append(parts, IDColumn+" "+sqlDirection(tieDir))
	}
	return strings.Join(parts, ", "), nil
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		return c.compileLeaf(pred.Field, "=", pred.Value)
	case *queryir.Equals:
		return c.compileLeaf(pred.Field, "=", pred.Value)
	case queryir.NotEquals:
		return c.compileLeaf(pred.Field, "!=", pred.Value)
	case *queryir.NotEquals:
		return c.compileLeaf(pred.Field, "!=", pred.Value)
	case queryir.Compare:
		return c.compileLeaf(pred.Field, string(pred.Op), pred.Value)
	case *queryir.Compare:
		return c.compileLeaf(pred.Field, string(pred.Op), pred.Value)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileLeaf renders "field op ?". Comparisons against NULL become
// IS NULL / IS NOT NULL, matching queryir.Eval.
func (c *SQLCompiler) compileLeaf(field, op string, value ir.IRValue) (string, []any, error) {
	if err := checkIdent(field); err != nil {
		return "", nil, err
	}
	if _, isNull := value.(ir.IRNull); isNull {
		switch op {
		case "=":
			return field + " IS NULL", nil, nil
		case "!=":
			return field + " IS NOT NULL", nil, nil
		default:
			return "1 = 0", nil, nil
		}
	}
	param, err := ir.ToParam(value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value for %q: %w", field, err)
	}
	return fmt.Sprintf("%s %s ?", field, op), []any{param}, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, p, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func sqlDirection(d queryir.Direction) string {
	if d == queryir.Desc {
		return "DESC"
	}
	return "ASC"
}

func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}
