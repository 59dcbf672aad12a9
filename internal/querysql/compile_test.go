package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reorder/internal/ir"
	"github.com/roach88/reorder/internal/queryir"
)

func TestCompile_PredecessorLookup(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.Compile(queryir.Select{
		From:   "navigation",
		Fields: []string{"id", "order_key"},
		Filter: queryir.All(
			queryir.Equals{Field: "parent_id", Value: ir.IRInt(3)},
			queryir.NotEquals{Field: "id", Value: ir.IRInt(5)},
			queryir.Compare{Field: "order_key", Op: queryir.OpLess, Value: ir.IRInt(20)},
		),
		OrderBy: []queryir.OrderTerm{{Field: "order_key", Direction: queryir.Desc}},
		Limit:   1,
	})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, order_key FROM navigation WHERE parent_id = ? AND id != ? AND order_key < ? ORDER BY order_key DESC, id DESC LIMIT ?",
		sql)
	assert.Equal(t, []any{int64(3), int64(5), int64(20), int64(1)}, params)
}

func TestCompile_OrderByMandatory(t *testing.T) {
	compiler := NewSQLCompiler()

	testCases := []struct {
		name  string
		query queryir.Select
		want  string
	}{
		{
			name:  "no order terms",
			query: queryir.Select{From: "todo"},
			want:  "SELECT * FROM todo ORDER BY id ASC",
		},
		{
			name: "ascending term",
			query: queryir.Select{
				From:    "todo",
				Fields:  []string{"id"},
				OrderBy: []queryir.OrderTerm{{Field: "created_time", Direction: queryir.Asc}},
			},
			want: "SELECT id FROM todo ORDER BY created_time ASC, id ASC",
		},
		{
			name: "explicit id term is not repeated",
			query: queryir.Select{
				From:    "todo",
				Fields:  []string{"id"},
				OrderBy: []queryir.OrderTerm{{Field: "id", Direction: queryir.Desc}},
			},
			want: "SELECT id FROM todo ORDER BY id DESC",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sql, _, err := compiler.Compile(tc.query)
			require.NoError(t, err)
			assert.Equal(t, tc.want, sql)
		})
	}
}

func TestCompile_ValuesNeverInterpolated(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.Compile(queryir.Select{
		From:   "notice",
		Filter: queryir.Equals{Field: "title", Value: ir.IRString("x' OR 1=1 --")},
	})
	require.NoError(t, err)
	assert.NotContains(t, sql, "OR 1=1")
	assert.Equal(t, []any{"x' OR 1=1 --"}, params)
}

func TestCompile_NullPredicates(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.Compile(queryir.Select{
		From: "todo",
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "list_id", Value: ir.IRNull{}},
			queryir.NotEquals{Field: "title", Value: ir.IRNull{}},
		}},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE list_id IS NULL AND title IS NOT NULL")
	assert.Empty(t, params)
}

func TestCompile_BoolBecomesInteger(t *testing.T) {
	compiler := NewSQLCompiler()

	_, params, err := compiler.Compile(queryir.Select{
		From:   "navigation",
		Filter: queryir.Equals{Field: "is_deleted", Value: ir.IRBool(false)},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(0)}, params)
}

func TestCompile_NestedAndIsParenthesized(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, _, err := compiler.Compile(queryir.Select{
		From: "navigation",
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "parent_id", Value: ir.IRInt(1)},
			queryir.And{Predicates: []queryir.Predicate{
				queryir.Compare{Field: "order_key", Op: queryir.OpGreaterEqual, Value: ir.IRInt(10)},
				queryir.Compare{Field: "order_key", Op: queryir.OpLessEqual, Value: ir.IRInt(30)},
			}},
		}},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE parent_id = ? AND (order_key >= ? AND order_key <= ?)")
}

func TestCompile_RejectsBadIdentifiers(t *testing.T) {
	compiler := NewSQLCompiler()

	tests := []struct {
		name  string
		query queryir.Select
	}{
		{"table", queryir.Select{From: "navigation; DROP TABLE todo"}},
		{"field", queryir.Select{From: "navigation", Fields: []string{"id, secret"}}},
		{"filter", queryir.Select{From: "navigation", Filter: queryir.Equals{Field: "1=1 OR id", Value: ir.IRInt(1)}}},
		{"order", queryir.Select{From: "navigation", OrderBy: []queryir.OrderTerm{{Field: "RANDOM()", Direction: queryir.Asc}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := compiler.Compile(tt.query)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid identifier")
		})
	}
}

func TestCompileUpdate(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.CompileUpdate("navigation", 5, "order_key", ir.IRInt(15))
	require.NoError(t, err)
	assert.Equal(t, "UPDATE navigation SET order_key = ? WHERE id = ?", sql)
	assert.Equal(t, []any{int64(15), int64(5)}, params)

	_, _, err = compiler.CompileUpdate("navigation", 5, "id", ir.IRInt(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "immutable")

	_, _, err = compiler.CompileUpdate("navigation", 5, "order key", ir.IRInt(1))
	require.Error(t, err)
}

func TestCompileInsert(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.CompileInsert("menu", ir.IRObject{
		"title":     ir.IRString("Home"),
		"parent_id": ir.IRInt(0),
		"order_key": ir.IRInt(10),
	})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO menu (order_key, parent_id, title) VALUES (?, ?, ?)", sql)
	assert.Equal(t, []any{int64(10), int64(0), "Home"}, params)

	sql, params, err = compiler.CompileInsert("menu", ir.IRObject{})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO menu DEFAULT VALUES", sql)
	assert.Empty(t, params)

	_, _, err = compiler.CompileInsert("menu", ir.IRObject{"Title": ir.IRString("x")})
	assert.Error(t, err)
}
