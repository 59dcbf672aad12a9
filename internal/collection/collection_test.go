package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reorder/internal/ir"
	"github.com/roach88/reorder/internal/queryir"
)

func TestDefault_Lookup(t *testing.T) {
	r := Default()

	d, err := r.Lookup("navigation")
	require.NoError(t, err)
	assert.Equal(t, "navigation", d.Table)

	_, err = r.Lookup("bogus_table")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownCollection)
	assert.Contains(t, err.Error(), "bogus_table")
}

func TestDefault_Names(t *testing.T) {
	assert.Equal(t, []Name{Department, Menu, Navigation, Notice, Todo}, Default().Names())
}

func TestOrderColumn(t *testing.T) {
	notice, err := Default().Lookup("notice")
	require.NoError(t, err)

	col, err := notice.OrderColumn("")
	require.NoError(t, err)
	assert.Equal(t, "order_key", col)

	col, err = notice.OrderColumn("pinOrder")
	require.NoError(t, err)
	assert.Equal(t, "pin_order", col)

	_, err = notice.OrderColumn("title")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = notice.OrderColumn("order_key")
	assert.ErrorIs(t, err, ErrUnknownField, "column names are not field names")
}

func TestScopeColumn(t *testing.T) {
	r := Default()

	todo, err := r.Lookup("todo")
	require.NoError(t, err)

	col, err := todo.ScopeColumn("")
	require.NoError(t, err)
	assert.Equal(t, "list_id", col, "first scope field is the default")

	col, err = todo.ScopeColumn("ownerId")
	require.NoError(t, err)
	assert.Equal(t, "owner_id", col)

	notice, err := r.Lookup("notice")
	require.NoError(t, err)
	_, err = notice.ScopeColumn("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no scope field")
}

func TestSortColumn(t *testing.T) {
	nav, err := Default().Lookup("navigation")
	require.NoError(t, err)

	col, err := nav.SortColumn("")
	require.NoError(t, err)
	assert.Equal(t, "id", col)

	col, err = nav.SortColumn("createdTime")
	require.NoError(t, err)
	assert.Equal(t, "created_time", col)

	_, err = nav.SortColumn("parentId")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestTranslateFilter(t *testing.T) {
	nav, err := Default().Lookup("navigation")
	require.NoError(t, err)

	got, err := nav.TranslateFilter(queryir.And{Predicates: []queryir.Predicate{
		queryir.Equals{Field: "isDeleted", Value: ir.IRBool(false)},
		queryir.Compare{Field: "createdTime", Op: queryir.OpGreater, Value: ir.IRInt(100)},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"is_deleted", "created_time"}, queryir.Fields(got))

	_, err = nav.TranslateFilter(queryir.Equals{Field: "title", Value: ir.IRString("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a filter field")
}

func TestFieldOf(t *testing.T) {
	nav, err := Default().Lookup("navigation")
	require.NoError(t, err)

	f, ok := nav.FieldOf("parent_id")
	assert.True(t, ok)
	assert.Equal(t, "parentId", f)

	_, ok = nav.FieldOf("list_id")
	assert.False(t, ok)
}

func TestNew_Validation(t *testing.T) {
	base := Descriptor{
		Name:        "widgets",
		Table:       "widgets",
		Columns:     map[string]string{"id": "id", "orderKey": "order_key"},
		OrderFields: []string{"orderKey"},
	}

	_, err := New(base)
	require.NoError(t, err)

	_, err = New(base, base)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	noID := base
	noID.Columns = map[string]string{"orderKey": "order_key"}
	_, err = New(noID)
	require.Error(t, err)

	noOrder := base
	noOrder.OrderFields = nil
	_, err = New(noOrder)
	require.Error(t, err)

	dangling := base
	dangling.ScopeFields = []string{"parentId"}
	_, err = New(dangling)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no column")
}

func TestTables(t *testing.T) {
	assert.Equal(t, []string{"department", "menu", "navigation", "notice", "todo"}, Default().Tables())
}
