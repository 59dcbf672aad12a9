package reorder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reorder/internal/collection"
	"github.com/roach88/reorder/internal/queryir"
	"github.com/roach88/reorder/internal/store/memstore"
)

func TestRebalance_ResetWithFilter(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			seed(t, s, "navigation",
				record{id: 1, key: 7, created: 300},
				record{id: 2, key: 7, created: 100},
				record{id: 3, key: 3, deleted: true, created: 50},
				record{id: 4, key: 0, created: 200},
			)
			e := newTestEngine(s, WithOpIDGenerator(NewFixedOpIDGenerator("op-1")))

			filter, err := FilterFromMap(map[string]any{"isDeleted": false})
			require.NoError(t, err)

			res, err := e.Rebalance(context.Background(), RebalanceRequest{
				Table:     "navigation",
				OrderBy:   "createdTime",
				Direction: queryir.Asc,
				Filter:    filter,
			})
			require.NoError(t, err)
			assert.Equal(t, RebalanceResult{
				OpID:         "op-1",
				Table:        "navigation",
				OrderField:   "orderKey",
				OrderBy:      "createdTime",
				Direction:    queryir.Asc,
				UpdatedCount: 3,
			}, res)

			assert.Equal(t, map[int64]int64{2: 10, 4: 20, 1: 30, 3: 3}, keys(t, s, "navigation"))
		})
	}
}

func TestRebalance_DenseSpacing(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			seed(t, s, "department",
				record{id: 1, key: 5},
				record{id: 2, key: 5},
				record{id: 3, key: 900},
				record{id: 4, key: 1},
				record{id: 5, key: 2},
			)
			e := newTestEngine(s)

			res, err := e.Rebalance(context.Background(), RebalanceRequest{
				Table:     "department",
				Direction: queryir.Desc,
			})
			require.NoError(t, err)
			assert.Equal(t, 5, res.UpdatedCount)
			assert.Equal(t, "id", res.OrderBy)

			// Descending id order becomes ascending key order.
			assert.Equal(t, []int64{5, 4, 3, 2, 1}, ordered(t, s, "department"))
			ks := keys(t, s, "department")
			for i, id := range ordered(t, s, "department") {
				assert.Equal(t, int64(10*(i+1)), ks[id])
			}
		})
	}
}

func TestRebalance_EmptyOpensNoTransaction(t *testing.T) {
	s := memstore.New(collection.Default().Tables()...)
	seed(t, s, "menu", record{id: 1, parent: 1, key: 10})
	spy := &spyStore{RecordStore: s}
	e := newTestEngine(spy)

	filter, err := FilterFromMap(map[string]any{"parentId": 2})
	require.NoError(t, err)

	res, err := e.Rebalance(context.Background(), RebalanceRequest{Table: "menu", Filter: filter})
	require.NoError(t, err)
	assert.Zero(t, res.UpdatedCount)
	assert.Zero(t, spy.begins)
}

func TestRebalance_PartialFailureIsAtomic(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			seed(t, s, "menu",
				record{id: 1, key: 3},
				record{id: 2, key: 2},
				record{id: 3, key: 1},
			)
			before := keys(t, s, "menu")
			spy := &spyStore{RecordStore: s, failUpdate: 2}
			e := newTestEngine(spy)

			_, err := e.Rebalance(context.Background(), RebalanceRequest{Table: "menu"})
			require.Error(t, err)
			assert.Equal(t, CodeStoreFailure, CodeOf(err))
			assert.Equal(t, before, keys(t, s, "menu"))
		})
	}
}

func TestRebalance_Validation(t *testing.T) {
	s := memstore.New(collection.Default().Tables()...)
	spy := &spyStore{RecordStore: s}
	e := newTestEngine(spy)

	testCases := []struct {
		name   string
		req    RebalanceRequest
		filter map[string]any
		code   Code
	}{
		{name: "missing table", req: RebalanceRequest{}, code: CodeInvalidArgument},
		{name: "unsupported table", req: RebalanceRequest{Table: "bogus"}, code: CodeUnsupportedResource},
		{name: "bad direction", req: RebalanceRequest{Table: "menu", Direction: "sideways"}, code: CodeInvalidArgument},
		{name: "unknown order field", req: RebalanceRequest{Table: "menu", OrderField: "parentId"}, code: CodeInvalidArgument},
		{name: "unknown sort field", req: RebalanceRequest{Table: "menu", OrderBy: "color"}, code: CodeInvalidArgument},
		{name: "unknown filter field", req: RebalanceRequest{Table: "menu"}, filter: map[string]any{"title": "x"}, code: CodeInvalidArgument},
		{name: "non-scalar filter", req: RebalanceRequest{Table: "menu"}, filter: map[string]any{"parentId": []any{1, 2}}, code: CodeInvalidArgument},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			if tc.filter != nil {
				f, err := FilterFromMap(tc.filter)
				require.NoError(t, err)
				req.Filter = f
			}
			_, err := e.Rebalance(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, tc.code, CodeOf(err), "%v", err)
		})
	}
	assert.Zero(t, spy.begins)
}

func TestFilterFromMap(t *testing.T) {
	p, err := FilterFromMap(nil)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = FilterFromMap(map[string]any{"parentId": float64(3), "isDeleted": false})
	require.NoError(t, err)
	assert.Equal(t, []string{"isDeleted", "parentId"}, queryir.Fields(p))

	_, err = FilterFromMap(map[string]any{"parentId": 1.5})
	require.Error(t, err)
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))
}
