package reorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reorder/internal/collection"
	"github.com/roach88/reorder/internal/ir"
	"github.com/roach88/reorder/internal/metrics"
	"github.com/roach88/reorder/internal/queryir"
	"github.com/roach88/reorder/internal/store"
	"github.com/roach88/reorder/internal/store/memstore"
)

// testStore is a RecordStore that can also create rows.
type testStore interface {
	store.RecordStore
	store.Loader
}

type backend struct {
	name string
	open func(t *testing.T) testStore
}

// backends runs engine tests against every store implementation.
var backends = []backend{
	{
		name: "memory",
		open: func(t *testing.T) testStore {
			return memstore.New(collection.Default().Tables()...)
		},
	},
	{
		name: "sqlite",
		open: func(t *testing.T) testStore {
			t.Helper()
			s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	},
}

// record is a fixture row for the parent-scoped tables.
type record struct {
	id      int64
	parent  int64
	key     int64
	deleted bool
	created int64
}

func seed(t *testing.T, s store.Loader, table string, records ...record) {
	t.Helper()
	for _, r := range records {
		_, err := s.Insert(context.Background(), table, ir.IRObject{
			"id":           ir.IRInt(r.id),
			"title":        ir.IRString(fmt.Sprintf("%s %d", table, r.id)),
			"parent_id":    ir.IRInt(r.parent),
			"order_key":    ir.IRInt(r.key),
			"is_deleted":   ir.IRBool(r.deleted),
			"created_time": ir.IRInt(r.created),
		})
		require.NoError(t, err)
	}
}

// keys returns id -> order_key for every row of table.
func keys(t *testing.T, s store.Reader, table string) map[int64]int64 {
	t.Helper()
	out := map[int64]int64{}
	for row, err := range s.Scan(context.Background(), queryir.Select{
		From:   table,
		Fields: []string{"id", "order_key"},
	}) {
		require.NoError(t, err)
		id, _ := row.Int("id")
		k, _ := row.Int("order_key")
		out[id] = k
	}
	return out
}

// ordered returns ids of table sorted by (order_key, id).
func ordered(t *testing.T, s store.Reader, table string) []int64 {
	t.Helper()
	ks := keys(t, s, table)
	ids := make([]int64, 0, len(ks))
	for id := range ks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ks[ids[i]] != ks[ids[j]] {
			return ks[ids[i]] < ks[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

func ptr(v int64) *int64 { return &v }

func newTestEngine(s store.RecordStore, opts ...Option) *Engine {
	return New(s, collection.Default(), opts...)
}

// spyStore counts transactions and can inject failures.
type spyStore struct {
	store.RecordStore
	begins      int
	failUpdate  int // fail the nth Update (1-based); 0 never
	failCommit  error
	updateCalls int
}

func (s *spyStore) Begin(ctx context.Context) (store.Tx, error) {
	s.begins++
	tx, err := s.RecordStore.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &spyTx{Tx: tx, spy: s}, nil
}

type spyTx struct {
	store.Tx
	spy *spyStore
}

func (tx *spyTx) Update(ctx context.Context, table string, id int64, column string, value ir.IRValue) error {
	tx.spy.updateCalls++
	if tx.spy.updateCalls == tx.spy.failUpdate {
		return errors.New("disk I/O error")
	}
	return tx.Tx.Update(ctx, table, id, column, value)
}

func (tx *spyTx) Commit() error {
	if tx.spy.failCommit != nil {
		return tx.spy.failCommit
	}
	return tx.Tx.Commit()
}

func TestNew_Defaults(t *testing.T) {
	e := New(memstore.New(), nil)
	assert.NotNil(t, e.Registry())
	assert.Equal(t, collection.Default().Names(), e.Registry().Names())
	assert.IsType(t, UUIDv7Generator{}, e.opIDs)
}

func TestEngine_LogsWithOpID(t *testing.T) {
	s := memstore.New(collection.Default().Tables()...)
	seed(t, s, "menu", record{id: 1, key: 10}, record{id: 2, key: 20})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := newTestEngine(s, WithLogger(logger), WithOpIDGenerator(NewFixedOpIDGenerator("op-1")))

	res, err := e.Move(context.Background(), MoveRequest{Table: "menu", SourceID: 2, Position: First})
	require.NoError(t, err)
	assert.Equal(t, "op-1", res.OpID)

	out := buf.String()
	assert.Contains(t, out, "op_id=op-1")
	assert.Contains(t, out, `msg="record moved"`)
	assert.Contains(t, out, "key=0")
}

func TestEngine_RecordsMetrics(t *testing.T) {
	s := memstore.New(collection.Default().Tables()...)
	seed(t, s, "menu", record{id: 1, key: 10}, record{id: 2, key: 20})

	reg := prometheus.NewRegistry()
	e := newTestEngine(s, WithMetrics(metrics.New(reg)))
	ctx := context.Background()

	_, err := e.Move(ctx, MoveRequest{Table: "menu", SourceID: 2, Position: First})
	require.NoError(t, err)
	_, err = e.Move(ctx, MoveRequest{Table: "menu", SourceID: 99, Position: First})
	require.Error(t, err)
	_, err = e.Move(ctx, MoveRequest{Table: "bogus", SourceID: 1, Position: Last})
	require.Error(t, err)
	_, err = e.Rebalance(ctx, RebalanceRequest{Table: "menu"})
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "reorder_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count, "one series per operation/table/outcome")

	count, err = testutil.GatherAndCount(reg, "reorder_updated_records_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "move and rebalance on menu")
}

func selectByID(table string, id int64) queryir.Select {
	return queryir.Select{From: table, Filter: queryir.Equals{Field: "id", Value: ir.IRInt(id)}}
}
