// Package memstore is an in-memory store.RecordStore.
//
// Each table is a B-tree of rows ordered by id. A transaction works on
// clones of the trees (copy-on-write, so cloning is cheap) and Commit
// publishes them. One transaction may be open at a time, like the single
// SQLite writer; readers on the Store never block on it.
package memstore

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/google/btree"

	"github.com/roach88/reorder/internal/ir"
	"github.com/roach88/reorder/internal/queryir"
	"github.com/roach88/reorder/internal/store"
)

const degree = 16

const idColumn = "id"

type table = *btree.BTreeG[ir.IRObject]

// Store is an in-memory RecordStore and Loader.
type Store struct {
	mu     sync.RWMutex
	tables map[string]table

	// writer serializes transactions.
	writer sync.Mutex
}

var (
	_ store.RecordStore = (*Store)(nil)
	_ store.Loader      = (*Store)(nil)
	_ store.Tx          = (*Tx)(nil)
)

// New creates a store with the given empty tables.
func New(tables ...string) *Store {
	s := &Store{tables: make(map[string]table, len(tables))}
	for _, name := range tables {
		s.tables[name] = newTable()
	}
	return s
}

func newTable() table {
	return btree.NewG(degree, func(a, b ir.IRObject) bool {
		return rowID(a) < rowID(b)
	})
}

func rowID(row ir.IRObject) int64 {
	id, _ := row.Int(idColumn)
	return id
}

// Close releases nothing; it exists to satisfy store.RecordStore.
func (s *Store) Close() error {
	return nil
}

// Insert adds a copy of row. A row without an id gets max(id)+1. It waits
// for an open transaction to finish, since Commit replaces every table.
func (s *Store) Insert(_ context.Context, name string, row ir.IRObject) (int64, error) {
	s.writer.Lock()
	defer s.writer.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		return 0, fmt.Errorf("insert into %s: no such table", name)
	}

	row = row.Clone()
	id, ok := row.Int(idColumn)
	if !ok {
		id = 1
		if last, found := t.Max(); found {
			id = rowID(last) + 1
		}
		row[idColumn] = ir.IRInt(id)
	}
	if _, exists := t.Get(row); exists {
		return 0, fmt.Errorf("insert into %s: id %d already exists", name, id)
	}
	t.ReplaceOrInsert(row)
	return id, nil
}

// Begin opens a transaction, waiting for any other one to finish.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	s.writer.Lock()

	// Clone mutates the source tree's copy-on-write state, so it needs the
	// write lock.
	s.mu.Lock()
	tables := make(map[string]table, len(s.tables))
	for name, t := range s.tables {
		tables[name] = t.Clone()
	}
	s.mu.Unlock()

	return &Tx{store: s, tables: tables}, nil
}

func (s *Store) FindOne(ctx context.Context, q queryir.Select) (ir.IRObject, bool, error) {
	q.OrderBy = nil
	return store.First(ctx, s, q)
}

func (s *Store) FindFirst(ctx context.Context, q queryir.Select) (ir.IRObject, bool, error) {
	return store.First(ctx, s, q)
}

func (s *Store) Scan(ctx context.Context, q queryir.Select) iter.Seq2[ir.IRObject, error] {
	return func(yield func(ir.IRObject, error) bool) {
		s.mu.RLock()
		rows, err := query(s.tables, q)
		s.mu.RUnlock()
		emit(ctx, rows, err, yield)
	}
}

// Tx is a memstore transaction.
type Tx struct {
	store  *Store
	tables map[string]table
	done   bool
}

func (tx *Tx) FindOne(ctx context.Context, q queryir.Select) (ir.IRObject, bool, error) {
	q.OrderBy = nil
	return store.First(ctx, tx, q)
}

func (tx *Tx) FindFirst(ctx context.Context, q queryir.Select) (ir.IRObject, bool, error) {
	return store.First(ctx, tx, q)
}

func (tx *Tx) Scan(ctx context.Context, q queryir.Select) iter.Seq2[ir.IRObject, error] {
	return func(yield func(ir.IRObject, error) bool) {
		if tx.done {
			yield(nil, fmt.Errorf("scan %s: transaction finished", q.From))
			return
		}
		rows, err := query(tx.tables, q)
		emit(ctx, rows, err, yield)
	}
}

func (tx *Tx) Update(ctx context.Context, name string, id int64, column string, value ir.IRValue) error {
	if tx.done {
		return fmt.Errorf("update %s: transaction finished", name)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("update %s id=%d: %w", name, id, err)
	}
	if column == idColumn {
		return fmt.Errorf("update %s: column %q is immutable", name, idColumn)
	}
	if _, err := ir.ToParam(value); err != nil {
		return fmt.Errorf("update %s: %w", name, err)
	}

	t, ok := tx.tables[name]
	if !ok {
		return fmt.Errorf("update %s: no such table", name)
	}
	row, found := t.Get(ir.IRObject{idColumn: ir.IRInt(id)})
	if !found {
		return fmt.Errorf("update %s id=%d: %w", name, id, store.ErrNotFound)
	}

	// Rows are shared with the published tree; replace, never mutate.
	row = row.Clone()
	row[column] = value
	t.ReplaceOrInsert(row)
	return nil
}

func (tx *Tx) Commit() error {
	if tx.done {
		return fmt.Errorf("commit: transaction finished")
	}
	tx.store.mu.Lock()
	tx.store.tables = tx.tables
	tx.store.mu.Unlock()
	tx.finish()
	return nil
}

func (tx *Tx) Rollback() error {
	if !tx.done {
		tx.finish()
	}
	return nil
}

func (tx *Tx) finish() {
	tx.done = true
	tx.tables = nil
	tx.store.writer.Unlock()
}

func emit(ctx context.Context, rows []ir.IRObject, err error, yield func(ir.IRObject, error) bool) {
	if err != nil {
		yield(nil, err)
		return
	}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return
		}
		if !yield(row, nil) {
			return
		}
	}
}

// query evaluates q against tables with the same semantics as the SQL
// backend: filter, order with id tiebreak, limit, then project.
func query(tables map[string]table, q queryir.Select) ([]ir.IRObject, error) {
	if err := queryir.Validate(q); err != nil {
		return nil, fmt.Errorf("scan %s: %w", q.From, err)
	}
	t, ok := tables[q.From]
	if !ok {
		return nil, fmt.Errorf("scan %s: no such table", q.From)
	}

	var (
		rows    []ir.IRObject
		evalErr error
	)
	t.Ascend(func(row ir.IRObject) bool {
		match := true
		if q.Filter != nil {
			match, evalErr = queryir.Eval(q.Filter, row)
			if evalErr != nil {
				return false
			}
		}
		if match {
			rows = append(rows, row)
		}
		return true
	})
	if evalErr != nil {
		return nil, fmt.Errorf("scan %s: %w", q.From, evalErr)
	}

	if err := sortRows(rows, q.OrderBy); err != nil {
		return nil, fmt.Errorf("scan %s: %w", q.From, err)
	}

	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	out := make([]ir.IRObject, len(rows))
	for i, row := range rows {
		out[i] = project(row, q.Fields)
	}
	return out, nil
}

// sortRows orders rows by terms, then by id in the first term's direction.
// Rows arrive in ascending id order, so a stable sort already breaks ties
// ascending; descending ties need the explicit id term.
func sortRows(rows []ir.IRObject, terms []queryir.OrderTerm) error {
	tieDir := queryir.Asc
	if len(terms) > 0 {
		tieDir = terms[0].Direction
	}
	terms = append(slices.Clone(terms), queryir.OrderTerm{Field: idColumn, Direction: tieDir})

	var sortErr error
	slices.SortStableFunc(rows, func(a, b ir.IRObject) int {
		for _, term := range terms {
			c, err := ir.Compare(field(a, term.Field), field(b, term.Field))
			if err != nil {
				if sortErr == nil {
					sortErr = fmt.Errorf("order by %s: %w", term.Field, err)
				}
				return 0
			}
			if c != 0 {
				if term.Direction == queryir.Desc {
					return -c
				}
				return c
			}
		}
		return 0
	})
	return sortErr
}

func field(row ir.IRObject, name string) ir.IRValue {
	if v, ok := row[name]; ok && v != nil {
		return v
	}
	return ir.IRNull{}
}

func project(row ir.IRObject, fields []string) ir.IRObject {
	if len(fields) == 0 {
		return row.Clone()
	}
	out := make(ir.IRObject, len(fields))
	for _, f := range fields {
		out[f] = field(row, f)
	}
	return out
}
