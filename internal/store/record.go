package store

import (
	"context"
	"errors"
	"iter"

	"github.com/roach88/reorder/internal/ir"
	"github.com/roach88/reorder/internal/queryir"
)

// ErrNotFound is returned by Tx.Update when no row has the given id.
var ErrNotFound = errors.New("record not found")

// Reader reads rows of orderable tables. Field and table names in the
// selects are physical column names.
type Reader interface {
	// FindOne returns a row matching q.Filter, or false if none does.
	FindOne(ctx context.Context, q queryir.Select) (ir.IRObject, bool, error)

	// FindFirst returns the first row of q in q.OrderBy order.
	FindFirst(ctx context.Context, q queryir.Select) (ir.IRObject, bool, error)

	// Scan yields every row of q in order. The sequence is lazy and
	// releases its resources when iteration stops.
	Scan(ctx context.Context, q queryir.Select) iter.Seq2[ir.IRObject, error]
}

// Tx is an all-or-nothing unit of work. Rollback after Commit is a no-op,
// so callers can always defer it.
type Tx interface {
	Reader

	// Update sets one column of the row with the given id.
	// Returns ErrNotFound if the id is absent.
	Update(ctx context.Context, table string, id int64, column string, value ir.IRValue) error

	Commit() error
	Rollback() error
}

// RecordStore is the persistence layer consumed by the reorder engine.
type RecordStore interface {
	Reader
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Loader creates rows. Only fixtures and seeding use it; the engine never
// creates records.
type Loader interface {
	Insert(ctx context.Context, table string, row ir.IRObject) (int64, error)
}

// First is the FindFirst helper shared by backends: q with Limit 1, drained
// through scan.
func First(ctx context.Context, r Reader, q queryir.Select) (ir.IRObject, bool, error) {
	q.Limit = 1
	for row, err := range r.Scan(ctx, q) {
		if err != nil {
			return nil, false, err
		}
		return row, true, nil
	}
	return nil, false, nil
}

// Collect drains a Scan into a slice.
func Collect(seq iter.Seq2[ir.IRObject, error]) ([]ir.IRObject, error) {
	var rows []ir.IRObject
	for row, err := range seq {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
