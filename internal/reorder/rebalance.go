package reorder

import (
	"context"
	"errors"

	"github.com/roach88/reorder/internal/collection"
	"github.com/roach88/reorder/internal/ir"
	"github.com/roach88/reorder/internal/orderkey"
	"github.com/roach88/reorder/internal/queryir"
	"github.com/roach88/reorder/internal/store"
)

// RebalanceRequest asks for every matching record to be re-keyed.
type RebalanceRequest struct {
	Table string

	// OrderField is the external order field to rewrite. Empty means "orderKey".
	OrderField string

	// OrderBy is the external field that decides the new order. Empty means "id".
	OrderBy string

	// Direction of OrderBy. Empty means ascending.
	Direction queryir.Direction

	// Filter selects the records to re-key, over external field names.
	// Nil re-keys the whole table.
	Filter queryir.Predicate
}

// RebalanceResult reports the outcome of a Rebalance. Defaults are filled in.
type RebalanceResult struct {
	OpID         string
	Table        string
	OrderField   string
	OrderBy      string
	Direction    queryir.Direction
	UpdatedCount int
}

// Rebalance rewrites the order key of every record matching the filter to
// 10, 20, 30, ... in OrderBy order. It is all-or-nothing: records are
// listed first, then re-keyed in a single transaction.
func (e *Engine) Rebalance(ctx context.Context, req RebalanceRequest) (res RebalanceResult, err error) {
	start := e.now()
	res.OpID = e.opIDs.Generate()
	log := e.logger.With("op_id", res.OpID, "op", "rebalance", "table", req.Table)

	var desc *collection.Descriptor
	defer func() {
		e.observe("rebalance", desc, err, res.UpdatedCount, start)
		if err != nil {
			logFailure(log, "rebalance failed", err)
		}
	}()

	res.Table = req.Table
	res.OrderField = req.OrderField
	if res.OrderField == "" {
		res.OrderField = collection.DefaultOrderField
	}
	res.OrderBy = req.OrderBy
	if res.OrderBy == "" {
		res.OrderBy = collection.IDField
	}
	res.Direction, err = queryir.ParseDirection(string(req.Direction))
	if err != nil {
		return res, invalidArgument(req.Table, "%v", err)
	}

	d, err := e.resolve(req.Table)
	if err != nil {
		return res, err
	}
	desc = d

	orderCol, err := desc.OrderColumn(res.OrderField)
	if err != nil {
		return res, invalidField(req.Table, err)
	}
	sortCol, err := desc.SortColumn(res.OrderBy)
	if err != nil {
		return res, invalidField(req.Table, err)
	}
	filter, err := translateFilter(desc, req.Filter)
	if err != nil {
		return res, err
	}

	q := queryir.Select{
		From:    desc.Table,
		Fields:  []string{idColumn},
		Filter:  filter,
		OrderBy: []queryir.OrderTerm{{Field: sortCol, Direction: res.Direction}},
	}
	if err := validateSelect(desc, q); err != nil {
		return res, err
	}

	// The id list is read before the transaction opens; a single-connection
	// store cannot hold an open scan and a transaction at the same time.
	ids, err := e.collectIDs(ctx, desc, q)
	if err != nil {
		return res, err
	}
	log.Debug("records to rebalance", "count", len(ids), "order_by", sortCol, "direction", res.Direction)
	if len(ids) == 0 {
		return res, nil
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return res, storeFailure(req.Table, "begin transaction", err)
	}
	defer tx.Rollback()

	for i, id := range ids {
		if err := tx.Update(ctx, desc.Table, id, orderCol, ir.IRInt(orderkey.Rebalanced(i))); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return res, storeFailure(req.Table, "record vanished during rebalance", err)
			}
			return res, storeFailure(req.Table, "update order key", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return res, storeFailure(req.Table, "commit", err)
	}

	res.UpdatedCount = len(ids)
	log.Info("scope rebalanced", "updated", res.UpdatedCount, "order_field", res.OrderField)
	return res, nil
}

func (e *Engine) collectIDs(ctx context.Context, desc *collection.Descriptor, q queryir.Select) ([]int64, error) {
	var ids []int64
	for row, err := range e.store.Scan(ctx, q) {
		if err != nil {
			return nil, storeFailure(string(desc.Name), "scan records", err)
		}
		id, ok := row.Int(idColumn)
		if !ok {
			return nil, storeFailure(string(desc.Name), "scan records", errors.New("row without integer id"))
		}
		ids = append(ids, id)
	}
	return ids, nil
}
