package reorder

import (
	"context"

	"github.com/roach88/reorder/internal/collection"
	"github.com/roach88/reorder/internal/ir"
	"github.com/roach88/reorder/internal/queryir"
)

// minHealthyGap is the smallest gap that still leaves room for a midpoint.
const minHealthyGap = 2

// ScanRequest selects the records Check and List look at.
type ScanRequest struct {
	Table string

	// OrderField is the external order field. Empty means "orderKey".
	OrderField string

	Scope *Scope

	// Filter further restricts the records, over external field names.
	Filter queryir.Predicate

	// Limit caps List results. Zero means no limit. Check ignores it.
	Limit int
}

// CheckResult summarizes the health of an ordering.
type CheckResult struct {
	OpID       string
	Table      string
	OrderField string

	// Count is the number of records inspected.
	Count int

	// Duplicates counts records whose key equals the previous record's.
	Duplicates int

	// Negatives counts records with a key below zero.
	Negatives int

	// MinGap is the smallest difference between consecutive keys, or 0
	// with fewer than two records.
	MinGap int64

	// NeedsRebalance is set when a duplicate, a negative key or a gap below
	// 2 means some move could fail or misplace a record.
	NeedsRebalance bool
}

// Entry is one record of a List result.
type Entry struct {
	ID  int64
	Key int64

	// Fields holds every column under its external field name.
	Fields ir.IRObject
}

// scanPlan is a validated ScanRequest.
type scanPlan struct {
	desc     *collection.Descriptor
	orderCol string
	query    queryir.Select
}

func (e *Engine) planScan(req ScanRequest, fields []string) (*scanPlan, error) {
	desc, err := e.resolve(req.Table)
	if err != nil {
		return nil, err
	}
	orderCol, err := desc.OrderColumn(req.OrderField)
	if err != nil {
		return nil, invalidField(req.Table, err)
	}
	scope, err := scopePredicate(desc, req.Scope)
	if err != nil {
		return nil, err
	}
	filter, err := translateFilter(desc, req.Filter)
	if err != nil {
		return nil, err
	}

	q := queryir.Select{
		From:    desc.Table,
		Fields:  fields,
		Filter:  queryir.All(scope, filter),
		OrderBy: []queryir.OrderTerm{{Field: orderCol, Direction: queryir.Asc}},
	}
	if err := validateSelect(desc, q); err != nil {
		return nil, err
	}
	return &scanPlan{desc: desc, orderCol: orderCol, query: q}, nil
}

// Check reports duplicate keys, negative keys and exhausted gaps in one
// ordering without changing it.
func (e *Engine) Check(ctx context.Context, req ScanRequest) (res CheckResult, err error) {
	start := e.now()
	res.OpID = e.opIDs.Generate()
	log := e.logger.With("op_id", res.OpID, "op", "check", "table", req.Table)

	var desc *collection.Descriptor
	defer func() {
		e.observe("check", desc, err, 0, start)
		if err != nil {
			logFailure(log, "check failed", err)
		}
	}()

	res.Table = req.Table
	res.OrderField = req.OrderField
	if res.OrderField == "" {
		res.OrderField = collection.DefaultOrderField
	}

	plan, err := e.planScan(req, nil)
	if err != nil {
		return res, err
	}
	desc = plan.desc
	plan.query.Fields = []string{idColumn, plan.orderCol}

	var prev int64
	for row, scanErr := range e.store.Scan(ctx, plan.query) {
		if scanErr != nil {
			return res, storeFailure(req.Table, "scan records", scanErr)
		}
		key, err := keyOf(desc, row, plan.orderCol)
		if err != nil {
			return res, err
		}
		if key < 0 {
			res.Negatives++
		}
		if res.Count > 0 {
			gap := key - prev
			if gap == 0 {
				res.Duplicates++
			}
			if res.Count == 1 || gap < res.MinGap {
				res.MinGap = gap
			}
		}
		prev = key
		res.Count++
	}

	res.NeedsRebalance = res.Duplicates > 0 || res.Negatives > 0 ||
		(res.Count > 1 && res.MinGap < minHealthyGap)
	log.Debug("ordering checked",
		"count", res.Count,
		"duplicates", res.Duplicates,
		"min_gap", res.MinGap,
		"needs_rebalance", res.NeedsRebalance,
	)
	return res, nil
}

// List returns records in display order: by order key, then id.
func (e *Engine) List(ctx context.Context, req ScanRequest) (entries []Entry, err error) {
	start := e.now()
	opID := e.opIDs.Generate()
	log := e.logger.With("op_id", opID, "op", "list", "table", req.Table)

	var desc *collection.Descriptor
	defer func() {
		e.observe("list", desc, err, 0, start)
		if err != nil {
			logFailure(log, "list failed", err)
		}
	}()

	if req.Limit < 0 {
		return nil, invalidArgument(req.Table, "limit must not be negative")
	}
	plan, err := e.planScan(req, nil)
	if err != nil {
		return nil, err
	}
	desc = plan.desc
	plan.query.Limit = req.Limit

	for row, scanErr := range e.store.Scan(ctx, plan.query) {
		if scanErr != nil {
			return nil, storeFailure(req.Table, "scan records", scanErr)
		}
		entry, err := toEntry(desc, row, plan.orderCol)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	log.Debug("listed records", "count", len(entries))
	return entries, nil
}

func toEntry(desc *collection.Descriptor, row ir.IRObject, orderCol string) (Entry, error) {
	id, ok := row.Int(idColumn)
	if !ok {
		return Entry{}, storeFailure(string(desc.Name), "read id", nil)
	}
	key, err := keyOf(desc, row, orderCol)
	if err != nil {
		return Entry{}, err
	}

	fields := make(ir.IRObject, len(row))
	for col, v := range row {
		if f, known := desc.FieldOf(col); known {
			fields[f] = v
		}
	}
	return Entry{ID: id, Key: key, Fields: fields}, nil
}
