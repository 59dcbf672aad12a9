package reorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/reorder/internal/collection"
	"github.com/roach88/reorder/internal/ir"
	"github.com/roach88/reorder/internal/orderkey"
	"github.com/roach88/reorder/internal/queryir"
	"github.com/roach88/reorder/internal/store"
)

// Position says where Move places the source record.
type Position string

const (
	Before Position = "before"
	After  Position = "after"
	First  Position = "first"
	Last   Position = "last"
)

// ParsePosition accepts a position name in any letter case.
func ParsePosition(s string) (Position, error) {
	p := Position(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", invalidArgument("", "invalid position %q (want before, after, first or last)", s)
	}
	return p, nil
}

// Valid reports whether p is one of the four positions.
func (p Position) Valid() bool {
	switch p {
	case Before, After, First, Last:
		return true
	}
	return false
}

// needsTarget reports whether p is relative to a target record.
func (p Position) needsTarget() bool {
	return p == Before || p == After
}

// MoveRequest asks for one record to be repositioned.
type MoveRequest struct {
	// Table is the collection name.
	Table string

	// SourceID is the record to move. Must be positive.
	SourceID int64

	// TargetID is the anchor record for Before and After.
	TargetID *int64

	Position Position

	// OrderField is the external order field. Empty means "orderKey".
	OrderField string

	// Scope, if set, restricts the source, target and neighbour lookups to
	// one partition. Without it the whole table is one ordering.
	Scope *Scope
}

// MoveResult reports the outcome of a Move.
type MoveResult struct {
	OpID string

	// UpdatedCount is 1 when the source key was rewritten, 0 for a no-op.
	UpdatedCount int

	// Key is the source's order key after the move.
	Key int64
}

// movePlan is a validated MoveRequest resolved to columns.
type movePlan struct {
	req      MoveRequest
	desc     *collection.Descriptor
	orderCol string
	scope    queryir.Predicate
}

func (p *movePlan) table() string {
	return string(p.desc.Name)
}

// Move places the source record before or after a target, or at either end
// of its scope, by rewriting only the source's order key.
//
// The new key is taken from the gap next to the target (or extremum). When
// no integer gap is left the move fails with CodeRebalanceRequired rather
// than writing a key that ties with a neighbour. Neighbour lookups skip the
// source itself, so repeating a successful move is a no-op.
func (e *Engine) Move(ctx context.Context, req MoveRequest) (res MoveResult, err error) {
	start := e.now()
	res.OpID = e.opIDs.Generate()
	log := e.logger.With("op_id", res.OpID, "op", "move", "table", req.Table, "source_id", req.SourceID)

	var desc *collection.Descriptor
	defer func() {
		e.observe("move", desc, err, res.UpdatedCount, start)
		if err != nil {
			logFailure(log, "move failed", err)
		}
	}()

	plan, err := e.planMove(req)
	if err != nil {
		return res, err
	}
	desc = plan.desc

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return res, storeFailure(plan.table(), "begin transaction", err)
	}
	defer tx.Rollback()

	source, err := plan.load(ctx, tx, req.SourceID, "source")
	if err != nil {
		return res, err
	}
	sourceKey, err := keyOf(plan.desc, source, plan.orderCol)
	if err != nil {
		return res, err
	}
	log.Debug("loaded source", "key", sourceKey)

	if req.Position.needsTarget() && *req.TargetID == req.SourceID {
		log.Debug("source is its own target, nothing to do")
		res.Key = sourceKey
		return res, nil
	}

	key, err := plan.computeKey(ctx, tx, log)
	if err != nil {
		return res, err
	}
	key = orderkey.Clamp(key)
	res.Key = key

	if key == sourceKey {
		log.Debug("source already in position", "key", key)
		return res, nil
	}

	if err := tx.Update(ctx, plan.desc.Table, req.SourceID, plan.orderCol, ir.IRInt(key)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return res, notFound(plan.table(), "source", req.SourceID)
		}
		return res, storeFailure(plan.table(), "update order key", err)
	}
	if err := tx.Commit(); err != nil {
		return res, storeFailure(plan.table(), "commit", err)
	}

	res.UpdatedCount = 1
	log.Info("record moved",
		"position", req.Position,
		"from_key", sourceKey,
		"key", key,
	)
	return res, nil
}

// planMove validates req without touching the store.
func (e *Engine) planMove(req MoveRequest) (*movePlan, error) {
	if req.Table == "" {
		return nil, invalidArgument("", "table is required")
	}
	if req.SourceID <= 0 {
		return nil, invalidArgument(req.Table, "sourceId is required")
	}
	if req.Position == "" {
		return nil, invalidArgument(req.Table, "position is required")
	}
	if !req.Position.Valid() {
		return nil, invalidArgument(req.Table, "invalid position %q", req.Position)
	}
	if req.Position.needsTarget() && (req.TargetID == nil || *req.TargetID <= 0) {
		return nil, invalidArgument(req.Table, "targetId is required for position %q", req.Position)
	}

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

	return &movePlan{req: req, desc: desc, orderCol: orderCol, scope: scope}, nil
}

// load reads one record by id within the plan's scope.
func (p *movePlan) load(ctx context.Context, r store.Reader, id int64, role string) (ir.IRObject, error) {
	row, found, err := r.FindOne(ctx, queryir.Select{
		From:   p.desc.Table,
		Fields: []string{idColumn, p.orderCol},
		Filter: queryir.All(queryir.Equals{Field: idColumn, Value: ir.IRInt(id)}, p.scope),
	})
	if err != nil {
		return nil, storeFailure(p.table(), "load "+role, err)
	}
	if !found {
		return nil, notFound(p.table(), role, id)
	}
	return row, nil
}

// neighbour returns the key of the first record other than the source in
// dir order, optionally bounded by bound.
func (p *movePlan) neighbour(ctx context.Context, r store.Reader, bound queryir.Predicate, dir queryir.Direction) (int64, bool, error) {
	row, found, err := r.FindFirst(ctx, queryir.Select{
		From:   p.desc.Table,
		Fields: []string{idColumn, p.orderCol},
		Filter: queryir.All(
			p.scope,
			queryir.NotEquals{Field: idColumn, Value: ir.IRInt(p.req.SourceID)},
			bound,
		),
		OrderBy: []queryir.OrderTerm{{Field: p.orderCol, Direction: dir}},
	})
	if err != nil {
		return 0, false, storeFailure(p.table(), "find neighbour", err)
	}
	if !found {
		return 0, false, nil
	}
	k, err := keyOf(p.desc, row, p.orderCol)
	if err != nil {
		return 0, false, err
	}
	return k, true, nil
}

// computeKey picks the source's new key for the requested position.
func (p *movePlan) computeKey(ctx context.Context, r store.Reader, log *slog.Logger) (int64, error) {
	switch p.req.Position {
	case First:
		minKey, found, err := p.neighbour(ctx, r, nil, queryir.Asc)
		if err != nil {
			return 0, err
		}
		if !found {
			return orderkey.Seed, nil
		}
		key := orderkey.Before(minKey)
		log.Debug("first", "min_key", minKey, "key", key)
		if key >= minKey {
			return 0, rebalanceRequired(p.table(), p.req.SourceID, "no key below %d at the start of the scope", minKey)
		}
		return key, nil

	case Last:
		maxKey, found, err := p.neighbour(ctx, r, nil, queryir.Desc)
		if err != nil {
			return 0, err
		}
		if !found {
			return orderkey.Seed, nil
		}
		key, ok := orderkey.After(maxKey)
		log.Debug("last", "max_key", maxKey, "key", key)
		if !ok {
			return 0, rebalanceRequired(p.table(), p.req.SourceID, "no key above %d at the end of the scope", maxKey)
		}
		return key, nil

	case Before:
		targetKey, err := p.targetKey(ctx, r)
		if err != nil {
			return 0, err
		}
		below := queryir.Compare{Field: p.orderCol, Op: queryir.OpLess, Value: ir.IRInt(targetKey)}
		predKey, found, err := p.neighbour(ctx, r, below, queryir.Desc)
		if err != nil {
			return 0, err
		}
		if !found {
			key := orderkey.Before(targetKey)
			log.Debug("before first record", "target_key", targetKey, "key", key)
			if key >= targetKey {
				return 0, rebalanceRequired(p.table(), p.req.SourceID, "no key below target key %d", targetKey)
			}
			return key, nil
		}
		key, ok := orderkey.Between(predKey, targetKey)
		if !ok {
			key = orderkey.Clamp(targetKey - 1)
		}
		log.Debug("before", "predecessor_key", predKey, "target_key", targetKey, "key", key)
		if key <= predKey || key >= targetKey {
			return 0, rebalanceRequired(p.table(), p.req.SourceID, "no gap between keys %d and %d", predKey, targetKey)
		}
		return key, nil

	case After:
		targetKey, err := p.targetKey(ctx, r)
		if err != nil {
			return 0, err
		}
		above := queryir.Compare{Field: p.orderCol, Op: queryir.OpGreater, Value: ir.IRInt(targetKey)}
		succKey, found, err := p.neighbour(ctx, r, above, queryir.Asc)
		if err != nil {
			return 0, err
		}
		if !found {
			key, ok := orderkey.After(targetKey)
			log.Debug("after last record", "target_key", targetKey, "key", key)
			if !ok {
				return 0, rebalanceRequired(p.table(), p.req.SourceID, "no key above target key %d", targetKey)
			}
			return key, nil
		}
		key, ok := orderkey.Between(targetKey, succKey)
		if !ok {
			key = targetKey + 1
		}
		log.Debug("after", "target_key", targetKey, "successor_key", succKey, "key", key)
		if key <= targetKey || key >= succKey {
			return 0, rebalanceRequired(p.table(), p.req.SourceID, "no gap between keys %d and %d", targetKey, succKey)
		}
		return key, nil
	}

	return 0, fmt.Errorf("unreachable position %q", p.req.Position)
}

func (p *movePlan) targetKey(ctx context.Context, r store.Reader) (int64, error) {
	target, err := p.load(ctx, r, *p.req.TargetID, "target")
	if err != nil {
		return 0, err
	}
	return keyOf(p.desc, target, p.orderCol)
}

// idColumn is the primary key column of every orderable table.
const idColumn = "id"

// logFailure logs client errors at Debug and everything else at Error.
func logFailure(log *slog.Logger, msg string, err error) {
	if IsClientError(err) {
		log.Debug(msg, "code", CodeOf(err), "error", err)
		return
	}
	log.Error(msg, "code", CodeOf(err), "error", err)
}
