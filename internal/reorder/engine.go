package reorder

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/reorder/internal/collection"
	"github.com/roach88/reorder/internal/ir"
	"github.com/roach88/reorder/internal/metrics"
	"github.com/roach88/reorder/internal/queryir"
	"github.com/roach88/reorder/internal/store"
)

// Engine runs reorder operations against a RecordStore.
//
// The engine holds no ordering state of its own. Every operation validates
// its request against the registry before touching the store, and every
// write happens inside exactly one store transaction that is released on
// every return path.
//
// Thread-safety: an Engine is safe for concurrent use. Conflicting writes
// are serialized by the store's transactions, not by the engine.
type Engine struct {
	store    store.RecordStore
	registry *collection.Registry
	logger   *slog.Logger
	opIDs    OpIDGenerator
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithOpIDGenerator sets the operation id source. Default: UUIDv7Generator.
func WithOpIDGenerator(g OpIDGenerator) Option {
	return func(e *Engine) {
		e.opIDs = g
	}
}

// WithMetrics sets the Prometheus instruments. Default: none.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an Engine. A nil registry means collection.Default().
func New(s store.RecordStore, registry *collection.Registry, opts ...Option) *Engine {
	if registry == nil {
		registry = collection.Default()
	}
	e := &Engine{
		store:    s,
		registry: registry,
		logger:   slog.New(slog.DiscardHandler),
		opIDs:    UUIDv7Generator{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry requests are validated against.
func (e *Engine) Registry() *collection.Registry {
	return e.registry
}

// resolve looks up a table, mapping unknown names to UnsupportedResource.
func (e *Engine) resolve(table string) (*collection.Descriptor, error) {
	if table == "" {
		return nil, invalidArgument("", "table is required")
	}
	desc, err := e.registry.Lookup(table)
	if err != nil {
		return nil, unsupportedResource(table, err)
	}
	return desc, nil
}

// observe records metrics for a finished operation. The table label is
// only set for registered tables to keep label cardinality bounded.
func (e *Engine) observe(op string, desc *collection.Descriptor, err error, updated int, start time.Time) {
	table := "unknown"
	if desc != nil {
		table = string(desc.Name)
	}
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = string(CodeOf(err))
		if outcome == "" {
			outcome = string(CodeStoreFailure)
		}
	}
	e.metrics.Observe(op, table, outcome, updated, e.now().Sub(start))
}

// Scope restricts an operation to one partition of a table.
type Scope struct {
	// Field is the external scope field. Empty means the table's default.
	Field string

	// ID is the scope value.
	ID int64
}

// scopePredicate resolves an optional scope to a column predicate.
func scopePredicate(desc *collection.Descriptor, scope *Scope) (queryir.Predicate, error) {
	if scope == nil {
		return nil, nil
	}
	col, err := desc.ScopeColumn(scope.Field)
	if err != nil {
		return nil, invalidField(string(desc.Name), err)
	}
	return queryir.Equals{Field: col, Value: ir.IRInt(scope.ID)}, nil
}

// FilterFromMap converts a field/value mapping into an equality predicate
// over external field names, in sorted field order.
func FilterFromMap(m map[string]any) (queryir.Predicate, error) {
	if len(m) == 0 {
		return nil, nil
	}
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	preds := make([]queryir.Predicate, 0, len(fields))
	for _, f := range fields {
		v, err := ir.FromAny(m[f])
		if err != nil {
			return nil, invalidArgument("", "filter %q: %v", f, err)
		}
		preds = append(preds, queryir.Equals{Field: f, Value: v})
	}
	return queryir.All(preds...), nil
}

// translateFilter maps an external filter to columns, rejecting fields the
// table does not allow.
func translateFilter(desc *collection.Descriptor, filter queryir.Predicate) (queryir.Predicate, error) {
	if filter == nil {
		return nil, nil
	}
	p, err := desc.TranslateFilter(filter)
	if err != nil {
		if errors.Is(err, collection.ErrUnknownField) {
			return nil, invalidField(string(desc.Name), err)
		}
		return nil, invalidArgument(string(desc.Name), "filter: %v", err)
	}
	return p, nil
}

// validateSelect rejects malformed queries as InvalidArgument before they
// reach the store.
func validateSelect(desc *collection.Descriptor, q queryir.Select) error {
	if err := queryir.Validate(q); err != nil {
		return invalidArgument(string(desc.Name), "%v", err)
	}
	return nil
}

// keyOf reads an integer order key from a row.
func keyOf(desc *collection.Descriptor, row ir.IRObject, column string) (int64, error) {
	k, ok := row.Int(column)
	if !ok {
		return 0, storeFailure(string(desc.Name), "read order key",
			fmt.Errorf("column %q is not an integer: %v", column, row[column]))
	}
	return k, nil
}
