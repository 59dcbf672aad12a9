// Package collection is the static registry of orderable tables.
//
// Every table name, order field, scope field, sort field and filter field that
// reaches a store passes through a Descriptor. Callers speak in external
// camelCase field names ("orderKey", "parentId"); descriptors translate them
// to columns and reject anything not on the table's allowlist, so a typo
// fails loudly instead of silently matching zero rows.
package collection

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/roach88/reorder/internal/queryir"
)

// Name identifies an orderable collection.
type Name string

const (
	Navigation Name = "navigation"
	Department Name = "department"
	Notice     Name = "notice"
	Todo       Name = "todo"
	Menu       Name = "menu"
)

// DefaultOrderField is the order field used when a request names none.
const DefaultOrderField = "orderKey"

// IDField is the external name of the primary key.
const IDField = "id"

var (
	// ErrUnknownCollection is returned for table names not in the registry.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrUnknownField is returned for field names not permitted for the
	// requested role on a table.
	ErrUnknownField = errors.New("unknown field")
)

// Descriptor describes one orderable table.
type Descriptor struct {
	// Name is the external collection name.
	Name Name

	// Table is the SQL table backing the collection.
	Table string

	// Columns maps external field names to column names. Every other list
	// below refers to keys of this map.
	Columns map[string]string

	// OrderFields may be passed as orderField to Move and Rebalance.
	OrderFields []string

	// ScopeFields may partition the table into independent orderings.
	// The first entry is the default scope field.
	ScopeFields []string

	// SortFields may be passed as orderBy to Rebalance.
	SortFields []string

	// FilterFields may appear in Rebalance filters.
	FilterFields []string
}

// Column resolves any known external field to its column.
func (d *Descriptor) Column(field string) (string, error) {
	col, ok := d.Columns[field]
	if !ok {
		return "", fmt.Errorf("%w %q on %s", ErrUnknownField, field, d.Name)
	}
	return col, nil
}

// OrderColumn resolves an order field. Empty means DefaultOrderField.
func (d *Descriptor) OrderColumn(field string) (string, error) {
	if field == "" {
		field = DefaultOrderField
	}
	return d.columnFor("order", field, d.OrderFields)
}

// ScopeColumn resolves a scope field. Empty means the table's default scope
// field; a table without scope fields rejects every scope.
func (d *Descriptor) ScopeColumn(field string) (string, error) {
	if field == "" {
		if len(d.ScopeFields) == 0 {
			return "", fmt.Errorf("%w: %s has no scope field", ErrUnknownField, d.Name)
		}
		field = d.ScopeFields[0]
	}
	return d.columnFor("scope", field, d.ScopeFields)
}

// SortColumn resolves a Rebalance orderBy field. Empty means id.
func (d *Descriptor) SortColumn(field string) (string, error) {
	if field == "" {
		field = IDField
	}
	return d.columnFor("sort", field, d.SortFields)
}

// TranslateFilter renames every field in p from external names to columns,
// rejecting fields not listed in FilterFields.
func (d *Descriptor) TranslateFilter(p queryir.Predicate) (queryir.Predicate, error) {
	return queryir.Rename(p, func(field string) (string, error) {
		return d.columnFor("filter", field, d.FilterFields)
	})
}

// FieldOf maps a column back to its external field name.
func (d *Descriptor) FieldOf(column string) (string, bool) {
	for field, col := range d.Columns {
		if col == column {
			return field, true
		}
	}
	return "", false
}

func (d *Descriptor) columnFor(role, field string, allowed []string) (string, error) {
	if !slices.Contains(allowed, field) {
		return "", fmt.Errorf("%w: %q is not a %s field of %s", ErrUnknownField, field, role, d.Name)
	}
	return d.Column(field)
}

func (d *Descriptor) validate() error {
	if d.Name == "" || d.Table == "" {
		return errors.New("descriptor needs a name and a table")
	}
	if d.Columns[IDField] == "" {
		return fmt.Errorf("%s: %q column is required", d.Name, IDField)
	}
	if len(d.OrderFields) == 0 {
		return fmt.Errorf("%s: at least one order field is required", d.Name)
	}
	lists := map[string][]string{
		"order":  d.OrderFields,
		"scope":  d.ScopeFields,
		"sort":   d.SortFields,
		"filter": d.FilterFields,
	}
	for role, fields := range lists {
		for _, f := range fields {
			if _, ok := d.Columns[f]; !ok {
				return fmt.Errorf("%s: %s field %q has no column", d.Name, role, f)
			}
		}
	}
	return nil
}

// Registry maps collection names to descriptors. It is immutable after New.
type Registry struct {
	byName map[Name]*Descriptor
}

// New builds a registry, validating every descriptor.
func New(descs ...Descriptor) (*Registry, error) {
	r := &Registry{byName: make(map[Name]*Descriptor, len(descs))}
	for i := range descs {
		d := descs[i]
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate collection %q", d.Name)
		}
		r.byName[d.Name] = &d
	}
	return r, nil
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	d, ok := r.byName[Name(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCollection, name)
	}
	return d, nil
}

// Names returns the registered collection names, sorted.
func (r *Registry) Names() []Name {
	names := make([]Name, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Tables returns the backing table of every collection, sorted.
func (r *Registry) Tables() []string {
	tables := make([]string, 0, len(r.byName))
	for _, d := range r.byName {
		tables = append(tables, d.Table)
	}
	slices.Sort(tables)
	return slices.Compact(tables)
}
