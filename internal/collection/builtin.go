package collection

// Built-in descriptors for the admin backend's orderable tables. The schema
// in internal/store/schema.sql must stay in step with these.

var commonColumns = map[string]string{
	"id":          "id",
	"title":       "title",
	"orderKey":    "order_key",
	"isDeleted":   "is_deleted",
	"createdTime": "created_time",
}

func withColumns(extra map[string]string) map[string]string {
	cols := make(map[string]string, len(commonColumns)+len(extra))
	for k, v := range commonColumns {
		cols[k] = v
	}
	for k, v := range extra {
		cols[k] = v
	}
	return cols
}

var commonSort = []string{"id", "orderKey", "createdTime", "title"}

// Builtin returns the descriptors of the built-in collections.
func Builtin() []Descriptor {
	return []Descriptor{
		{
			Name:         Navigation,
			Table:        "navigation",
			Columns:      withColumns(map[string]string{"parentId": "parent_id"}),
			OrderFields:  []string{"orderKey"},
			ScopeFields:  []string{"parentId"},
			SortFields:   commonSort,
			FilterFields: []string{"id", "parentId", "isDeleted", "createdTime", "orderKey"},
		},
		{
			Name:         Department,
			Table:        "department",
			Columns:      withColumns(map[string]string{"parentId": "parent_id"}),
			OrderFields:  []string{"orderKey"},
			ScopeFields:  []string{"parentId"},
			SortFields:   commonSort,
			FilterFields: []string{"id", "parentId", "isDeleted", "createdTime", "orderKey"},
		},
		{
			Name:         Notice,
			Table:        "notice",
			Columns:      withColumns(map[string]string{"pinOrder": "pin_order"}),
			OrderFields:  []string{"orderKey", "pinOrder"},
			SortFields:   append([]string{"pinOrder"}, commonSort...),
			FilterFields: []string{"id", "isDeleted", "createdTime", "orderKey", "pinOrder"},
		},
		{
			Name:         Todo,
			Table:        "todo",
			Columns:      withColumns(map[string]string{"listId": "list_id", "ownerId": "owner_id"}),
			OrderFields:  []string{"orderKey"},
			ScopeFields:  []string{"listId", "ownerId"},
			SortFields:   commonSort,
			FilterFields: []string{"id", "listId", "ownerId", "isDeleted", "createdTime", "orderKey"},
		},
		{
			Name:         Menu,
			Table:        "menu",
			Columns:      withColumns(map[string]string{"parentId": "parent_id"}),
			OrderFields:  []string{"orderKey"},
			ScopeFields:  []string{"parentId"},
			SortFields:   commonSort,
			FilterFields: []string{"id", "parentId", "isDeleted", "createdTime", "orderKey"},
		},
	}
}

// Default returns a registry of the built-in collections.
func Default() *Registry {
	r, err := New(Builtin()...)
	if err != nil {
		panic("collection: invalid builtin descriptors: " + err.Error())
	}
	return r
}
