// Package filter parses filter expressions and list parameters into typed
// clauses.
//
// Every recognised key lives in a Registry. The parser and the query composer
// both read from it, so a new filterable dimension is added here and handled in
// those two places only.
package filter

// Kind is the value shape an attribute accepts.
type Kind int

const (
	// KindIDs is a comma separated id list.
	KindIDs Kind = iota
	// KindScope is an id list that may also carry "current-user" and, when
	// AllowNot is set, the sole value "not".
	KindScope
	// KindDateRange is "FROM=<ts>,TO=<ts|NOW>".
	KindDateRange
	KindBool
	KindText
	// KindAttributes is "<attributeId>=<value>[,<value>...]" for custom task
	// attributes.
	KindAttributes
)

// CurrentUser says what "current-user" resolves to for a scope attribute.
type CurrentUser int

const (
	CurrentUserUnsupported CurrentUser = iota
	CurrentUserID
	CurrentUserCompany
	CurrentUserProjects
)

type Attribute struct {
	Key         string
	Kind        Kind
	AllowNot    bool
	CurrentUser CurrentUser
	// Column is the SQL column compared against; unset when Relation is set.
	Column string
	// Relation is a link table keyed by task_id, RelationColumn holds the ids.
	Relation       string
	RelationColumn string
	// SearchColumns are matched with LIKE for KindText.
	SearchColumns []string
}

// Column is a displayable and orderable column.
type Column struct {
	Key  string
	Expr string
}

type Registry struct {
	// Table is the SQL source including its alias, e.g. "tasks t".
	Table string
	// Alias prefixes id columns in generated SQL.
	Alias      string
	attributes []Attribute
	columns    []Column
}

// RequestParams are accepted next to filter keys on list requests and are
// never treated as clauses.
var RequestParams = []string{"order", "limit", "page"}

func newRegistry(table, alias string, attributes []Attribute, columns []Column) *Registry {
	return &Registry{Table: table, Alias: alias, attributes: attributes, columns: columns}
}

func (r *Registry) Attribute(key string) (Attribute, bool) {
	for _, attr := range r.attributes {
		if attr.Key == key {
			return attr, true
		}
	}
	return Attribute{}, false
}

// Attributes returns the attributes in canonical order.
func (r *Registry) Attributes() []Attribute {
	out := make([]Attribute, len(r.attributes))
	copy(out, r.attributes)
	return out
}

func (r *Registry) Column(key string) (Column, bool) {
	for _, col := range r.columns {
		if col.Key == key {
			return col, true
		}
	}
	return Column{}, false
}

func (r *Registry) Columns() []Column {
	out := make([]Column, len(r.columns))
	copy(out, r.columns)
	return out
}

func (r *Registry) ColumnKeys() []string {
	keys := make([]string, 0, len(r.columns))
	for _, col := range r.columns {
		keys = append(keys, col.Key)
	}
	return keys
}

// Tasks covers task lists and the expressions stored in saved filters.
var Tasks = newRegistry("tasks t", "t",
	[]Attribute{
		{Key: "status", Kind: KindIDs, Column: "t.status_id"},
		{Key: "project", Kind: KindScope, AllowNot: true, CurrentUser: CurrentUserProjects, Column: "t.project_id"},
		{Key: "creator", Kind: KindScope, CurrentUser: CurrentUserID, Column: "t.created_by"},
		{Key: "requester", Kind: KindScope, CurrentUser: CurrentUserID, Column: "t.requested_by"},
		{Key: "company", Kind: KindScope, CurrentUser: CurrentUserCompany, Column: "t.company_id"},
		{Key: "assigned", Kind: KindScope, AllowNot: true, CurrentUser: CurrentUserID, Relation: "task_assignments", RelationColumn: "user_id"},
		{Key: "tag", Kind: KindIDs, Relation: "task_tags", RelationColumn: "tag_id"},
		{Key: "follower", Kind: KindScope, CurrentUser: CurrentUserID, Relation: "task_followers", RelationColumn: "user_id"},
		{Key: "createdTime", Kind: KindDateRange, Column: "t.created_at"},
		{Key: "startedTime", Kind: KindDateRange, Column: "t.started_at"},
		{Key: "deadlineTime", Kind: KindDateRange, Column: "t.deadline_at"},
		{Key: "closedTime", Kind: KindDateRange, Column: "t.closed_at"},
		{Key: "archived", Kind: KindBool, Column: "t.archived"},
		{Key: "important", Kind: KindBool, Column: "t.important"},
		{Key: "search", Kind: KindText, SearchColumns: []string{"t.title", "t.description"}},
		{Key: "addedParameters", Kind: KindAttributes, Relation: "task_attribute_values"},
	},
	[]Column{
		{Key: "id", Expr: "t.id"},
		{Key: "title", Expr: "t.title"},
		{Key: "status", Expr: "t.status_id"},
		{Key: "project", Expr: "t.project_id"},
		{Key: "creator", Expr: "t.created_by"},
		{Key: "requester", Expr: "t.requested_by"},
		{Key: "company", Expr: "t.company_id"},
		{Key: "assigned", Expr: "(SELECT MIN(a.user_id) FROM task_assignments a WHERE a.task_id = t.id)"},
		{Key: "createdTime", Expr: "t.created_at"},
		{Key: "startedTime", Expr: "t.started_at"},
		{Key: "deadlineTime", Expr: "t.deadline_at"},
		{Key: "closedTime", Expr: "t.closed_at"},
		{Key: "important", Expr: "t.important"},
	},
)

// Filters covers listing saved filters.
var Filters = newRegistry("filters f", "f",
	[]Attribute{
		{Key: "public", Kind: KindBool, Column: "f.public"},
		{Key: "report", Kind: KindBool, Column: "f.report"},
		{Key: "project", Kind: KindScope, AllowNot: true, CurrentUser: CurrentUserProjects, Column: "f.project_id"},
		{Key: "default", Kind: KindBool, Column: "f.is_default"},
		{Key: "isActive", Kind: KindBool, Column: "f.is_active"},
	},
	[]Column{
		{Key: "id", Expr: "f.id"},
		{Key: "title", Expr: "f.title"},
		{Key: "public", Expr: "f.public"},
		{Key: "report", Expr: "f.report"},
		{Key: "default", Expr: "f.is_default"},
		{Key: "isActive", Expr: "f.is_active"},
		{Key: "createdTime", Expr: "f.created_at"},
	},
)
