// Package query turns parsed filter clauses and the caller's scope into SQL
// plans for task and saved-filter listings.
package query

import (
	"strings"

	"github.com/Joseda-hg/lazydesk/internal/access"
	"github.com/Joseda-hg/lazydesk/internal/filter"
)

// Scope is what the caller may see. Admins are unrestricted; everyone else is
// clamped to their own and shared records.
type Scope struct {
	Admin        bool
	UserID       int64
	CompanyID    int64
	ReportViewer bool
}

func ScopeFor(p *access.Principal) Scope {
	if p == nil {
		return Scope{}
	}
	return Scope{
		Admin:        p.IsAdmin(),
		UserID:       p.UserID,
		CompanyID:    p.CompanyID,
		ReportViewer: p.Can(access.CapReportFilters),
	}
}

type predicate struct {
	sql  string
	args []any
}

// Plan is a composed listing query. The row query and the count query are
// both rendered from the same predicate list.
type Plan struct {
	table   string
	where   []predicate
	orderBy []string
	page    filter.Pagination
}

func (p Plan) Pagination() filter.Pagination { return p.page }

// Paginated is false for limit=999, in which case no count is run.
func (p Plan) Paginated() bool { return !p.page.All() }

// Where renders the WHERE clause, empty when there are no predicates.
func (p Plan) Where() (string, []any) {
	if len(p.where) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(p.where))
	var args []any
	for _, pred := range p.where {
		parts = append(parts, "("+pred.sql+")")
		args = append(args, pred.args...)
	}
	return "WHERE " + strings.Join(parts, " AND "), args
}

func (p Plan) SelectSQL(columns string) (string, []any) {
	where, args := p.Where()
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(columns)
	b.WriteString(" FROM ")
	b.WriteString(p.table)
	if where != "" {
		b.WriteString(" ")
		b.WriteString(where)
	}
	if len(p.orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(p.orderBy, ", "))
	}
	if p.Paginated() {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, p.page.Limit, p.page.Offset())
	}
	return b.String(), args
}

func (p Plan) CountSQL() (string, []any) {
	where, args := p.Where()
	sql := "SELECT COUNT(*) FROM " + p.table
	if where != "" {
		sql += " " + where
	}
	return sql, args
}

func (p *Plan) add(sql string, args ...any) {
	p.where = append(p.where, predicate{sql: sql, args: args})
}

func orderBy(reg *filter.Registry, order filter.Order) []string {
	terms := make([]string, 0, len(order)+1)
	hasID := false
	for _, term := range order {
		col, ok := reg.Column(term.Column)
		if !ok {
			continue
		}
		if term.Column == "id" {
			hasID = true
		}
		terms = append(terms, col.Expr+" "+string(term.Direction))
	}
	if !hasID {
		terms = append(terms, reg.Alias+".id ASC")
	}
	return terms
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}

func boolArg(v bool) int {
	if v {
		return 1
	}
	return 0
}
