package query

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Joseda-hg/lazydesk/internal/access"
	"github.com/Joseda-hg/lazydesk/internal/filter"
)

// Tasks composes a task listing. Restricted callers get the visibility clamp
// as the first predicate; the clauses narrow further. now resolves TO=NOW.
func Tasks(clauses filter.ClauseSet, scope Scope, order filter.Order, page filter.Pagination, now time.Time) (Plan, error) {
	reg := filter.Tasks
	plan := Plan{table: reg.Table, page: page, orderBy: orderBy(reg, order)}

	if !scope.Admin {
		plan.add(
			"t.created_by = ? OR t.requested_by = ?"+
				" OR EXISTS (SELECT 1 FROM task_assignments a WHERE a.task_id = t.id AND a.user_id = ?)"+
				" OR EXISTS (SELECT 1 FROM task_followers fo WHERE fo.task_id = t.id AND fo.user_id = ?)"+
				" OR t.project_id IN (SELECT pa.project_id FROM project_acl pa WHERE pa.user_id = ? AND (pa.acl & ?) != 0)",
			scope.UserID, scope.UserID, scope.UserID, scope.UserID, scope.UserID, int64(access.ACLViewAllTasks),
		)
	}

	preds, err := clausePredicates(reg, clauses, scope, now)
	if err != nil {
		return Plan{}, err
	}
	plan.where = append(plan.where, preds...)
	return plan, nil
}

// Filters composes a saved-filter listing:
//
//	(visibility AND narrowing) OR (users_remembered AND created_by = caller)
//
// A remembered filter is always listed for its creator, whatever the
// public and report rules say.
func Filters(clauses filter.ClauseSet, scope Scope, order filter.Order, page filter.Pagination) (Plan, error) {
	reg := filter.Filters
	plan := Plan{table: reg.Table, page: page, orderBy: orderBy(reg, order)}

	var branch []predicate
	if !scope.Admin {
		visible := "f.public = 1 OR f.created_by = ?"
		if scope.ReportViewer {
			visible += " OR f.report = 1"
		}
		branch = append(branch, predicate{sql: visible, args: []any{scope.UserID}})
	}

	if public, ok := clauses.Bool("public"); ok {
		switch {
		case public:
			branch = append(branch, predicate{sql: "f.public = 1"})
		case scope.Admin:
			branch = append(branch, predicate{sql: "f.public = 0"})
		default:
			branch = append(branch, predicate{sql: "f.public = 0 AND f.created_by = ?", args: []any{scope.UserID}})
		}
	}

	active, ok := clauses.Bool("isActive")
	switch {
	case !ok || active:
		branch = append(branch, predicate{sql: "f.is_active = 1"})
	case scope.Admin:
		branch = append(branch, predicate{sql: "f.is_active = 0"})
	default:
		branch = append(branch, predicate{sql: "f.is_active = 0 AND f.created_by = ?", args: []any{scope.UserID}})
	}

	preds, err := clausePredicates(reg, clauses, scope, time.Time{}, "public", "isActive")
	if err != nil {
		return Plan{}, err
	}
	branch = append(branch, preds...)

	sql, args := conjoin(branch)
	args = append(args, scope.UserID)
	plan.add("("+sql+") OR (f.users_remembered = 1 AND f.created_by = ?)", args...)
	return plan, nil
}

func conjoin(preds []predicate) (string, []any) {
	if len(preds) == 0 {
		return "1 = 1", nil
	}
	parts := make([]string, 0, len(preds))
	var args []any
	for _, pred := range preds {
		parts = append(parts, "("+pred.sql+")")
		args = append(args, pred.args...)
	}
	return strings.Join(parts, " AND "), args
}

// clausePredicates walks the registry in order so the generated SQL is
// deterministic for a given clause set.
func clausePredicates(reg *filter.Registry, clauses filter.ClauseSet, scope Scope, now time.Time, skip ...string) ([]predicate, error) {
	var preds []predicate
	for _, attr := range reg.Attributes() {
		if slices.Contains(skip, attr.Key) {
			continue
		}
		switch attr.Kind {
		case filter.KindIDs, filter.KindScope:
			s, ok := clauses.Scopes[attr.Key]
			if !ok {
				continue
			}
			preds = append(preds, scopePredicate(reg, attr, s, scope))
		case filter.KindDateRange:
			d, ok := clauses.Dates[attr.Key]
			if !ok {
				continue
			}
			from, to := d.Bounds(now)
			if from != nil {
				preds = append(preds, predicate{sql: attr.Column + " >= ?", args: []any{from.Unix()}})
			}
			if to != nil {
				preds = append(preds, predicate{sql: attr.Column + " <= ?", args: []any{to.Unix()}})
			}
		case filter.KindBool:
			v, ok := clauses.Bools[attr.Key]
			if !ok {
				continue
			}
			preds = append(preds, predicate{sql: attr.Column + " = ?", args: []any{boolArg(v)}})
		case filter.KindText:
			text, ok := clauses.Texts[attr.Key]
			if !ok || text == "" {
				continue
			}
			pattern := "%" + escapeLike(text) + "%"
			terms := make([]string, 0, len(attr.SearchColumns))
			args := make([]any, 0, len(attr.SearchColumns))
			for _, col := range attr.SearchColumns {
				terms = append(terms, col+` LIKE ? ESCAPE '\'`)
				args = append(args, pattern)
			}
			preds = append(preds, predicate{sql: strings.Join(terms, " OR "), args: args})
		case filter.KindAttributes:
			for _, av := range clauses.Attributes {
				args := []any{av.AttributeID}
				for _, v := range av.Values {
					args = append(args, v)
				}
				preds = append(preds, predicate{
					sql: fmt.Sprintf("EXISTS (SELECT 1 FROM %s v WHERE v.task_id = %s.id AND v.attribute_id = ? AND v.value IN (%s))",
						attr.Relation, reg.Alias, placeholders(len(av.Values))),
					args: args,
				})
			}
		default:
			return nil, fmt.Errorf("attribute %q: unsupported kind %d", attr.Key, attr.Kind)
		}
	}
	return preds, nil
}

func scopePredicate(reg *filter.Registry, attr filter.Attribute, s filter.Scope, scope Scope) predicate {
	if s.None {
		if attr.Relation != "" {
			return predicate{sql: fmt.Sprintf("NOT EXISTS (SELECT 1 FROM %s r WHERE r.task_id = %s.id)", attr.Relation, reg.Alias)}
		}
		return predicate{sql: attr.Column + " IS NULL"}
	}

	ids := s.IDs
	var terms []string
	var args []any
	if s.CurrentUser {
		switch attr.CurrentUser {
		case filter.CurrentUserID:
			ids = s.Resolve(scope.UserID)
		case filter.CurrentUserCompany:
			if scope.CompanyID != 0 {
				ids = s.Resolve(scope.CompanyID)
			}
		case filter.CurrentUserProjects:
			terms = append(terms, attr.Column+" IN (SELECT p.id FROM projects p WHERE p.created_by = ?)")
			args = append(args, scope.UserID)
		}
	}

	if len(ids) > 0 {
		if attr.Relation != "" {
			terms = append(terms, fmt.Sprintf("EXISTS (SELECT 1 FROM %s r WHERE r.task_id = %s.id AND r.%s IN (%s))",
				attr.Relation, reg.Alias, attr.RelationColumn, placeholders(len(ids))))
		} else {
			terms = append(terms, fmt.Sprintf("%s IN (%s)", attr.Column, placeholders(len(ids))))
		}
		args = append(args, int64Args(ids)...)
	}

	if len(terms) == 0 {
		// current-user on company for a caller without a company.
		return predicate{sql: "0 = 1"}
	}
	return predicate{sql: strings.Join(terms, " OR "), args: args}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
