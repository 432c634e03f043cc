package query

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Joseda-hg/lazydesk/internal/access"
	"github.com/Joseda-hg/lazydesk/internal/filter"
)

func mustParse(t *testing.T, expression string) filter.ClauseSet {
	t.Helper()
	clauses, err := filter.ParseExpression(expression)
	if err != nil {
		t.Fatalf("parse %q: %v", expression, err)
	}
	return clauses
}

func TestTasksAdminPlan(t *testing.T) {
	clauses := mustParse(t, "status=3&creator=current-user,7&archived=TRUE")
	plan, err := Tasks(clauses, Scope{Admin: true, UserID: 42}, nil, filter.Pagination{Limit: 10, Page: 2}, time.Time{})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	sql, args := plan.SelectSQL("t.id")
	wantSQL := "SELECT t.id FROM tasks t WHERE (t.status_id IN (?)) AND (t.created_by IN (?, ?)) AND (t.archived = ?) ORDER BY t.id ASC LIMIT ? OFFSET ?"
	if sql != wantSQL {
		t.Fatalf("unexpected sql:\n%s", sql)
	}
	if diff := cmp.Diff([]any{int64(3), int64(42), int64(7), 1, 10, 10}, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}

	countSQL, countArgs := plan.CountSQL()
	if countSQL != "SELECT COUNT(*) FROM tasks t WHERE (t.status_id IN (?)) AND (t.created_by IN (?, ?)) AND (t.archived = ?)" {
		t.Fatalf("unexpected count sql:\n%s", countSQL)
	}
	if diff := cmp.Diff(args[:4], countArgs); diff != "" {
		t.Fatalf("count args differ from row args (-want +got):\n%s", diff)
	}
}

func TestTasksRestrictedPlanClampsFirst(t *testing.T) {
	plan, err := Tasks(filter.ClauseSet{}, Scope{UserID: 5}, nil, filter.Pagination{Limit: filter.AllRows, Page: 1}, time.Time{})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if plan.Paginated() {
		t.Fatalf("expected limit 999 to disable paging")
	}

	sql, args := plan.SelectSQL("t.id")
	if !strings.HasPrefix(sql, "SELECT t.id FROM tasks t WHERE (t.created_by = ? OR t.requested_by = ?") {
		t.Fatalf("expected the visibility clamp first, got:\n%s", sql)
	}
	if strings.Contains(sql, "LIMIT") {
		t.Fatalf("expected no LIMIT for limit 999, got:\n%s", sql)
	}
	want := []any{int64(5), int64(5), int64(5), int64(5), int64(5), int64(access.ACLViewAllTasks)}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestTasksScopeVariants(t *testing.T) {
	admin := Scope{Admin: true, UserID: 42, CompanyID: 8}
	cases := []struct {
		expression string
		where      string
		args       []any
	}{
		{"project=not", "WHERE (t.project_id IS NULL)", nil},
		{"assigned=not", "WHERE (NOT EXISTS (SELECT 1 FROM task_assignments r WHERE r.task_id = t.id))", nil},
		{"project=current-user", "WHERE (t.project_id IN (SELECT p.id FROM projects p WHERE p.created_by = ?))", []any{int64(42)}},
		{"project=current-user,4", "WHERE (t.project_id IN (SELECT p.id FROM projects p WHERE p.created_by = ?) OR t.project_id IN (?))", []any{int64(42), int64(4)}},
		{"company=current-user", "WHERE (t.company_id IN (?))", []any{int64(8)}},
		{"tag=2,3", "WHERE (EXISTS (SELECT 1 FROM task_tags r WHERE r.task_id = t.id AND r.tag_id IN (?, ?)))", []any{int64(2), int64(3)}},
		{"search=50%_off", `WHERE (t.title LIKE ? ESCAPE '\' OR t.description LIKE ? ESCAPE '\')`, []any{`%50\%\_off%`, `%50\%\_off%`}},
		{"addedParameters=4=a,b", "WHERE (EXISTS (SELECT 1 FROM task_attribute_values v WHERE v.task_id = t.id AND v.attribute_id = ? AND v.value IN (?, ?)))", []any{int64(4), "a", "b"}},
	}
	for _, tc := range cases {
		plan, err := Tasks(mustParse(t, tc.expression), admin, nil, filter.Pagination{Limit: 10, Page: 1}, time.Time{})
		if err != nil {
			t.Fatalf("%s: compose: %v", tc.expression, err)
		}
		where, args := plan.Where()
		if where != tc.where {
			t.Fatalf("%s: unexpected where:\n%s", tc.expression, where)
		}
		if diff := cmp.Diff(tc.args, args); diff != "" {
			t.Fatalf("%s: args mismatch (-want +got):\n%s", tc.expression, diff)
		}
	}
}

func TestTasksCompanyWithoutCompanyMatchesNothing(t *testing.T) {
	plan, err := Tasks(mustParse(t, "company=current-user"), Scope{Admin: true, UserID: 42}, nil, filter.Pagination{Limit: 10, Page: 1}, time.Time{})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if where, _ := plan.Where(); where != "WHERE (0 = 1)" {
		t.Fatalf("unexpected where %q", where)
	}
}

func TestTasksDateRangeResolvesNow(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	plan, err := Tasks(mustParse(t, "createdTime=FROM=2024-03-01,TO=NOW"), Scope{Admin: true}, nil, filter.Pagination{Limit: 10, Page: 1}, now)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	where, args := plan.Where()
	if where != "WHERE (t.created_at >= ?) AND (t.created_at <= ?)" {
		t.Fatalf("unexpected where %q", where)
	}
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Unix()
	if diff := cmp.Diff([]any{from, now.Unix()}, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestTasksOrder(t *testing.T) {
	order, err := filter.Tasks.ParseOrder("important:DESC,createdTime")
	if err != nil {
		t.Fatalf("parse order: %v", err)
	}
	plan, err := Tasks(filter.ClauseSet{}, Scope{Admin: true}, order, filter.Pagination{Limit: filter.AllRows}, time.Time{})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	sql, _ := plan.SelectSQL("t.id")
	if sql != "SELECT t.id FROM tasks t ORDER BY t.important DESC, t.created_at ASC, t.id ASC" {
		t.Fatalf("unexpected sql %q", sql)
	}
}

func TestFiltersPlan(t *testing.T) {
	page := filter.Pagination{Limit: 10, Page: 1}

	plan, err := Filters(filter.ClauseSet{}, Scope{UserID: 7}, nil, page)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	where, args := plan.Where()
	want := "WHERE (((f.public = 1 OR f.created_by = ?) AND (f.is_active = 1)) OR (f.users_remembered = 1 AND f.created_by = ?))"
	if where != want {
		t.Fatalf("unexpected where:\n%s", where)
	}
	if diff := cmp.Diff([]any{int64(7), int64(7)}, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}

	plan, err = Filters(filter.ClauseSet{}, Scope{UserID: 7, ReportViewer: true}, nil, page)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if where, _ := plan.Where(); !strings.Contains(where, "f.public = 1 OR f.created_by = ? OR f.report = 1") {
		t.Fatalf("expected report filters for a report viewer, got:\n%s", where)
	}

	inactive, err := filter.Filters.ParseParams(map[string][]string{"isActive": {"FALSE"}, "public": {"FALSE"}})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	plan, err = Filters(inactive, Scope{UserID: 7}, nil, page)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	where, args = plan.Where()
	want = "WHERE (((f.public = 1 OR f.created_by = ?) AND (f.public = 0 AND f.created_by = ?) AND (f.is_active = 0 AND f.created_by = ?)) OR (f.users_remembered = 1 AND f.created_by = ?))"
	if where != want {
		t.Fatalf("unexpected where:\n%s", where)
	}
	if len(args) != 4 {
		t.Fatalf("expected 4 args, got %v", args)
	}

	plan, err = Filters(inactive, Scope{Admin: true, UserID: 1}, nil, page)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if where, _ := plan.Where(); where != "WHERE (((f.public = 0) AND (f.is_active = 0)) OR (f.users_remembered = 1 AND f.created_by = ?))" {
		t.Fatalf("unexpected admin where:\n%s", where)
	}
}

func TestScopeFor(t *testing.T) {
	p := &access.Principal{UserID: 3, CompanyID: 9, Active: true, Capabilities: access.CapReportFilters}
	if diff := cmp.Diff(Scope{UserID: 3, CompanyID: 9, ReportViewer: true}, ScopeFor(p)); diff != "" {
		t.Fatalf("scope mismatch (-want +got):\n%s", diff)
	}
	if ScopeFor(nil) != (Scope{}) {
		t.Fatalf("expected an empty scope for nil")
	}
}
