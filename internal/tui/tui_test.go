package tui

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Joseda-hg/lazydesk/internal/db"
	"github.com/Joseda-hg/lazydesk/internal/helpdesk"
	"github.com/Joseda-hg/lazydesk/internal/model"
	"github.com/Joseda-hg/lazydesk/internal/seed"
)

func TestLoadFiltersShowsDefaultFilterTasks(t *testing.T) {
	ui, fx := newTestUI(t, "alice")

	if err := ui.loadFilters(); err != nil {
		t.Fatalf("load filters: %v", err)
	}
	if got := filterTitles(ui.filters); !slices.Equal(got, []string{"My queue", "Billing", "Important work"}) {
		t.Fatalf("unexpected filters %v", got)
	}
	if got := taskIDs(ui.tasks); !slices.Equal(got, []int64{fx.Tasks[0].ID, fx.Tasks[1].ID}) {
		t.Fatalf("unexpected tasks %v", got)
	}
	if ui.total == nil || *ui.total != 2 {
		t.Fatalf("expected total 2, got %v", ui.total)
	}
	if len(ui.comments) != 2 {
		t.Fatalf("expected both comments for an agent, got %d", len(ui.comments))
	}
}

func TestMoveDownSwitchesFilter(t *testing.T) {
	ui, fx := newTestUI(t, "alice")
	if err := ui.loadFilters(); err != nil {
		t.Fatalf("load filters: %v", err)
	}

	if err := ui.moveDown(nil, nil); err != nil {
		t.Fatalf("move down: %v", err)
	}
	if ui.selectedFilterEntry().Title != "Billing" {
		t.Fatalf("expected Billing selected, got %q", ui.selectedFilterEntry().Title)
	}
	if got := taskIDs(ui.tasks); !slices.Equal(got, []int64{fx.Tasks[1].ID}) {
		t.Fatalf("unexpected tasks %v", got)
	}
}

func TestApplyExpression(t *testing.T) {
	ui, fx := newTestUI(t, "alice")
	if err := ui.loadFilters(); err != nil {
		t.Fatalf("load filters: %v", err)
	}

	if err := ui.applyExpression("important=TRUE"); err != nil {
		t.Fatalf("apply expression: %v", err)
	}
	if got := taskIDs(ui.tasks); !slices.Equal(got, []int64{fx.Tasks[0].ID, fx.Tasks[3].ID}) {
		t.Fatalf("unexpected tasks %v", got)
	}

	if err := ui.applyExpression("bogus=1"); err != nil {
		t.Fatalf("apply bad expression: %v", err)
	}
	if ui.status == "" {
		t.Fatalf("expected a parse error in the status line")
	}
	if ui.expression != "important=TRUE" {
		t.Fatalf("expected previous expression to be kept, got %q", ui.expression)
	}

	if err := ui.clearExpression(nil, nil); err != nil {
		t.Fatalf("clear expression: %v", err)
	}
	if ui.expression != "" || len(ui.tasks) != 2 {
		t.Fatalf("expected the saved filter back, got %q with %d tasks", ui.expression, len(ui.tasks))
	}
}

func TestCustomerSeesOwnTasksOnly(t *testing.T) {
	ui, fx := newTestUI(t, "bob")
	if err := ui.loadFilters(); err != nil {
		t.Fatalf("load filters: %v", err)
	}
	if got := filterTitles(ui.filters); !slices.Equal(got, []string{"My queue", "My requests"}) {
		t.Fatalf("unexpected filters %v", got)
	}

	if err := ui.applyExpression("status=" + strconv.FormatInt(fx.StatusNew.ID, 10)); err != nil {
		t.Fatalf("apply expression: %v", err)
	}
	if got := taskIDs(ui.tasks); !slices.Equal(got, []int64{fx.Tasks[0].ID, fx.Tasks[4].ID}) {
		t.Fatalf("unexpected tasks %v", got)
	}
	if len(ui.comments) != 1 || ui.comments[0].Internal {
		t.Fatalf("expected only the public comment, got %+v", ui.comments)
	}
}

func TestRememberFilter(t *testing.T) {
	ui, _ := newTestUI(t, "alice")
	if err := ui.loadFilters(); err != nil {
		t.Fatalf("load filters: %v", err)
	}

	ui.selectedFilter = 2 // Important work, a report filter owned by admin
	if err := ui.rememberFilter(nil, nil); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if ui.status != "permission denied" {
		t.Fatalf("expected permission denied, got %q", ui.status)
	}

	ui.selectedFilter = 0
	if err := ui.rememberFilter(nil, nil); err != nil {
		t.Fatalf("remember: %v", err)
	}
	remembered, err := ui.service.RememberedFilter(context.Background(), ui.principal)
	if err != nil {
		t.Fatalf("remembered filter: %v", err)
	}
	if remembered.Title != "My queue" {
		t.Fatalf("expected My queue remembered, got %q", remembered.Title)
	}
}

func TestToggleActiveKeepsFilterListed(t *testing.T) {
	ui, _ := newTestUI(t, "alice")
	if err := ui.loadFilters(); err != nil {
		t.Fatalf("load filters: %v", err)
	}
	ui.selectedFilter = 1

	if err := ui.toggleFilterActive(nil, nil); err != nil {
		t.Fatalf("toggle active: %v", err)
	}
	if got := filterTitles(ui.filters); !slices.Equal(got, []string{"My queue", "Important work", "Billing"}) {
		t.Fatalf("unexpected filters %v", got)
	}
	if ui.filters[2].Active {
		t.Fatalf("expected Billing to be inactive")
	}
}

func TestSaveAndDeleteFilter(t *testing.T) {
	ui, _ := newTestUI(t, "alice")
	if err := ui.loadFilters(); err != nil {
		t.Fatalf("load filters: %v", err)
	}
	if err := ui.applyExpression("archived=FALSE"); err != nil {
		t.Fatalf("apply expression: %v", err)
	}

	if err := ui.newFilter(nil, nil); err != nil {
		t.Fatalf("new filter: %v", err)
	}
	if ui.form.fields[fieldExpression].Value != "archived=FALSE" {
		t.Fatalf("expected the current expression in the form, got %q", ui.form.fields[fieldExpression].Value)
	}
	ui.form.fields[fieldTitle].Value = "Open work"
	ui.form.fields[fieldPublic].Value = toggleValue(ui.form.fields[fieldPublic].Value)

	if err := ui.submitForm(nil, nil); err != nil {
		t.Fatalf("submit form: %v", err)
	}
	if ui.form != nil {
		t.Fatalf("expected the form to close, status %q", ui.status)
	}
	last := ui.filters[len(ui.filters)-1]
	if last.Title != "Open work" || !last.Public {
		t.Fatalf("unexpected saved filter %+v", last)
	}

	ui.focus = viewFilters
	ui.selectedFilter = len(ui.filters) - 1
	if err := ui.deleteFilter(nil, nil); err != nil {
		t.Fatalf("delete filter: %v", err)
	}
	if got := filterTitles(ui.filters); !slices.Equal(got, []string{"My queue", "Billing", "Important work"}) {
		t.Fatalf("unexpected filters %v", got)
	}
}

func TestParseFormFieldsRejectsBadToggle(t *testing.T) {
	fields := buildFormFields("status=1")
	fields[fieldReport].Value = "maybe"

	if _, err := parseFormFields(fields); err == nil {
		t.Fatalf("expected an error for a non-boolean toggle")
	}
}

func TestActionKeys(t *testing.T) {
	want := map[rune]string{'n': "save", 'm': "remember", 'a': "toggle-active", 'd': "delete", '/': "expression", 'g': "clear-expression"}
	for key, action := range want {
		if actionKeys[key] != action {
			t.Fatalf("key %q: expected %s, got %q", key, action, actionKeys[key])
		}
	}

	ui, _ := newTestUI(t, "alice")
	actions := ui.actions()
	for key, action := range actionKeys {
		if actions[action] == nil {
			t.Fatalf("key %q: no handler for %s", key, action)
		}
	}
	if !strings.Contains(helpText(), "n save the current expression") {
		t.Fatalf("expected help to describe n as save, got:\n%s", helpText())
	}
}

func TestComputeLayoutMinimums(t *testing.T) {
	l := computeLayout(10, 3)
	if l.leftWidth < 10 {
		t.Fatalf("expected a usable left pane, got %d", l.leftWidth)
	}
	if l.tasksHeight < 4 {
		t.Fatalf("expected at least 4 rows for tasks, got %d", l.tasksHeight)
	}
}

func newTestUI(t *testing.T, username string) (*UI, seed.Fixture) {
	t.Helper()
	store, cleanup := newTestStore(t)
	t.Cleanup(cleanup)

	fx, err := seed.Demo(context.Background(), store, time.Now())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	service := helpdesk.NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	users := map[string]model.User{"admin": fx.Admin, "alice": fx.Agent, "bob": fx.Customer}
	principal, err := service.Principal(context.Background(), users[username].ID)
	if err != nil {
		t.Fatalf("principal: %v", err)
	}
	return newUI(service, principal), fx
}

func newTestStore(t *testing.T) (*db.Store, func()) {
	t.Helper()
	dbConn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return db.NewStore(dbConn), func() {
		_ = dbConn.Close()
	}
}

func filterTitles(filters []model.Filter) []string {
	titles := make([]string, 0, len(filters))
	for _, f := range filters {
		titles = append(titles, f.Title)
	}
	return titles
}

func taskIDs(tasks []model.Task) []int64 {
	ids := make([]int64, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	return ids
}
