package access

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/Joseda-hg/lazydesk/internal/model"
)

const (
	ownerID    = int64(1)
	strangerID = int64(2)
	projectID  = int64(10)
)

func agent(id int64, caps Capabilities, projects map[int64]ProjectACL) *Principal {
	return &Principal{UserID: id, Active: true, Capabilities: CapLoginToSystem | caps, Projects: projects}
}

func TestDecideDeniesAnonymousInactiveAndUnknown(t *testing.T) {
	f := &model.Filter{Public: true, CreatedBy: ownerID}

	if Decide(nil, ShowFilter, f) {
		t.Fatalf("expected anonymous callers to be denied")
	}
	inactive := &Principal{UserID: ownerID, Capabilities: CapAdmin}
	if Decide(inactive, ShowFilter, f) {
		t.Fatalf("expected inactive callers to be denied, even admins")
	}
	admin := agent(99, CapAdmin, nil)
	if Decide(admin, Action("LAUNCH_ROCKET"), f) {
		t.Fatalf("expected unknown actions to be denied, even for admins")
	}
	if !Decide(admin, UpdateFilter, f) {
		t.Fatalf("expected admins to be allowed known actions")
	}
}

func TestDecideFilterVisibility(t *testing.T) {
	owner := agent(ownerID, 0, nil)
	stranger := agent(strangerID, 0, nil)
	reporter := agent(strangerID, CapReportFilters, nil)

	private := &model.Filter{CreatedBy: ownerID}
	public := &model.Filter{CreatedBy: ownerID, Public: true}
	report := &model.Filter{CreatedBy: ownerID, Report: true}

	cases := []struct {
		name string
		p    *Principal
		f    *model.Filter
		want bool
	}{
		{"owner sees private", owner, private, true},
		{"stranger misses private", stranger, private, false},
		{"stranger sees public", stranger, public, true},
		{"stranger misses report", stranger, report, false},
		{"reporter sees report", reporter, report, true},
	}
	for _, tc := range cases {
		if got := Decide(tc.p, ShowFilter, tc.f); got != tc.want {
			t.Fatalf("%s: expected %t, got %t", tc.name, tc.want, got)
		}
	}

	// Value subjects are accepted as well as pointers.
	if !Decide(stranger, ShowFilter, *public) {
		t.Fatalf("expected a filter value subject to be accepted")
	}
	if Decide(stranger, ShowFilter, "filter") {
		t.Fatalf("expected an unexpected subject to be denied")
	}
}

func TestDecideFilterOwnership(t *testing.T) {
	owner := agent(ownerID, 0, nil)
	stranger := agent(strangerID, CapReportFilters|CapShareFilters, nil)
	public := &model.Filter{CreatedBy: ownerID, Public: true}
	report := &model.Filter{CreatedBy: ownerID, Report: true}

	for _, action := range []Action{UpdateFilter, DeleteFilter} {
		if !Decide(owner, action, public) {
			t.Fatalf("%s: expected the owner to be allowed", action)
		}
		if Decide(stranger, action, public) {
			t.Fatalf("%s: expected a stranger to be denied", action)
		}
	}

	if !Decide(stranger, SetRememberedFilter, public) {
		t.Fatalf("expected a public filter to be rememberable")
	}
	if Decide(stranger, SetRememberedFilter, report) {
		t.Fatalf("expected a report filter to need ownership to be remembered")
	}
	if !Decide(stranger, CreateFilter, nil) {
		t.Fatalf("expected any active user to create filters")
	}
}

func TestDecideProjectFilters(t *testing.T) {
	member := agent(ownerID, 0, map[int64]ProjectACL{projectID: ACLViewOwnTasks})
	outsider := agent(strangerID, 0, map[int64]ProjectACL{})
	own := &model.Filter{CreatedBy: ownerID, ProjectID: ptr(projectID)}

	if !Decide(member, CreateProjectFilter, FilterProject{ProjectID: projectID}) {
		t.Fatalf("expected a project member to create project filters")
	}
	if Decide(outsider, CreateProjectFilter, FilterProject{ProjectID: projectID}) {
		t.Fatalf("expected an outsider to be denied")
	}
	if !Decide(member, UpdateProjectFilter, &FilterProject{Filter: own, ProjectID: projectID}) {
		t.Fatalf("expected the owner and member to update")
	}
	if Decide(member, UpdateProjectFilter, FilterProject{ProjectID: projectID}) {
		t.Fatalf("expected update without a filter to be denied")
	}
	foreign := &model.Filter{CreatedBy: strangerID, ProjectID: ptr(projectID)}
	if Decide(member, UpdateProjectFilter, FilterProject{Filter: foreign, ProjectID: projectID}) {
		t.Fatalf("expected a member who does not own the filter to be denied")
	}
}

func TestDecideTaskAccess(t *testing.T) {
	task := &model.Task{
		CreatedBy:   ownerID,
		ProjectID:   ptr(projectID),
		AssigneeIDs: []int64{3},
		FollowerIDs: []int64{4},
		RequestedBy: ptr(int64(5)),
	}

	for _, id := range []int64{ownerID, 3, 4, 5} {
		if !Decide(agent(id, 0, nil), ShowTask, task) {
			t.Fatalf("user %d: expected to see the task", id)
		}
	}
	if Decide(agent(strangerID, 0, map[int64]ProjectACL{projectID: ACLViewOwnTasks}), ShowTask, task) {
		t.Fatalf("expected view_own_tasks alone to hide other people's tasks")
	}
	viewer := agent(strangerID, 0, map[int64]ProjectACL{projectID: ACLViewAllTasks})
	if !Decide(viewer, ShowTask, task) || !Decide(viewer, FollowTask, task) {
		t.Fatalf("expected view_all_tasks to reveal the task")
	}

	if Decide(viewer, AssignTask, task) {
		t.Fatalf("expected assignment to need resolve rights")
	}
	resolver := agent(strangerID, 0, map[int64]ProjectACL{projectID: ACLResolveTask})
	if !Decide(resolver, AssignTask, task) || !Decide(resolver, TagTask, *task) {
		t.Fatalf("expected resolve_task to allow assigning and tagging")
	}
	if !Decide(agent(strangerID, CapUpdateAllTasks, nil), AssignTask, task) {
		t.Fatalf("expected update_all_tasks to allow assigning")
	}
	if !Decide(agent(3, 0, nil), TagTask, task) {
		t.Fatalf("expected an assignee to tag")
	}
	if !Decide(agent(strangerID, 0, nil), ListTasks, Options{}) {
		t.Fatalf("expected any active user to list tasks")
	}
}

func TestCapabilityNames(t *testing.T) {
	caps, err := ParseCapabilities([]string{"Admin", " report_filters ", ""})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if caps != CapAdmin|CapReportFilters {
		t.Fatalf("unexpected capabilities %v", caps)
	}
	if _, err := ParseCapabilities([]string{"fly"}); err == nil {
		t.Fatalf("expected unknown capability to fail")
	}

	data, err := json.Marshal(ACLViewAllTasks | ACLEditProject)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var acl ProjectACL
	if err := json.Unmarshal(data, &acl); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !slices.Equal(acl.Names(), []string{"view_all_tasks", "edit_project"}) {
		t.Fatalf("unexpected names %v", acl.Names())
	}
}

func ptr[T any](v T) *T { return &v }
