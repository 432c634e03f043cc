// Package access decides whether an authenticated principal may perform an
// action on a filter, a project or a task.
//
// Decisions are pure functions of the principal (with its role capabilities
// and project ACL entries preloaded), the action and the subject.
package access

import (
	"slices"

	"github.com/Joseda-hg/lazydesk/internal/model"
)

type Action string

const (
	ShowFilter          Action = "SHOW_FILTER"
	UpdateFilter        Action = "UPDATE_FILTER"
	DeleteFilter        Action = "DELETE_FILTER"
	CreateFilter        Action = "CREATE_FILTER"
	CreateProjectFilter Action = "CREATE_PROJECT_FILTER"
	UpdateProjectFilter Action = "UPDATE_PROJECT_FILTER"
	SetRememberedFilter Action = "SET_REMEMBERED_FILTER"
	ListTasks           Action = "LIST_TASKS"
	ShowTask            Action = "SHOW_TASK"
	AssignTask          Action = "ASSIGN_TASK"
	FollowTask          Action = "FOLLOW_TASK"
	TagTask             Action = "TAG_TASK"
)

var knownActions = []Action{
	ShowFilter, UpdateFilter, DeleteFilter, CreateFilter,
	CreateProjectFilter, UpdateProjectFilter, SetRememberedFilter,
	ListTasks, ShowTask, AssignTask, FollowTask, TagTask,
}

func (a Action) Known() bool {
	return slices.Contains(knownActions, a)
}

// Principal is the authenticated caller. A nil *Principal is anonymous.
type Principal struct {
	UserID       int64
	CompanyID    int64
	Username     string
	Active       bool
	Capabilities Capabilities
	Projects     map[int64]ProjectACL
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Capabilities.Has(CapAdmin)
}

func (p *Principal) Can(c Capabilities) bool {
	return p != nil && p.Capabilities.Has(c)
}

// ProjectACL reports the caller's ACL entry for a project. ok is false when
// the caller has no association with the project at all.
func (p *Principal) ProjectACL(projectID int64) (ProjectACL, bool) {
	if p == nil || p.Projects == nil {
		return 0, false
	}
	acl, ok := p.Projects[projectID]
	return acl, ok
}

// FilterProject is the subject of the project-scoped filter actions. Filter
// is nil when creating.
type FilterProject struct {
	Filter    *model.Filter
	ProjectID int64
}

// Options is the subject for actions that are not about one entity.
type Options map[string]any

// Decide returns whether p may perform action on subject. Unknown actions
// and unexpected subject shapes are denied.
func Decide(p *Principal, action Action, subject any) bool {
	if p == nil || !p.Active {
		return false
	}
	if !action.Known() {
		return false
	}
	if p.IsAdmin() {
		return true
	}

	switch action {
	case ShowFilter:
		f, ok := filterSubject(subject)
		return ok && (f.Public || f.CreatedBy == p.UserID || (f.Report && p.Can(CapReportFilters)))
	case UpdateFilter, DeleteFilter:
		f, ok := filterSubject(subject)
		return ok && f.CreatedBy == p.UserID
	case CreateFilter:
		return true
	case CreateProjectFilter:
		fp, ok := projectSubject(subject)
		if !ok {
			return false
		}
		_, member := p.ProjectACL(fp.ProjectID)
		return member
	case UpdateProjectFilter:
		fp, ok := projectSubject(subject)
		if !ok || fp.Filter == nil {
			return false
		}
		_, member := p.ProjectACL(fp.ProjectID)
		return member && fp.Filter.CreatedBy == p.UserID
	case SetRememberedFilter:
		f, ok := filterSubject(subject)
		return ok && (f.Public || f.CreatedBy == p.UserID)
	case ListTasks:
		return true
	case ShowTask, FollowTask:
		t, ok := taskSubject(subject)
		return ok && canSeeTask(p, t)
	case AssignTask:
		t, ok := taskSubject(subject)
		return ok && (p.Can(CapUpdateAllTasks) || hasProjectACL(p, t.ProjectID, ACLResolveTask))
	case TagTask:
		t, ok := taskSubject(subject)
		if !ok {
			return false
		}
		return t.CreatedBy == p.UserID ||
			slices.Contains(t.AssigneeIDs, p.UserID) ||
			p.Can(CapUpdateAllTasks) ||
			hasProjectACL(p, t.ProjectID, ACLResolveTask)
	}
	return false
}

func canSeeTask(p *Principal, t *model.Task) bool {
	if t.CreatedBy == p.UserID {
		return true
	}
	if t.RequestedBy != nil && *t.RequestedBy == p.UserID {
		return true
	}
	if slices.Contains(t.AssigneeIDs, p.UserID) || slices.Contains(t.FollowerIDs, p.UserID) {
		return true
	}
	return hasProjectACL(p, t.ProjectID, ACLViewAllTasks)
}

func hasProjectACL(p *Principal, projectID *int64, flag ProjectACL) bool {
	if projectID == nil {
		return false
	}
	acl, ok := p.ProjectACL(*projectID)
	return ok && acl.Has(flag)
}

func filterSubject(subject any) (*model.Filter, bool) {
	switch v := subject.(type) {
	case *model.Filter:
		return v, v != nil
	case model.Filter:
		return &v, true
	}
	return nil, false
}

func projectSubject(subject any) (FilterProject, bool) {
	switch v := subject.(type) {
	case FilterProject:
		return v, true
	case *FilterProject:
		if v != nil {
			return *v, true
		}
	}
	return FilterProject{}, false
}

func taskSubject(subject any) (*model.Task, bool) {
	switch v := subject.(type) {
	case *model.Task:
		return v, v != nil
	case model.Task:
		return &v, true
	}
	return nil, false
}
