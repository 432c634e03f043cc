// Package seed fills an empty database with a small helpdesk: three roles, a
// customer company, one project, a handful of tasks and saved filters.
package seed

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/Joseda-hg/lazydesk/internal/access"
	"github.com/Joseda-hg/lazydesk/internal/db"
	"github.com/Joseda-hg/lazydesk/internal/model"
)

type Fixture struct {
	Admin    model.User
	Agent    model.User
	Customer model.User
	// Tokens maps usernames to their API tokens.
	Tokens map[string]string

	Company model.Company
	Project model.Project

	StatusNew    model.Status
	StatusOpen   model.Status
	StatusClosed model.Status
	TagBilling   model.Tag
	TagBug       model.Tag

	Tasks []model.Task
	// Filters maps filter titles to the saved filters.
	Filters map[string]model.Filter
}

// GenerateToken returns a random API token.
func GenerateToken() (string, error) {
	return gonanoid.New(32)
}

// Demo seeds store. Task timestamps are spread over the days before now.
func Demo(ctx context.Context, store *db.Store, now time.Time) (Fixture, error) {
	fx := Fixture{Tokens: map[string]string{}, Filters: map[string]model.Filter{}}

	adminRole, err := store.CreateRole(ctx, db.RoleInput{Title: "Administrator", Capabilities: access.CapAdmin | access.CapLoginToSystem})
	if err != nil {
		return Fixture{}, err
	}
	agentRole, err := store.CreateRole(ctx, db.RoleInput{
		Title: "Agent",
		Capabilities: access.CapLoginToSystem | access.CapCreateTasks | access.CapUpdateAllTasks |
			access.CapReportFilters | access.CapShareFilters | access.CapProjectSharedFilters,
	})
	if err != nil {
		return Fixture{}, err
	}
	customerRole, err := store.CreateRole(ctx, db.RoleInput{Title: "Customer", Capabilities: access.CapLoginToSystem | access.CapCreateTasks})
	if err != nil {
		return Fixture{}, err
	}

	if fx.Company, err = store.CreateCompany(ctx, "Acme"); err != nil {
		return Fixture{}, err
	}

	createUser := func(username string, roleID int64, companyID *int64) (model.User, error) {
		token, err := GenerateToken()
		if err != nil {
			return model.User{}, fmt.Errorf("generate token: %w", err)
		}
		user, err := store.CreateUser(ctx, db.UserInput{
			Username:  username,
			Email:     username + "@example.com",
			RoleID:    roleID,
			CompanyID: companyID,
			APIToken:  token,
		})
		if err != nil {
			return model.User{}, err
		}
		fx.Tokens[username] = token
		return user, nil
	}
	if fx.Admin, err = createUser("admin", adminRole.ID, nil); err != nil {
		return Fixture{}, err
	}
	if fx.Agent, err = createUser("alice", agentRole.ID, nil); err != nil {
		return Fixture{}, err
	}
	if fx.Customer, err = createUser("bob", customerRole.ID, &fx.Company.ID); err != nil {
		return Fixture{}, err
	}

	if fx.Project, err = store.CreateProject(ctx, "Support", fx.Admin.ID); err != nil {
		return Fixture{}, err
	}
	if err := store.GrantProject(ctx, fx.Agent.ID, fx.Project.ID, access.ACLViewAllTasks|access.ACLResolveTask|access.ACLCreateTask); err != nil {
		return Fixture{}, err
	}
	if err := store.GrantProject(ctx, fx.Customer.ID, fx.Project.ID, access.ACLViewOwnTasks|access.ACLCreateTask); err != nil {
		return Fixture{}, err
	}

	if fx.StatusNew, err = store.CreateStatus(ctx, "New", "#3b82f6"); err != nil {
		return Fixture{}, err
	}
	if fx.StatusOpen, err = store.CreateStatus(ctx, "In progress", "#f59e0b"); err != nil {
		return Fixture{}, err
	}
	if fx.StatusClosed, err = store.CreateStatus(ctx, "Closed", "#10b981"); err != nil {
		return Fixture{}, err
	}
	if fx.TagBilling, err = store.CreateTag(ctx, "billing"); err != nil {
		return Fixture{}, err
	}
	if fx.TagBug, err = store.CreateTag(ctx, "bug"); err != nil {
		return Fixture{}, err
	}

	day := 24 * time.Hour
	closedAt := now.Add(-1 * day)
	tasks := []db.TaskInput{
		{
			Title:       "Printer on fire",
			Description: "Second floor printer is smoking.",
			StatusID:    fx.StatusNew.ID,
			ProjectID:   &fx.Project.ID,
			CreatedBy:   fx.Customer.ID,
			RequestedBy: &fx.Customer.ID,
			CompanyID:   &fx.Company.ID,
			Important:   true,
			CreatedAt:   now.Add(-5 * day),
			AssigneeIDs: []int64{fx.Agent.ID},
		},
		{
			Title:       "Invoice mismatch",
			Description: "March invoice shows the wrong total.",
			StatusID:    fx.StatusOpen.ID,
			ProjectID:   &fx.Project.ID,
			CreatedBy:   fx.Customer.ID,
			RequestedBy: &fx.Customer.ID,
			CompanyID:   &fx.Company.ID,
			CreatedAt:   now.Add(-4 * day),
			TagIDs:      []int64{fx.TagBilling.ID},
			AssigneeIDs: []int64{fx.Agent.ID},
		},
		{
			Title:       "Upgrade database",
			StatusID:    fx.StatusNew.ID,
			CreatedBy:   fx.Agent.ID,
			CreatedAt:   now.Add(-3 * day),
			TagIDs:      []int64{fx.TagBug.ID},
			FollowerIDs: []int64{fx.Admin.ID},
		},
		{
			Title:     "Quarterly report",
			StatusID:  fx.StatusClosed.ID,
			ProjectID: &fx.Project.ID,
			CreatedBy: fx.Admin.ID,
			Important: true,
			CreatedAt: now.Add(-2 * day),
			ClosedAt:  &closedAt,
		},
		{
			Title:       "Password reset",
			StatusID:    fx.StatusNew.ID,
			CreatedBy:   fx.Customer.ID,
			CompanyID:   &fx.Company.ID,
			CreatedAt:   now.Add(-1 * day),
			FollowerIDs: []int64{fx.Agent.ID},
		},
	}
	for _, input := range tasks {
		task, err := store.CreateTask(ctx, input)
		if err != nil {
			return Fixture{}, err
		}
		fx.Tasks = append(fx.Tasks, task)
	}

	if _, err := store.AddComment(ctx, fx.Tasks[0].ID, fx.Customer.ID, "It is really on fire.", false); err != nil {
		return Fixture{}, err
	}
	if _, err := store.AddComment(ctx, fx.Tasks[0].ID, fx.Agent.ID, "Called facilities.", true); err != nil {
		return Fixture{}, err
	}

	filters := []struct {
		owner int64
		input db.FilterInput
	}{
		{fx.Agent.ID, db.FilterInput{
			Title:      "My queue",
			Expression: fmt.Sprintf("status=%d,%d&assigned=current-user", fx.StatusNew.ID, fx.StatusOpen.ID),
			Columns:    []string{"id", "title", "status", "createdTime"},
			Public:     true,
			Default:    true,
			Active:     true,
		}},
		{fx.Agent.ID, db.FilterInput{
			Title:      "Billing",
			Expression: fmt.Sprintf("tag=%d", fx.TagBilling.ID),
			Active:     true,
		}},
		{fx.Admin.ID, db.FilterInput{
			Title:      "Important work",
			Expression: "important=TRUE&archived=FALSE",
			Report:     true,
			Active:     true,
		}},
		{fx.Customer.ID, db.FilterInput{
			Title:      "My requests",
			Expression: "requester=current-user",
			Active:     true,
		}},
	}
	for _, entry := range filters {
		f, err := store.CreateFilter(ctx, entry.owner, entry.input)
		if err != nil {
			return Fixture{}, err
		}
		fx.Filters[f.Title] = f
	}

	return fx, nil
}
