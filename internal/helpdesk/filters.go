package helpdesk

import (
	"context"
	"net/url"
	"strings"

	"github.com/Joseda-hg/lazydesk/internal/access"
	"github.com/Joseda-hg/lazydesk/internal/apperr"
	"github.com/Joseda-hg/lazydesk/internal/db"
	"github.com/Joseda-hg/lazydesk/internal/filter"
	"github.com/Joseda-hg/lazydesk/internal/model"
	"github.com/Joseda-hg/lazydesk/internal/query"
)

// FilterInput is the create/update payload for a saved filter. Active
// defaults to true when omitted.
type FilterInput struct {
	Title      string   `json:"title"`
	Expression string   `json:"filter"`
	Columns    []string `json:"columns"`
	Public     bool     `json:"public"`
	Report     bool     `json:"report"`
	Default    bool     `json:"default"`
	Active     *bool    `json:"isActive"`
	ProjectID  *int64   `json:"projectId"`
}

func (s *Service) ListFilters(ctx context.Context, p *access.Principal, params url.Values) (Page[model.Filter], error) {
	if err := requirePrincipal(p); err != nil {
		return Page[model.Filter]{}, err
	}
	clauses, err := filter.Filters.ParseParams(params)
	if err != nil {
		return Page[model.Filter]{}, err
	}
	order, page, err := listOptions(filter.Filters, params.Get("order"), params.Get("limit"), params.Get("page"))
	if err != nil {
		return Page[model.Filter]{}, err
	}

	plan, err := query.Filters(clauses, query.ScopeFor(p), order, page)
	if err != nil {
		return Page[model.Filter]{}, err
	}
	rows, err := s.store.ListFilters(ctx, plan)
	if err != nil {
		return Page[model.Filter]{}, err
	}
	return paginate(ctx, s, plan, rows)
}

func (s *Service) GetFilter(ctx context.Context, p *access.Principal, filterID int64) (model.Filter, error) {
	if err := requirePrincipal(p); err != nil {
		return model.Filter{}, err
	}
	f, err := s.store.GetFilter(ctx, filterID)
	if err != nil {
		return model.Filter{}, err
	}
	if err := authorizeUse(p, &f); err != nil {
		return model.Filter{}, err
	}
	return f, nil
}

// authorizeUse allows showing or running a filter. Inactive filters are
// reserved for whoever may update them.
func authorizeUse(p *access.Principal, f *model.Filter) error {
	if err := authorize(p, access.ShowFilter, f); err != nil {
		return err
	}
	if !f.Active {
		return authorize(p, access.UpdateFilter, f)
	}
	return nil
}

func (s *Service) CreateFilter(ctx context.Context, p *access.Principal, input FilterInput) (model.Filter, error) {
	if err := requirePrincipal(p); err != nil {
		return model.Filter{}, err
	}
	dbInput, err := validateFilterInput(input)
	if err != nil {
		return model.Filter{}, err
	}

	if input.ProjectID != nil {
		if _, err := s.store.GetProject(ctx, *input.ProjectID); err != nil {
			return model.Filter{}, err
		}
		if err := authorize(p, access.CreateProjectFilter, access.FilterProject{ProjectID: *input.ProjectID}); err != nil {
			return model.Filter{}, err
		}
	} else if err := authorize(p, access.CreateFilter, nil); err != nil {
		return model.Filter{}, err
	}

	f, err := s.store.CreateFilter(ctx, p.UserID, dbInput)
	if err != nil {
		return model.Filter{}, err
	}
	s.logger.Info("filter created", "filter", f.ID, "user", p.UserID, "public", f.Public, "report", f.Report)
	s.checkDefaults(ctx, f)
	return f, nil
}

func (s *Service) UpdateFilter(ctx context.Context, p *access.Principal, filterID int64, input FilterInput) (model.Filter, error) {
	if err := requirePrincipal(p); err != nil {
		return model.Filter{}, err
	}
	existing, err := s.store.GetFilter(ctx, filterID)
	if err != nil {
		return model.Filter{}, err
	}
	if err := authorize(p, access.UpdateFilter, &existing); err != nil {
		return model.Filter{}, err
	}
	dbInput, err := validateFilterInput(input)
	if err != nil {
		return model.Filter{}, err
	}
	if input.ProjectID != nil {
		if _, err := s.store.GetProject(ctx, *input.ProjectID); err != nil {
			return model.Filter{}, err
		}
		if err := authorize(p, access.UpdateProjectFilter, access.FilterProject{Filter: &existing, ProjectID: *input.ProjectID}); err != nil {
			return model.Filter{}, err
		}
	}

	f, err := s.store.UpdateFilter(ctx, filterID, dbInput)
	if err != nil {
		return model.Filter{}, err
	}
	s.logger.Info("filter updated", "filter", f.ID, "user", p.UserID)
	s.checkDefaults(ctx, f)
	return f, nil
}

func (s *Service) DeleteFilter(ctx context.Context, p *access.Principal, filterID int64) error {
	if err := requirePrincipal(p); err != nil {
		return err
	}
	existing, err := s.store.GetFilter(ctx, filterID)
	if err != nil {
		return err
	}
	if err := authorize(p, access.DeleteFilter, &existing); err != nil {
		return err
	}
	if err := s.store.DeleteFilter(ctx, filterID); err != nil {
		return err
	}
	s.logger.Info("filter deleted", "filter", filterID, "user", p.UserID)
	return nil
}

// SetFilterActive moves a filter between Active and Inactive.
func (s *Service) SetFilterActive(ctx context.Context, p *access.Principal, filterID int64, active bool) (model.Filter, error) {
	if err := requirePrincipal(p); err != nil {
		return model.Filter{}, err
	}
	existing, err := s.store.GetFilter(ctx, filterID)
	if err != nil {
		return model.Filter{}, err
	}
	if err := authorize(p, access.UpdateFilter, &existing); err != nil {
		return model.Filter{}, err
	}
	return s.store.SetFilterActive(ctx, filterID, active)
}

// RememberFilter marks a filter as the caller's remembered filter. A public
// filter owned by someone else is remembered through a private copy owned by
// the caller, which needs the same project access as creating it would.
func (s *Service) RememberFilter(ctx context.Context, p *access.Principal, filterID int64) (model.Filter, error) {
	if err := requirePrincipal(p); err != nil {
		return model.Filter{}, err
	}
	existing, err := s.store.GetFilter(ctx, filterID)
	if err != nil {
		return model.Filter{}, err
	}
	if err := authorize(p, access.SetRememberedFilter, &existing); err != nil {
		return model.Filter{}, err
	}

	if existing.CreatedBy == p.UserID {
		return s.store.SetRememberedFilter(ctx, p.UserID, existing.ID)
	}
	if existing.ProjectID != nil {
		if err := authorize(p, access.CreateProjectFilter, access.FilterProject{ProjectID: *existing.ProjectID}); err != nil {
			return model.Filter{}, err
		}
	}
	copied, err := s.store.CopyAndRemember(ctx, p.UserID, existing)
	if err != nil {
		return model.Filter{}, err
	}
	s.logger.Info("filter copied and remembered", "source", existing.ID, "filter", copied.ID, "user", p.UserID)
	return copied, nil
}

func (s *Service) RememberedFilter(ctx context.Context, p *access.Principal) (model.Filter, error) {
	if err := requirePrincipal(p); err != nil {
		return model.Filter{}, err
	}
	return s.store.RememberedFilter(ctx, p.UserID)
}

// checkDefaults only reports: more than one default filter per user and
// project is tolerated.
func (s *Service) checkDefaults(ctx context.Context, f model.Filter) {
	if !f.Default {
		return
	}
	count, err := s.store.CountDefaultFilters(ctx, f.CreatedBy, f.ProjectID)
	if err != nil {
		s.logger.Warn("count default filters", "filter", f.ID, "error", err)
		return
	}
	if count > 1 {
		s.logger.Warn("multiple default filters in one scope", "user", f.CreatedBy, "project", f.ProjectID, "count", count)
	}
}

func validateFilterInput(input FilterInput) (db.FilterInput, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return db.FilterInput{}, apperr.Invalid("title", "", "required")
	}
	expression := strings.TrimSpace(input.Expression)
	if expression == "" {
		return db.FilterInput{}, apperr.Invalid("filter", "", "required")
	}
	if _, err := filter.ParseExpression(expression); err != nil {
		return db.FilterInput{}, err
	}
	for _, column := range input.Columns {
		if _, ok := filter.Tasks.Column(column); !ok {
			return db.FilterInput{}, apperr.Invalid("columns", column, "unknown column")
		}
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}
	return db.FilterInput{
		Title:      title,
		Expression: expression,
		Columns:    input.Columns,
		Public:     input.Public,
		Report:     input.Report,
		Default:    input.Default,
		Active:     active,
		ProjectID:  input.ProjectID,
	}, nil
}
