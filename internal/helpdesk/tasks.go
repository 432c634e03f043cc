package helpdesk

import (
	"context"
	"net/url"
	"slices"

	"github.com/Joseda-hg/lazydesk/internal/access"
	"github.com/Joseda-hg/lazydesk/internal/apperr"
	"github.com/Joseda-hg/lazydesk/internal/filter"
	"github.com/Joseda-hg/lazydesk/internal/model"
	"github.com/Joseda-hg/lazydesk/internal/query"
)

// ListTasks lists tasks matching ad-hoc query parameters.
func (s *Service) ListTasks(ctx context.Context, p *access.Principal, params url.Values) (Page[model.Task], error) {
	if err := requirePrincipal(p); err != nil {
		return Page[model.Task]{}, err
	}
	clauses, err := filter.Tasks.ParseParams(params)
	if err != nil {
		return Page[model.Task]{}, err
	}
	order, page, err := listOptions(filter.Tasks, params.Get("order"), params.Get("limit"), params.Get("page"))
	if err != nil {
		return Page[model.Task]{}, err
	}
	return s.listTasks(ctx, p, clauses, order, page)
}

// ListTasksForFilter runs a saved filter. Only order, limit and page may be
// supplied next to it.
func (s *Service) ListTasksForFilter(ctx context.Context, p *access.Principal, filterID int64, params url.Values) (Page[model.Task], error) {
	if err := requirePrincipal(p); err != nil {
		return Page[model.Task]{}, err
	}
	for key := range params {
		if !slices.Contains(filter.RequestParams, key) {
			return Page[model.Task]{}, apperr.Invalid(key, params.Get(key), "only order, limit and page may accompany a saved filter")
		}
	}
	order, page, err := listOptions(filter.Tasks, params.Get("order"), params.Get("limit"), params.Get("page"))
	if err != nil {
		return Page[model.Task]{}, err
	}

	f, err := s.store.GetFilter(ctx, filterID)
	if err != nil {
		return Page[model.Task]{}, err
	}
	if err := authorizeUse(p, &f); err != nil {
		return Page[model.Task]{}, err
	}
	clauses, err := filter.ParseExpression(f.Expression)
	if err != nil {
		return Page[model.Task]{}, err
	}
	return s.listTasks(ctx, p, clauses, order, page)
}

// ListTasksForExpression runs an unsaved filter expression with the same
// paging rules as a saved one.
func (s *Service) ListTasksForExpression(ctx context.Context, p *access.Principal, expression string, params url.Values) (Page[model.Task], error) {
	if err := requirePrincipal(p); err != nil {
		return Page[model.Task]{}, err
	}
	clauses, err := filter.ParseExpression(expression)
	if err != nil {
		return Page[model.Task]{}, err
	}
	order, page, err := listOptions(filter.Tasks, params.Get("order"), params.Get("limit"), params.Get("page"))
	if err != nil {
		return Page[model.Task]{}, err
	}
	return s.listTasks(ctx, p, clauses, order, page)
}

func (s *Service) listTasks(ctx context.Context, p *access.Principal, clauses filter.ClauseSet, order filter.Order, page filter.Pagination) (Page[model.Task], error) {
	if err := authorize(p, access.ListTasks, access.Options{"clauses": clauses}); err != nil {
		return Page[model.Task]{}, err
	}
	plan, err := query.Tasks(clauses, query.ScopeFor(p), order, page, s.now())
	if err != nil {
		return Page[model.Task]{}, err
	}
	rows, err := s.store.ListTasks(ctx, plan)
	if err != nil {
		return Page[model.Task]{}, err
	}
	return paginate(ctx, s, plan, rows)
}

func (s *Service) GetTask(ctx context.Context, p *access.Principal, taskID int64) (model.Task, error) {
	if err := requirePrincipal(p); err != nil {
		return model.Task{}, err
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return model.Task{}, err
	}
	if err := authorize(p, access.ShowTask, &task); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// ListComments returns a task's comments. Internal comments are only shown
// to callers who may update every task.
func (s *Service) ListComments(ctx context.Context, p *access.Principal, taskID int64) ([]model.Comment, error) {
	if _, err := s.GetTask(ctx, p, taskID); err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if p.IsAdmin() || p.Can(access.CapUpdateAllTasks) {
		return comments, nil
	}
	visible := comments[:0]
	for _, comment := range comments {
		if !comment.Internal {
			visible = append(visible, comment)
		}
	}
	return visible, nil
}
