// Package helpdesk implements the filter and task listing operations the HTTP
// layer and the console call. Each operation parses and authorises its input
// before issuing any query that returns rows.
package helpdesk

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Joseda-hg/lazydesk/internal/access"
	"github.com/Joseda-hg/lazydesk/internal/apperr"
	"github.com/Joseda-hg/lazydesk/internal/db"
	"github.com/Joseda-hg/lazydesk/internal/filter"
	"github.com/Joseda-hg/lazydesk/internal/query"
)

type Service struct {
	store  *db.Store
	logger *slog.Logger
	now    func() time.Time
}

// Page is one page of a listing. Total and PageCount are nil when the caller
// asked for every row (limit=999).
type Page[T any] struct {
	Data      []T  `json:"data"`
	Total     *int `json:"total"`
	Page      int  `json:"page"`
	PageCount *int `json:"pageCount"`
}

func NewService(store *db.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

func (s *Service) Store() *db.Store { return s.store }

// Authenticate resolves an API token to an active principal.
func (s *Service) Authenticate(ctx context.Context, token string) (*access.Principal, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperr.ErrUnauthorized
	}
	userID, err := s.store.UserIDForToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.Principal(ctx, userID)
}

// Principal loads a user as a principal. Unknown or inactive users are
// unauthorized.
func (s *Service) Principal(ctx context.Context, userID int64) (*access.Principal, error) {
	p, err := s.store.LoadPrincipal(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	return p, nil
}

func requirePrincipal(p *access.Principal) error {
	if p == nil || !p.Active {
		return apperr.ErrUnauthorized
	}
	return nil
}

func authorize(p *access.Principal, action access.Action, subject any) error {
	if !access.Decide(p, action, subject) {
		return apperr.ErrPermissionDenied
	}
	return nil
}

// paginate runs the plan's count (when paginated) and shapes the page.
func paginate[T any](ctx context.Context, s *Service, plan query.Plan, rows []T) (Page[T], error) {
	page := Page[T]{Data: rows, Page: plan.Pagination().Page}
	if page.Data == nil {
		page.Data = []T{}
	}
	if !plan.Paginated() {
		page.Page = 1
		return page, nil
	}

	total, err := s.store.Count(ctx, plan)
	if err != nil {
		return Page[T]{}, err
	}
	pageCount := plan.Pagination().PageCount(total)
	page.Total = &total
	page.PageCount = &pageCount
	return page, nil
}

func listOptions(reg *filter.Registry, orderRaw, limit, pageRaw string) (filter.Order, filter.Pagination, error) {
	order, err := reg.ParseOrder(orderRaw)
	if err != nil {
		return nil, filter.Pagination{}, err
	}
	page, err := filter.ParsePagination(limit, pageRaw)
	if err != nil {
		return nil, filter.Pagination{}, err
	}
	return order, page, nil
}
