package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Joseda-hg/lazydesk/internal/access"
	"github.com/Joseda-hg/lazydesk/internal/apperr"
	"github.com/Joseda-hg/lazydesk/internal/model"
	"github.com/Joseda-hg/lazydesk/internal/query"
)

type Store struct {
	DB  *sql.DB
	now func() time.Time
}

type RoleInput struct {
	Title        string
	Capabilities access.Capabilities
}

type UserInput struct {
	Username  string
	Email     string
	RoleID    int64
	CompanyID *int64
	APIToken  string
	Inactive  bool
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db, now: time.Now}
}

func (s *Store) CreateRole(ctx context.Context, input RoleInput) (model.Role, error) {
	title := strings.TrimSpace(input.Title)
	res, err := s.DB.ExecContext(ctx, "INSERT INTO roles (title, acl) VALUES (?, ?)", title, int64(input.Capabilities))
	if err != nil {
		return model.Role{}, fmt.Errorf("create role: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Role{}, err
	}
	return model.Role{ID: id, Title: title, ACL: uint32(input.Capabilities)}, nil
}

func (s *Store) CreateCompany(ctx context.Context, title string) (model.Company, error) {
	title = strings.TrimSpace(title)
	res, err := s.DB.ExecContext(ctx, "INSERT INTO companies (title) VALUES (?)", title)
	if err != nil {
		return model.Company{}, fmt.Errorf("create company: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Company{}, err
	}
	return model.Company{ID: id, Title: title}, nil
}

func (s *Store) CreateUser(ctx context.Context, input UserInput) (model.User, error) {
	var token sql.NullString
	if input.APIToken != "" {
		token = sql.NullString{String: input.APIToken, Valid: true}
	}
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, role_id, company_id, api_token, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		strings.TrimSpace(input.Username), strings.TrimSpace(input.Email), input.RoleID, nullID(input.CompanyID),
		token, boolInt(!input.Inactive), s.now().Unix(),
	)
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return s.GetUser(ctx, id)
}

func (s *Store) GetUser(ctx context.Context, userID int64) (model.User, error) {
	var (
		user      model.User
		companyID sql.NullInt64
		active    int64
		createdAt int64
	)
	err := s.DB.QueryRowContext(ctx,
		"SELECT id, username, email, role_id, company_id, is_active, created_at FROM users WHERE id = ?", userID,
	).Scan(&user.ID, &user.Username, &user.Email, &user.RoleID, &companyID, &active, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, apperr.NotFound("user", userID)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user %d: %w", userID, err)
	}
	user.CompanyID = fromNullID(companyID)
	user.Active = active != 0
	user.CreatedAt = fromUnix(createdAt)
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT id FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}

	users := make([]model.User, 0, len(ids))
	for _, id := range ids {
		user, err := s.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// UserIDForToken resolves an API bearer token to its active user.
func (s *Store) UserIDForToken(ctx context.Context, token string) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, "SELECT id FROM users WHERE api_token = ? AND is_active = 1", token).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.ErrUnauthorized
	}
	if err != nil {
		return 0, fmt.Errorf("lookup token: %w", err)
	}
	return id, nil
}

func (s *Store) CreateProject(ctx context.Context, title string, createdBy int64) (model.Project, error) {
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO projects (title, created_by, created_at) VALUES (?, ?, ?)",
		strings.TrimSpace(title), createdBy, s.now().Unix(),
	)
	if err != nil {
		return model.Project{}, fmt.Errorf("create project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Project{}, err
	}
	return s.GetProject(ctx, id)
}

func (s *Store) GetProject(ctx context.Context, projectID int64) (model.Project, error) {
	var (
		project   model.Project
		active    int64
		createdAt int64
	)
	err := s.DB.QueryRowContext(ctx,
		"SELECT id, title, created_by, is_active, created_at FROM projects WHERE id = ?", projectID,
	).Scan(&project.ID, &project.Title, &project.CreatedBy, &active, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, apperr.NotFound("project", projectID)
	}
	if err != nil {
		return model.Project{}, fmt.Errorf("get project %d: %w", projectID, err)
	}
	project.Active = active != 0
	project.CreatedAt = fromUnix(createdAt)
	return project, nil
}

// GrantProject records (or replaces) the user's ACL entry for a project.
func (s *Store) GrantProject(ctx context.Context, userID, projectID int64, acl access.ProjectACL) error {
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO project_acl (user_id, project_id, acl) VALUES (?, ?, ?) ON CONFLICT (user_id, project_id) DO UPDATE SET acl = excluded.acl",
		userID, projectID, int64(acl),
	)
	if err != nil {
		return fmt.Errorf("grant project %d to user %d: %w", projectID, userID, err)
	}
	return nil
}

// LoadPrincipal reads a user with its role capabilities and project ACL
// entries, ready for the voter.
func (s *Store) LoadPrincipal(ctx context.Context, userID int64) (*access.Principal, error) {
	var (
		companyID sql.NullInt64
		active    int64
		acl       int64
		p         = &access.Principal{UserID: userID, Projects: map[int64]access.ProjectACL{}}
	)
	err := s.DB.QueryRowContext(ctx,
		"SELECT u.username, u.company_id, u.is_active, r.acl FROM users u JOIN roles r ON r.id = u.role_id WHERE u.id = ?", userID,
	).Scan(&p.Username, &companyID, &active, &acl)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("load principal %d: %w", userID, err)
	}
	p.CompanyID = companyID.Int64
	p.Active = active != 0
	p.Capabilities = access.Capabilities(acl)

	rows, err := s.DB.QueryContext(ctx, "SELECT project_id, acl FROM project_acl WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("load project acl for %d: %w", userID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var projectID, projectACL int64
		if err := rows.Scan(&projectID, &projectACL); err != nil {
			return nil, err
		}
		p.Projects[projectID] = access.ProjectACL(projectACL)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// Count runs the plan's count query.
func (s *Store) Count(ctx context.Context, plan query.Plan) (int, error) {
	sqlText, args := plan.CountSQL()
	var total int
	if err := s.DB.QueryRowContext(ctx, sqlText, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return total, nil
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func boolInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func fromUnix(v int64) time.Time {
	return time.Unix(v, 0).UTC()
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func fromNullUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromUnix(v.Int64)
	return &t
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil || *id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func fromNullID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
