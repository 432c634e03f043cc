package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Joseda-hg/lazydesk/internal/apperr"
	"github.com/Joseda-hg/lazydesk/internal/model"
	"github.com/Joseda-hg/lazydesk/internal/query"
)

type TaskInput struct {
	Title       string
	Description string
	StatusID    int64
	ProjectID   *int64
	CreatedBy   int64
	RequestedBy *int64
	CompanyID   *int64
	Important   bool
	Archived    bool
	CreatedAt   time.Time
	StartedAt   *time.Time
	DeadlineAt  *time.Time
	ClosedAt    *time.Time
	TagIDs      []int64
	FollowerIDs []int64
	AssigneeIDs []int64
	Attributes  []model.AttributeValue
}

const taskColumns = "t.id, t.title, t.description, t.status_id, t.project_id, t.created_by, t.requested_by, t.company_id, " +
	"t.important, t.archived, t.created_at, t.started_at, t.deadline_at, t.closed_at, t.updated_at"

// taskRow is the single scanned shape every task query projects through.
type taskRow struct {
	ID          int64
	Title       string
	Description string
	StatusID    int64
	ProjectID   sql.NullInt64
	CreatedBy   int64
	RequestedBy sql.NullInt64
	CompanyID   sql.NullInt64
	Important   int64
	Archived    int64
	CreatedAt   int64
	StartedAt   sql.NullInt64
	DeadlineAt  sql.NullInt64
	ClosedAt    sql.NullInt64
	UpdatedAt   int64
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (taskRow, error) {
	var r taskRow
	err := row.Scan(&r.ID, &r.Title, &r.Description, &r.StatusID, &r.ProjectID, &r.CreatedBy, &r.RequestedBy, &r.CompanyID,
		&r.Important, &r.Archived, &r.CreatedAt, &r.StartedAt, &r.DeadlineAt, &r.ClosedAt, &r.UpdatedAt)
	return r, err
}

func (s *Store) CreateStatus(ctx context.Context, title, color string) (model.Status, error) {
	res, err := s.DB.ExecContext(ctx, "INSERT INTO statuses (title, color) VALUES (?, ?)", strings.TrimSpace(title), color)
	if err != nil {
		return model.Status{}, fmt.Errorf("create status: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Status{}, err
	}
	return model.Status{ID: id, Title: strings.TrimSpace(title), Color: color}, nil
}

func (s *Store) CreateTag(ctx context.Context, title string) (model.Tag, error) {
	res, err := s.DB.ExecContext(ctx, "INSERT INTO tags (title) VALUES (?)", strings.TrimSpace(title))
	if err != nil {
		return model.Tag{}, fmt.Errorf("create tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Tag{}, err
	}
	return model.Tag{ID: id, Title: strings.TrimSpace(title)}, nil
}

func (s *Store) CreateTaskAttribute(ctx context.Context, title, kind string) (model.TaskAttribute, error) {
	if kind == "" {
		kind = "input"
	}
	res, err := s.DB.ExecContext(ctx, "INSERT INTO task_attributes (title, type) VALUES (?, ?)", strings.TrimSpace(title), kind)
	if err != nil {
		return model.TaskAttribute{}, fmt.Errorf("create task attribute: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.TaskAttribute{}, err
	}
	return model.TaskAttribute{ID: id, Title: strings.TrimSpace(title), Type: kind}, nil
}

func (s *Store) CreateTask(ctx context.Context, input TaskInput) (model.Task, error) {
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Task{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO tasks (title, description, status_id, project_id, created_by, requested_by, company_id, important, archived, created_at, started_at, deadline_at, closed_at, updated_at) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		strings.TrimSpace(input.Title), input.Description, input.StatusID, nullID(input.ProjectID), input.CreatedBy,
		nullID(input.RequestedBy), nullID(input.CompanyID), boolInt(input.Important), boolInt(input.Archived),
		createdAt.Unix(), nullUnix(input.StartedAt), nullUnix(input.DeadlineAt), nullUnix(input.ClosedAt), createdAt.Unix(),
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	taskID, err := res.LastInsertId()
	if err != nil {
		return model.Task{}, err
	}

	for _, tagID := range input.TagIDs {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO task_tags (task_id, tag_id) VALUES (?, ?)", taskID, tagID); err != nil {
			return model.Task{}, fmt.Errorf("tag task %d: %w", taskID, err)
		}
	}
	for _, userID := range input.FollowerIDs {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO task_followers (task_id, user_id) VALUES (?, ?)", taskID, userID); err != nil {
			return model.Task{}, fmt.Errorf("follow task %d: %w", taskID, err)
		}
	}
	for _, userID := range input.AssigneeIDs {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO task_assignments (task_id, user_id, created_at) VALUES (?, ?, ?)", taskID, userID, createdAt.Unix()); err != nil {
			return model.Task{}, fmt.Errorf("assign task %d: %w", taskID, err)
		}
	}
	for _, value := range input.Attributes {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO task_attribute_values (task_id, attribute_id, value) VALUES (?, ?, ?)", taskID, value.AttributeID, value.Value); err != nil {
			return model.Task{}, fmt.Errorf("set task %d attribute %d: %w", taskID, value.AttributeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Task{}, err
	}
	return s.GetTask(ctx, taskID)
}

func (s *Store) GetTask(ctx context.Context, taskID int64) (model.Task, error) {
	row, err := scanTask(s.DB.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks t WHERE t.id = ?", taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, apperr.NotFound("task", taskID)
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("get task %d: %w", taskID, err)
	}

	tasks := []model.Task{mapTask(row)}
	if err := s.hydrateTasks(ctx, tasks); err != nil {
		return model.Task{}, err
	}
	return tasks[0], nil
}

// ListTasks runs the plan's row query. Relations are loaded afterwards in one
// query per link table.
func (s *Store) ListTasks(ctx context.Context, plan query.Plan) ([]model.Task, error) {
	sqlText, args := plan.SelectSQL(taskColumns)
	rows, err := s.DB.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	var result []model.Task
	for rows.Next() {
		row, err := scanTask(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		result = append(result, mapTask(row))
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if err := s.hydrateTasks(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) hydrateTasks(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	index := make(map[int64]int, len(tasks))
	ids := make([]any, 0, len(tasks))
	for i, task := range tasks {
		index[task.ID] = i
		ids = append(ids, task.ID)
	}
	in := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")

	links := []struct {
		table  string
		column string
		assign func(task *model.Task, id int64)
	}{
		{"task_tags", "tag_id", func(t *model.Task, id int64) { t.TagIDs = append(t.TagIDs, id) }},
		{"task_followers", "user_id", func(t *model.Task, id int64) { t.FollowerIDs = append(t.FollowerIDs, id) }},
		{"task_assignments", "user_id", func(t *model.Task, id int64) { t.AssigneeIDs = append(t.AssigneeIDs, id) }},
	}
	for _, link := range links {
		sqlText := fmt.Sprintf("SELECT task_id, %s FROM %s WHERE task_id IN (%s) ORDER BY task_id, %s", link.column, link.table, in, link.column)
		if err := s.eachPair(ctx, sqlText, ids, func(taskID, id int64) {
			link.assign(&tasks[index[taskID]], id)
		}); err != nil {
			return fmt.Errorf("load %s: %w", link.table, err)
		}
	}

	rows, err := s.DB.QueryContext(ctx,
		"SELECT task_id, attribute_id, value FROM task_attribute_values WHERE task_id IN ("+in+") ORDER BY task_id, attribute_id, value", ids...)
	if err != nil {
		return fmt.Errorf("load task attribute values: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var taskID int64
		var value model.AttributeValue
		if err := rows.Scan(&taskID, &value.AttributeID, &value.Value); err != nil {
			return err
		}
		task := &tasks[index[taskID]]
		task.Attributes = append(task.Attributes, value)
	}
	return rows.Err()
}

func (s *Store) eachPair(ctx context.Context, sqlText string, args []any, fn func(a, b int64)) error {
	rows, err := s.DB.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a, b int64
		if err := rows.Scan(&a, &b); err != nil {
			return err
		}
		fn(a, b)
	}
	return rows.Err()
}

func (s *Store) AddComment(ctx context.Context, taskID, createdBy int64, body string, internal bool) (model.Comment, error) {
	now := s.now()
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO comments (task_id, created_by, body, internal, created_at) VALUES (?, ?, ?, ?, ?)",
		taskID, createdBy, body, boolInt(internal), now.Unix(),
	)
	if err != nil {
		return model.Comment{}, fmt.Errorf("add comment to task %d: %w", taskID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Comment{}, err
	}
	return model.Comment{ID: id, TaskID: taskID, CreatedBy: createdBy, Body: body, Internal: internal, CreatedAt: fromUnix(now.Unix())}, nil
}

func (s *Store) ListComments(ctx context.Context, taskID int64) ([]model.Comment, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, task_id, created_by, body, internal, created_at FROM comments WHERE task_id = ? ORDER BY created_at, id", taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments for task %d: %w", taskID, err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var (
			comment   model.Comment
			internal  int64
			createdAt int64
		)
		if err := rows.Scan(&comment.ID, &comment.TaskID, &comment.CreatedBy, &comment.Body, &internal, &createdAt); err != nil {
			return nil, err
		}
		comment.Internal = internal != 0
		comment.CreatedAt = fromUnix(createdAt)
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

func mapTask(row taskRow) model.Task {
	return model.Task{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		StatusID:    row.StatusID,
		ProjectID:   fromNullID(row.ProjectID),
		CreatedBy:   row.CreatedBy,
		RequestedBy: fromNullID(row.RequestedBy),
		CompanyID:   fromNullID(row.CompanyID),
		Important:   row.Important != 0,
		Archived:    row.Archived != 0,
		CreatedAt:   fromUnix(row.CreatedAt),
		StartedAt:   fromNullUnix(row.StartedAt),
		DeadlineAt:  fromNullUnix(row.DeadlineAt),
		ClosedAt:    fromNullUnix(row.ClosedAt),
		UpdatedAt:   fromUnix(row.UpdatedAt),
		TagIDs:      []int64{},
		FollowerIDs: []int64{},
		AssigneeIDs: []int64{},
		Attributes:  []model.AttributeValue{},
	}
}
