package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Joseda-hg/lazydesk/internal/apperr"
	"github.com/Joseda-hg/lazydesk/internal/model"
	"github.com/Joseda-hg/lazydesk/internal/query"
)

type FilterInput struct {
	Title      string
	Expression string
	Columns    []string
	Public     bool
	Report     bool
	Default    bool
	Active     bool
	Remembered bool
	ProjectID  *int64
}

const filterColumns = "f.id, f.title, f.expression, f.columns, f.public, f.report, f.is_active, f.is_default, " +
	"f.users_remembered, f.created_by, f.project_id, f.created_at, f.updated_at"

type filterRow struct {
	ID         int64
	Title      string
	Expression string
	Columns    string
	Public     int64
	Report     int64
	Active     int64
	Default    int64
	Remembered int64
	CreatedBy  int64
	ProjectID  sql.NullInt64
	CreatedAt  int64
	UpdatedAt  int64
}

func scanFilter(row scanner) (filterRow, error) {
	var r filterRow
	err := row.Scan(&r.ID, &r.Title, &r.Expression, &r.Columns, &r.Public, &r.Report, &r.Active, &r.Default,
		&r.Remembered, &r.CreatedBy, &r.ProjectID, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *Store) CreateFilter(ctx context.Context, createdBy int64, input FilterInput) (model.Filter, error) {
	columns, err := encodeColumns(input.Columns)
	if err != nil {
		return model.Filter{}, err
	}
	now := s.now().Unix()
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO filters (title, expression, columns, public, report, is_active, is_default, users_remembered, created_by, project_id, created_at, updated_at) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		strings.TrimSpace(input.Title), input.Expression, columns, boolInt(input.Public), boolInt(input.Report),
		boolInt(input.Active), boolInt(input.Default), boolInt(input.Remembered), createdBy, nullID(input.ProjectID), now, now,
	)
	if err != nil {
		return model.Filter{}, fmt.Errorf("create filter: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Filter{}, err
	}
	return s.GetFilter(ctx, id)
}

// UpdateFilter replaces the editable fields. Ownership and the remembered
// flag are left untouched.
func (s *Store) UpdateFilter(ctx context.Context, filterID int64, input FilterInput) (model.Filter, error) {
	columns, err := encodeColumns(input.Columns)
	if err != nil {
		return model.Filter{}, err
	}
	res, err := s.DB.ExecContext(ctx,
		"UPDATE filters SET title = ?, expression = ?, columns = ?, public = ?, report = ?, is_active = ?, is_default = ?, project_id = ?, updated_at = ? WHERE id = ?",
		strings.TrimSpace(input.Title), input.Expression, columns, boolInt(input.Public), boolInt(input.Report),
		boolInt(input.Active), boolInt(input.Default), nullID(input.ProjectID), s.now().Unix(), filterID,
	)
	if err != nil {
		return model.Filter{}, fmt.Errorf("update filter %d: %w", filterID, err)
	}
	if err := expectRow(res, "filter", filterID); err != nil {
		return model.Filter{}, err
	}
	return s.GetFilter(ctx, filterID)
}

func (s *Store) DeleteFilter(ctx context.Context, filterID int64) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM filters WHERE id = ?", filterID)
	if err != nil {
		return fmt.Errorf("delete filter %d: %w", filterID, err)
	}
	return expectRow(res, "filter", filterID)
}

func (s *Store) SetFilterActive(ctx context.Context, filterID int64, active bool) (model.Filter, error) {
	res, err := s.DB.ExecContext(ctx, "UPDATE filters SET is_active = ?, updated_at = ? WHERE id = ?", boolInt(active), s.now().Unix(), filterID)
	if err != nil {
		return model.Filter{}, fmt.Errorf("set filter %d active: %w", filterID, err)
	}
	if err := expectRow(res, "filter", filterID); err != nil {
		return model.Filter{}, err
	}
	return s.GetFilter(ctx, filterID)
}

// SetRememberedFilter makes filterID the user's only remembered filter.
func (s *Store) SetRememberedFilter(ctx context.Context, userID, filterID int64) (model.Filter, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Filter{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.rememberTx(ctx, tx, userID, filterID); err != nil {
		return model.Filter{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Filter{}, err
	}
	return s.GetFilter(ctx, filterID)
}

// CopyAndRemember remembers a private copy of source owned by userID. A copy
// the user already owns with the same title, expression and project is
// reused.
func (s *Store) CopyAndRemember(ctx context.Context, userID int64, source model.Filter) (model.Filter, error) {
	columns, err := encodeColumns(source.Columns)
	if err != nil {
		return model.Filter{}, err
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Filter{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var copyID int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM filters WHERE created_by = ? AND public = 0 AND report = 0 AND title = ? AND expression = ? AND project_id IS ? ORDER BY id LIMIT 1",
		userID, source.Title, source.Expression, nullID(source.ProjectID),
	).Scan(&copyID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		now := s.now().Unix()
		res, err := tx.ExecContext(ctx,
			"INSERT INTO filters (title, expression, columns, public, report, is_active, is_default, users_remembered, created_by, project_id, created_at, updated_at) "+
				"VALUES (?, ?, ?, 0, 0, 1, 0, 0, ?, ?, ?, ?)",
			source.Title, source.Expression, columns, userID, nullID(source.ProjectID), now, now,
		)
		if err != nil {
			return model.Filter{}, fmt.Errorf("copy filter %d: %w", source.ID, err)
		}
		if copyID, err = res.LastInsertId(); err != nil {
			return model.Filter{}, err
		}
	case err != nil:
		return model.Filter{}, fmt.Errorf("find copy of filter %d: %w", source.ID, err)
	default:
		if _, err := tx.ExecContext(ctx, "UPDATE filters SET is_active = 1 WHERE id = ?", copyID); err != nil {
			return model.Filter{}, fmt.Errorf("activate filter %d: %w", copyID, err)
		}
	}

	if err := s.rememberTx(ctx, tx, userID, copyID); err != nil {
		return model.Filter{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Filter{}, err
	}
	return s.GetFilter(ctx, copyID)
}

func (s *Store) rememberTx(ctx context.Context, tx *sql.Tx, userID, filterID int64) error {
	if _, err := tx.ExecContext(ctx, "UPDATE filters SET users_remembered = 0 WHERE created_by = ? AND users_remembered = 1", userID); err != nil {
		return fmt.Errorf("clear remembered filters for %d: %w", userID, err)
	}
	res, err := tx.ExecContext(ctx, "UPDATE filters SET users_remembered = 1, updated_at = ? WHERE id = ? AND created_by = ?", s.now().Unix(), filterID, userID)
	if err != nil {
		return fmt.Errorf("remember filter %d: %w", filterID, err)
	}
	return expectRow(res, "filter", filterID)
}

func (s *Store) RememberedFilter(ctx context.Context, userID int64) (model.Filter, error) {
	row, err := scanFilter(s.DB.QueryRowContext(ctx,
		"SELECT "+filterColumns+" FROM filters f WHERE f.created_by = ? AND f.users_remembered = 1 ORDER BY f.updated_at DESC, f.id DESC LIMIT 1", userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Filter{}, fmt.Errorf("remembered filter for user %d: %w", userID, apperr.ErrNotFound)
	}
	if err != nil {
		return model.Filter{}, fmt.Errorf("remembered filter for user %d: %w", userID, err)
	}
	return mapFilter(row)
}

func (s *Store) GetFilter(ctx context.Context, filterID int64) (model.Filter, error) {
	row, err := scanFilter(s.DB.QueryRowContext(ctx, "SELECT "+filterColumns+" FROM filters f WHERE f.id = ?", filterID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Filter{}, apperr.NotFound("filter", filterID)
	}
	if err != nil {
		return model.Filter{}, fmt.Errorf("get filter %d: %w", filterID, err)
	}
	return mapFilter(row)
}

func (s *Store) ListFilters(ctx context.Context, plan query.Plan) ([]model.Filter, error) {
	sqlText, args := plan.SelectSQL(filterColumns)
	rows, err := s.DB.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("list filters: %w", err)
	}
	defer rows.Close()

	filters := []model.Filter{}
	for rows.Next() {
		row, err := scanFilter(rows)
		if err != nil {
			return nil, err
		}
		filter, err := mapFilter(row)
		if err != nil {
			return nil, err
		}
		filters = append(filters, filter)
	}
	return filters, rows.Err()
}

// CountDefaultFilters counts active default filters a user owns in a
// project scope (nil project means unscoped).
func (s *Store) CountDefaultFilters(ctx context.Context, userID int64, projectID *int64) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM filters WHERE created_by = ? AND is_default = 1 AND is_active = 1 AND project_id IS ?",
		userID, nullID(projectID),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count default filters: %w", err)
	}
	return count, nil
}

func mapFilter(row filterRow) (model.Filter, error) {
	columns := []string{}
	if strings.TrimSpace(row.Columns) != "" {
		if err := json.Unmarshal([]byte(row.Columns), &columns); err != nil {
			return model.Filter{}, fmt.Errorf("filter %d columns: %w", row.ID, err)
		}
	}
	return model.Filter{
		ID:         row.ID,
		Title:      row.Title,
		Expression: row.Expression,
		Columns:    columns,
		Public:     row.Public != 0,
		Report:     row.Report != 0,
		Active:     row.Active != 0,
		Default:    row.Default != 0,
		Remembered: row.Remembered != 0,
		CreatedBy:  row.CreatedBy,
		ProjectID:  fromNullID(row.ProjectID),
		CreatedAt:  fromUnix(row.CreatedAt),
		UpdatedAt:  fromUnix(row.UpdatedAt),
	}, nil
}

func encodeColumns(columns []string) (string, error) {
	if columns == nil {
		columns = []string{}
	}
	data, err := json.Marshal(columns)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func expectRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(kind, id)
	}
	return nil
}
