package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazydesk/internal/db"
	"github.com/Joseda-hg/lazydesk/internal/helpdesk"
	"github.com/Joseda-hg/lazydesk/internal/model"
	"github.com/Joseda-hg/lazydesk/internal/seed"
)

func newTestServer(t *testing.T) (http.Handler, seed.Fixture) {
	t.Helper()
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	store := db.NewStore(conn)

	fx, err := seed.Demo(context.Background(), store, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(helpdesk.NewService(store, logger), logger).Handler(), fx
}

func do(t *testing.T, h http.Handler, token, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRequiresBearerToken(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, "", http.MethodGet, "/api/tasks", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = do(t, h, "bogus", http.MethodGet, "/api/tasks", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode[errorPayload](t, rec).Error)
}

func TestListTasksEndpoint(t *testing.T) {
	h, fx := newTestServer(t)

	rec := do(t, h, fx.Tokens["bob"], http.MethodGet, "/api/tasks?limit=2&order=id:DESC", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	page := decode[helpdesk.Page[model.Task]](t, rec)
	require.Len(t, page.Data, 2)
	assert.Equal(t, fx.Tasks[4].ID, page.Data[0].ID)
	assert.Equal(t, fx.Tasks[1].ID, page.Data[1].ID)
	assert.Equal(t, 3, *page.Total)
	assert.Equal(t, 2, *page.PageCount)

	rec = do(t, h, fx.Tokens["bob"], http.MethodGet, "/api/tasks?limit=999", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":null`)
}

func TestInvalidParametersEchoKeyAndValue(t *testing.T) {
	h, fx := newTestServer(t)

	rec := do(t, h, fx.Tokens["alice"], http.MethodGet, "/api/tasks?status=open", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	payload := decode[errorPayload](t, rec)
	assert.Equal(t, "invalid parameters", payload.Error)
	assert.Equal(t, "status", payload.Key)
	assert.Equal(t, "open", payload.Value)

	rec = do(t, h, fx.Tokens["alice"], http.MethodGet, "/api/tasks/abc", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFilterLifecycle(t *testing.T) {
	h, fx := newTestServer(t)
	alice := fx.Tokens["alice"]

	rec := do(t, h, alice, http.MethodPost, "/api/filters", `{"title":"Bugs","filter":"tag=`+fmt.Sprint(fx.TagBug.ID)+`","columns":["id","title"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.Filter](t, rec)
	assert.True(t, created.Active)
	path := fmt.Sprintf("/api/filters/%d", created.ID)

	rec = do(t, h, alice, http.MethodGet, path+"/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tasks := decode[helpdesk.Page[model.Task]](t, rec)
	require.Len(t, tasks.Data, 1)
	assert.Equal(t, fx.Tasks[2].ID, tasks.Data[0].ID)

	rec = do(t, h, alice, http.MethodGet, path+"/tasks?status=1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, fx.Tokens["bob"], http.MethodGet, path, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, alice, http.MethodPut, path, `{"title":"Bugs and more","filter":"tag=`+fmt.Sprint(fx.TagBug.ID)+`","public":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[model.Filter](t, rec).Public)

	rec = do(t, h, alice, http.MethodPut, path+"/active", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = do(t, h, alice, http.MethodPut, path+"/active", `{"isActive":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[model.Filter](t, rec).Active)

	rec = do(t, h, alice, http.MethodPut, path+"/remembered", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, h, alice, http.MethodGet, "/api/filters/remembered", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[model.Filter](t, rec).ID)

	rec = do(t, h, alice, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, alice, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateFilterRejectsUnknownFields(t *testing.T) {
	h, fx := newTestServer(t)

	rec := do(t, h, fx.Tokens["alice"], http.MethodPost, "/api/filters", `{"title":"x","filter":"status=1","owner":3}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "body", decode[errorPayload](t, rec).Key)
}

func TestListFiltersEndpoint(t *testing.T) {
	h, fx := newTestServer(t)

	rec := do(t, h, fx.Tokens["bob"], http.MethodGet, "/api/filters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[helpdesk.Page[model.Filter]](t, rec)
	titles := make([]string, 0, len(page.Data))
	for _, f := range page.Data {
		titles = append(titles, f.Title)
	}
	assert.Equal(t, []string{"My queue", "My requests"}, titles)
}

func TestTaskCommentsHideInternalNotes(t *testing.T) {
	h, fx := newTestServer(t)
	path := fmt.Sprintf("/api/tasks/%d/comments", fx.Tasks[0].ID)

	rec := do(t, h, fx.Tokens["bob"], http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Comment](t, rec), 1)

	rec = do(t, h, fx.Tokens["alice"], http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Comment](t, rec), 2)

	rec = do(t, h, fx.Tokens["bob"], http.MethodGet, fmt.Sprintf("/api/tasks/%d", fx.Tasks[2].ID), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
