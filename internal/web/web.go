package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/Joseda-hg/lazydesk/internal/access"
	"github.com/Joseda-hg/lazydesk/internal/apperr"
	"github.com/Joseda-hg/lazydesk/internal/helpdesk"
)

const requestIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

type Server struct {
	service *helpdesk.Service
	logger  *slog.Logger
}

func NewServer(service *helpdesk.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{service: service, logger: logger}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/filters", s.authed(s.listFiltersHandler))
	mux.HandleFunc("POST /api/filters", s.authed(s.createFilterHandler))
	mux.HandleFunc("GET /api/filters/remembered", s.authed(s.rememberedFilterHandler))
	mux.HandleFunc("GET /api/filters/{id}", s.authed(s.getFilterHandler))
	mux.HandleFunc("PUT /api/filters/{id}", s.authed(s.updateFilterHandler))
	mux.HandleFunc("DELETE /api/filters/{id}", s.authed(s.deleteFilterHandler))
	mux.HandleFunc("PUT /api/filters/{id}/active", s.authed(s.filterActiveHandler))
	mux.HandleFunc("PUT /api/filters/{id}/remembered", s.authed(s.rememberFilterHandler))
	mux.HandleFunc("GET /api/filters/{id}/tasks", s.authed(s.filterTasksHandler))
	mux.HandleFunc("GET /api/tasks", s.authed(s.listTasksHandler))
	mux.HandleFunc("GET /api/tasks/{id}", s.authed(s.getTaskHandler))
	mux.HandleFunc("GET /api/tasks/{id}/comments", s.authed(s.commentsHandler))
	return s.logRequests(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID, err := gonanoid.Generate(requestIDAlphabet, 12)
		if err != nil {
			requestID = "unknown"
		}
		w.Header().Set("X-Request-Id", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// authed resolves the bearer token before calling next.
func (s *Server) authed(next func(http.ResponseWriter, *http.Request, *access.Principal)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			s.writeError(w, apperr.ErrUnauthorized)
			return
		}
		p, err := s.service.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			s.writeError(w, err)
			return
		}
		next(w, r, p)
	}
}

func (s *Server) listFiltersHandler(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	page, err := s.service.ListFilters(r.Context(), p, r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) createFilterHandler(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	var input helpdesk.FilterInput
	if err := decodeBody(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	f, err := s.service.CreateFilter(r.Context(), p, input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) rememberedFilterHandler(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	f, err := s.service.RememberedFilter(r.Context(), p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) getFilterHandler(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	f, err := s.service.GetFilter(r.Context(), p, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) updateFilterHandler(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var input helpdesk.FilterInput
	if err := decodeBody(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	f, err := s.service.UpdateFilter(r.Context(), p, id, input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) deleteFilterHandler(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.service.DeleteFilter(r.Context(), p, id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) filterActiveHandler(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body struct {
		Active *bool `json:"isActive"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	if body.Active == nil {
		s.writeError(w, apperr.Invalid("isActive", "", "required"))
		return
	}
	f, err := s.service.SetFilterActive(r.Context(), p, id, *body.Active)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) rememberFilterHandler(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	f, err := s.service.RememberFilter(r.Context(), p, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) filterTasksHandler(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	page, err := s.service.ListTasksForFilter(r.Context(), p, id, r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) listTasksHandler(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	page, err := s.service.ListTasks(r.Context(), p, r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) getTaskHandler(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	task, err := s.service.GetTask(r.Context(), p, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) commentsHandler(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	comments, err := s.service.ListComments(r.Context(), p, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func parseID(r *http.Request) (int64, error) {
	value := r.PathValue("id")
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("id", value, "expected a positive integer")
	}
	return id, nil
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Invalid("body", "", err.Error())
	}
	return nil
}

type errorPayload struct {
	Error  string `json:"error"`
	Key    string `json:"key,omitempty"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps service failures to status codes. Storage failures are
// logged and answered without detail.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var invalid *apperr.InvalidParametersError
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusUnprocessableEntity, errorPayload{
			Error:  apperr.ErrInvalidParameters.Error(),
			Key:    invalid.Key,
			Value:  invalid.Value,
			Reason: invalid.Reason,
		})
	case errors.Is(err, apperr.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorPayload{Error: apperr.ErrUnauthorized.Error()})
	case errors.Is(err, apperr.ErrPermissionDenied):
		writeJSON(w, http.StatusForbidden, errorPayload{Error: apperr.ErrPermissionDenied.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorPayload{Error: err.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorPayload{Error: "internal error"})
	}
}

// ListenAndServe serves the API on port until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("web server listening", "port", port)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
