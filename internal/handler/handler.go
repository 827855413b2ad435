// Package handler serves the JSON API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/seice/seice/internal/grading"
	appI18n "github.com/seice/seice/internal/i18n"
	"github.com/seice/seice/internal/model"
	"github.com/seice/seice/internal/store"
)

const maxBodyBytes = 1 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	grading *grading.Service
}

// New creates a new Handler.
func New(s *store.Store, g *grading.Service) *Handler {
	return &Handler{store: s, grading: g}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/logout", h.handleLogout)
			r.Post("/exams/{examID}/submissions", h.handleSubmitOnline)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(model.UserRoleTeacher, model.UserRoleAdmin))

				r.Get("/classes", h.handleListClasses)
				r.Post("/classes", h.handleCreateClass)
				r.Get("/classes/{classID}/students", h.handleListStudents)
				r.Post("/students", h.handleCreateStudent)

				r.Get("/exams", h.handleListExams)
				r.Post("/exams", h.handleCreateExam)
				r.Get("/exams/{examID}", h.handleGetExam)
				r.Delete("/exams/{examID}", h.handleDeleteExam)
				r.Post("/exams/{examID}/preview", h.handlePreview)
				r.Put("/exams/{examID}/submissions/scanned", h.handleCorrectScanned)
				r.Get("/exams/{examID}/submissions", h.handleListSubmissions)
				r.Get("/exams/{examID}/ranking", h.handleRanking)

				r.Get("/submissions/{submissionID}", h.handleGetSubmission)
				r.Post("/submissions/{submissionID}/essays/{index}", h.handleReviewEssay)
				r.Post("/submissions/{submissionID}/essays/{index}/suggest", h.handleSuggestEssay)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireRole(model.UserRoleAdmin))
				r.Get("/users", h.handleListUsers)
				r.Post("/users", h.handleCreateUser)
				r.Post("/users/{userID}/toggle", h.handleToggleUserActive)
			})
		})
	})
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeMessage writes a localized error message.
func writeMessage(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	writeJSON(w, status, errorResponse{Error: appI18n.T(r.Context(), msgID)})
}

// writeError maps service and store errors to HTTP responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Translate(translator)
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  appI18n.T(r.Context(), "ErrValidation"),
			Fields: fields,
		})
	case errors.Is(err, errBadBody):
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
	case errors.Is(err, grading.ErrNotFound), errors.Is(err, store.ErrNotFound):
		writeMessage(w, r, http.StatusNotFound, "ErrNotFound")
	case errors.Is(err, grading.ErrAlreadySubmitted):
		writeMessage(w, r, http.StatusConflict, "ErrAlreadySubmitted")
	case errors.Is(err, store.ErrDuplicate):
		writeMessage(w, r, http.StatusConflict, "ErrDuplicate")
	case errors.Is(err, grading.ErrInvalidInput):
		writeMessage(w, r, http.StatusUnprocessableEntity, "ErrInvalidInput")
	case errors.Is(err, grading.ErrReviewerUnavailable):
		writeMessage(w, r, http.StatusServiceUnavailable, "ErrReviewerUnavailable")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeMessage(w, r, http.StatusInternalServerError, "ErrInternal")
	}
}

var errBadBody = errors.New("malformed request body")

// decode reads a JSON body into v and validates it.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		slog.Debug("bad request body", "path", r.URL.Path, "error", err)
		return errBadBody
	}
	return validate.Struct(v)
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
