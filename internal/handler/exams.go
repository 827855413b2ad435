package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/seice/seice/internal/grading"
	"github.com/seice/seice/internal/model"
	"github.com/seice/seice/internal/report"
	"github.com/seice/seice/internal/store"
)

const (
	defaultRankingLimit = 10
	maxRankingLimit     = 100
)

type createClassRequest struct {
	Name string `json:"name" validate:"notblank,max=128"`
	Year int    `json:"year" validate:"gte=0"`
}

type createStudentRequest struct {
	ClassID    int64  `json:"class_id" validate:"required,gt=0"`
	Name       string `json:"name" validate:"notblank,max=128"`
	Enrollment string `json:"enrollment" validate:"notblank,max=64"`
	UserID     *int64 `json:"user_id" validate:"omitempty,gt=0"`
}

type questionRequest struct {
	Prompt             string   `json:"prompt" validate:"notblank"`
	Kind               string   `json:"kind" validate:"omitempty,oneof=single_choice essay"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correct_option_index" validate:"gte=0"`
	Subject            string   `json:"subject" validate:"max=64"`
	Weight             *float64 `json:"weight" validate:"omitempty,gte=0"`
}

type createExamRequest struct {
	ClassID   int64             `json:"class_id" validate:"required,gt=0"`
	Title     string            `json:"title" validate:"notblank,max=256"`
	TimeLimit int               `json:"time_limit" validate:"gte=0"`
	Questions []questionRequest `json:"questions" validate:"required,min=1,dive"`
}

type answersRequest struct {
	Answers []model.Answer `json:"answers"`
}

type submissionRequest struct {
	StudentID int64          `json:"student_id" validate:"required,gt=0"`
	Answers   []model.Answer `json:"answers"`
	TimeSpent int            `json:"time_spent" validate:"gte=0"`
}

type scannedRequest struct {
	StudentID int64          `json:"student_id" validate:"required,gt=0"`
	Answers   []model.Answer `json:"answers"`
}

type essayReviewRequest struct {
	Score   *float64 `json:"score" validate:"required"`
	Comment string   `json:"comment" validate:"max=2000"`
}

type resultResponse struct {
	Result  model.ScoringResult `json:"result"`
	Summary string              `json:"summary"`
}

type submissionResponse struct {
	model.Submission
	Summary string `json:"summary"`
}

func (h *Handler) handleListClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.store.ListClasses(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if classes == nil {
		classes = []model.Class{}
	}
	writeJSON(w, http.StatusOK, classes)
}

func (h *Handler) handleCreateClass(w http.ResponseWriter, r *http.Request) {
	var req createClassRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c := model.Class{Name: strings.TrimSpace(req.Name), Year: req.Year}
	id, err := h.store.CreateClass(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err = h.store.GetClass(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleListStudents(w http.ResponseWriter, r *http.Request) {
	classID, ok := idParam(r, "classID")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	if _, err := h.store.GetClass(r.Context(), classID); err != nil {
		writeError(w, r, err)
		return
	}
	students, err := h.store.ListStudentsByClass(r.Context(), classID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if students == nil {
		students = []model.Student{}
	}
	writeJSON(w, http.StatusOK, students)
}

func (h *Handler) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.store.GetClass(r.Context(), req.ClassID); err != nil {
		writeError(w, r, err)
		return
	}
	if req.UserID != nil {
		u, err := h.store.GetUserByID(r.Context(), *req.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if u == nil || u.Role != model.UserRoleStudent {
			writeError(w, r, fmt.Errorf("user %d is not a student account: %w", *req.UserID, grading.ErrInvalidInput))
			return
		}
	}
	st := model.Student{
		ClassID:    req.ClassID,
		Name:       strings.TrimSpace(req.Name),
		Enrollment: strings.TrimSpace(req.Enrollment),
		UserID:     req.UserID,
	}
	id, err := h.store.CreateStudent(r.Context(), st)
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err = h.store.GetStudent(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	var classID int64
	if v := r.URL.Query().Get("class_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
			return
		}
		classID = id
	}
	exams, err := h.store.ListExams(r.Context(), classID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	writeJSON(w, http.StatusOK, exams)
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var req createExamRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.store.GetClass(r.Context(), req.ClassID); err != nil {
		writeError(w, r, err)
		return
	}

	exam := model.Exam{
		ClassID:   req.ClassID,
		Title:     strings.TrimSpace(req.Title),
		TimeLimit: req.TimeLimit,
		Questions: make([]model.Question, len(req.Questions)),
	}
	if u := model.UserFromContext(r.Context()); u != nil {
		exam.CreatedBy = u.ID
	}
	for i, q := range req.Questions {
		kind := model.QuestionKind(q.Kind)
		if kind == "" {
			kind = model.KindSingleChoice
		}
		exam.Questions[i] = model.Question{
			Prompt:             q.Prompt,
			Kind:               kind,
			Options:            q.Options,
			CorrectOptionIndex: q.CorrectOptionIndex,
			Subject:            q.Subject,
			Weight:             q.Weight,
		}
	}

	id, err := h.store.CreateExam(r.Context(), exam)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.store.GetExam(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	examID, ok := idParam(r, "examID")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	exam, err := h.store.GetExam(r.Context(), examID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	examID, ok := idParam(r, "examID")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	if err := h.grading.DeleteExam(r.Context(), examID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	examID, ok := idParam(r, "examID")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	var req answersRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	exam, err := h.store.GetExam(r.Context(), examID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res := h.grading.Preview(exam, req.Answers)
	writeJSON(w, http.StatusOK, resultResponse{Result: res, Summary: report.Summary(r.Context(), res)})
}

func (h *Handler) handleSubmitOnline(w http.ResponseWriter, r *http.Request) {
	examID, ok := idParam(r, "examID")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	var req submissionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !h.maySubmitFor(r, req.StudentID) {
		writeMessage(w, r, http.StatusForbidden, "ErrForbidden")
		return
	}
	sub, err := h.grading.SubmitOnline(r.Context(), grading.OnlineSubmission{
		ExamID:    examID,
		StudentID: req.StudentID,
		Answers:   req.Answers,
		TimeSpent: req.TimeSpent,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, submissionResponse{Submission: sub, Summary: report.Summary(r.Context(), sub.Result)})
}

// maySubmitFor reports whether the caller can submit answers as studentID.
// Staff submit for anyone; a student account only for its linked student.
func (h *Handler) maySubmitFor(r *http.Request, studentID int64) bool {
	u := model.UserFromContext(r.Context())
	if u == nil {
		return false
	}
	if u.Role == model.UserRoleTeacher || u.Role == model.UserRoleAdmin {
		return true
	}
	st, err := h.store.GetStudentByUserID(r.Context(), u.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Error("lookup linked student", "user_id", u.ID, "error", err)
		}
		return false
	}
	return st.ID == studentID
}

func (h *Handler) handleCorrectScanned(w http.ResponseWriter, r *http.Request) {
	examID, ok := idParam(r, "examID")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	var req scannedRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := grading.ScannedCorrection{ExamID: examID, StudentID: req.StudentID, Answers: req.Answers}
	if u := model.UserFromContext(r.Context()); u != nil {
		in.OperatorID = u.ID
	}
	sub, err := h.grading.CorrectScanned(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submissionResponse{Submission: sub, Summary: report.Summary(r.Context(), sub.Result)})
}

func (h *Handler) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	examID, ok := idParam(r, "examID")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	if _, err := h.store.GetExam(r.Context(), examID); err != nil {
		writeError(w, r, err)
		return
	}
	subs, err := h.store.ListSubmissionsByExam(r.Context(), examID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]submissionResponse, len(subs))
	for i, sub := range subs {
		out[i] = submissionResponse{Submission: sub, Summary: report.Summary(r.Context(), sub.Result)}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleRanking(w http.ResponseWriter, r *http.Request) {
	examID, ok := idParam(r, "examID")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	limit := defaultRankingLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
			return
		}
		limit = min(n, maxRankingLimit)
	}
	ranking, err := h.grading.Ranking(r.Context(), examID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

func (h *Handler) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "submissionID")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	view, err := h.store.GetSubmissionView(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func essayParams(r *http.Request) (int64, int, bool) {
	id, ok := idParam(r, "submissionID")
	if !ok {
		return 0, 0, false
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, 0, false
	}
	return id, index, true
}

func (h *Handler) handleReviewEssay(w http.ResponseWriter, r *http.Request) {
	id, index, ok := essayParams(r)
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	var req essayReviewRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := grading.EssayScore{
		SubmissionID:  id,
		QuestionIndex: index,
		Score:         *req.Score,
		Comment:       strings.TrimSpace(req.Comment),
	}
	if u := model.UserFromContext(r.Context()); u != nil {
		in.ReviewerID = u.ID
	}
	view, err := h.grading.ReviewEssay(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleSuggestEssay(w http.ResponseWriter, r *http.Request) {
	id, index, ok := essayParams(r)
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	review, err := h.grading.SuggestEssay(r.Context(), id, index)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}
