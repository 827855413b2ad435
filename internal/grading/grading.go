// Package grading scores submissions and persists the results. Online
// submissions, scanned-sheet corrections and previews all go through
// scoring.Score here.
package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/seice/seice/internal/leaderboard"
	"github.com/seice/seice/internal/llm"
	"github.com/seice/seice/internal/model"
	"github.com/seice/seice/internal/scoring"
	"github.com/seice/seice/internal/store"
)

// EssayReviewer suggests a score for an essay answer.
type EssayReviewer interface {
	SuggestEssayScore(ctx context.Context, question model.Question, answer string) (*llm.Suggestion, error)
}

// Service grades and stores submissions.
type Service struct {
	store    *store.Store
	ranking  leaderboard.Ranking
	reviewer EssayReviewer
	opts     scoring.Options
	now      func() time.Time
}

// New creates a grading service. reviewer may be nil, in which case essay
// suggestions are unavailable.
func New(s *store.Store, ranking leaderboard.Ranking, reviewer EssayReviewer, opts scoring.Options) *Service {
	if ranking == nil {
		ranking = leaderboard.NewMemory()
	}
	return &Service{
		store:    s,
		ranking:  ranking,
		reviewer: reviewer,
		opts:     opts,
		now:      time.Now,
	}
}

// Options returns the scoring options used for every grade.
func (s *Service) Options() scoring.Options {
	return s.opts
}

// OnlineSubmission is a candidate's answers entered through the online
// exam.
type OnlineSubmission struct {
	ExamID    int64
	StudentID int64
	Answers   []model.Answer
	TimeSpent int
}

// ScannedCorrection is a set of answers transcribed by an operator from a
// scanned answer sheet.
type ScannedCorrection struct {
	ExamID     int64
	StudentID  int64
	Answers    []model.Answer
	OperatorID int64
}

// EssayScore is a human score for one essay question.
type EssayScore struct {
	SubmissionID  int64
	QuestionIndex int
	Score         float64
	Comment       string
	ReviewerID    int64
}

// RankedSubmission is one row of an exam ranking.
type RankedSubmission struct {
	Rank         int    `json:"rank"`
	SubmissionID int64  `json:"submission_id"`
	StudentID    int64  `json:"student_id"`
	StudentName  string `json:"student_name"`
	Percentage   int    `json:"percentage"`
}

func (s *Service) loadCandidate(ctx context.Context, examID, studentID int64) (model.Exam, model.Student, error) {
	exam, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return exam, model.Student{}, lookupErr("exam", examID, err)
	}
	student, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return exam, student, lookupErr("student", studentID, err)
	}
	if student.ClassID != exam.ClassID {
		return exam, student, fmt.Errorf("student %d is not in class %d: %w", studentID, exam.ClassID, ErrInvalidInput)
	}
	return exam, student, nil
}

// SubmitOnline grades and stores an online submission. Each student submits
// an exam online at most once.
func (s *Service) SubmitOnline(ctx context.Context, in OnlineSubmission) (model.Submission, error) {
	exam, _, err := s.loadCandidate(ctx, in.ExamID, in.StudentID)
	if err != nil {
		return model.Submission{}, err
	}
	if in.TimeSpent < 0 {
		return model.Submission{}, fmt.Errorf("negative time spent: %w", ErrInvalidInput)
	}

	existing, err := s.store.FindSubmission(ctx, in.ExamID, in.StudentID)
	if err != nil {
		return model.Submission{}, fmt.Errorf("find submission: %w", err)
	}
	if existing != nil {
		return model.Submission{}, fmt.Errorf("exam %d, student %d: %w", in.ExamID, in.StudentID, ErrAlreadySubmitted)
	}

	now := s.now()
	sub := model.Submission{
		ExamID:      in.ExamID,
		StudentID:   in.StudentID,
		Receipt:     uuid.NewString(),
		Channel:     model.ChannelOnline,
		Status:      model.StatusGraded,
		Answers:     in.Answers,
		Result:      scoring.Score(exam, in.Answers, s.opts),
		TimeSpent:   in.TimeSpent,
		SubmittedAt: now,
		GradedAt:    now,
	}
	sub.ID, err = s.store.CreateSubmission(ctx, sub)
	if errors.Is(err, store.ErrDuplicate) {
		return model.Submission{}, fmt.Errorf("exam %d, student %d: %w", in.ExamID, in.StudentID, ErrAlreadySubmitted)
	}
	if err != nil {
		return model.Submission{}, fmt.Errorf("create submission: %w", err)
	}

	slog.Info("graded online submission",
		"submission_id", sub.ID, "exam_id", sub.ExamID, "student_id", sub.StudentID,
		"percentage", sub.Result.Percentage, "weighted", sub.Result.Weighted)
	s.record(ctx, sub)
	return sub, nil
}

// CorrectScanned grades operator-entered answers for a scanned sheet. It
// creates the submission if the student has none, or re-grades the
// existing one.
func (s *Service) CorrectScanned(ctx context.Context, in ScannedCorrection) (model.Submission, error) {
	exam, _, err := s.loadCandidate(ctx, in.ExamID, in.StudentID)
	if err != nil {
		return model.Submission{}, err
	}

	existing, err := s.store.FindSubmission(ctx, in.ExamID, in.StudentID)
	if err != nil {
		return model.Submission{}, fmt.Errorf("find submission: %w", err)
	}

	now := s.now()
	result := scoring.Score(exam, in.Answers, s.opts)
	var operator *int64
	if in.OperatorID != 0 {
		operator = &in.OperatorID
	}

	if existing == nil {
		sub := model.Submission{
			ExamID:      in.ExamID,
			StudentID:   in.StudentID,
			Receipt:     uuid.NewString(),
			Channel:     model.ChannelScanned,
			Status:      model.StatusGraded,
			Answers:     in.Answers,
			Result:      result,
			SubmittedAt: now,
			GradedAt:    now,
			GradedBy:    operator,
		}
		sub.ID, err = s.store.CreateSubmission(ctx, sub)
		switch {
		case err == nil:
			slog.Info("graded scanned sheet",
				"submission_id", sub.ID, "exam_id", sub.ExamID, "student_id", sub.StudentID,
				"percentage", sub.Result.Percentage)
			s.record(ctx, sub)
			return sub, nil
		case !errors.Is(err, store.ErrDuplicate):
			return model.Submission{}, fmt.Errorf("create submission: %w", err)
		}

		// Another submission for the student landed after the lookup.
		existing, err = s.store.FindSubmission(ctx, in.ExamID, in.StudentID)
		if err != nil {
			return model.Submission{}, fmt.Errorf("find submission: %w", err)
		}
		if existing == nil {
			return model.Submission{}, fmt.Errorf("submission of student %d on exam %d: %w", in.StudentID, in.ExamID, ErrNotFound)
		}
	}

	sub := *existing
	previous := sub.Result.Percentage
	sub.Channel = model.ChannelScanned
	sub.Answers = in.Answers
	sub.Result = result
	sub.GradedAt = now
	sub.GradedBy = operator
	if err := s.store.UpdateSubmissionGrading(ctx, sub); err != nil {
		return model.Submission{}, fmt.Errorf("update submission %d: %w", sub.ID, err)
	}
	slog.Info("re-graded submission",
		"submission_id", sub.ID, "previous_percentage", previous, "percentage", sub.Result.Percentage)
	s.record(ctx, sub)
	return sub, nil
}

// Preview scores answers against an exam without storing anything.
func (s *Service) Preview(exam model.Exam, answers []model.Answer) model.ScoringResult {
	return scoring.Score(exam, answers, s.opts)
}

// ReviewEssay stores a human score for an essay question. The submission
// becomes reviewed once every essay question has a score.
func (s *Service) ReviewEssay(ctx context.Context, in EssayScore) (*model.SubmissionView, error) {
	sub, exam, err := s.loadEssay(ctx, in.SubmissionID, in.QuestionIndex)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(in.Score) || in.Score < 0 || in.Score > llm.MaxEssayScore {
		return nil, fmt.Errorf("essay score %v outside 0..%v: %w", in.Score, llm.MaxEssayScore, ErrInvalidInput)
	}

	score := in.Score
	review := model.EssayReview{
		SubmissionID:  sub.ID,
		QuestionIndex: in.QuestionIndex,
		Score:         &score,
		Comment:       in.Comment,
	}
	if in.ReviewerID != 0 {
		review.ReviewerID = &in.ReviewerID
	}
	if err := s.store.UpsertEssayReview(ctx, review); err != nil {
		return nil, fmt.Errorf("store essay review: %w", err)
	}

	reviews, err := s.store.ListEssayReviews(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("list essay reviews: %w", err)
	}
	if allEssaysScored(exam, reviews) && sub.Status != model.StatusReviewed {
		if err := s.store.UpdateSubmissionStatus(ctx, sub.ID, model.StatusReviewed); err != nil {
			return nil, fmt.Errorf("mark submission %d reviewed: %w", sub.ID, err)
		}
		slog.Info("submission fully reviewed", "submission_id", sub.ID)
	}

	return s.store.GetSubmissionView(ctx, sub.ID)
}

// SuggestEssay asks the LLM reviewer for a score and stores it next to the
// human review.
func (s *Service) SuggestEssay(ctx context.Context, submissionID int64, index int) (*model.EssayReview, error) {
	if s.reviewer == nil {
		return nil, ErrReviewerUnavailable
	}
	sub, exam, err := s.loadEssay(ctx, submissionID, index)
	if err != nil {
		return nil, err
	}

	var text string
	if index < len(sub.Answers) {
		text = sub.Answers[index].Text
	}
	suggestion, err := s.reviewer.SuggestEssayScore(ctx, exam.Questions[index], text)
	if err != nil {
		slog.Error("essay suggestion failed", "submission_id", submissionID, "index", index, "error", err)
		return nil, fmt.Errorf("suggest essay score: %w", err)
	}
	if err := s.store.UpsertEssaySuggestion(ctx, submissionID, index, suggestion.Score, suggestion.Feedback); err != nil {
		return nil, fmt.Errorf("store essay suggestion: %w", err)
	}

	reviews, err := s.store.ListEssayReviews(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("list essay reviews: %w", err)
	}
	for i := range reviews {
		if reviews[i].QuestionIndex == index {
			return &reviews[i], nil
		}
	}
	return nil, fmt.Errorf("essay review %d/%d missing after upsert", submissionID, index)
}

func (s *Service) loadEssay(ctx context.Context, submissionID int64, index int) (model.Submission, model.Exam, error) {
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return sub, model.Exam{}, lookupErr("submission", submissionID, err)
	}
	exam, err := s.store.GetExam(ctx, sub.ExamID)
	if err != nil {
		return sub, exam, lookupErr("exam", sub.ExamID, err)
	}
	if index < 0 || index >= len(exam.Questions) || !exam.Questions[index].IsEssay() {
		return sub, exam, fmt.Errorf("question %d is not an essay question: %w", index, ErrInvalidInput)
	}
	return sub, exam, nil
}

func allEssaysScored(exam model.Exam, reviews []model.EssayReview) bool {
	scored := make(map[int]bool, len(reviews))
	for _, r := range reviews {
		if r.Score != nil {
			scored[r.QuestionIndex] = true
		}
	}
	for i, q := range exam.Questions {
		if q.IsEssay() && !scored[i] {
			return false
		}
	}
	return true
}

// record updates the exam ranking. A ranking failure does not undo the
// stored grade.
func (s *Service) record(ctx context.Context, sub model.Submission) {
	if err := s.ranking.Record(ctx, sub.ExamID, sub.ID, sub.Result.Percentage); err != nil {
		slog.Warn("failed to update ranking", "exam_id", sub.ExamID, "submission_id", sub.ID, "error", err)
	}
}

// Ranking returns the top submissions of an exam by percentage.
func (s *Service) Ranking(ctx context.Context, examID int64, limit int) ([]RankedSubmission, error) {
	if _, err := s.store.GetExam(ctx, examID); err != nil {
		return nil, lookupErr("exam", examID, err)
	}
	entries, err := s.ranking.Top(ctx, examID, limit)
	if err != nil {
		return nil, fmt.Errorf("read ranking: %w", err)
	}

	ranked := make([]RankedSubmission, 0, len(entries))
	for _, e := range entries {
		sub, err := s.store.GetSubmission(ctx, e.SubmissionID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get submission %d: %w", e.SubmissionID, err)
		}
		row := RankedSubmission{
			Rank:         e.Rank,
			SubmissionID: e.SubmissionID,
			StudentID:    sub.StudentID,
			Percentage:   e.Percentage,
		}
		if st, err := s.store.GetStudent(ctx, sub.StudentID); err == nil {
			row.StudentName = st.Name
		}
		ranked = append(ranked, row)
	}
	return ranked, nil
}

// WarmRanking loads every stored submission into the ranking. It is run at
// startup so an in-process ranking matches the database.
func (s *Service) WarmRanking(ctx context.Context) error {
	exams, err := s.store.ListExams(ctx, 0)
	if err != nil {
		return fmt.Errorf("list exams: %w", err)
	}
	var n int
	for _, exam := range exams {
		subs, err := s.store.ListSubmissionsByExam(ctx, exam.ID)
		if err != nil {
			return fmt.Errorf("list submissions of exam %d: %w", exam.ID, err)
		}
		for _, sub := range subs {
			if err := s.ranking.Record(ctx, exam.ID, sub.ID, sub.Result.Percentage); err != nil {
				return fmt.Errorf("record submission %d: %w", sub.ID, err)
			}
			n++
		}
	}
	slog.Info("ranking warmed", "exams", len(exams), "submissions", n)
	return nil
}

// DeleteExam removes an exam, its submissions and its ranking.
func (s *Service) DeleteExam(ctx context.Context, examID int64) error {
	if err := s.store.DeleteExam(ctx, examID); err != nil {
		return lookupErr("exam", examID, err)
	}
	if err := s.ranking.Clear(ctx, examID); err != nil {
		slog.Warn("failed to clear ranking", "exam_id", examID, "error", err)
	}
	slog.Info("deleted exam", "exam_id", examID)
	return nil
}

// Export returns the results of an exam ready for a spreadsheet or JSON.
func (s *Service) Export(ctx context.Context, examID int64) (model.ExamExport, error) {
	exp, err := s.store.ExportExam(ctx, examID)
	if errors.Is(err, store.ErrNotFound) {
		return exp, fmt.Errorf("exam %d: %w", examID, ErrNotFound)
	}
	return exp, err
}
