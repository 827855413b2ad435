package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seice/seice/internal/model"
)

// ExportExam builds export-ready results for every submission of an exam.
func (s *Store) ExportExam(ctx context.Context, examID int64) (model.ExamExport, error) {
	exam, err := s.GetExam(ctx, examID)
	if err != nil {
		return model.ExamExport{}, fmt.Errorf("get exam %d: %w", examID, err)
	}

	var className string
	class, err := s.GetClass(ctx, exam.ClassID)
	switch {
	case err == nil:
		className = class.Name
	case !errors.Is(err, ErrNotFound):
		return model.ExamExport{}, fmt.Errorf("get class %d: %w", exam.ClassID, err)
	}

	subs, err := s.ListSubmissionsByExam(ctx, examID)
	if err != nil {
		return model.ExamExport{}, fmt.Errorf("list submissions: %w", err)
	}

	results := make([]model.StudentResult, 0, len(subs))
	for _, sub := range subs {
		var name, enrollment string
		st, err := s.GetStudent(ctx, sub.StudentID)
		switch {
		case err == nil:
			name, enrollment = st.Name, st.Enrollment
		case !errors.Is(err, ErrNotFound):
			return model.ExamExport{}, fmt.Errorf("get student %d: %w", sub.StudentID, err)
		}

		reviews, err := s.ListEssayReviews(ctx, sub.ID)
		if err != nil {
			return model.ExamExport{}, fmt.Errorf("list essay reviews of %d: %w", sub.ID, err)
		}
		byIndex := make(map[int]model.EssayReview, len(reviews))
		for _, r := range reviews {
			byIndex[r.QuestionIndex] = r
		}

		var essays []model.EssayExport
		for i, q := range exam.Questions {
			if !q.IsEssay() {
				continue
			}
			e := model.EssayExport{QuestionIndex: i}
			if i < len(sub.Answers) {
				e.Text = sub.Answers[i].Text
			}
			if r, ok := byIndex[i]; ok {
				e.Score = r.Score
				e.Comment = r.Comment
			}
			essays = append(essays, e)
		}

		results = append(results, model.StudentResult{
			StudentName:   name,
			Enrollment:    enrollment,
			Receipt:       sub.Receipt,
			Channel:       sub.Channel,
			Status:        sub.Status,
			SubmittedAt:   sub.SubmittedAt,
			TimeSpent:     sub.TimeSpent,
			CorrectCount:  sub.Result.CorrectCount,
			ScoreAchieved: sub.Result.ScoreAchieved,
			TotalPossible: sub.Result.TotalPossible,
			Percentage:    sub.Result.Percentage,
			Applicable:    sub.Result.Applicable(),
			Subjects:      sub.Result.SubjectBreakdown,
			Essays:        essays,
		})
	}

	return model.ExamExport{
		ExamID:       exam.ID,
		Title:        exam.Title,
		ClassName:    className,
		GeneratedAt:  time.Now().UTC(),
		NumQuestions: len(exam.Questions),
		Results:      results,
	}, nil
}
