package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/seice/seice/internal/model"
)

const submissionColumns = `id, exam_id, student_id, receipt, channel, status, answers, result,
	time_spent, submitted_at, graded_at, graded_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (model.Submission, error) {
	var sub model.Submission
	var answers, result string
	err := row.Scan(&sub.ID, &sub.ExamID, &sub.StudentID, &sub.Receipt, &sub.Channel, &sub.Status,
		&answers, &result, &sub.TimeSpent, &sub.SubmittedAt, &sub.GradedAt, &sub.GradedBy)
	if err != nil {
		return sub, err
	}
	if err := json.Unmarshal([]byte(answers), &sub.Answers); err != nil {
		return sub, fmt.Errorf("decode answers of submission %d: %w", sub.ID, err)
	}
	if err := json.Unmarshal([]byte(result), &sub.Result); err != nil {
		return sub, fmt.Errorf("decode result of submission %d: %w", sub.ID, err)
	}
	return sub, nil
}

func encodeGrading(sub model.Submission) (string, string, error) {
	answers := sub.Answers
	if answers == nil {
		answers = []model.Answer{}
	}
	a, err := json.Marshal(answers)
	if err != nil {
		return "", "", fmt.Errorf("encode answers: %w", err)
	}
	r, err := json.Marshal(sub.Result)
	if err != nil {
		return "", "", fmt.Errorf("encode result: %w", err)
	}
	return string(a), string(r), nil
}

// CreateSubmission stores a graded submission. A student has at most one
// submission per exam; a second one returns ErrDuplicate.
func (s *Store) CreateSubmission(ctx context.Context, sub model.Submission) (int64, error) {
	answers, result, err := encodeGrading(sub)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions WHERE exam_id = ? AND student_id = ?`, sub.ExamID, sub.StudentID,
	).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists > 0 {
		return 0, fmt.Errorf("submission for exam %d, student %d: %w", sub.ExamID, sub.StudentID, ErrDuplicate)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO submissions (exam_id, student_id, receipt, channel, status, answers, result,
			time_spent, submitted_at, graded_at, graded_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ExamID, sub.StudentID, sub.Receipt, sub.Channel, sub.Status, answers, result,
		sub.TimeSpent, sub.SubmittedAt, sub.GradedAt, sub.GradedBy,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// GetSubmission returns a submission by ID, or ErrNotFound.
func (s *Store) GetSubmission(ctx context.Context, id int64) (model.Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return sub, ErrNotFound
	}
	return sub, err
}

// GetSubmissionByReceipt returns a submission by its receipt code, or
// ErrNotFound.
func (s *Store) GetSubmissionByReceipt(ctx context.Context, receipt string) (model.Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE receipt = ?`, receipt))
	if errors.Is(err, sql.ErrNoRows) {
		return sub, ErrNotFound
	}
	return sub, err
}

// FindSubmission returns the student's submission for an exam, or nil.
func (s *Store) FindSubmission(ctx context.Context, examID, studentID int64) (*model.Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE exam_id = ? AND student_id = ?`, examID, studentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateSubmissionGrading replaces the answers and result of a submission
// after a re-grade.
func (s *Store) UpdateSubmissionGrading(ctx context.Context, sub model.Submission) error {
	answers, result, err := encodeGrading(sub)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET channel = ?, status = ?, answers = ?, result = ?, graded_at = ?, graded_by = ?
		 WHERE id = ?`,
		sub.Channel, sub.Status, answers, result, sub.GradedAt, sub.GradedBy, sub.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSubmissionStatus sets the review status of a submission.
func (s *Store) UpdateSubmissionStatus(ctx context.Context, id int64, status model.SubmissionStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE submissions SET status = ? WHERE id = ?`, status, id)
	return err
}

// ListSubmissionsByExam returns the submissions of an exam in ID order.
func (s *Store) ListSubmissionsByExam(ctx context.Context, examID int64) ([]model.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE exam_id = ? ORDER BY id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// UpsertEssayReview stores the human score for an essay question.
func (s *Store) UpsertEssayReview(ctx context.Context, r model.EssayReview) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO essay_reviews (submission_id, question_index, score, comment, reviewer_id, reviewed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(submission_id, question_index) DO UPDATE SET
			score = excluded.score, comment = excluded.comment,
			reviewer_id = excluded.reviewer_id, reviewed_at = excluded.reviewed_at`,
		r.SubmissionID, r.QuestionIndex, r.Score, r.Comment, r.ReviewerID, now,
	)
	return err
}

// UpsertEssaySuggestion stores a machine-suggested score without touching
// the human review.
func (s *Store) UpsertEssaySuggestion(ctx context.Context, submissionID int64, index int, score float64, feedback string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO essay_reviews (submission_id, question_index, suggested_score, suggested_feedback)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(submission_id, question_index) DO UPDATE SET
			suggested_score = excluded.suggested_score, suggested_feedback = excluded.suggested_feedback`,
		submissionID, index, score, feedback,
	)
	return err
}

// ListEssayReviews returns the essay reviews of a submission by question
// index.
func (s *Store) ListEssayReviews(ctx context.Context, submissionID int64) ([]model.EssayReview, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT submission_id, question_index, score, comment, reviewer_id, suggested_score, suggested_feedback, reviewed_at
		 FROM essay_reviews WHERE submission_id = ? ORDER BY question_index`, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reviews []model.EssayReview
	for rows.Next() {
		var r model.EssayReview
		if err := rows.Scan(&r.SubmissionID, &r.QuestionIndex, &r.Score, &r.Comment, &r.ReviewerID,
			&r.SuggestedScore, &r.SuggestedFeedback, &r.ReviewedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// GetSubmissionView builds a submission with its exam, student and reviews.
func (s *Store) GetSubmissionView(ctx context.Context, id int64) (*model.SubmissionView, error) {
	sub, err := s.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	exam, err := s.GetExam(ctx, sub.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam %d: %w", sub.ExamID, err)
	}
	student, err := s.GetStudent(ctx, sub.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get student %d: %w", sub.StudentID, err)
	}
	reviews, err := s.ListEssayReviews(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.SubmissionView{
		Submission: sub,
		Exam:       exam,
		Student:    student,
		Essays:     reviews,
	}, nil
}
