package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Class groups students that sit the same exams.
type Class struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Year      int       `json:"year"`
	CreatedAt time.Time `json:"created_at"`
}

// Student is an exam candidate enrolled in a class.
type Student struct {
	ID         int64     `json:"id"`
	ClassID    int64     `json:"class_id"`
	Name       string    `json:"name"`
	Enrollment string    `json:"enrollment"`
	UserID     *int64    `json:"user_id,omitempty"` // login account allowed to submit as this student
	CreatedAt  time.Time `json:"created_at"`
}

// QuestionKind distinguishes auto-scored questions from free-text ones.
type QuestionKind string

const (
	// KindSingleChoice is a question with one correct option, scored automatically.
	KindSingleChoice QuestionKind = "single_choice"
	// KindEssay is a free-text question scored by a human reviewer.
	KindEssay QuestionKind = "essay"
)

// Question represents an exam question. Weight is nil when the author did
// not set one.
type Question struct {
	ID                 int64        `json:"id"`
	ExamID             int64        `json:"exam_id"`
	Position           int          `json:"position"`
	Prompt             string       `json:"prompt"`
	Kind               QuestionKind `json:"kind"`
	Options            []string     `json:"options,omitempty"`
	CorrectOptionIndex int          `json:"correct_option_index"`
	Subject            string       `json:"subject,omitempty"`
	Weight             *float64     `json:"weight,omitempty"`
}

// IsEssay reports whether the question is excluded from automatic scoring.
// Any kind other than essay is scored as single choice.
func (q Question) IsEssay() bool {
	return q.Kind == KindEssay
}

// Exam is an ordered, fixed-length list of questions. Answers are matched
// to questions by position.
type Exam struct {
	ID        int64      `json:"id"`
	ClassID   int64      `json:"class_id"`
	Title     string     `json:"title"`
	TimeLimit int        `json:"time_limit"`
	CreatedBy int64      `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	Questions []Question `json:"questions"`
}

// Channel is how a submission reached the system.
type Channel string

const (
	// ChannelOnline is a submission made through the timed online exam.
	ChannelOnline Channel = "online"
	// ChannelScanned is a paper answer sheet entered by an operator.
	ChannelScanned Channel = "scanned"
)

// SubmissionStatus represents the review state of a submission.
type SubmissionStatus string

const (
	// StatusGraded means the single-choice part has been scored.
	StatusGraded SubmissionStatus = "graded"
	// StatusReviewed means every essay question also has a human score.
	StatusReviewed SubmissionStatus = "reviewed"
)

// Submission is a candidate's graded attempt at an exam.
type Submission struct {
	ID          int64            `json:"id"`
	ExamID      int64            `json:"exam_id"`
	StudentID   int64            `json:"student_id"`
	Receipt     string           `json:"receipt"`
	Channel     Channel          `json:"channel"`
	Status      SubmissionStatus `json:"status"`
	Answers     []Answer         `json:"answers"`
	Result      ScoringResult    `json:"result"`
	TimeSpent   int              `json:"time_spent"`
	SubmittedAt time.Time        `json:"submitted_at"`
	GradedAt    time.Time        `json:"graded_at"`
	GradedBy    *int64           `json:"graded_by,omitempty"`
}

// EssayReview holds the human score for one essay question of a submission,
// plus an optional machine suggestion shown to the reviewer.
type EssayReview struct {
	SubmissionID      int64      `json:"submission_id"`
	QuestionIndex     int        `json:"question_index"`
	Score             *float64   `json:"score,omitempty"`
	Comment           string     `json:"comment,omitempty"`
	ReviewerID        *int64     `json:"reviewer_id,omitempty"`
	SuggestedScore    *float64   `json:"suggested_score,omitempty"`
	SuggestedFeedback string     `json:"suggested_feedback,omitempty"`
	ReviewedAt        *time.Time `json:"reviewed_at,omitempty"`
}

// SubmissionView combines a submission with the data needed to display it.
type SubmissionView struct {
	Submission Submission    `json:"submission"`
	Exam       Exam          `json:"exam"`
	Student    Student       `json:"student"`
	Essays     []EssayReview `json:"essays"`
}
