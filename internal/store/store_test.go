package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/seice/seice/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func weight(v float64) *float64 { return &v }

func createTestExam(t *testing.T, s *Store) model.Exam {
	t.Helper()
	ctx := context.Background()
	classID, err := s.CreateClass(ctx, model.Class{Name: "9A", Year: 2024})
	if err != nil {
		t.Fatalf("CreateClass: %v", err)
	}
	id, err := s.CreateExam(ctx, model.Exam{
		ClassID:   classID,
		Title:     "Midterm",
		TimeLimit: 60,
		Questions: []model.Question{
			{Prompt: "2+2?", Kind: model.KindSingleChoice, Options: []string{"3", "4"}, CorrectOptionIndex: 1, Subject: "Math"},
			{Prompt: "Capital of Brazil?", Options: []string{"Rio", "Brasília", "São Paulo"}, CorrectOptionIndex: 1, Subject: "Geography", Weight: weight(2)},
			{Prompt: "Explain photosynthesis.", Kind: model.KindEssay, Subject: "Science"},
		},
	})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	exam, err := s.GetExam(ctx, id)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	return exam
}

func createTestStudent(t *testing.T, s *Store, classID int64, enrollment string) int64 {
	t.Helper()
	id, err := s.CreateStudent(context.Background(), model.Student{ClassID: classID, Name: "Student " + enrollment, Enrollment: enrollment})
	if err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}
	return id
}

func TestClassesAndStudents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	classID, err := s.CreateClass(ctx, model.Class{Name: "8B", Year: 2024})
	if err != nil {
		t.Fatalf("CreateClass: %v", err)
	}
	if _, err := s.CreateClass(ctx, model.Class{Name: "7C", Year: 2024}); err != nil {
		t.Fatalf("CreateClass: %v", err)
	}

	classes, err := s.ListClasses(ctx)
	if err != nil {
		t.Fatalf("ListClasses: %v", err)
	}
	if len(classes) != 2 || classes[0].Name != "7C" {
		t.Errorf("expected classes ordered by name, got %+v", classes)
	}

	if _, err := s.GetClass(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	createTestStudent(t, s, classID, "2024-002")
	createTestStudent(t, s, classID, "2024-001")
	if _, err := s.CreateStudent(ctx, model.Student{ClassID: classID, Name: "Dup", Enrollment: "2024-001"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	students, err := s.ListStudentsByClass(ctx, classID)
	if err != nil {
		t.Fatalf("ListStudentsByClass: %v", err)
	}
	if len(students) != 2 {
		t.Fatalf("expected 2 students, got %d", len(students))
	}
	if students[0].Enrollment != "2024-001" {
		t.Errorf("expected students ordered by name, got %+v", students)
	}
}

func TestExamRoundTrip(t *testing.T) {
	s := newTestStore(t)
	exam := createTestExam(t, s)

	if exam.Title != "Midterm" || exam.TimeLimit != 60 {
		t.Errorf("unexpected exam header: %+v", exam)
	}
	if len(exam.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(exam.Questions))
	}

	q0, q1, q2 := exam.Questions[0], exam.Questions[1], exam.Questions[2]
	if q0.Position != 0 || q1.Position != 1 || q2.Position != 2 {
		t.Errorf("questions out of order: %d %d %d", q0.Position, q1.Position, q2.Position)
	}
	if q0.Weight != nil {
		t.Errorf("unset weight should stay nil, got %v", *q0.Weight)
	}
	if q1.Weight == nil || *q1.Weight != 2 {
		t.Errorf("expected weight 2, got %v", q1.Weight)
	}
	if q1.Kind != model.KindSingleChoice {
		t.Errorf("empty kind should default to single_choice, got %q", q1.Kind)
	}
	if len(q1.Options) != 3 || q1.Options[1] != "Brasília" {
		t.Errorf("unexpected options: %v", q1.Options)
	}
	if !q2.IsEssay() {
		t.Error("expected third question to be an essay")
	}

	exams, err := s.ListExams(context.Background(), exam.ClassID)
	if err != nil {
		t.Fatalf("ListExams: %v", err)
	}
	if len(exams) != 1 {
		t.Errorf("expected 1 exam, got %d", len(exams))
	}

	if _, err := s.GetExam(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmissionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	exam := createTestExam(t, s)
	studentID := createTestStudent(t, s, exam.ClassID, "2024-010")

	now := time.Now()
	sub := model.Submission{
		ExamID:      exam.ID,
		StudentID:   studentID,
		Receipt:     "R-1",
		Channel:     model.ChannelOnline,
		Status:      model.StatusGraded,
		Answers:     []model.Answer{model.Choice(1), model.Choice(0), model.Essay("Plants eat light.")},
		Result:      model.ScoringResult{CorrectCount: 1, ScoreAchieved: 1, TotalPossible: 3, Percentage: 33, SubjectBreakdown: map[string]model.SubjectScore{"Math": {TotalQuestions: 1, CorrectAnswers: 1, Percentage: 100}}},
		TimeSpent:   600,
		SubmittedAt: now,
		GradedAt:    now,
	}
	id, err := s.CreateSubmission(ctx, sub)
	if err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}

	if _, err := s.CreateSubmission(ctx, sub); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for second submission, got %v", err)
	}

	got, err := s.GetSubmission(ctx, id)
	if err != nil {
		t.Fatalf("GetSubmission: %v", err)
	}
	if got.Result.Percentage != 33 || got.Result.SubjectBreakdown["Math"].CorrectAnswers != 1 {
		t.Errorf("result not round-tripped: %+v", got.Result)
	}
	if opt, ok := got.Answers[0].Option(); !ok || opt != 1 {
		t.Errorf("answer 0 = (%d, %v), want (1, true)", opt, ok)
	}
	if got.Answers[2].Text != "Plants eat light." {
		t.Errorf("essay answer = %q", got.Answers[2].Text)
	}
	if got.GradedBy != nil {
		t.Errorf("expected nil graded_by, got %v", *got.GradedBy)
	}

	byReceipt, err := s.GetSubmissionByReceipt(ctx, "R-1")
	if err != nil || byReceipt.ID != id {
		t.Errorf("GetSubmissionByReceipt = %d, %v", byReceipt.ID, err)
	}

	found, err := s.FindSubmission(ctx, exam.ID, studentID)
	if err != nil || found == nil || found.ID != id {
		t.Errorf("FindSubmission = %v, %v", found, err)
	}
	missing, err := s.FindSubmission(ctx, exam.ID, 999)
	if err != nil || missing != nil {
		t.Errorf("FindSubmission for unknown student = %v, %v", missing, err)
	}

	operator := int64(7)
	got.Channel = model.ChannelScanned
	got.Answers = model.Choices(1, 1)
	got.Result.Percentage = 100
	got.GradedBy = &operator
	if err := s.UpdateSubmissionGrading(ctx, got); err != nil {
		t.Fatalf("UpdateSubmissionGrading: %v", err)
	}
	regraded, _ := s.GetSubmission(ctx, id)
	if regraded.Channel != model.ChannelScanned || regraded.Result.Percentage != 100 {
		t.Errorf("re-grade not stored: %+v", regraded)
	}
	if regraded.GradedBy == nil || *regraded.GradedBy != 7 {
		t.Errorf("expected graded_by 7, got %v", regraded.GradedBy)
	}

	if err := s.UpdateSubmissionGrading(ctx, model.Submission{ID: 999}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	subs, err := s.ListSubmissionsByExam(ctx, exam.ID)
	if err != nil {
		t.Fatalf("ListSubmissionsByExam: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("expected 1 submission, got %d", len(subs))
	}
}

func TestEssayReviews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	exam := createTestExam(t, s)
	studentID := createTestStudent(t, s, exam.ClassID, "2024-020")
	subID, err := s.CreateSubmission(ctx, model.Submission{
		ExamID: exam.ID, StudentID: studentID, Receipt: "R-2", Channel: model.ChannelOnline,
		Status: model.StatusGraded, SubmittedAt: time.Now(), GradedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}

	if err := s.UpsertEssaySuggestion(ctx, subID, 2, 6.5, "Mentions light."); err != nil {
		t.Fatalf("UpsertEssaySuggestion: %v", err)
	}
	reviewer := int64(3)
	if err := s.UpsertEssayReview(ctx, model.EssayReview{
		SubmissionID: subID, QuestionIndex: 2, Score: weight(8), Comment: "Good", ReviewerID: &reviewer,
	}); err != nil {
		t.Fatalf("UpsertEssayReview: %v", err)
	}

	reviews, err := s.ListEssayReviews(ctx, subID)
	if err != nil {
		t.Fatalf("ListEssayReviews: %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("expected 1 review, got %d", len(reviews))
	}
	r := reviews[0]
	if r.Score == nil || *r.Score != 8 || r.Comment != "Good" {
		t.Errorf("unexpected human review: %+v", r)
	}
	if r.SuggestedScore == nil || *r.SuggestedScore != 6.5 {
		t.Errorf("suggestion lost after human review: %+v", r)
	}
	if r.ReviewedAt == nil {
		t.Error("expected reviewed_at to be set")
	}

	view, err := s.GetSubmissionView(ctx, subID)
	if err != nil {
		t.Fatalf("GetSubmissionView: %v", err)
	}
	if view.Exam.Title != "Midterm" || view.Student.Enrollment != "2024-020" || len(view.Essays) != 1 {
		t.Errorf("unexpected view: %+v", view)
	}
}

func TestDeleteExam(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	exam := createTestExam(t, s)
	studentID := createTestStudent(t, s, exam.ClassID, "2024-030")
	subID, _ := s.CreateSubmission(ctx, model.Submission{
		ExamID: exam.ID, StudentID: studentID, Receipt: "R-3", Channel: model.ChannelOnline,
		Status: model.StatusGraded, SubmittedAt: time.Now(), GradedAt: time.Now(),
	})

	if err := s.DeleteExam(ctx, exam.ID); err != nil {
		t.Fatalf("DeleteExam: %v", err)
	}
	if _, err := s.GetExam(ctx, exam.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected exam gone, got %v", err)
	}
	if _, err := s.GetSubmission(ctx, subID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected submission gone, got %v", err)
	}
	if err := s.DeleteExam(ctx, exam.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestExportExam(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	exam := createTestExam(t, s)
	studentID := createTestStudent(t, s, exam.ClassID, "2024-040")
	subID, _ := s.CreateSubmission(ctx, model.Submission{
		ExamID: exam.ID, StudentID: studentID, Receipt: "R-4", Channel: model.ChannelScanned,
		Status:  model.StatusGraded,
		Answers: []model.Answer{model.Choice(1), {}, model.Essay("Light to sugar.")},
		Result:  model.ScoringResult{CorrectCount: 1, ScoreAchieved: 1, TotalPossible: 3, Percentage: 33},
		SubmittedAt: time.Now(), GradedAt: time.Now(),
	})
	_ = s.UpsertEssayReview(ctx, model.EssayReview{SubmissionID: subID, QuestionIndex: 2, Score: weight(5)})

	exp, err := s.ExportExam(ctx, exam.ID)
	if err != nil {
		t.Fatalf("ExportExam: %v", err)
	}
	if exp.ClassName != "9A" || exp.NumQuestions != 3 {
		t.Errorf("unexpected export header: %+v", exp)
	}
	if len(exp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(exp.Results))
	}
	res := exp.Results[0]
	if res.Enrollment != "2024-040" || res.Percentage != 33 || !res.Applicable {
		t.Errorf("unexpected result row: %+v", res)
	}
	if len(res.Essays) != 1 || res.Essays[0].Text != "Light to sugar." || res.Essays[0].Score == nil {
		t.Errorf("unexpected essays: %+v", res.Essays)
	}
}

func TestUsersAndAuthSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	count, err := s.UserCount(ctx)
	if err != nil || count != 0 {
		t.Fatalf("UserCount = %d, %v", count, err)
	}

	id, err := s.CreateUser(ctx, model.User{Username: "prof", DisplayName: "Prof", PasswordHash: "x", Role: model.UserRoleTeacher, Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := s.CreateUser(ctx, model.User{Username: "prof", PasswordHash: "y"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	u, err := s.GetUserByUsername(ctx, "prof")
	if err != nil || u == nil || u.ID != id || u.Role != model.UserRoleTeacher {
		t.Fatalf("GetUserByUsername = %+v, %v", u, err)
	}
	if none, err := s.GetUserByUsername(ctx, "nobody"); err != nil || none != nil {
		t.Errorf("expected nil user, got %+v, %v", none, err)
	}

	if err := s.ToggleUserActive(ctx, id); err != nil {
		t.Fatalf("ToggleUserActive: %v", err)
	}
	u, _ = s.GetUserByID(ctx, id)
	if u.Active {
		t.Error("expected user to be inactive")
	}

	token, err := s.CreateAuthSession(ctx, id)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	sess, err := s.GetAuthSession(ctx, token)
	if err != nil || sess == nil || sess.UserID != id {
		t.Fatalf("GetAuthSession = %+v, %v", sess, err)
	}

	if err := s.DeleteAuthSession(ctx, token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	if sess, _ := s.GetAuthSession(ctx, token); sess != nil {
		t.Error("expected session to be deleted")
	}

	if _, err := s.db.Exec(
		`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES ('old', ?, ?, ?)`,
		id, time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour),
	); err != nil {
		t.Fatalf("insert expired session: %v", err)
	}
	n, err := s.CleanupExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("CleanupExpiredSessions: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired session removed, got %d", n)
	}
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v, err := s.GetMetadata(ctx, "missing")
	if err != nil || v != "" {
		t.Errorf("GetMetadata(missing) = %q, %v", v, err)
	}
	if err := s.SetMetadata(ctx, "k", "one"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if err := s.SetMetadata(ctx, "k", "two"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if v, _ := s.GetMetadata(ctx, "k"); v != "two" {
		t.Errorf("GetMetadata(k) = %q, want two", v)
	}
}

func TestStudentUserLink(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	classID, err := s.CreateClass(ctx, model.Class{Name: "7C"})
	if err != nil {
		t.Fatalf("CreateClass: %v", err)
	}
	userID, err := s.CreateUser(ctx, model.User{Username: "aluno", PasswordHash: "x", Role: model.UserRoleStudent, Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	id, err := s.CreateStudent(ctx, model.Student{ClassID: classID, Name: "Ana", Enrollment: "L-1", UserID: &userID})
	if err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}
	st, err := s.GetStudentByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("GetStudentByUserID: %v", err)
	}
	if st.ID != id || st.UserID == nil || *st.UserID != userID {
		t.Errorf("unexpected linked student: %+v", st)
	}

	_, err = s.CreateStudent(ctx, model.Student{ClassID: classID, Name: "Bia", Enrollment: "L-2", UserID: &userID})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("second link: expected ErrDuplicate, got %v", err)
	}

	unlinked := createTestStudent(t, s, classID, "L-3")
	got, err := s.GetStudent(ctx, unlinked)
	if err != nil {
		t.Fatalf("GetStudent: %v", err)
	}
	if got.UserID != nil {
		t.Errorf("expected no linked user, got %d", *got.UserID)
	}
	if _, err := s.GetStudentByUserID(ctx, userID+100); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
