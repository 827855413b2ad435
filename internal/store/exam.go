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

// CreateClass inserts a class.
func (s *Store) CreateClass(ctx context.Context, c model.Class) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO classes (name, year, created_at) VALUES (?, ?, ?)`,
		c.Name, c.Year, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetClass returns a class by ID, or ErrNotFound.
func (s *Store) GetClass(ctx context.Context, id int64) (model.Class, error) {
	var c model.Class
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, year, created_at FROM classes WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Year, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

// ListClasses returns all classes ordered by name.
func (s *Store) ListClasses(ctx context.Context) ([]model.Class, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, year, created_at FROM classes ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var classes []model.Class
	for rows.Next() {
		var c model.Class
		if err := rows.Scan(&c.ID, &c.Name, &c.Year, &c.CreatedAt); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

const studentColumns = `id, class_id, name, enrollment, user_id, created_at`

func scanStudent(row rowScanner) (model.Student, error) {
	var st model.Student
	var userID sql.NullInt64
	if err := row.Scan(&st.ID, &st.ClassID, &st.Name, &st.Enrollment, &userID, &st.CreatedAt); err != nil {
		return st, err
	}
	if userID.Valid {
		st.UserID = &userID.Int64
	}
	return st, nil
}

// CreateStudent inserts a student. Enrollment numbers are unique, and so is
// the linked login account when one is set.
func (s *Store) CreateStudent(ctx context.Context, st model.Student) (int64, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students WHERE enrollment = ?`, st.Enrollment).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists > 0 {
		return 0, fmt.Errorf("student %q: %w", st.Enrollment, ErrDuplicate)
	}
	if st.UserID != nil {
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students WHERE user_id = ?`, *st.UserID).Scan(&exists)
		if err != nil {
			return 0, err
		}
		if exists > 0 {
			return 0, fmt.Errorf("user %d already linked to a student: %w", *st.UserID, ErrDuplicate)
		}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO students (class_id, name, enrollment, user_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		st.ClassID, st.Name, st.Enrollment, st.UserID, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetStudent returns a student by ID, or ErrNotFound.
func (s *Store) GetStudent(ctx context.Context, id int64) (model.Student, error) {
	st, err := scanStudent(s.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return st, ErrNotFound
	}
	return st, err
}

// GetStudentByUserID returns the student linked to a login account, or
// ErrNotFound.
func (s *Store) GetStudentByUserID(ctx context.Context, userID int64) (model.Student, error) {
	st, err := scanStudent(s.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return st, ErrNotFound
	}
	return st, err
}

// ListStudentsByClass returns the students of a class ordered by name.
func (s *Store) ListStudentsByClass(ctx context.Context, classID int64) ([]model.Student, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE class_id = ? ORDER BY name, id`, classID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var students []model.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// CreateExam stores an exam and its questions in one transaction. Question
// positions follow slice order.
func (s *Store) CreateExam(ctx context.Context, e model.Exam) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO exams (class_id, title, time_limit, created_by, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ClassID, e.Title, e.TimeLimit, e.CreatedBy, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	examID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, q := range e.Questions {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return 0, fmt.Errorf("encode options of question %d: %w", i, err)
		}
		kind := q.Kind
		if kind == "" {
			kind = model.KindSingleChoice
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO questions (exam_id, position, prompt, kind, options, correct_option_index, subject, weight)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			examID, i, q.Prompt, kind, string(opts), q.CorrectOptionIndex, q.Subject, q.Weight,
		)
		if err != nil {
			return 0, fmt.Errorf("insert question %d: %w", i, err)
		}
	}

	return examID, tx.Commit()
}

// GetExam returns an exam with its questions in position order, or
// ErrNotFound.
func (s *Store) GetExam(ctx context.Context, id int64) (model.Exam, error) {
	var e model.Exam
	err := s.db.QueryRowContext(ctx,
		`SELECT id, class_id, title, time_limit, created_by, created_at FROM exams WHERE id = ?`, id,
	).Scan(&e.ID, &e.ClassID, &e.Title, &e.TimeLimit, &e.CreatedBy, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, exam_id, position, prompt, kind, options, correct_option_index, subject, weight
		 FROM questions WHERE exam_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return e, err
	}
	defer rows.Close()
	e.Questions = []model.Question{}
	for rows.Next() {
		var q model.Question
		var opts string
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Position, &q.Prompt, &q.Kind, &opts,
			&q.CorrectOptionIndex, &q.Subject, &q.Weight); err != nil {
			return e, err
		}
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return e, fmt.Errorf("decode options of question %d: %w", q.ID, err)
		}
		e.Questions = append(e.Questions, q)
	}
	return e, rows.Err()
}

// ListExams returns exams without their questions, newest first. A zero
// classID lists every class.
func (s *Store) ListExams(ctx context.Context, classID int64) ([]model.Exam, error) {
	query := `SELECT id, class_id, title, time_limit, created_by, created_at FROM exams`
	var args []any
	if classID != 0 {
		query += ` WHERE class_id = ?`
		args = append(args, classID)
	}
	query += ` ORDER BY id DESC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.ClassID, &e.Title, &e.TimeLimit, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// DeleteExam removes an exam with its questions, submissions and reviews.
func (s *Store) DeleteExam(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM essay_reviews WHERE submission_id IN (SELECT id FROM submissions WHERE exam_id = ?)`,
		`DELETE FROM submissions WHERE exam_id = ?`,
		`DELETE FROM questions WHERE exam_id = ?`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM exams WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
