package grading

import (
	"errors"
	"fmt"

	"github.com/seice/seice/internal/store"
)

var (
	// ErrNotFound is returned when an exam, student or submission does not
	// exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadySubmitted is returned for a second online submission of the
	// same exam by the same student.
	ErrAlreadySubmitted = errors.New("exam already submitted")
	// ErrInvalidInput is returned when a request refers to data that cannot
	// be graded as asked.
	ErrInvalidInput = errors.New("invalid input")
	// ErrReviewerUnavailable is returned when an essay suggestion is asked
	// for but no LLM reviewer is configured.
	ErrReviewerUnavailable = errors.New("essay reviewer not configured")
)

// lookupErr translates a store lookup failure into a service error.
func lookupErr(what string, id int64, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("get %s %d: %w", what, id, err)
}
