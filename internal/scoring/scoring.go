// Package scoring grades a candidate's answers against an exam's answer key.
//
// Every grading path (online submission, scanned-sheet correction, mock
// data) goes through Score so the numbers shown on review screens agree.
// Score never fails: malformed input degrades to incorrect answers and a
// zero percentage.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/seice/seice/internal/model"
)

// DefaultWeight is the point value of a question with no explicit weight.
const DefaultWeight = 1.0

// GeneralSubject collects questions without a subject label.
const GeneralSubject = "General"

// WeightMode selects weighted or unweighted arithmetic.
type WeightMode string

const (
	// WeightsAuto weighs questions only when some effective weight differs
	// from DefaultWeight.
	WeightsAuto WeightMode = "auto"
	// WeightsOn always sums effective weights.
	WeightsOn WeightMode = "on"
	// WeightsOff counts every question once, ignoring weights.
	WeightsOff WeightMode = "off"
)

// ParseWeightMode parses a weight mode name. The empty string is WeightsAuto.
func ParseWeightMode(s string) (WeightMode, error) {
	switch m := WeightMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return WeightsAuto, nil
	case WeightsAuto, WeightsOn, WeightsOff:
		return m, nil
	default:
		return "", fmt.Errorf("unknown weight mode %q (want auto, on or off)", s)
	}
}

// Options tunes a Score call. The zero value is WeightsAuto.
type Options struct {
	Weights WeightMode
}

// Score grades answers against exam. answers[i] is matched to
// exam.Questions[i]; missing trailing entries are unanswered and extra
// entries are ignored. Essay questions are skipped entirely.
func Score(exam model.Exam, answers []model.Answer, opts Options) model.ScoringResult {
	weights := MergeWeights(exam.Questions)
	weighted := useWeights(opts.Weights, weights)

	res := model.ScoringResult{
		Weighted:         weighted,
		PerQuestion:      []model.QuestionOutcome{},
		SubjectBreakdown: map[string]model.SubjectScore{},
	}

	w := 0
	for i, q := range exam.Questions {
		if q.IsEssay() {
			continue
		}
		weight := DefaultWeight
		if weighted {
			weight = weights[w]
		}
		w++

		var submitted model.Answer
		if i < len(answers) {
			submitted = answers[i]
		}
		chosen, ok := submitted.Option()
		correct := ok && chosen == q.CorrectOptionIndex

		out := model.QuestionOutcome{
			Index:     i,
			Submitted: submitted,
			Correct:   q.CorrectOptionIndex,
			IsCorrect: correct,
			Weight:    weight,
		}
		res.TotalPossible += weight
		if correct {
			res.CorrectCount++
			res.ScoreAchieved += weight
			out.PointsEarned = weight
		}
		res.PerQuestion = append(res.PerQuestion, out)

		subject := subjectLabel(q.Subject)
		s := res.SubjectBreakdown[subject]
		s.TotalQuestions++
		if correct {
			s.CorrectAnswers++
		}
		res.SubjectBreakdown[subject] = s
	}

	res.Percentage = Percentage(res.ScoreAchieved, res.TotalPossible)
	for name, s := range res.SubjectBreakdown {
		s.Percentage = Percentage(float64(s.CorrectAnswers), float64(s.TotalQuestions))
		res.SubjectBreakdown[name] = s
	}
	return res
}

// MergeWeights returns the effective weight of every single-choice question
// in exam order. An unset weight is DefaultWeight; an explicit zero is kept
// so the question is worth nothing; negative or non-finite weights are
// treated as unset.
func MergeWeights(questions []model.Question) []float64 {
	out := make([]float64, 0, len(questions))
	for _, q := range questions {
		if q.IsEssay() {
			continue
		}
		out = append(out, effectiveWeight(q.Weight))
	}
	return out
}

func effectiveWeight(w *float64) float64 {
	if w == nil {
		return DefaultWeight
	}
	v := *w
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return DefaultWeight
	}
	return v
}

func useWeights(mode WeightMode, weights []float64) bool {
	switch mode {
	case WeightsOn:
		return true
	case WeightsOff:
		return false
	}
	for _, w := range weights {
		if w != DefaultWeight {
			return true
		}
	}
	return false
}

// Percentage returns round-half-up(100 * achieved / total), or 0 when total
// is not positive. The result is clamped to [0, 100].
func Percentage(achieved, total float64) int {
	if total <= 0 {
		return 0
	}
	p := RoundHalfUp(100 * achieved / total)
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// RoundHalfUp rounds x to the nearest integer, halves toward +Inf.
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func subjectLabel(s string) string {
	if strings.TrimSpace(s) == "" {
		return GeneralSubject
	}
	return s
}
