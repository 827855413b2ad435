// Package mockdata generates synthetic answer sheets for demos and dashboard
// testing.
package mockdata

import (
	"fmt"
	"math/rand/v2"

	"github.com/seice/seice/internal/model"
	"github.com/seice/seice/internal/scoring"
)

// EssayPlaceholder is the text written at essay positions.
const EssayPlaceholder = "Generated answer."

// Answers builds an answer list for exam in which round(target * n / 100)
// of the n single-choice questions, picked at random, are answered
// correctly. The rest get a wrong option, or stay blank when the question
// has fewer than two options.
//
// The target is the unweighted share of correct answers. Scoring the result
// with weights on a weighted exam can land on a different percentage, since
// which questions come out correct is random; CorrectCount always matches.
func Answers(exam model.Exam, target int, rng *rand.Rand) []model.Answer {
	target = max(0, min(100, target))

	var choiceIdx []int
	for i, q := range exam.Questions {
		if !q.IsEssay() {
			choiceIdx = append(choiceIdx, i)
		}
	}
	k := scoring.RoundHalfUp(float64(target) * float64(len(choiceIdx)) / 100)
	k = max(0, min(len(choiceIdx), k))

	correct := make(map[int]bool, k)
	for _, p := range rng.Perm(len(choiceIdx))[:k] {
		correct[choiceIdx[p]] = true
	}

	answers := make([]model.Answer, len(exam.Questions))
	for i, q := range exam.Questions {
		switch {
		case q.IsEssay():
			answers[i] = model.Essay(EssayPlaceholder)
		case correct[i]:
			answers[i] = model.Choice(q.CorrectOptionIndex)
		default:
			answers[i] = wrongChoice(q, rng)
		}
	}
	return answers
}

func wrongChoice(q model.Question, rng *rand.Rand) model.Answer {
	n := len(q.Options)
	if n < 2 {
		return model.Answer{}
	}
	if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= n {
		return model.Choice(rng.IntN(n))
	}
	pick := rng.IntN(n - 1)
	if pick >= q.CorrectOptionIndex {
		pick++
	}
	return model.Choice(pick)
}

// Config bounds the target percentages of a generated batch.
type Config struct {
	MinPercentage int
	MaxPercentage int
	MaxTimeSpent  int // seconds; 0 uses the exam time limit
}

// Sample is one generated submission, already scored.
type Sample struct {
	StudentID int64
	Target    int
	TimeSpent int
	Answers   []model.Answer
	Result    model.ScoringResult
}

// Generate builds one sample per student with a target drawn uniformly from
// [cfg.MinPercentage, cfg.MaxPercentage]. Result is scored with opts, so on
// a weighted exam its percentage may differ from Target; see Answers.
func Generate(exam model.Exam, students []model.Student, cfg Config, opts scoring.Options, rng *rand.Rand) ([]Sample, error) {
	if cfg.MinPercentage < 0 || cfg.MaxPercentage > 100 || cfg.MinPercentage > cfg.MaxPercentage {
		return nil, fmt.Errorf("invalid percentage range [%d, %d]", cfg.MinPercentage, cfg.MaxPercentage)
	}
	maxTime := cfg.MaxTimeSpent
	if maxTime <= 0 {
		maxTime = max(exam.TimeLimit, 1) * 60
	}

	samples := make([]Sample, 0, len(students))
	for _, st := range students {
		target := cfg.MinPercentage + rng.IntN(cfg.MaxPercentage-cfg.MinPercentage+1)
		answers := Answers(exam, target, rng)
		samples = append(samples, Sample{
			StudentID: st.ID,
			Target:    target,
			TimeSpent: 1 + rng.IntN(maxTime),
			Answers:   answers,
			Result:    scoring.Score(exam, answers, opts),
		})
	}
	return samples, nil
}
