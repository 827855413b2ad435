package model

// ScoringResult is the outcome of grading one set of answers against an exam.
type ScoringResult struct {
	CorrectCount     int                     `json:"correct_count"`
	ScoreAchieved    float64                 `json:"score_achieved"`
	TotalPossible    float64                 `json:"total_possible"`
	Percentage       int                     `json:"percentage"`
	Weighted         bool                    `json:"weighted"`
	PerQuestion      []QuestionOutcome       `json:"per_question"`
	SubjectBreakdown map[string]SubjectScore `json:"subject_breakdown"`
}

// Applicable reports whether the exam had anything to auto-score. A result
// that is not applicable should be shown as such rather than as 0%.
func (r ScoringResult) Applicable() bool {
	return r.TotalPossible > 0
}

// QuestionOutcome is the graded state of one single-choice question.
type QuestionOutcome struct {
	Index        int     `json:"index"`
	Submitted    Answer  `json:"submitted"`
	Correct      int     `json:"correct"`
	IsCorrect    bool    `json:"is_correct"`
	Weight       float64 `json:"weight"`
	PointsEarned float64 `json:"points_earned"`
}

// SubjectScore aggregates single-choice results sharing a subject label.
type SubjectScore struct {
	TotalQuestions int `json:"total_questions"`
	CorrectAnswers int `json:"correct_answers"`
	Percentage     int `json:"percentage"`
}
