package model

import "time"

// ExamExport is the top-level JSON structure for exam result export.
type ExamExport struct {
	ExamID       int64           `json:"exam_id"`
	Title        string          `json:"title"`
	ClassName    string          `json:"class_name"`
	GeneratedAt  time.Time       `json:"generated_at"`
	NumQuestions int             `json:"num_questions"`
	Results      []StudentResult `json:"results"`
}

// StudentResult holds one student's graded submission for export.
type StudentResult struct {
	StudentName   string                  `json:"student_name"`
	Enrollment    string                  `json:"enrollment"`
	Receipt       string                  `json:"receipt"`
	Channel       Channel                 `json:"channel"`
	Status        SubmissionStatus        `json:"status"`
	SubmittedAt   time.Time               `json:"submitted_at"`
	TimeSpent     int                     `json:"time_spent"`
	CorrectCount  int                     `json:"correct_count"`
	ScoreAchieved float64                 `json:"score_achieved"`
	TotalPossible float64                 `json:"total_possible"`
	Percentage    int                     `json:"percentage"`
	Applicable    bool                    `json:"applicable"`
	Subjects      map[string]SubjectScore `json:"subjects"`
	Essays        []EssayExport           `json:"essays,omitempty"`
}

// EssayExport is the reviewed state of one essay question.
type EssayExport struct {
	QuestionIndex int      `json:"question_index"`
	Text          string   `json:"text"`
	Score         *float64 `json:"score,omitempty"`
	Comment       string   `json:"comment,omitempty"`
}
