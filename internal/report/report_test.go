package report

import (
	"bytes"
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/seice/seice/internal/i18n"
	"github.com/seice/seice/internal/model"
)

func englishContext(t *testing.T) context.Context {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	return i18n.WithLocalizer(context.Background(), i18n.NewLocalizer("en"))
}

func sampleExport() model.ExamExport {
	seven := 7.0
	return model.ExamExport{
		ExamID: 1,
		Title:  "Quiz",
		Results: []model.StudentResult{
			{
				StudentName:   "Ana",
				Enrollment:    "001",
				Receipt:       "r-1",
				Channel:       model.ChannelOnline,
				Status:        model.StatusReviewed,
				SubmittedAt:   time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC),
				CorrectCount:  2,
				ScoreAchieved: 2,
				TotalPossible: 3,
				Percentage:    67,
				Applicable:    true,
				Subjects: map[string]model.SubjectScore{
					"Math":    {TotalQuestions: 2, CorrectAnswers: 2, Percentage: 100},
					"General": {TotalQuestions: 1, CorrectAnswers: 0, Percentage: 0},
				},
				Essays: []model.EssayExport{{QuestionIndex: 3, Text: "Because.", Score: &seven, Comment: "ok"}},
			},
			{
				StudentName: "Bruno",
				Enrollment:  "002",
				Receipt:     "r-2",
				Channel:     model.ChannelScanned,
				Status:      model.StatusGraded,
				SubmittedAt: time.Date(2024, 5, 2, 11, 0, 0, 0, time.UTC),
				Subjects:    map[string]model.SubjectScore{"Math": {TotalQuestions: 2, Percentage: 0}},
			},
		},
	}
}

func TestWriteXLSX(t *testing.T) {
	ctx := englishContext(t)

	var buf bytes.Buffer
	if err := WriteXLSX(ctx, &buf, sampleExport()); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{SheetResults, SheetSubjects, SheetEssays}) {
		t.Errorf("sheets = %v", got)
	}

	rows, err := f.GetRows(SheetResults)
	if err != nil {
		t.Fatalf("GetRows(%s): %v", SheetResults, err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Student" || rows[0][9] != "Percentage" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "Ana" || rows[1][5] != "2024-05-02 10:30" || rows[1][9] != "67" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
	if rows[2][9] != "not applicable" {
		t.Errorf("expected not applicable for Bruno, got %q", rows[2][9])
	}

	subjects, err := f.GetRows(SheetSubjects)
	if err != nil {
		t.Fatalf("GetRows(%s): %v", SheetSubjects, err)
	}
	if !reflect.DeepEqual(subjects[0], []string{"Student", "General", "Math"}) {
		t.Errorf("subject header = %v", subjects[0])
	}
	if !reflect.DeepEqual(subjects[1], []string{"Ana", "0", "100"}) {
		t.Errorf("subject row = %v", subjects[1])
	}

	essays, err := f.GetRows(SheetEssays)
	if err != nil {
		t.Fatalf("GetRows(%s): %v", SheetEssays, err)
	}
	if len(essays) != 2 || essays[1][1] != "4" || essays[1][3] != "7" {
		t.Errorf("unexpected essays sheet: %v", essays)
	}
}

func TestSummary(t *testing.T) {
	ctx := englishContext(t)

	r := model.ScoringResult{
		CorrectCount:  2,
		TotalPossible: 3,
		Percentage:    67,
		PerQuestion:   make([]model.QuestionOutcome, 3),
	}
	if got := Summary(ctx, r); got != "67% (2 of 3)" {
		t.Errorf("Summary = %q", got)
	}
	if got := Summary(ctx, model.ScoringResult{}); got != "not applicable" {
		t.Errorf("Summary of empty result = %q", got)
	}
}
