// Package report writes exam results as spreadsheets.
package report

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/seice/seice/internal/i18n"
	"github.com/seice/seice/internal/model"
)

// Sheet names of the results workbook.
const (
	SheetResults  = "Results"
	SheetSubjects = "Subjects"
	SheetEssays   = "Essays"
)

// WriteXLSX writes the results of an exam to w as an xlsx workbook with one
// row per submission. Header labels follow the localizer in ctx.
func WriteXLSX(ctx context.Context, w io.Writer, exp model.ExamExport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetResults); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeResults(ctx, f, exp); err != nil {
		return err
	}
	if err := writeSubjects(ctx, f, exp); err != nil {
		return err
	}
	if err := writeEssays(ctx, f, exp); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func writeResults(ctx context.Context, f *excelize.File, exp model.ExamExport) error {
	header := []interface{}{
		i18n.T(ctx, "ColStudent"),
		i18n.T(ctx, "ColEnrollment"),
		i18n.T(ctx, "ColReceipt"),
		i18n.T(ctx, "ColChannel"),
		i18n.T(ctx, "ColStatus"),
		i18n.T(ctx, "ColSubmittedAt"),
		i18n.T(ctx, "ColCorrect"),
		i18n.T(ctx, "ColScore"),
		i18n.T(ctx, "ColTotal"),
		i18n.T(ctx, "ColPercentage"),
	}
	if err := setRow(f, SheetResults, 1, header); err != nil {
		return err
	}

	notApplicable := i18n.T(ctx, "NotApplicable")
	for i, r := range exp.Results {
		var pct interface{} = r.Percentage
		if !r.Applicable {
			pct = notApplicable
		}
		row := []interface{}{
			r.StudentName,
			r.Enrollment,
			r.Receipt,
			string(r.Channel),
			string(r.Status),
			r.SubmittedAt.Format("2006-01-02 15:04"),
			r.CorrectCount,
			r.ScoreAchieved,
			r.TotalPossible,
			pct,
		}
		if err := setRow(f, SheetResults, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

// subjects returns every subject that appears in any result, sorted.
func subjects(exp model.ExamExport) []string {
	seen := make(map[string]bool)
	for _, r := range exp.Results {
		for s := range r.Subjects {
			seen[s] = true
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func writeSubjects(ctx context.Context, f *excelize.File, exp model.ExamExport) error {
	if _, err := f.NewSheet(SheetSubjects); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetSubjects, err)
	}
	names := subjects(exp)

	header := []interface{}{i18n.T(ctx, "ColStudent")}
	for _, s := range names {
		header = append(header, s)
	}
	if err := setRow(f, SheetSubjects, 1, header); err != nil {
		return err
	}

	for i, r := range exp.Results {
		row := []interface{}{r.StudentName}
		for _, s := range names {
			if score, ok := r.Subjects[s]; ok {
				row = append(row, score.Percentage)
			} else {
				row = append(row, "")
			}
		}
		if err := setRow(f, SheetSubjects, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeEssays(ctx context.Context, f *excelize.File, exp model.ExamExport) error {
	if _, err := f.NewSheet(SheetEssays); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetEssays, err)
	}
	header := []interface{}{
		i18n.T(ctx, "ColStudent"),
		i18n.T(ctx, "ColQuestion"),
		i18n.T(ctx, "ColAnswer"),
		i18n.T(ctx, "ColScore"),
		i18n.T(ctx, "ColComment"),
	}
	if err := setRow(f, SheetEssays, 1, header); err != nil {
		return err
	}

	row := 2
	for _, r := range exp.Results {
		for _, e := range r.Essays {
			var score interface{} = ""
			if e.Score != nil {
				score = *e.Score
			}
			values := []interface{}{r.StudentName, e.QuestionIndex + 1, e.Text, score, e.Comment}
			if err := setRow(f, SheetEssays, row, values); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}
