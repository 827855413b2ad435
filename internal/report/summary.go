package report

import (
	"context"

	"github.com/seice/seice/internal/i18n"
	"github.com/seice/seice/internal/model"
)

// Summary renders a result for people: "67% (2 of 3)", or the localized
// "not applicable" when the exam has nothing to score automatically.
func Summary(ctx context.Context, r model.ScoringResult) string {
	if !r.Applicable() {
		return i18n.T(ctx, "NotApplicable")
	}
	total := len(r.PerQuestion)
	return i18n.Td(ctx, "ResultSummary", map[string]any{
		"Percentage": r.Percentage,
		"Correct":    r.CorrectCount,
		"Total":      total,
	})
}
