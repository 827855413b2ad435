package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	appI18n "github.com/seice/seice/internal/i18n"
	"github.com/seice/seice/internal/model"
	"github.com/seice/seice/internal/report"
	"github.com/seice/seice/internal/scoring"
)

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score an answer list against an exam file and print the result as JSON",
		RunE:  runScore,
	}
	f := cmd.Flags()
	f.StringP("exam", "e", "", "Exam JSON file (required)")
	f.StringP("answers", "A", "-", "Answers JSON array file (- for stdin)")
	f.String("weights", string(scoring.WeightsAuto), "Question weights (auto, on, off)")
	f.StringP("lang", "l", "pt", "Language of the summary line (pt, en)")
	addLogFlags(cmd)
	_ = cmd.MarkFlagRequired("exam")
	return cmd
}

type scoreOutput struct {
	Result  model.ScoringResult `json:"result"`
	Summary string              `json:"summary"`
}

func readJSON(path string, stdin io.Reader, v any) error {
	var r io.Reader = stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func runScore(cmd *cobra.Command, _ []string) error {
	v := initCommand(cmd)

	weights, err := scoring.ParseWeightMode(v.GetString("weights"))
	if err != nil {
		return err
	}
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	var exam model.Exam
	if err := readJSON(v.GetString("exam"), cmd.InOrStdin(), &exam); err != nil {
		return fmt.Errorf("read exam: %w", err)
	}
	var answers []model.Answer
	if err := readJSON(v.GetString("answers"), cmd.InOrStdin(), &answers); err != nil {
		return fmt.Errorf("read answers: %w", err)
	}

	res := scoring.Score(exam, answers, scoring.Options{Weights: weights})
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(lang))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(scoreOutput{Result: res, Summary: report.Summary(ctx, res)})
}
