package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/seice/seice/internal/grading"
	"github.com/seice/seice/internal/leaderboard"
	"github.com/seice/seice/internal/mockdata"
	"github.com/seice/seice/internal/scoring"
	"github.com/seice/seice/internal/store"
)

func mockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Generate synthetic online submissions for every student of an exam's class",
		RunE:  runMock,
	}
	f := cmd.Flags()
	f.String("db", "seice.db", "SQLite database path")
	f.Int64("exam-id", 0, "Exam to generate submissions for (required)")
	f.Int("min", 40, "Lowest target percentage")
	f.Int("max", 100, "Highest target percentage")
	f.Int("max-time", 0, "Longest time spent in seconds (0 uses the exam time limit)")
	f.Uint64("seed", 0, "Random seed (0 picks one from the clock)")
	f.String("weights", string(scoring.WeightsAuto), "Question weights (auto, on, off)")
	addLogFlags(cmd)
	_ = cmd.MarkFlagRequired("exam-id")
	return cmd
}

func runMock(cmd *cobra.Command, _ []string) error {
	v := initCommand(cmd)
	ctx := cmd.Context()

	weights, err := scoring.ParseWeightMode(v.GetString("weights"))
	if err != nil {
		return err
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	examID := v.GetInt64("exam-id")
	exam, err := db.GetExam(ctx, examID)
	if err != nil {
		return fmt.Errorf("get exam %d: %w", examID, err)
	}
	students, err := db.ListStudentsByClass(ctx, exam.ClassID)
	if err != nil {
		return fmt.Errorf("list students: %w", err)
	}

	seed := v.GetUint64("seed")
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1))

	opts := scoring.Options{Weights: weights}
	samples, err := mockdata.Generate(exam, students, mockdata.Config{
		MinPercentage: v.GetInt("min"),
		MaxPercentage: v.GetInt("max"),
		MaxTimeSpent:  v.GetInt("max-time"),
	}, opts, rng)
	if err != nil {
		return err
	}

	g := grading.New(db, leaderboard.NewMemory(), nil, opts)
	var created, skipped int
	for _, s := range samples {
		_, err := g.SubmitOnline(ctx, grading.OnlineSubmission{
			ExamID:    exam.ID,
			StudentID: s.StudentID,
			Answers:   s.Answers,
			TimeSpent: s.TimeSpent,
		})
		if errors.Is(err, grading.ErrAlreadySubmitted) {
			skipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("submit for student %d: %w", s.StudentID, err)
		}
		slog.Debug("mock submission", "student_id", s.StudentID, "target", s.Target, "percentage", s.Result.Percentage)
		created++
	}

	slog.Info("generated mock submissions", "exam_id", exam.ID, "seed", seed, "created", created, "skipped", skipped)
	fmt.Fprintf(cmd.OutOrStdout(), "%d submissions created, %d students already submitted\n", created, skipped)
	return nil
}
