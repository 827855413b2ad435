package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/seice/seice/internal/grading"
	appI18n "github.com/seice/seice/internal/i18n"
	"github.com/seice/seice/internal/leaderboard"
	"github.com/seice/seice/internal/report"
	"github.com/seice/seice/internal/scoring"
	"github.com/seice/seice/internal/store"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the results of an exam as JSON or xlsx",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "seice.db", "SQLite database path")
	f.Int64("exam-id", 0, "Exam to export (required)")
	f.String("format", "json", "Output format (json, xlsx)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.StringP("lang", "l", "pt", "Language of spreadsheet headers (pt, en)")
	addLogFlags(cmd)
	_ = cmd.MarkFlagRequired("exam-id")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := initCommand(cmd)

	format := v.GetString("format")
	if format != "json" && format != "xlsx" {
		return fmt.Errorf("unknown format %q (want json or xlsx)", format)
	}
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	g := grading.New(db, leaderboard.NewMemory(), nil, scoring.Options{})
	exp, err := g.Export(cmd.Context(), v.GetInt64("exam-id"))
	if err != nil {
		return fmt.Errorf("export exam: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if format == "xlsx" {
		ctx := appI18n.WithLocalizer(cmd.Context(), appI18n.NewLocalizer(lang))
		return report.WriteXLSX(ctx, w, exp)
	}

	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
