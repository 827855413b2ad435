package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/seice/seice/internal/grading"
	"github.com/seice/seice/internal/handler"
	appI18n "github.com/seice/seice/internal/i18n"
	"github.com/seice/seice/internal/leaderboard"
	"github.com/seice/seice/internal/llm"
	"github.com/seice/seice/internal/llm/prompts"
	"github.com/seice/seice/internal/model"
	"github.com/seice/seice/internal/scheduler"
	"github.com/seice/seice/internal/scoring"
	"github.com/seice/seice/internal/store"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "seice.db", "SQLite database path")
	f.StringP("lang", "l", "pt", "Default language of messages (pt, en)")
	f.String("weights", string(scoring.WeightsAuto), "Question weights (auto, on, off)")
	f.String("llm-url", "", "OpenAI-compatible API base URL for essay suggestions (empty disables them)")
	f.String("llm-key", "", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("prompt-variant", string(prompts.PromptStandard), "Essay review prompt variant (strict, standard, lenient)")
	f.String("redis-addr", "", "Redis address for exam rankings (empty keeps rankings in memory)")
	f.String("admin-password", "", "Initial admin password (or set SEICE_ADMIN_PASSWORD)")
	f.Duration("cleanup-interval", 15*time.Minute, "How often expired login sessions are removed")
	addLogFlags(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := initCommand(cmd)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedAdmin(ctx, db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	weights, err := scoring.ParseWeightMode(v.GetString("weights"))
	if err != nil {
		return err
	}

	reviewer, err := newReviewer(v)
	if err != nil {
		return err
	}

	ranking, closeRanking, err := newRanking(ctx, v.GetString("redis-addr"))
	if err != nil {
		return err
	}
	defer closeRanking()

	g := grading.New(db, ranking, reviewer, scoring.Options{Weights: weights})
	if err := g.WarmRanking(ctx); err != nil {
		return fmt.Errorf("warm ranking: %w", err)
	}

	sched := scheduler.New(db, v.GetDuration("cleanup-interval"))
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	handler.New(db, g).Routes(r)

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"weights", weights,
		"essay_suggestions", reviewer != nil,
		"redis", v.GetString("redis-addr") != "",
	)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newReviewer returns the LLM essay reviewer, or nil when no LLM endpoint is
// configured.
func newReviewer(v *viper.Viper) (grading.EssayReviewer, error) {
	url := v.GetString("llm-url")
	if url == "" {
		return nil, nil
	}
	if err := prompts.Load(prompts.Templates); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	variant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(variant) {
		slog.Warn("invalid prompt-variant, using standard", "variant", variant)
		variant = string(prompts.PromptStandard)
	}
	slog.Info("essay suggestions enabled", "url", url, "model", v.GetString("llm-model"), "variant", variant)
	return llm.New(url, v.GetString("llm-key"), v.GetString("llm-model"), prompts.PromptVariant(variant)), nil
}

// newRanking connects to Redis when addr is set and falls back to an
// in-process ranking otherwise.
func newRanking(ctx context.Context, addr string) (leaderboard.Ranking, func(), error) {
	if addr == "" {
		return leaderboard.NewMemory(), func() {}, nil
	}
	addr = strings.TrimPrefix(addr, "redis://")
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	slog.Info("connected to redis", "addr", addr)
	return leaderboard.NewRedis(rdb), func() { rdb.Close() }, nil
}

func seedAdmin(ctx context.Context, db *store.Store, password string) error {
	count, err := db.UserCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or SEICE_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(ctx, model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
