package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vapmail16/synonym-quest-sub000/internal/ai"
	"github.com/vapmail16/synonym-quest-sub000/internal/auth"
	authrepo "github.com/vapmail16/synonym-quest-sub000/internal/auth/repo"
	"github.com/vapmail16/synonym-quest-sub000/internal/badge"
	badgerepo "github.com/vapmail16/synonym-quest-sub000/internal/badge/repo"
	"github.com/vapmail16/synonym-quest-sub000/internal/game"
	"github.com/vapmail16/synonym-quest-sub000/internal/jobs"
	"github.com/vapmail16/synonym-quest-sub000/internal/progress"
	progressrepo "github.com/vapmail16/synonym-quest-sub000/internal/progress/repo"
	"github.com/vapmail16/synonym-quest-sub000/internal/quiz"
	"github.com/vapmail16/synonym-quest-sub000/internal/ratelimit"
	"github.com/vapmail16/synonym-quest-sub000/internal/router"
	"github.com/vapmail16/synonym-quest-sub000/internal/schema"
	"github.com/vapmail16/synonym-quest-sub000/internal/user"
	userrepo "github.com/vapmail16/synonym-quest-sub000/internal/user/repo"
	"github.com/vapmail16/synonym-quest-sub000/internal/word"
	wordrepo "github.com/vapmail16/synonym-quest-sub000/internal/word/repo"
	"github.com/vapmail16/synonym-quest-sub000/pkg/database"
	"github.com/vapmail16/synonym-quest-sub000/pkg/utilities"
)

func main() {
	// best-effort: a missing .env just means the real environment is used
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting synonym-quest api")

	db, err := database.Open(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := schema.Ensure(ctx, db); err != nil {
		sugar.Fatalf("schema: %v", err)
	}
	badges := badgerepo.NewBadgeRepo(db)
	if n, err := badge.SeedCatalog(ctx, badges, nil); err != nil {
		sugar.Fatalf("seed badges: %v", err)
	} else {
		sugar.Infow("badge catalog seeded", "badges", n)
	}

	var rdb *redis.Client
	if url := utilities.EnvString("REDIS_URL", ""); url != "" {
		if rdb, err = database.OpenRedis(url); err != nil {
			sugar.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
	}

	signer, err := auth.NewSigner(auth.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("auth config: %v", err)
	}

	words := wordrepo.NewWordRepo(db)
	sessions := authrepo.NewSessionRepo(db)
	progressRepo := progressrepo.NewProgressRepo(db)
	aiClient := ai.New(ai.ConfigFromEnv(), sugar)
	if !aiClient.Enabled() {
		sugar.Warn("OPENAI_API_KEY not set; synonym and meaning generation use fallbacks")
	}

	users := user.NewUserService(userrepo.NewUserRepo(db), nil)
	authSvc := auth.NewService(users, sessions, signer, sugar)
	progressSvc := progress.NewService(progressRepo)
	badgeSvc := badge.NewService(badges, badgerepo.NewUserBadgeRepo(db), progressRepo, sugar)
	wordSvc := word.NewService(words, aiClient, progressSvc)
	gameSvc := game.NewService(words, progressSvc, badgeSvc, aiClient, sugar)

	var tasks []jobs.Task
	tasks = append(tasks, jobs.ExpiredSessions(sessions))

	quizStore, quizTask := newQuizStore(rdb, sugar)
	if quizTask != nil {
		tasks = append(tasks, *quizTask)
	}
	quizSvc := quiz.NewService(words, quizStore, sugar)

	limitStore, limitTask := newLimitStore(rdb, sugar)
	if limitTask != nil {
		tasks = append(tasks, *limitTask)
	}
	authLimiter := ratelimit.NewWindowLimiter(limitStore, "auth:", 5, 15*time.Minute)
	clientIPs, err := ratelimit.ResolverFromEnv()
	if err != nil {
		sugar.Fatalf("trusted proxies: %v", err)
	}

	maint := jobs.NewMaintenance(utilities.EnvDuration("MAINTENANCE_INTERVAL", jobs.DefaultInterval), sugar, tasks...)
	if err := maint.Start(); err != nil {
		sugar.Fatalf("maintenance: %v", err)
	}
	defer maint.Stop()

	handler := router.RegisterRoutes(router.Deps{
		Auth:          auth.NewHandler(authSvc, sugar),
		Words:         word.NewHandler(wordSvc, sugar),
		Quiz:          quiz.NewHandler(quizSvc, sugar),
		Games:         game.NewHandler(gameSvc, sugar),
		Badges:        badge.NewHandler(badgeSvc, sugar),
		Authenticator: authSvc,
		AuthLimiter:   authLimiter,
		ClientIPs:     clientIPs,
		AdminEmails:   strings.Split(utilities.EnvString("ADMIN_EMAILS", ""), ","),
		CORSOrigins:   strings.Split(utilities.EnvString("CORS_ORIGIN", "http://localhost:3000"), ","),
		Logger:        sugar,
	})
	srv := &http.Server{
		Addr:              "0.0.0.0:" + utilities.EnvString("PORT", "8000"),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

// newQuizStore picks the quiz session backend from QUIZ_STORE. Only the
// in-memory store needs a sweep task; Redis expires keys itself.
func newQuizStore(rdb *redis.Client, logger *zap.SugaredLogger) (quiz.Store, *jobs.Task) {
	if utilities.EnvString("QUIZ_STORE", "memory") == "redis" {
		if rdb != nil {
			return quiz.NewRedisStore(rdb), nil
		}
		logger.Warn("QUIZ_STORE=redis but REDIS_URL is empty; using memory")
	}
	store := quiz.NewMemoryStore()
	task := jobs.StaleQuizzes(store)
	return store, &task
}

func newLimitStore(rdb *redis.Client, logger *zap.SugaredLogger) (ratelimit.Store, *jobs.Task) {
	if utilities.EnvString("RATE_LIMIT_BACKEND", "memory") == "redis" {
		if rdb != nil {
			return ratelimit.NewRedisStore(rdb), nil
		}
		logger.Warn("RATE_LIMIT_BACKEND=redis but REDIS_URL is empty; using memory")
	}
	store := ratelimit.NewMemoryStore()
	task := jobs.RateLimitWindows(store)
	return store, &task
}
