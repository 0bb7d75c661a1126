package router

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/vapmail16/synonym-quest-sub000/internal/auth"
	"github.com/vapmail16/synonym-quest-sub000/internal/badge"
	"github.com/vapmail16/synonym-quest-sub000/internal/game"
	"github.com/vapmail16/synonym-quest-sub000/internal/httpx"
	"github.com/vapmail16/synonym-quest-sub000/internal/quiz"
	"github.com/vapmail16/synonym-quest-sub000/internal/ratelimit"
	"github.com/vapmail16/synonym-quest-sub000/internal/word"
)

// Deps are the handlers and policies the route table is built from.
type Deps struct {
	Auth          *auth.Handler
	Words         *word.Handler
	Quiz          *quiz.Handler
	Games         *game.Handler
	Badges        *badge.Handler
	Authenticator auth.Authenticator
	// AuthLimiter guards register, login and refresh.
	AuthLimiter ratelimit.Limiter
	// ClientIPs keys the limiter; nil trusts no forwarding headers.
	ClientIPs *ratelimit.IPResolver
	// AdminEmails may import and delete words.
	AdminEmails []string
	CORSOrigins []string
	Logger      *zap.SugaredLogger
}

type chain func(http.Handler) http.Handler

func wrap(fn http.HandlerFunc, mws ...chain) http.Handler {
	var h http.Handler = fn
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// RegisterRoutes mounts every /api route on a standard library ServeMux.
func RegisterRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	required := chain(auth.RequireAuth(d.Authenticator))
	optional := chain(auth.OptionalAuth(d.Authenticator))
	admin := chain(auth.RequireAdmin(d.AdminEmails))
	limited := chain(ratelimit.Middleware(d.AuthLimiter, d.ClientIPs, logger))

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.OK(w, map[string]string{"status": "ok"})
	})

	// auth
	mux.Handle("POST /api/auth/register", wrap(d.Auth.Register, limited))
	mux.Handle("POST /api/auth/login", wrap(d.Auth.Login, limited))
	mux.Handle("POST /api/auth/refresh-token", wrap(d.Auth.RefreshToken, limited))
	mux.Handle("GET /api/auth/profile", wrap(d.Auth.Profile, required))
	mux.Handle("PUT /api/auth/profile", wrap(d.Auth.UpdateProfile, required))
	mux.Handle("POST /api/auth/logout", wrap(d.Auth.Logout, required))
	mux.Handle("POST /api/auth/logout-all", wrap(d.Auth.LogoutAll, required))
	mux.Handle("GET /api/auth/sessions", wrap(d.Auth.Sessions, required))
	mux.Handle("DELETE /api/auth/sessions/{id}", wrap(d.Auth.RevokeSession, required))

	// words
	mux.HandleFunc("GET /api/words", d.Words.List)
	mux.HandleFunc("GET /api/words/random", d.Words.Random)
	mux.HandleFunc("GET /api/words/review", d.Words.Review)
	mux.Handle("GET /api/words/learned", wrap(d.Words.Learned, required))
	mux.Handle("GET /api/words/new", wrap(d.Words.New, required))
	mux.HandleFunc("GET /api/words/{id}", d.Words.Get)
	mux.Handle("POST /api/words", wrap(d.Words.Create, required))
	mux.Handle("POST /api/words/import", wrap(d.Words.Import, required, admin))
	mux.Handle("PUT /api/words/{id}", wrap(d.Words.Update, required))
	mux.Handle("DELETE /api/words/{id}", wrap(d.Words.Delete, required, admin))
	mux.HandleFunc("POST /api/words/{id}/answer", d.Words.RecordAnswer)
	mux.Handle("POST /api/words/{id}/generate-synonyms", wrap(d.Words.GenerateSynonyms, required))
	mux.Handle("POST /api/words/{id}/generate-meaning", wrap(d.Words.GenerateMeaning, required))

	// quiz
	mux.HandleFunc("POST /api/quiz/start", d.Quiz.Start)
	mux.HandleFunc("POST /api/quiz/{id}/answer", d.Quiz.Answer)
	mux.HandleFunc("GET /api/quiz/{id}", d.Quiz.Get)
	mux.HandleFunc("GET /api/quiz/{id}/result", d.Quiz.Result)
	mux.HandleFunc("DELETE /api/quiz/{id}", d.Quiz.Delete)

	// games
	mux.Handle("GET /api/games/{mode}/question", wrap(d.Games.Question, optional))
	mux.Handle("GET /api/games/{mode}/round", wrap(d.Games.Round, optional))
	mux.Handle("POST /api/games/answer", wrap(d.Games.SubmitAnswer, optional))
	mux.Handle("POST /api/games/round", wrap(d.Games.SubmitRound, optional))
	mux.Handle("GET /api/games/user/progress", wrap(d.Games.UserProgress, required))
	mux.Handle("GET /api/games/user/stats", wrap(d.Games.UserStats, required))
	mux.Handle("GET /api/games/user/words/{gameType}", wrap(d.Games.WordsForGame, required))

	// badges
	mux.HandleFunc("GET /api/badges", d.Badges.List)
	mux.Handle("GET /api/badges/user", wrap(d.Badges.User, required))
	mux.Handle("GET /api/badges/user/progress", wrap(d.Badges.UserProgress, required))
	mux.Handle("POST /api/badges/check", wrap(d.Badges.Check, required))
	mux.HandleFunc("GET /api/badges/{id}", d.Badges.Get)

	return wrap(mux.ServeHTTP,
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		RecoverMiddleware(logger),
		SecurityHeadersMiddleware(),
		CORSMiddleware(d.CORSOrigins),
	)
}
