package router_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vapmail16/synonym-quest-sub000/internal/auth"
	"github.com/vapmail16/synonym-quest-sub000/internal/badge"
	"github.com/vapmail16/synonym-quest-sub000/internal/game"
	"github.com/vapmail16/synonym-quest-sub000/internal/progress"
	"github.com/vapmail16/synonym-quest-sub000/internal/quiz"
	"github.com/vapmail16/synonym-quest-sub000/internal/ratelimit"
	"github.com/vapmail16/synonym-quest-sub000/internal/router"
	"github.com/vapmail16/synonym-quest-sub000/internal/testutil"
	"github.com/vapmail16/synonym-quest-sub000/internal/user"
	"github.com/vapmail16/synonym-quest-sub000/internal/word"
)

type app struct {
	handler http.Handler
	auth    *auth.Service
}

func newApp(t *testing.T) *app {
	t.Helper()
	logger := testutil.Logger()
	signer, err := auth.NewSigner(auth.Config{Secret: []byte("router-secret"), Issuer: "test"})
	if err != nil {
		t.Fatal(err)
	}
	authSvc := auth.NewService(user.NewUserService(testutil.NewUserStore(), testutil.PlainHasher{}), testutil.NewSessionStore(), signer, logger)

	words := testutil.NewWordStore(testutil.Syn("big", "large:exact"), testutil.Syn("fast", "quick:exact"))
	progressStore := testutil.NewProgressStore()
	progressSvc := progress.NewService(progressStore)
	badgeSvc := badge.NewService(testutil.NewBadgeCatalog(), testutil.NewAwardStore(), progressStore, logger)

	h := router.RegisterRoutes(router.Deps{
		Auth:          auth.NewHandler(authSvc, logger),
		Words:         word.NewHandler(word.NewService(words, nil, progressSvc), logger),
		Quiz:          quiz.NewHandler(quiz.NewService(words, quiz.NewMemoryStore(), logger), logger),
		Games:         game.NewHandler(game.NewService(words, progressSvc, badgeSvc, nil, logger), logger),
		Badges:        badge.NewHandler(badgeSvc, logger),
		Authenticator: authSvc,
		AuthLimiter:   ratelimit.NewWindowLimiter(ratelimit.NewMemoryStore(), "auth:", 5, 15*time.Minute),
		AdminEmails:   []string{"Admin@Example.com"},
		CORSOrigins:   []string{"*"},
		Logger:        logger,
	})
	return &app{handler: h, auth: authSvc}
}

func (a *app) token(t *testing.T, name string) string {
	t.Helper()
	res, err := a.auth.Register(context.Background(), user.RegisterInput{
		Username: name, Email: name + "@example.com", Password: "secret1",
	}, auth.DeviceInfo{})
	if err != nil {
		t.Fatal(err)
	}
	return res.Token
}

func (a *app) do(method, path, body, token string) int {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRouteGuards(t *testing.T) {
	a := newApp(t)
	player := a.token(t, "player")
	admin := a.token(t, "admin")

	cases := []struct {
		name, method, path, body, token string
		want                            int
	}{
		{"health", http.MethodGet, "/api/health", "", "", http.StatusOK},
		{"list words", http.MethodGet, "/api/words", "", "", http.StatusOK},
		{"create anonymous", http.MethodPost, "/api/words", `{"word":"calm","synonyms":[{"synonym":"quiet"}]}`, "", http.StatusUnauthorized},
		{"update anonymous", http.MethodPut, "/api/words/1", `{"meaning":"x"}`, "", http.StatusUnauthorized},
		{"delete anonymous", http.MethodDelete, "/api/words/1", "", "", http.StatusUnauthorized},
		{"import anonymous", http.MethodPost, "/api/words/import", "", "", http.StatusUnauthorized},
		{"generate anonymous", http.MethodPost, "/api/words/1/generate-synonyms", "", "", http.StatusUnauthorized},
		{"meaning anonymous", http.MethodPost, "/api/words/1/generate-meaning", "", "", http.StatusUnauthorized},
		{"create signed in", http.MethodPost, "/api/words", `{"word":"calm","synonyms":[{"synonym":"quiet"}]}`, player, http.StatusCreated},
		{"delete as player", http.MethodDelete, "/api/words/1", "", player, http.StatusForbidden},
		{"import as player", http.MethodPost, "/api/words/import", "", player, http.StatusForbidden},
		{"delete as admin", http.MethodDelete, "/api/words/1", "", admin, http.StatusOK},
		{"profile anonymous", http.MethodGet, "/api/auth/profile", "", "", http.StatusUnauthorized},
		{"badge check anonymous", http.MethodPost, "/api/badges/check", `{"type":"custom"}`, "", http.StatusUnauthorized},
		{"game stats anonymous", http.MethodGet, "/api/games/user/stats", "", "", http.StatusUnauthorized},
		{"game question anonymous", http.MethodGet, "/api/games/synonym-match/question", "", "", http.StatusOK},
		{"bad token on optional route", http.MethodGet, "/api/games/synonym-match/question", "", "junk", http.StatusUnauthorized},
	}
	for _, c := range cases {
		if got := a.do(c.method, c.path, c.body, c.token); got != c.want {
			t.Errorf("%s: %s %s = %d want %d", c.name, c.method, c.path, got, c.want)
		}
	}
}

func TestLoginLimitedPerSocketAddress(t *testing.T) {
	a := newApp(t)
	blocked := 0
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"x@example.com","password":"nope"}`))
		req.RemoteAddr = "203.0.113.7:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		a.handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			blocked++
		}
	}
	if blocked != 5 {
		t.Fatalf("blocked %d of 10 logins, want 5", blocked)
	}
}
