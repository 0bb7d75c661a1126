package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vapmail16/synonym-quest-sub000/internal/auth"
	"github.com/vapmail16/synonym-quest-sub000/internal/testutil"
	"github.com/vapmail16/synonym-quest-sub000/internal/user"
)

const secret = "test-secret"

type fixture struct {
	svc      *auth.Service
	users    *testutil.UserStore
	sessions *testutil.SessionStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	signer, err := auth.NewSigner(auth.Config{Secret: []byte(secret), Issuer: "test"})
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{users: testutil.NewUserStore(), sessions: testutil.NewSessionStore()}
	f.svc = auth.NewService(user.NewUserService(f.users, testutil.PlainHasher{}), f.sessions, signer, nil)
	return f
}

func (f *fixture) register(t *testing.T) *auth.AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), user.RegisterInput{
		Username: "ada", Email: "Ada@Example.com", Password: "secret1",
	}, auth.DeviceInfo{DeviceType: "desktop"})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestRegisterOpensSession(t *testing.T) {
	f := newFixture(t)
	res := f.register(t)
	if res.Token == "" || res.RefreshToken == "" || res.User.Email != "ada@example.com" {
		t.Fatalf("register: %+v", res)
	}
	if f.sessions.Len() != 1 {
		t.Fatalf("sessions: %d", f.sessions.Len())
	}
	p, err := f.svc.Authenticate(context.Background(), res.Token)
	if err != nil {
		t.Fatal(err)
	}
	if p.UserID != res.User.ID {
		t.Fatalf("principal: %+v", p)
	}
	if u, _ := f.users.GetByID(context.Background(), p.UserID); u.LastActiveAt == nil {
		t.Fatal("authenticate must touch last_active_at")
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	cases := []struct {
		name string
		in   user.RegisterInput
		want error
	}{
		{"bad email", user.RegisterInput{Username: "bob", Email: "bob-at-example", Password: "secret1"}, user.ErrInvalidEmail},
		{"short password", user.RegisterInput{Username: "bob", Email: "bob@example.com", Password: "123"}, user.ErrWeakPassword},
		{"short username", user.RegisterInput{Username: "bo", Email: "bob@example.com", Password: "secret1"}, user.ErrInvalidUsername},
		{"taken email", user.RegisterInput{Username: "bob", Email: "ada@example.com", Password: "secret1"}, user.ErrEmailTaken},
		{"taken username", user.RegisterInput{Username: "ada", Email: "bob@example.com", Password: "secret1"}, user.ErrUsernameTaken},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := f.svc.Register(context.Background(), c.in, auth.DeviceInfo{}); !errors.Is(err, c.want) {
				t.Fatalf("got %v want %v", err, c.want)
			}
		})
	}
	if f.sessions.Len() != 1 {
		t.Fatal("failed registrations must not open sessions")
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()
	if _, err := f.svc.Login(ctx, "ada@example.com", "wrong", auth.DeviceInfo{}); !errors.Is(err, user.ErrBadCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := f.svc.Login(ctx, "nobody@example.com", "secret1", auth.DeviceInfo{}); !errors.Is(err, user.ErrBadCredentials) {
		t.Fatalf("unknown email: %v", err)
	}
	if f.sessions.Len() != 1 {
		t.Fatalf("failed logins opened sessions: %d", f.sessions.Len())
	}
	res, err := f.svc.Login(ctx, " ADA@example.com ", "secret1", auth.DeviceInfo{})
	if err != nil {
		t.Fatal(err)
	}
	if f.sessions.Len() != 2 {
		t.Fatalf("sessions after login: %d", f.sessions.Len())
	}
	if u, _ := f.users.GetByID(ctx, res.User.ID); u.LastLoginAt == nil {
		t.Fatal("login must touch last_login_at")
	}
}

func TestRefreshRotates(t *testing.T) {
	f := newFixture(t)
	res := f.register(t)
	ctx := context.Background()

	pair, err := f.svc.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if pair.Token == res.Token || pair.RefreshToken == res.RefreshToken {
		t.Fatal("refresh must replace both tokens")
	}
	if _, err := f.svc.Refresh(ctx, res.RefreshToken); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("replayed refresh token: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, res.Token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("rotated-out access token: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, pair.Token); err != nil {
		t.Fatalf("new access token: %v", err)
	}
	if _, err := f.svc.Refresh(ctx, pair.Token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("access token used as refresh token: %v", err)
	}
}

func TestLogoutAndRevoke(t *testing.T) {
	f := newFixture(t)
	first := f.register(t)
	ctx := context.Background()
	second, err := f.svc.Login(ctx, "ada@example.com", "secret1", auth.DeviceInfo{})
	if err != nil {
		t.Fatal(err)
	}
	p, _ := f.svc.Authenticate(ctx, second.Token)

	views, err := f.svc.Sessions(ctx, p)
	if err != nil || len(views) != 2 {
		t.Fatalf("sessions: %v %d", err, len(views))
	}
	current := 0
	for _, v := range views {
		if v.Current {
			current++
		}
	}
	if current != 1 {
		t.Fatalf("exactly one session is current, got %d", current)
	}

	other, _ := f.svc.Authenticate(ctx, first.Token)
	if err := f.svc.RevokeSession(ctx, p, other.SessionID); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.RevokeSession(ctx, p, other.SessionID); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("second revoke: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, first.Token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("revoked session: %v", err)
	}
	if err := f.svc.Logout(ctx, p); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Authenticate(ctx, second.Token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("logged out session: %v", err)
	}
}

func TestDisabledUser(t *testing.T) {
	f := newFixture(t)
	res := f.register(t)
	f.users.SetActive(res.User.ID, false)
	if _, err := f.svc.Authenticate(context.Background(), res.Token); !errors.Is(err, user.ErrDisabled) {
		t.Fatalf("disabled: %v", err)
	}
}

func expiredToken(t *testing.T, userID int64, sessionID string) string {
	t.Helper()
	past := time.Now().Add(-time.Hour)
	claims := auth.Claims{
		UserID:    userID,
		SessionID: sessionID,
		Kind:      "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test",
			IssuedAt:  jwt.NewNumericDate(past.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(past),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestProfileRequiresValidToken(t *testing.T) {
	f := newFixture(t)
	res := f.register(t)
	p, _ := f.svc.Authenticate(context.Background(), res.Token)

	h := auth.NewHandler(f.svc, testutil.Logger())
	profile := auth.RequireAuth(f.svc)(http.HandlerFunc(h.Profile))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"expired", "Bearer " + expiredToken(t, res.User.ID, p.SessionID), http.StatusUnauthorized},
		{"wrong scheme", "Basic " + res.Token, http.StatusUnauthorized},
		{"valid", "Bearer " + res.Token, http.StatusOK},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			rec := httptest.NewRecorder()
			profile.ServeHTTP(rec, req)
			if rec.Code != c.want {
				t.Fatalf("status %d want %d: %s", rec.Code, c.want, rec.Body)
			}
		})
	}
}

func TestHandlerRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	h := auth.NewHandler(f.svc, testutil.Logger())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/refresh-token", h.RefreshToken)

	cases := []struct {
		path, body string
		want       int
	}{
		{"/api/auth/register", `{"username":"ada","email":"not-an-email","password":"secret1"}`, http.StatusBadRequest},
		{"/api/auth/register", `{"username":"ada","email":"ada@example.com","password":"123"}`, http.StatusBadRequest},
		{"/api/auth/register", `{"username":"ada","email":"ada@example.com","password":"secret1"}`, http.StatusCreated},
		{"/api/auth/login", `{"email":"ada@example.com","password":"nope"}`, http.StatusUnauthorized},
		{"/api/auth/login", `{"email":"ada@example.com"}`, http.StatusBadRequest},
		{"/api/auth/login", `{"email":"ada@example.com","password":"secret1"}`, http.StatusOK},
		{"/api/auth/refresh-token", `{}`, http.StatusBadRequest},
		{"/api/auth/refresh-token", `{"refreshToken":"junk"}`, http.StatusUnauthorized},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, c.path, strings.NewReader(c.body)))
		if rec.Code != c.want {
			t.Errorf("%s %s: %d want %d (%s)", c.path, c.body, rec.Code, c.want, rec.Body)
		}
	}
	if f.sessions.Len() != 2 {
		t.Fatalf("one session per successful register/login, got %d", f.sessions.Len())
	}
}
