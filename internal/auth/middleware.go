package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vapmail16/synonym-quest-sub000/internal/httpx"
	"github.com/vapmail16/synonym-quest-sub000/internal/user"
)

type ctxKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFrom returns the authenticated caller, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Principal)
	return p, ok && p != nil
}

// Authenticator resolves bearer tokens; *Service implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*Principal, error)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// RequireAuth rejects requests without a valid bearer token with 401.
func RequireAuth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.Authenticate(r.Context(), bearerToken(r))
			if err != nil {
				httpx.WriteError(w, authError(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// OptionalAuth attaches a principal when a valid token is present and lets
// anonymous requests through. A present but invalid token is still a 401.
func OptionalAuth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearerToken(r)
			if tok == "" {
				next.ServeHTTP(w, r)
				return
			}
			p, err := a.Authenticate(r.Context(), tok)
			if err != nil {
				httpx.WriteError(w, authError(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

var ErrNotAdmin = errors.New("admin access required")

// RequireAdmin lets through principals whose email is in admins. It must run
// after RequireAuth.
func RequireAdmin(admins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(admins))
	for _, e := range admins {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			allowed[e] = true
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				httpx.WriteError(w, httpx.Unauthorized(ErrMissingToken))
				return
			}
			if p.User == nil || !allowed[strings.ToLower(p.User.Email)] {
				httpx.WriteError(w, httpx.Forbidden(ErrNotAdmin))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authError(err error) error {
	switch {
	case errors.Is(err, ErrMissingToken), errors.Is(err, ErrInvalidToken), errors.Is(err, user.ErrDisabled):
		return httpx.Unauthorized(err)
	default:
		return httpx.Internal(err)
	}
}
