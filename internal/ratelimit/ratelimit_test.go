package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(limit int, window time.Duration) (*WindowLimiter, *MemoryStore, *clock) {
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = c.now
	l := NewWindowLimiter(store, "auth:", limit, window)
	l.now = c.now
	return l, store, c
}

func TestWindowLimiterBlocksAfterLimitAndResets(t *testing.T) {
	l, _, c := newTestLimiter(5, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d, err := l.Check(ctx, "10.0.0.1")
		if err != nil || !d.Allowed {
			t.Fatalf("attempt %d should be allowed: %+v err=%v", i+1, d, err)
		}
		if d.Remaining != 4-i {
			t.Fatalf("attempt %d remaining: got=%d want=%d", i+1, d.Remaining, 4-i)
		}
	}
	d, _ := l.Check(ctx, "10.0.0.1")
	if d.Allowed {
		t.Fatal("sixth attempt should be blocked")
	}
	if d.RetryAfter != 15*time.Minute {
		t.Fatalf("unexpected retry-after: %v", d.RetryAfter)
	}

	if d, _ := l.Check(ctx, "10.0.0.2"); !d.Allowed {
		t.Fatal("other keys must not share the window")
	}

	c.t = c.t.Add(15 * time.Minute)
	if d, _ := l.Check(ctx, "10.0.0.1"); !d.Allowed {
		t.Fatal("window expiry should reset the counter")
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	_, store, c := newTestLimiter(1, time.Minute)
	_, _, _ = store.Incr(context.Background(), "a", time.Minute)
	_, _, _ = store.Incr(context.Background(), "b", time.Hour)
	c.t = c.t.Add(2 * time.Minute)
	if n := store.Sweep(); n != 1 {
		t.Fatalf("unexpected sweep count: %d", n)
	}
}

type failingLimiter struct{}

func (failingLimiter) Check(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("redis down")
}

func TestMiddleware(t *testing.T) {
	l, _, _ := newTestLimiter(1, time.Minute)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Middleware(l, nil, zap.NewNop().Sugar())(ok)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "192.0.2.5:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request: got=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got=%d want=429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("unexpected Retry-After: %q", rec.Header().Get("Retry-After"))
	}

	rec = httptest.NewRecorder()
	Middleware(failingLimiter{}, nil, zap.NewNop().Sugar())(ok).ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("limiter failure should fail open, got=%d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	trusted, err := NewIPResolver([]string{"10.0.0.0/8", " 192.0.2.10 "})
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name     string
		resolver *IPResolver
		remote   string
		xff      string
		want     string
	}{
		{"no proxies configured", nil, "192.0.2.1:1234", "203.0.113.9", "192.0.2.1"},
		{"untrusted peer", trusted, "198.51.100.4:80", "203.0.113.9", "198.51.100.4"},
		{"trusted peer", trusted, "10.1.2.3:80", "203.0.113.9", "203.0.113.9"},
		{"trusted chain", trusted, "192.0.2.10:80", "1.2.3.4, 203.0.113.9, 10.0.0.7", "203.0.113.9"},
		{"garbage hop", trusted, "10.1.2.3:80", "nonsense", "10.1.2.3"},
		{"no header", trusted, "10.1.2.3:80", "", "10.1.2.3"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = c.remote
			if c.xff != "" {
				req.Header.Set("X-Forwarded-For", c.xff)
			}
			if got := c.resolver.ClientIP(req); got != c.want {
				t.Fatalf("got %q want %q", got, c.want)
			}
		})
	}
	if _, err := NewIPResolver([]string{"not-an-ip"}); err == nil {
		t.Fatal("invalid proxy must be rejected")
	}
}

func TestMiddlewareIgnoresSpoofedForwardedFor(t *testing.T) {
	l, _, _ := newTestLimiter(5, 15*time.Minute)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Middleware(l, nil, zap.NewNop().Sugar())(ok)

	blocked := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			blocked++
		}
	}
	if blocked != 45 {
		t.Fatalf("blocked %d of 50, want 45", blocked)
	}
}
