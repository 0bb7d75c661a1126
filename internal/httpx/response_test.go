package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body=%s)", err, rec.Body.String())
	}
	return env
}

func TestWriteErrorMapsStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", Validation("email is invalid"), http.StatusBadRequest, "email is invalid"},
		{"wrapped unauthorized", fmt.Errorf("ctx: %w", Unauthorized(errors.New("token expired"))), http.StatusUnauthorized, "token expired"},
		{"not found", NotFound(errors.New("word not found")), http.StatusNotFound, "word not found"},
		{"rate limited", TooMany(errors.New("too many attempts")), http.StatusTooManyRequests, "too many attempts"},
		{"internal hides detail", Internal(errors.New("pq: relation missing")), http.StatusInternalServerError, "internal server error"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tc.err)
			if rec.Code != tc.status {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, tc.status)
			}
			env := decodeEnvelope(t, rec)
			if env.Success {
				t.Fatal("error envelope must not be successful")
			}
			if env.Error != tc.msg {
				t.Fatalf("unexpected error message: got=%q want=%q", env.Error, tc.msg)
			}
		})
	}
}

func TestOKEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]int{"count": 3})
	env := decodeEnvelope(t, rec)
	if !env.Success || env.Data == nil {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct{ Name string }
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	if err := DecodeJSON(req, &v); err != nil || v.Name != "x" {
		t.Fatalf("decode: err=%v v=%+v", err, v)
	}
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := DecodeJSON(req, &v); err != nil {
		t.Fatalf("empty body should be accepted: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{nope"))
	if err := DecodeJSON(req, &v); StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("malformed body should be 400, got %v", err)
	}
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&bad=x", nil)
	if got := QueryInt(req, "limit", 10, 100); got != 100 {
		t.Fatalf("clamp: got=%d", got)
	}
	if got := QueryInt(req, "bad", 10, 100); got != 10 {
		t.Fatalf("fallback: got=%d", got)
	}
}
