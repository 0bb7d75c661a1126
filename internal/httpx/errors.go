package httpx

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries the HTTP status a failure maps to. Services return plain
// sentinel errors; handlers wrap them with one of the constructors below.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(err error) *Error   { return New(http.StatusBadRequest, "bad_request", err) }
func Unauthorized(err error) *Error { return New(http.StatusUnauthorized, "unauthorized", err) }
func Forbidden(err error) *Error    { return New(http.StatusForbidden, "forbidden", err) }
func NotFound(err error) *Error     { return New(http.StatusNotFound, "not_found", err) }
func TooMany(err error) *Error      { return New(http.StatusTooManyRequests, "rate_limited", err) }
func Internal(err error) *Error     { return New(http.StatusInternalServerError, "internal", err) }

// Validation builds a 400 from a message.
func Validation(msg string) *Error {
	return New(http.StatusBadRequest, "validation", errors.New(msg))
}

// StatusOf returns the status carried by err, or 500.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}
