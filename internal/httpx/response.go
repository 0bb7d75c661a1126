package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Envelope is the body shape of every /api response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func OK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func Created(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// Message writes a success envelope with only a message.
func Message(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Message: msg})
}

// WriteError serializes err into the envelope. Errors that are not *Error
// become a generic 500 so internals do not leak.
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		WriteJSON(w, http.StatusInternalServerError, Envelope{Success: false, Error: "internal server error"})
		return
	}
	status := apiErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	msg := apiErr.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	WriteJSON(w, status, Envelope{Success: false, Error: msg})
}

// DecodeJSON decodes a request body into v. An empty body is not an error
// so optional payloads can be omitted.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return Validation("invalid JSON payload")
	}
	return nil
}

// QueryInt reads a positive integer query parameter, clamped to max.
func QueryInt(r *http.Request, name string, def, max int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

// PathInt64 parses a path wildcard as an int64 ID.
func PathInt64(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, Validation("invalid " + name)
	}
	return id, nil
}

// QueryIDs reads a comma-separated list of positive IDs, skipping junk.
func QueryIDs(r *http.Request, name string) []int64 {
	var ids []int64
	for _, part := range strings.Split(r.URL.Query().Get(name), ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
