package quiz

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/vapmail16/synonym-quest-sub000/internal/httpx"
)

// Handler exposes /api/quiz.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var mapped error
	switch {
	case errors.Is(err, ErrDifficulty), errors.Is(err, ErrQuestionIndex), errors.Is(err, ErrAlreadyAnswered):
		mapped = httpx.BadRequest(err)
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrNoWords):
		mapped = httpx.NotFound(err)
	default:
		var apiErr *httpx.Error
		if errors.As(err, &apiErr) {
			mapped = err
		} else {
			h.logger.Errorw(op+" failed", "err", err)
			mapped = httpx.Internal(err)
		}
	}
	httpx.WriteError(w, mapped)
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartOptions
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, "start quiz", err)
		return
	}
	v, err := h.svc.Start(r.Context(), req)
	if err != nil {
		h.fail(w, "start quiz", err)
		return
	}
	httpx.Created(w, v)
}

type answerRequest struct {
	QuestionIndex *int   `json:"questionIndex"`
	Answer        string `json:"answer"`
}

// Answer handles POST /api/quiz/{id}/answer.
func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, "quiz answer", err)
		return
	}
	if req.QuestionIndex == nil {
		httpx.WriteError(w, httpx.Validation("questionIndex is required"))
		return
	}
	res, err := h.svc.Answer(r.Context(), r.PathValue("id"), *req.QuestionIndex, req.Answer)
	if err != nil {
		h.fail(w, "quiz answer", err)
		return
	}
	httpx.OK(w, res)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "get quiz", err)
		return
	}
	httpx.OK(w, v)
}

func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Result(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "quiz result", err)
		return
	}
	httpx.OK(w, res)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, "delete quiz", err)
		return
	}
	httpx.Message(w, "quiz session deleted")
}
