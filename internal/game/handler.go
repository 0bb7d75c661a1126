package game

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/vapmail16/synonym-quest-sub000/internal/auth"
	"github.com/vapmail16/synonym-quest-sub000/internal/httpx"
	"github.com/vapmail16/synonym-quest-sub000/internal/progress"
	"github.com/vapmail16/synonym-quest-sub000/internal/word/entity"
)

// Handler exposes /api/games. Question and answer routes accept anonymous
// callers; OptionalAuth must run in front of them.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownMode), errors.Is(err, ErrEmptyRound), errors.Is(err, progress.ErrGameType):
		return httpx.BadRequest(err)
	case errors.Is(err, ErrAuthRequired):
		return httpx.Unauthorized(err)
	case errors.Is(err, ErrNoWords), errors.Is(err, ErrWordNotFound):
		return httpx.NotFound(err)
	}
	var apiErr *httpx.Error
	if errors.As(err, &apiErr) {
		return err
	}
	return httpx.Internal(err)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	mapped := mapError(err)
	if httpx.StatusOf(mapped) >= http.StatusInternalServerError {
		h.logger.Errorw(op+" failed", "err", err)
	}
	httpx.WriteError(w, mapped)
}

func userID(r *http.Request) int64 {
	if p, ok := auth.PrincipalFrom(r.Context()); ok {
		return p.UserID
	}
	return 0
}

func options(r *http.Request) (QuestionOptions, error) {
	diff := r.URL.Query().Get("difficulty")
	if diff != "" && !entity.ValidDifficulty(diff) {
		return QuestionOptions{}, httpx.Validation("difficulty must be easy, medium or hard")
	}
	return QuestionOptions{
		Difficulty: diff,
		Exclude:    httpx.QueryIDs(r, "exclude"),
		UserID:     userID(r),
		Count:      httpx.QueryInt(r, "count", defaultRoundSize, maxRoundSize),
	}, nil
}

// Question handles GET /api/games/{mode}/question.
func (h *Handler) Question(w http.ResponseWriter, r *http.Request) {
	opts, err := options(r)
	if err != nil {
		h.fail(w, "question", err)
		return
	}
	q, err := h.svc.Question(r.Context(), r.PathValue("mode"), opts)
	if err != nil {
		h.fail(w, "question", err)
		return
	}
	httpx.OK(w, q)
}

// Round handles GET /api/games/{mode}/round.
func (h *Handler) Round(w http.ResponseWriter, r *http.Request) {
	opts, err := options(r)
	if err != nil {
		h.fail(w, "round", err)
		return
	}
	round, err := h.svc.Round(r.Context(), r.PathValue("mode"), opts)
	if err != nil {
		h.fail(w, "round", err)
		return
	}
	httpx.OK(w, round)
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req Answer
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, "submit answer", err)
		return
	}
	if req.WordID <= 0 {
		httpx.WriteError(w, httpx.Validation("wordId is required"))
		return
	}
	res, err := h.svc.SubmitAnswer(r.Context(), userID(r), req)
	if err != nil {
		h.fail(w, "submit answer", err)
		return
	}
	httpx.OK(w, res)
}

func (h *Handler) SubmitRound(w http.ResponseWriter, r *http.Request) {
	var req RoundSubmission
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, "submit round", err)
		return
	}
	res, err := h.svc.SubmitRound(r.Context(), userID(r), req)
	if err != nil {
		h.fail(w, "submit round", err)
		return
	}
	httpx.OK(w, res)
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id := userID(r)
	if id == 0 {
		httpx.WriteError(w, httpx.Unauthorized(auth.ErrMissingToken))
		return 0, false
	}
	return id, true
}

func (h *Handler) UserProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	rows, err := h.svc.UserProgress(r.Context(), id)
	if err != nil {
		h.fail(w, "user progress", err)
		return
	}
	httpx.OK(w, rows)
}

func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	st, err := h.svc.UserStats(r.Context(), id)
	if err != nil {
		h.fail(w, "user stats", err)
		return
	}
	httpx.OK(w, st)
}

// WordsForGame handles GET /api/games/user/words/{gameType}.
func (h *Handler) WordsForGame(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	limit := httpx.QueryInt(r, "limit", 10, 100)
	list, err := h.svc.WordsForGame(r.Context(), id, r.PathValue("gameType"), limit)
	if err != nil {
		h.fail(w, "words for game", err)
		return
	}
	httpx.OK(w, list)
}
