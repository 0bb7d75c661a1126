package badge

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/vapmail16/synonym-quest-sub000/internal/auth"
	"github.com/vapmail16/synonym-quest-sub000/internal/httpx"
)

// Handler exposes /api/badges. The user routes need RequireAuth in front.
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
	case errors.Is(err, ErrBadgeNotFound):
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

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (int64, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		httpx.WriteError(w, httpx.Unauthorized(auth.ErrMissingToken))
		return 0, false
	}
	return p.UserID, true
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListBadges(r.Context())
	if err != nil {
		h.fail(w, "list badges", err)
		return
	}
	httpx.OK(w, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		h.fail(w, "get badge", err)
		return
	}
	b, err := h.svc.GetBadge(r.Context(), id)
	if err != nil {
		h.fail(w, "get badge", err)
		return
	}
	httpx.OK(w, b)
}

type userBadges struct {
	Badges  []UserBadge `json:"badges"`
	Summary *Summary    `json:"summary"`
}

// User handles GET /api/badges/user.
func (h *Handler) User(w http.ResponseWriter, r *http.Request) {
	id, ok := h.principal(w, r)
	if !ok {
		return
	}
	list, err := h.svc.GetUserBadges(r.Context(), id)
	if err != nil {
		h.fail(w, "user badges", err)
		return
	}
	sum, err := h.svc.Summary(r.Context(), id)
	if err != nil {
		h.fail(w, "user badges", err)
		return
	}
	httpx.OK(w, userBadges{Badges: list, Summary: sum})
}

// UserProgress handles GET /api/badges/user/progress.
func (h *Handler) UserProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := h.principal(w, r)
	if !ok {
		return
	}
	list, err := h.svc.GetAllBadgesWithProgress(r.Context(), id)
	if err != nil {
		h.fail(w, "badge progress", err)
		return
	}
	httpx.OK(w, list)
}

// Check handles POST /api/badges/check. The event always belongs to the
// caller; a userId in the body is ignored. An unknown or missing type is
// not an error and yields an empty list.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	id, ok := h.principal(w, r)
	if !ok {
		return
	}
	var ev Event
	if err := httpx.DecodeJSON(r, &ev); err != nil {
		h.fail(w, "check badges", err)
		return
	}
	ev.UserID = id
	awarded, err := h.svc.CheckAndAwardBadges(r.Context(), ev)
	if err != nil {
		h.fail(w, "check badges", err)
		return
	}
	httpx.OK(w, awarded)
}
