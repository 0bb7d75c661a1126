package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/vapmail16/synonym-quest-sub000/internal/httpx"
	"github.com/vapmail16/synonym-quest-sub000/internal/ratelimit"
	"github.com/vapmail16/synonym-quest-sub000/internal/user"
)

// Handler exposes the /api/auth endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func deviceFrom(r *http.Request) DeviceInfo {
	ua := r.UserAgent()
	kind := "desktop"
	switch lower := strings.ToLower(ua); {
	case strings.Contains(lower, "ipad"), strings.Contains(lower, "tablet"):
		kind = "tablet"
	case strings.Contains(lower, "mobi"), strings.Contains(lower, "android"), strings.Contains(lower, "iphone"):
		kind = "mobile"
	}
	return DeviceInfo{UserAgent: ua, IPAddress: ratelimit.ClientIP(r), DeviceType: kind}
}

// mapUserError turns account/session errors into HTTP errors.
func mapUserError(err error) error {
	switch {
	case errors.Is(err, user.ErrInvalidEmail), errors.Is(err, user.ErrInvalidUsername),
		errors.Is(err, user.ErrWeakPassword), errors.Is(err, user.ErrEmailTaken),
		errors.Is(err, user.ErrUsernameTaken):
		return httpx.BadRequest(err)
	case errors.Is(err, user.ErrBadCredentials), errors.Is(err, user.ErrDisabled),
		errors.Is(err, ErrInvalidToken), errors.Is(err, ErrMissingToken):
		return httpx.Unauthorized(err)
	case errors.Is(err, user.ErrUserNotFound), errors.Is(err, ErrSessionNotFound):
		return httpx.NotFound(err)
	}
	var apiErr *httpx.Error
	if errors.As(err, &apiErr) {
		return err
	}
	return httpx.Internal(err)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	mapped := mapUserError(err)
	if httpx.StatusOf(mapped) >= http.StatusInternalServerError {
		h.logger.Errorw(op+" failed", "err", err)
	} else {
		h.logger.Debugw(op+" rejected", "err", err)
	}
	httpx.WriteError(w, mapped)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req user.RegisterInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, "register", err)
		return
	}
	res, err := h.svc.Register(r.Context(), req, deviceFrom(r))
	if err != nil {
		h.fail(w, "register", err)
		return
	}
	h.logger.Infow("user registered", "user_id", res.User.ID)
	httpx.Created(w, res)
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, "login", err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		httpx.WriteError(w, httpx.Validation("email and password are required"))
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password, deviceFrom(r))
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	httpx.OK(w, res)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, "refresh", err)
		return
	}
	if req.RefreshToken == "" {
		httpx.WriteError(w, httpx.Validation("refreshToken is required"))
		return
	}
	pair, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, "refresh", err)
		return
	}
	httpx.OK(w, pair)
}

func principal(w http.ResponseWriter, r *http.Request) (*Principal, bool) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		httpx.WriteError(w, httpx.Unauthorized(ErrMissingToken))
	}
	return p, ok
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	httpx.OK(w, p.User)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req user.ProfileInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, "update profile", err)
		return
	}
	u, err := h.svc.Users().UpdateProfile(r.Context(), p.UserID, req)
	if err != nil {
		h.fail(w, "update profile", err)
		return
	}
	httpx.OK(w, u)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.svc.Logout(r.Context(), p); err != nil {
		h.fail(w, "logout", err)
		return
	}
	httpx.Message(w, "logged out")
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	n, err := h.svc.LogoutAll(r.Context(), p)
	if err != nil {
		h.fail(w, "logout all", err)
		return
	}
	httpx.OK(w, map[string]int64{"sessionsEnded": n})
}

func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	list, err := h.svc.Sessions(r.Context(), p)
	if err != nil {
		h.fail(w, "list sessions", err)
		return
	}
	httpx.OK(w, list)
}

func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if id == "" {
		httpx.WriteError(w, httpx.Validation("session id is required"))
		return
	}
	if err := h.svc.RevokeSession(r.Context(), p, id); err != nil {
		h.fail(w, "revoke session", err)
		return
	}
	httpx.Message(w, "session revoked")
}
