package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vapmail16/synonym-quest-sub000/internal/user"
	userentity "github.com/vapmail16/synonym-quest-sub000/internal/user/entity"
	"github.com/vapmail16/synonym-quest-sub000/pkg/utilities"
)

// SessionStore is implemented by *repo.SessionRepo.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	Rotate(ctx context.Context, id, oldRefresh string, pair TokenPair, refreshExpiresAt time.Time) (bool, error)
	Deactivate(ctx context.Context, userID int64, id string) (bool, error)
	DeactivateAll(ctx context.Context, userID int64) (int64, error)
	ListActive(ctx context.Context, userID int64) ([]Session, error)
}

var ErrSessionNotFound = errors.New("session not found")

// Service ties accounts to JWT-backed sessions.
type Service struct {
	users    *user.UserService
	sessions SessionStore
	signer   *Signer
	logger   *zap.SugaredLogger
}

func NewService(users *user.UserService, sessions SessionStore, signer *Signer, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{users: users, sessions: sessions, signer: signer, logger: logger}
}

// Register creates the account and its first session.
func (s *Service) Register(ctx context.Context, in user.RegisterInput, device DeviceInfo) (*AuthResult, error) {
	u, err := s.users.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.openSession(ctx, u, device)
}

// Login authenticates and opens a session. No session row is written
// when the credentials are rejected.
func (s *Service) Login(ctx context.Context, email, password string, device DeviceInfo) (*AuthResult, error) {
	u, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.openSession(ctx, u, device)
}

func (s *Service) openSession(ctx context.Context, u *userentity.User, device DeviceInfo) (*AuthResult, error) {
	id := utilities.NewSnowflakeID()
	tok, err := s.signer.issue(u.ID, id)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	sess := &Session{
		ID:               id,
		UserID:           u.ID,
		Token:            tok.Token,
		RefreshToken:     tok.RefreshToken,
		DeviceInfo:       device,
		ExpiresAt:        tok.ExpiresAt,
		RefreshExpiresAt: tok.RefreshExpiresAt,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Debugw("session opened", "user_id", u.ID, "session_id", id)
	return &AuthResult{User: u, TokenPair: tok.TokenPair}, nil
}

// Refresh rotates the token pair of the session the refresh token belongs to.
// A refresh token is single-use: replaying an old one fails.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrMissingToken
	}
	claims, err := s.signer.parse(refreshToken, kindRefresh)
	if err != nil {
		return nil, err
	}
	sess, err := s.activeSession(ctx, claims)
	if err != nil {
		return nil, err
	}
	if sess.RefreshToken != refreshToken {
		return nil, ErrInvalidToken
	}
	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil || !u.IsActive {
		return nil, ErrInvalidToken
	}
	tok, err := s.signer.issue(sess.UserID, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	ok, err := s.sessions.Rotate(ctx, sess.ID, refreshToken, tok.TokenPair, tok.RefreshExpiresAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidToken
	}
	return &tok.TokenPair, nil
}

// Authenticate resolves a bearer access token to its principal. The token
// must match the session's current token and the session must be active.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	if accessToken == "" {
		return nil, ErrMissingToken
	}
	claims, err := s.signer.parse(accessToken, kindAccess)
	if err != nil {
		return nil, err
	}
	sess, err := s.activeSession(ctx, claims)
	if err != nil {
		return nil, err
	}
	if sess.Token != accessToken || !sess.ExpiresAt.After(s.signer.now()) {
		return nil, ErrInvalidToken
	}
	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, user.ErrDisabled
	}
	s.users.Touch(ctx, u.ID)
	return &Principal{UserID: u.ID, SessionID: sess.ID, User: u}, nil
}

func (s *Service) activeSession(ctx context.Context, claims *Claims) (*Session, error) {
	sess, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !sess.IsActive || sess.UserID != claims.UserID || !sess.RefreshExpiresAt.After(s.signer.now()) {
		return nil, ErrInvalidToken
	}
	return sess, nil
}

// Logout ends the caller's current session.
func (s *Service) Logout(ctx context.Context, p *Principal) error {
	_, err := s.sessions.Deactivate(ctx, p.UserID, p.SessionID)
	return err
}

// LogoutAll ends every session of the caller, including the current one.
func (s *Service) LogoutAll(ctx context.Context, p *Principal) (int64, error) {
	return s.sessions.DeactivateAll(ctx, p.UserID)
}

// SessionView marks which listed session belongs to the request.
type SessionView struct {
	Session
	Current bool `json:"current"`
}

func (s *Service) Sessions(ctx context.Context, p *Principal) ([]SessionView, error) {
	list, err := s.sessions.ListActive(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]SessionView, 0, len(list))
	for _, sess := range list {
		out = append(out, SessionView{Session: sess, Current: sess.ID == p.SessionID})
	}
	return out, nil
}

func (s *Service) RevokeSession(ctx context.Context, p *Principal, sessionID string) error {
	ok, err := s.sessions.Deactivate(ctx, p.UserID, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

// Users exposes the account service for profile handlers.
func (s *Service) Users() *user.UserService { return s.users }
