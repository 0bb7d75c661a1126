package testutil

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/vapmail16/synonym-quest-sub000/internal/auth"
	"github.com/vapmail16/synonym-quest-sub000/internal/user/entity"
)

// PlainHasher stores passwords as is, keeping tests fast.
type PlainHasher struct{}

func (PlainHasher) Hash(pw string) (string, error) { return "plain:" + pw, nil }
func (PlainHasher) Verify(hash, pw string) bool     { return hash == "plain:"+pw }

// UserStore implements user.Repository.
type UserStore struct {
	mu     sync.Mutex
	users  map[int64]*entity.User
	nextID int64
}

func NewUserStore() *UserStore { return &UserStore{users: map[int64]*entity.User{}} }

func (s *UserStore) find(match func(*entity.User) bool) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *UserStore) Create(_ context.Context, u *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) || strings.EqualFold(existing.Username, u.Username) {
			return &pq.Error{Code: "23505"}
		}
	}
	s.nextID++
	u.ID = s.nextID
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return s.find(func(u *entity.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *UserStore) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	return s.find(func(u *entity.User) bool { return strings.EqualFold(u.Username, username) })
}

func (s *UserStore) GetByID(_ context.Context, id int64) (*entity.User, error) {
	return s.find(func(u *entity.User) bool { return u.ID == id })
}

func (s *UserStore) UpdateProfile(_ context.Context, u *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *UserStore) TouchLogin(_ context.Context, id int64) error {
	return s.touch(id, func(u *entity.User, now time.Time) { u.LastLoginAt = &now })
}

func (s *UserStore) TouchActive(_ context.Context, id int64) error {
	return s.touch(id, func(u *entity.User, now time.Time) { u.LastActiveAt = &now })
}

func (s *UserStore) touch(id int64, fn func(*entity.User, time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	fn(u, time.Now())
	return nil
}

// SetActive flips the account flag.
func (s *UserStore) SetActive(id int64, active bool) {
	_ = s.touch(id, func(u *entity.User, _ time.Time) { u.IsActive = active })
}

// SessionStore implements auth.SessionStore.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*auth.Session
}

func NewSessionStore() *SessionStore { return &SessionStore{sessions: map[string]*auth.Session{}} }

// Len counts stored sessions, active or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) Create(_ context.Context, sess *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.IsActive = true
	sess.CreatedAt, sess.UpdatedAt = time.Now(), time.Now()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *SessionStore) GetByID(_ context.Context, id string) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *sess
	return &cp, nil
}

func (s *SessionStore) Rotate(_ context.Context, id, oldRefresh string, pair auth.TokenPair, refreshExpiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || !sess.IsActive || sess.RefreshToken != oldRefresh {
		return false, nil
	}
	sess.Token, sess.RefreshToken = pair.Token, pair.RefreshToken
	sess.ExpiresAt, sess.RefreshExpiresAt = pair.ExpiresAt, refreshExpiresAt
	sess.UpdatedAt = time.Now()
	return true, nil
}

func (s *SessionStore) Deactivate(_ context.Context, userID int64, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.UserID != userID || !sess.IsActive {
		return false, nil
	}
	sess.IsActive = false
	return true, nil
}

func (s *SessionStore) DeactivateAll(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.IsActive {
			sess.IsActive = false
			n++
		}
	}
	return n, nil
}

func (s *SessionStore) ListActive(_ context.Context, userID int64) ([]auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []auth.Session{}
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.IsActive {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *SessionStore) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, sess := range s.sessions {
		if sess.IsActive && sess.RefreshExpiresAt.Before(now) {
			sess.IsActive = false
			n++
		}
	}
	return n, nil
}
