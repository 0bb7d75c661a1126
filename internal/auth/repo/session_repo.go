package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vapmail16/synonym-quest-sub000/internal/auth"
)

const sessionColumns = `id, user_id, token, refresh_token, device_info, expires_at,
	refresh_expires_at, is_active, created_at, updated_at`

type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS user_sessions (
  id TEXT PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  token TEXT NOT NULL,
  refresh_token TEXT NOT NULL,
  device_info JSONB NOT NULL DEFAULT '{}'::jsonb,
  expires_at TIMESTAMPTZ NOT NULL,
  refresh_expires_at TIMESTAMPTZ NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_user_sessions_user ON user_sessions(user_id) WHERE is_active;
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *SessionRepo) Create(ctx context.Context, s *auth.Session) error {
	const q = `INSERT INTO user_sessions (id, user_id, token, refresh_token, device_info, expires_at, refresh_expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true) RETURNING created_at, updated_at`
	s.IsActive = true
	row := r.db.QueryRowxContext(ctx, q, s.ID, s.UserID, s.Token, s.RefreshToken, s.DeviceInfo, s.ExpiresAt, s.RefreshExpiresAt)
	return row.Scan(&s.CreatedAt, &s.UpdatedAt)
}

// GetByID returns the session or sql.ErrNoRows.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*auth.Session, error) {
	var s auth.Session
	if err := r.db.GetContext(ctx, &s, `SELECT `+sessionColumns+` FROM user_sessions WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &s, nil
}

// Rotate swaps the token pair of an active session. It returns false when
// the old refresh token no longer matches, which means it was already used.
func (r *SessionRepo) Rotate(ctx context.Context, id, oldRefresh string, pair auth.TokenPair, refreshExpiresAt time.Time) (bool, error) {
	const q = `UPDATE user_sessions SET token=$3, refresh_token=$4, expires_at=$5, refresh_expires_at=$6, updated_at=NOW()
		WHERE id=$1 AND refresh_token=$2 AND is_active`
	res, err := r.db.ExecContext(ctx, q, id, oldRefresh, pair.Token, pair.RefreshToken, pair.ExpiresAt, refreshExpiresAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// Deactivate ends one session owned by userID and reports whether it existed.
func (r *SessionRepo) Deactivate(ctx context.Context, userID int64, id string) (bool, error) {
	const q = `UPDATE user_sessions SET is_active=false, updated_at=NOW() WHERE id=$1 AND user_id=$2 AND is_active`
	res, err := r.db.ExecContext(ctx, q, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *SessionRepo) DeactivateAll(ctx context.Context, userID int64) (int64, error) {
	const q = `UPDATE user_sessions SET is_active=false, updated_at=NOW() WHERE user_id=$1 AND is_active`
	res, err := r.db.ExecContext(ctx, q, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SessionRepo) ListActive(ctx context.Context, userID int64) ([]auth.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM user_sessions
		WHERE user_id=$1 AND is_active AND refresh_expires_at > NOW() ORDER BY updated_at DESC`
	out := []auth.Session{}
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// DeactivateExpired closes sessions whose refresh token expired before now.
func (r *SessionRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE user_sessions SET is_active=false, updated_at=NOW() WHERE is_active AND refresh_expires_at < $1`
	res, err := r.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
