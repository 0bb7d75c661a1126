package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/vapmail16/synonym-quest-sub000/internal/user/entity"
)

const userColumns = `id, username, email, password_hash, preferences, is_active,
	last_active_at, last_login_at, created_at, updated_at`

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  email CITEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  preferences JSONB NOT NULL DEFAULT '{}'::jsonb,
  is_active BOOLEAN NOT NULL DEFAULT true,
  last_active_at TIMESTAMPTZ,
  last_login_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new user row and fills ID and timestamps.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (username, email, password_hash, preferences, is_active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`
	if u.Preferences == nil {
		u.Preferences = entity.Preferences{}
	}
	row := r.db.QueryRowxContext(ctx, q, u.Username, u.Email, u.PasswordHash, u.Preferences, u.IsActive)
	return row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

// GetByEmail returns a user matched by email (case-insensitive due to citext) or sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email=$1`, email); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByUsername fetches by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE LOWER(username)=LOWER($1)`, username); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a full user row.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile writes username, email and preferences.
func (r *UserRepo) UpdateProfile(ctx context.Context, u *entity.User) error {
	const q = `UPDATE users SET username=$2, email=$3, preferences=$4, updated_at=NOW() WHERE id=$1 RETURNING updated_at`
	return r.db.QueryRowxContext(ctx, q, u.ID, u.Username, u.Email, u.Preferences).Scan(&u.UpdatedAt)
}

// TouchLogin records a successful login.
func (r *UserRepo) TouchLogin(ctx context.Context, id int64) error {
	const q = `UPDATE users SET last_login_at=NOW(), last_active_at=NOW(), updated_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// TouchActive bumps last_active_at at most once a minute per user.
func (r *UserRepo) TouchActive(ctx context.Context, id int64) error {
	const q = `UPDATE users SET last_active_at=NOW()
		WHERE id=$1 AND (last_active_at IS NULL OR last_active_at < NOW() - INTERVAL '1 minute')`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// SetActive soft-disables or re-enables an account.
func (r *UserRepo) SetActive(ctx context.Context, id int64, active bool) error {
	const q = `UPDATE users SET is_active=$2, updated_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id, active)
	return err
}
