package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/vapmail16/synonym-quest-sub000/internal/badge"
)

const userBadgeColumns = `id, user_id, badge_id, earned_at, progress, metadata`

type UserBadgeRepo struct {
	db *sqlx.DB
}

func NewUserBadgeRepo(db *sqlx.DB) *UserBadgeRepo { return &UserBadgeRepo{db: db} }

func (r *UserBadgeRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS user_badges (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  badge_id BIGINT NOT NULL REFERENCES badges(id) ON DELETE CASCADE,
  earned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  progress INT NOT NULL DEFAULT 100 CHECK (progress BETWEEN 0 AND 100),
  metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
  UNIQUE (user_id, badge_id)
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *UserBadgeRepo) FindAll(ctx context.Context, userID int64) ([]badge.UserBadge, error) {
	out := []badge.UserBadge{}
	const q = `SELECT ` + userBadgeColumns + ` FROM user_badges WHERE user_id=$1 ORDER BY earned_at DESC`
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// FindOne returns the award or sql.ErrNoRows.
func (r *UserBadgeRepo) FindOne(ctx context.Context, userID, badgeID int64) (*badge.UserBadge, error) {
	var ub badge.UserBadge
	const q = `SELECT ` + userBadgeColumns + ` FROM user_badges WHERE user_id=$1 AND badge_id=$2`
	if err := r.db.GetContext(ctx, &ub, q, userID, badgeID); err != nil {
		return nil, err
	}
	return &ub, nil
}

func (r *UserBadgeRepo) Count(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM user_badges WHERE user_id=$1`, userID)
	return n, err
}

// Create inserts ub unless the user already holds the badge. It reports
// whether a row was written.
func (r *UserBadgeRepo) Create(ctx context.Context, ub *badge.UserBadge) (bool, error) {
	const q = `INSERT INTO user_badges (user_id, badge_id, earned_at, progress, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, badge_id) DO NOTHING
		RETURNING id`
	rows, err := r.db.QueryContext(ctx, q, ub.UserID, ub.BadgeID, ub.EarnedAt, ub.Progress, ub.Metadata)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return false, rows.Err()
	}
	return true, rows.Scan(&ub.ID)
}
