package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/vapmail16/synonym-quest-sub000/internal/badge"
)

const badgeColumns = `id, badge_key, name, description, icon, category, rarity, criteria, is_active, created_at, updated_at`

type BadgeRepo struct {
	db *sqlx.DB
}

func NewBadgeRepo(db *sqlx.DB) *BadgeRepo { return &BadgeRepo{db: db} }

func (r *BadgeRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS badges (
  id BIGSERIAL PRIMARY KEY,
  badge_key TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  icon TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT '',
  rarity TEXT NOT NULL DEFAULT 'common',
  criteria JSONB NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// FindAll lists the catalog ordered by id.
func (r *BadgeRepo) FindAll(ctx context.Context, activeOnly bool) ([]badge.Badge, error) {
	q := `SELECT ` + badgeColumns + ` FROM badges`
	if activeOnly {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY id`
	out := []badge.Badge{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// FindOne returns the badge or sql.ErrNoRows.
func (r *BadgeRepo) FindOne(ctx context.Context, id int64) (*badge.Badge, error) {
	var b badge.Badge
	if err := r.db.GetContext(ctx, &b, `SELECT `+badgeColumns+` FROM badges WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &b, nil
}

// Upsert inserts b or refreshes the row with the same badge_key.
func (r *BadgeRepo) Upsert(ctx context.Context, b *badge.Badge) error {
	const q = `INSERT INTO badges (badge_key, name, description, icon, category, rarity, criteria, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (badge_key) DO UPDATE SET name=EXCLUDED.name, description=EXCLUDED.description,
			icon=EXCLUDED.icon, category=EXCLUDED.category, rarity=EXCLUDED.rarity,
			criteria=EXCLUDED.criteria, is_active=EXCLUDED.is_active, updated_at=NOW()
		RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, q, b.Key, b.Name, b.Description, b.Icon, b.Category, b.Rarity, b.Criteria, b.IsActive).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}
