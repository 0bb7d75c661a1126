// Package schema creates the tables every repository needs.
package schema

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	authrepo "github.com/vapmail16/synonym-quest-sub000/internal/auth/repo"
	badgerepo "github.com/vapmail16/synonym-quest-sub000/internal/badge/repo"
	progressrepo "github.com/vapmail16/synonym-quest-sub000/internal/progress/repo"
	userrepo "github.com/vapmail16/synonym-quest-sub000/internal/user/repo"
	wordrepo "github.com/vapmail16/synonym-quest-sub000/internal/word/repo"
)

type ensurer interface {
	EnsureTable(ctx context.Context) error
}

type step struct {
	table string
	repo  ensurer
}

// Ensure creates missing tables in foreign key order.
func Ensure(ctx context.Context, db *sqlx.DB) error {
	steps := []step{
		{"users", userrepo.NewUserRepo(db)},
		{"words", wordrepo.NewWordRepo(db)},
		{"user_sessions", authrepo.NewSessionRepo(db)},
		{"user_progress", progressrepo.NewProgressRepo(db)},
		{"badges", badgerepo.NewBadgeRepo(db)},
		{"user_badges", badgerepo.NewUserBadgeRepo(db)},
	}
	for _, s := range steps {
		if err := s.repo.EnsureTable(ctx); err != nil {
			return fmt.Errorf("ensure %s: %w", s.table, err)
		}
	}
	return nil
}
