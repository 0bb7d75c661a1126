package testutil

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/vapmail16/synonym-quest-sub000/internal/badge"
)

// BadgeCatalog implements badge.BadgeRepository and badge.Seeder.
type BadgeCatalog struct {
	mu     sync.Mutex
	badges []badge.Badge
	Err    error
}

func NewBadgeCatalog(badges ...badge.Badge) *BadgeCatalog {
	c := &BadgeCatalog{}
	for i := range badges {
		b := badges[i]
		_ = c.Upsert(context.Background(), &b)
	}
	return c
}

func (c *BadgeCatalog) FindAll(_ context.Context, activeOnly bool) ([]badge.Badge, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	out := []badge.Badge{}
	for _, b := range c.badges {
		if activeOnly && !b.IsActive {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (c *BadgeCatalog) FindOne(_ context.Context, id int64) (*badge.Badge, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.badges {
		if b.ID == id {
			cp := b
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (c *BadgeCatalog) Upsert(_ context.Context, b *badge.Badge) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.badges {
		if c.badges[i].Key == b.Key {
			b.ID = c.badges[i].ID
			c.badges[i] = *b
			return nil
		}
	}
	if b.ID == 0 {
		b.ID = int64(len(c.badges) + 1)
	}
	c.badges = append(c.badges, *b)
	return nil
}

type awardKey struct{ user, badge int64 }

// AwardStore implements badge.UserBadgeRepository.
type AwardStore struct {
	mu     sync.Mutex
	awards map[awardKey]badge.UserBadge
	nextID int64
}

func NewAwardStore() *AwardStore {
	return &AwardStore{awards: map[awardKey]badge.UserBadge{}}
}

func (s *AwardStore) FindAll(_ context.Context, userID int64) ([]badge.UserBadge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []badge.UserBadge{}
	for k, ub := range s.awards {
		if k.user == userID {
			out = append(out, ub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *AwardStore) FindOne(_ context.Context, userID, badgeID int64) (*badge.UserBadge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ub, ok := s.awards[awardKey{userID, badgeID}]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &ub, nil
}

func (s *AwardStore) Count(_ context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.awards {
		if k.user == userID {
			n++
		}
	}
	return n, nil
}

func (s *AwardStore) Create(_ context.Context, ub *badge.UserBadge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := awardKey{ub.UserID, ub.BadgeID}
	if _, ok := s.awards[k]; ok {
		return false, nil
	}
	s.nextID++
	ub.ID = s.nextID
	stored := *ub
	stored.Badge = nil
	s.awards[k] = stored
	return true, nil
}
