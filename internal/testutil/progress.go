// Package testutil holds in-memory implementations of the repository
// interfaces for use in tests.
package testutil

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/vapmail16/synonym-quest-sub000/internal/progress"
)

type progressKey struct {
	user, word int64
	game       string
}

// ProgressStore implements progress.Repository and badge.ProgressStats.
type ProgressStore struct {
	mu     sync.Mutex
	rows   map[progressKey]*progress.Progress
	nextID int64
	Err    error
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{rows: map[progressKey]*progress.Progress{}}
}

// Put stores a copy of p as is.
func (s *ProgressStore) Put(p progress.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	if p.ID == 0 {
		p.ID = s.nextID
	}
	s.rows[progressKey{p.UserID, p.WordID, p.GameType}] = &p
}

// Rows returns a copy of every row of userID.
func (s *ProgressStore) Rows(userID int64) []progress.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userRows(userID)
}

func (s *ProgressStore) userRows(userID int64) []progress.Progress {
	out := []progress.Progress{}
	for k, p := range s.rows {
		if k.user == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *ProgressStore) FindOne(_ context.Context, userID, wordID int64, gameType string) (*progress.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.rows[progressKey{userID, wordID, gameType}]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (s *ProgressStore) Create(_ context.Context, p *progress.Progress) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	k := progressKey{p.UserID, p.WordID, p.GameType}
	if existing, ok := s.rows[k]; ok {
		*p = *existing
		return false, nil
	}
	s.nextID++
	p.ID = s.nextID
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	cp := *p
	s.rows[k] = &cp
	return true, nil
}

func (s *ProgressStore) Save(_ context.Context, p *progress.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	k := progressKey{p.UserID, p.WordID, p.GameType}
	if _, ok := s.rows[k]; !ok {
		return sql.ErrNoRows
	}
	p.UpdatedAt = time.Now()
	cp := *p
	s.rows[k] = &cp
	return nil
}

func (s *ProgressStore) FindAllByUser(_ context.Context, userID int64) ([]progress.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.userRows(userID), nil
}

func (s *ProgressStore) FindForSelection(_ context.Context, userID int64, sel progress.Selection) ([]progress.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	less := func(a, b progress.Progress) bool {
		if a.MasteryLevel != b.MasteryLevel {
			return a.MasteryLevel < b.MasteryLevel
		}
		return a.LastPlayedAt.Before(b.LastPlayedAt)
	}
	best := map[int64]progress.Progress{}
	for _, p := range s.userRows(userID) {
		if sel.GameType != "" && p.GameType != sel.GameType {
			continue
		}
		if sel.MaxMastery != nil && p.MasteryLevel > *sel.MaxMastery {
			continue
		}
		if p.CorrectCount < sel.MinCorrect {
			continue
		}
		if cur, ok := best[p.WordID]; !ok || less(p, cur) {
			best[p.WordID] = p
		}
	}
	out := make([]progress.Progress, 0, len(best))
	for _, p := range best {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if less(out[i], out[j]) {
			return true
		}
		if less(out[j], out[i]) {
			return false
		}
		return out[i].WordID < out[j].WordID
	})
	if sel.Limit > 0 && len(out) > sel.Limit {
		out = out[:sel.Limit]
	}
	return out, nil
}

func (s *ProgressStore) LearnedWordIDs(_ context.Context, userID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	seen := map[int64]bool{}
	ids := []int64{}
	for _, p := range s.userRows(userID) {
		if p.CorrectCount >= 1 && !seen[p.WordID] {
			seen[p.WordID] = true
			ids = append(ids, p.WordID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *ProgressStore) CountWordsAtMastery(_ context.Context, userID int64, minLevel int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	words := map[int64]bool{}
	for _, p := range s.userRows(userID) {
		if p.MasteryLevel >= minLevel {
			words[p.WordID] = true
		}
	}
	return len(words), nil
}

func (s *ProgressStore) CountWordsForGameType(ctx context.Context, userID int64, gameType string) (int, error) {
	m, err := s.CountWordsByGameType(ctx, userID)
	return m[gameType], err
}

func (s *ProgressStore) CountWordsByGameType(_ context.Context, userID int64) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	sets := map[string]map[int64]bool{}
	for _, p := range s.userRows(userID) {
		if sets[p.GameType] == nil {
			sets[p.GameType] = map[int64]bool{}
		}
		sets[p.GameType][p.WordID] = true
	}
	out := make(map[string]int, len(sets))
	for gt, words := range sets {
		out[gt] = len(words)
	}
	return out, nil
}

func (s *ProgressStore) StreakAndAccuracy(_ context.Context, userID int64) (int, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, 0, s.Err
	}
	streak, correct, total := 0, 0, 0
	for _, p := range s.userRows(userID) {
		if p.Streak > streak {
			streak = p.Streak
		}
		correct += p.CorrectCount
		total += p.Attempts()
	}
	if total == 0 {
		return streak, 0, nil
	}
	return streak, float64(correct) * 100 / float64(total), nil
}
