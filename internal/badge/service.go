package badge

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BadgeRepository is the catalog storage.
type BadgeRepository interface {
	FindAll(ctx context.Context, activeOnly bool) ([]Badge, error)
	FindOne(ctx context.Context, id int64) (*Badge, error)
}

// UserBadgeRepository stores awards. Create reports false when the user
// already holds the badge.
type UserBadgeRepository interface {
	FindAll(ctx context.Context, userID int64) ([]UserBadge, error)
	FindOne(ctx context.Context, userID, badgeID int64) (*UserBadge, error)
	Count(ctx context.Context, userID int64) (int, error)
	Create(ctx context.Context, ub *UserBadge) (bool, error)
}

// ProgressStats are the user_progress aggregates the criteria read.
// *progress/repo.ProgressRepo implements it.
type ProgressStats interface {
	CountWordsAtMastery(ctx context.Context, userID int64, minLevel int) (int, error)
	CountWordsForGameType(ctx context.Context, userID int64, gameType string) (int, error)
	CountWordsByGameType(ctx context.Context, userID int64) (map[string]int, error)
	StreakAndAccuracy(ctx context.Context, userID int64) (streak int, accuracy float64, err error)
}

var ErrBadgeNotFound = errors.New("badge not found")

// learnedLevel is the mastery a word needs to count toward word_count badges.
const learnedLevel = 1

type Service struct {
	badges   BadgeRepository
	awards   UserBadgeRepository
	progress ProgressStats
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewService(badges BadgeRepository, awards UserBadgeRepository, progress ProgressStats, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{badges: badges, awards: awards, progress: progress, logger: logger, now: time.Now}
}

func (s *Service) ListBadges(ctx context.Context) ([]Badge, error) {
	return s.badges.FindAll(ctx, true)
}

func (s *Service) GetBadge(ctx context.Context, id int64) (*Badge, error) {
	b, err := s.badges.FindOne(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBadgeNotFound
	}
	return b, err
}

// GetUserBadges returns the user's awards with their badge attached.
func (s *Service) GetUserBadges(ctx context.Context, userID int64) ([]UserBadge, error) {
	awards, err := s.awards.FindAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	all, err := s.badges.FindAll(ctx, false)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*Badge, len(all))
	for i := range all {
		byID[all[i].ID] = &all[i]
	}
	for i := range awards {
		awards[i].Badge = byID[awards[i].BadgeID]
	}
	return awards, nil
}

// CheckAndAwardBadges evaluates every active badge the user does not hold
// yet, against the event values or fresh aggregates, and returns the new
// awards. Unknown or empty event types award nothing.
func (s *Service) CheckAndAwardBadges(ctx context.Context, ev Event) ([]UserBadge, error) {
	awarded := []UserBadge{}
	if !ev.Type.Known() {
		s.logger.Debugw("badge check ignored unknown event", "type", ev.Type, "user_id", ev.UserID)
		return awarded, nil
	}
	badges, err := s.badges.FindAll(ctx, true)
	if err != nil {
		return nil, err
	}
	held, err := s.awards.FindAll(ctx, ev.UserID)
	if err != nil {
		return nil, err
	}
	owned := make(map[int64]bool, len(held))
	for _, ub := range held {
		owned[ub.BadgeID] = true
	}
	for i := range badges {
		b := &badges[i]
		if owned[b.ID] {
			continue
		}
		met, err := s.criteriaMet(ctx, ev, b.Criteria)
		if err != nil {
			// evaluation failures degrade to not met
			s.logger.Warnw("badge criteria evaluation failed", "badge", b.Key, "user_id", ev.UserID, "err", err)
			continue
		}
		if !met {
			continue
		}
		meta := Metadata{"event": string(ev.Type)}
		for k, v := range ev.Metadata {
			meta[k] = v
		}
		ub := &UserBadge{UserID: ev.UserID, BadgeID: b.ID, EarnedAt: s.now(), Progress: 100, Metadata: meta}
		inserted, err := s.awards.Create(ctx, ub)
		if err != nil {
			return awarded, err
		}
		if !inserted {
			continue
		}
		ub.Badge = b
		awarded = append(awarded, *ub)
		s.logger.Infow("badge awarded", "badge", b.Key, "user_id", ev.UserID)
	}
	return awarded, nil
}

func (s *Service) criteriaMet(ctx context.Context, ev Event, c Criteria) (bool, error) {
	switch c.Type {
	case CriteriaWordCount:
		n, err := s.progress.CountWordsAtMastery(ctx, ev.UserID, learnedLevel)
		return err == nil && n >= c.Target, err
	case CriteriaStreak:
		return ev.Streak >= c.Target, nil
	case CriteriaGameMode:
		if c.GameType == "" {
			return false, nil
		}
		n, err := s.progress.CountWordsForGameType(ctx, ev.UserID, c.GameType)
		return err == nil && n >= c.Target, err
	case CriteriaAccuracy:
		return ev.Accuracy >= c.MinAccuracy, nil
	case CriteriaLetterCompletion:
		// letter completion is not tracked yet
		return false, nil
	}
	return false, nil
}

// GetBadgeProgress returns the user's 0-100 progress toward badgeID.
func (s *Service) GetBadgeProgress(ctx context.Context, userID, badgeID int64) (int, error) {
	b, err := s.GetBadge(ctx, badgeID)
	if err != nil {
		return 0, err
	}
	_, err = s.awards.FindOne(ctx, userID, b.ID)
	switch {
	case err == nil:
		return 100, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, err
	}
	snap, err := s.singleSnapshot(ctx, userID, b.Criteria)
	if err != nil {
		return 0, err
	}
	return snap.percent(b.Criteria), nil
}

// snapshot holds the aggregates progress percentages are computed from.
type snapshot struct {
	learned  int
	perGame  map[string]int
	streak   int
	accuracy float64
}

func (s *Service) singleSnapshot(ctx context.Context, userID int64, c Criteria) (*snapshot, error) {
	snap := &snapshot{perGame: map[string]int{}}
	var err error
	switch c.Type {
	case CriteriaWordCount:
		snap.learned, err = s.progress.CountWordsAtMastery(ctx, userID, learnedLevel)
	case CriteriaGameMode:
		if c.GameType != "" {
			snap.perGame[c.GameType], err = s.progress.CountWordsForGameType(ctx, userID, c.GameType)
		}
	case CriteriaStreak, CriteriaAccuracy:
		snap.streak, snap.accuracy, err = s.progress.StreakAndAccuracy(ctx, userID)
	}
	return snap, err
}

func (s *Service) batchSnapshot(ctx context.Context, userID int64) (*snapshot, error) {
	snap := &snapshot{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.progress.CountWordsAtMastery(gctx, userID, learnedLevel)
		snap.learned = n
		return err
	})
	g.Go(func() error {
		m, err := s.progress.CountWordsByGameType(gctx, userID)
		snap.perGame = m
		return err
	})
	g.Go(func() error {
		st, acc, err := s.progress.StreakAndAccuracy(gctx, userID)
		snap.streak, snap.accuracy = st, acc
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if snap.perGame == nil {
		snap.perGame = map[string]int{}
	}
	return snap, nil
}

func (snap *snapshot) percent(c Criteria) int {
	switch c.Type {
	case CriteriaWordCount:
		return ratio(float64(snap.learned), float64(c.Target))
	case CriteriaGameMode:
		return ratio(float64(snap.perGame[c.GameType]), float64(c.Target))
	case CriteriaStreak:
		return ratio(float64(snap.streak), float64(c.Target))
	case CriteriaAccuracy:
		return ratio(snap.accuracy, c.MinAccuracy)
	}
	return 0
}

// ratio is round(current/target*100) capped at 100.
func ratio(current, target float64) int {
	if target <= 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	p := math.Round(current / target * 100)
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return int(p)
}

// GetAllBadgesWithProgress returns the active catalog with the user's
// progress, reading the aggregates once.
func (s *Service) GetAllBadgesWithProgress(ctx context.Context, userID int64) ([]WithProgress, error) {
	badges, err := s.badges.FindAll(ctx, true)
	if err != nil {
		return nil, err
	}
	held, err := s.awards.FindAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	owned := make(map[int64]UserBadge, len(held))
	for _, ub := range held {
		owned[ub.BadgeID] = ub
	}
	snap, err := s.batchSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]WithProgress, 0, len(badges))
	for _, b := range badges {
		wp := WithProgress{Badge: b}
		if ub, ok := owned[b.ID]; ok {
			earnedAt := ub.EarnedAt
			wp.Earned, wp.EarnedAt, wp.Progress = true, &earnedAt, 100
		} else {
			wp.Progress = snap.percent(b.Criteria)
		}
		out = append(out, wp)
	}
	return out, nil
}

// AwardBadge grants badgeID to the user. An existing award is returned as is.
func (s *Service) AwardBadge(ctx context.Context, userID, badgeID int64, meta Metadata) (*UserBadge, error) {
	b, err := s.GetBadge(ctx, badgeID)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = Metadata{}
	}
	ub := &UserBadge{UserID: userID, BadgeID: b.ID, EarnedAt: s.now(), Progress: 100, Metadata: meta}
	inserted, err := s.awards.Create(ctx, ub)
	if err != nil {
		return nil, err
	}
	if !inserted {
		if ub, err = s.awards.FindOne(ctx, userID, b.ID); err != nil {
			return nil, err
		}
	}
	ub.Badge = b
	return ub, nil
}

// Summary is the count of earned badges against the active catalog.
type Summary struct {
	Earned int `json:"earned"`
	Total  int `json:"total"`
}

func (s *Service) Summary(ctx context.Context, userID int64) (*Summary, error) {
	n, err := s.awards.Count(ctx, userID)
	if err != nil {
		return nil, err
	}
	all, err := s.badges.FindAll(ctx, true)
	if err != nil {
		return nil, err
	}
	return &Summary{Earned: n, Total: len(all)}, nil
}
