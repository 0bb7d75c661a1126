package progress

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Repository is the user_progress storage. *repo.ProgressRepo implements it.
type Repository interface {
	FindOne(ctx context.Context, userID, wordID int64, gameType string) (*Progress, error)
	// Create inserts p, or loads the existing row into p and reports false
	// when the key already exists.
	Create(ctx context.Context, p *Progress) (bool, error)
	Save(ctx context.Context, p *Progress) error
	FindAllByUser(ctx context.Context, userID int64) ([]Progress, error)
	FindForSelection(ctx context.Context, userID int64, sel Selection) ([]Progress, error)
	LearnedWordIDs(ctx context.Context, userID int64) ([]int64, error)
}

var ErrGameType = errors.New("game type is required")

const defaultGameLimit = 10

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(r Repository) *Service {
	return &Service{repo: r, now: time.Now}
}

// Update is the outcome of recording one answer.
type Update struct {
	Progress *Progress `json:"progress"`
	// LearnedNow is set when this answer was the first correct one on the row.
	LearnedNow bool `json:"learnedNow"`
}

// UpdateProgress finds or creates the (user, word, gameType) row and applies
// one answer to it.
func (s *Service) UpdateProgress(ctx context.Context, userID, wordID int64, gameType string, correct bool, timeSpent int) (*Update, error) {
	if strings.TrimSpace(gameType) == "" {
		return nil, ErrGameType
	}
	p, err := s.repo.FindOne(ctx, userID, wordID, gameType)
	created := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		p = &Progress{UserID: userID, WordID: wordID, GameType: gameType}
		created = true
	case err != nil:
		return nil, err
	}

	wasLearned := p.CorrectCount >= 1
	apply(p, correct, timeSpent, s.now())

	if created {
		var inserted bool
		inserted, err = s.repo.Create(ctx, p)
		if err == nil && !inserted {
			// lost an insert race; p now holds the other writer's row
			wasLearned = p.CorrectCount >= 1
			apply(p, correct, timeSpent, s.now())
			err = s.repo.Save(ctx, p)
		}
	} else {
		err = s.repo.Save(ctx, p)
	}
	if err != nil {
		return nil, err
	}
	return &Update{Progress: p, LearnedNow: !wasLearned && p.CorrectCount >= 1}, nil
}

func apply(p *Progress, correct bool, timeSpent int, now time.Time) {
	if correct {
		p.CorrectCount++
		p.Streak++
		if p.Streak > p.BestStreak {
			p.BestStreak = p.Streak
		}
	} else {
		p.IncorrectCount++
		p.Streak = 0
	}
	if p.CorrectCount >= 1 && p.MasteryLevel < LearnedMasteryLevel {
		p.MasteryLevel = LearnedMasteryLevel
	}
	if p.MasteryLevel > MaxMasteryLevel {
		p.MasteryLevel = MaxMasteryLevel
	}
	if timeSpent > 0 {
		p.TimeSpent += timeSpent
	}
	p.LastPlayedAt = now
}

// GetUserStats aggregates every progress row of the user.
func (s *Service) GetUserStats(ctx context.Context, userID int64) (*Stats, error) {
	rows, err := s.repo.FindAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Summarize(rows), nil
}

// Summarize computes Stats from rows. Words count once however many game
// types they were played in.
func Summarize(rows []Progress) *Stats {
	st := &Stats{MasteryLevels: make(map[int]int, MaxMasteryLevel+1)}
	for lvl := 0; lvl <= MaxMasteryLevel; lvl++ {
		st.MasteryLevels[lvl] = 0
	}
	learned := make(map[int64]struct{})
	perType := make(map[string]int)
	correct := 0
	for _, p := range rows {
		if p.CorrectCount >= 1 {
			learned[p.WordID] = struct{}{}
		}
		st.TotalGamesPlayed += p.Attempts()
		correct += p.CorrectCount
		st.TotalTimeSpent += p.TimeSpent
		if p.Streak > st.CurrentStreak {
			st.CurrentStreak = p.Streak
		}
		if p.BestStreak > st.LongestStreak {
			st.LongestStreak = p.BestStreak
		}
		if p.MasteryLevel >= 0 && p.MasteryLevel <= MaxMasteryLevel {
			st.MasteryLevels[p.MasteryLevel]++
		}
		perType[p.GameType]++
	}
	if st.LongestStreak < st.CurrentStreak {
		st.LongestStreak = st.CurrentStreak
	}
	st.TotalWordsLearned = len(learned)
	if st.TotalGamesPlayed > 0 {
		st.AverageAccuracy = float64(correct) * 100 / float64(st.TotalGamesPlayed)
	}
	best := 0
	for gt, n := range perType {
		// ties resolve alphabetically so the result is stable
		if n > best || (n == best && gt < st.FavoriteGameType) {
			best, st.FavoriteGameType = n, gt
		}
	}
	return st
}

// FlavorOf classifies a game type by name.
func FlavorOf(gameType string) Flavor {
	gt := strings.ToLower(gameType)
	switch {
	case strings.Contains(gt, "new"):
		return FlavorNew
	case strings.Contains(gt, "old"), strings.Contains(gt, "review"):
		return FlavorReview
	}
	return FlavorAny
}

// GetWordsForGame returns progress rows to draw words from, least mastered
// and least recently played first.
func (s *Service) GetWordsForGame(ctx context.Context, userID int64, gameType string, limit int) ([]Progress, error) {
	if strings.TrimSpace(gameType) == "" {
		return nil, ErrGameType
	}
	if limit <= 0 || limit > 100 {
		limit = defaultGameLimit
	}
	sel := Selection{Limit: limit}
	switch FlavorOf(gameType) {
	case FlavorNew:
		maxMastery := 1
		sel.MaxMastery = &maxMastery
	case FlavorReview:
		sel.MinCorrect = 1
	default:
		sel.GameType = gameType
	}
	return s.repo.FindForSelection(ctx, userID, sel)
}

func (s *Service) GetUserProgress(ctx context.Context, userID int64) ([]Progress, error) {
	return s.repo.FindAllByUser(ctx, userID)
}

func (s *Service) LearnedWordIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.repo.LearnedWordIDs(ctx, userID)
}
