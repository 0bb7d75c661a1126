package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/vapmail16/synonym-quest-sub000/internal/progress"
)

const progressColumns = `id, user_id, word_id, game_type, correct_count, incorrect_count,
	mastery_level, streak, best_streak, time_spent, last_played_at, created_at, updated_at`

// ProgressRepo provides data access for user_progress.
type ProgressRepo struct {
	db *sqlx.DB
}

func NewProgressRepo(db *sqlx.DB) *ProgressRepo { return &ProgressRepo{db: db} }

func (r *ProgressRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS user_progress (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  word_id BIGINT NOT NULL REFERENCES words(id) ON DELETE CASCADE,
  game_type TEXT NOT NULL,
  correct_count INT NOT NULL DEFAULT 0,
  incorrect_count INT NOT NULL DEFAULT 0,
  mastery_level INT NOT NULL DEFAULT 0 CHECK (mastery_level BETWEEN 0 AND 5),
  streak INT NOT NULL DEFAULT 0,
  best_streak INT NOT NULL DEFAULT 0,
  time_spent INT NOT NULL DEFAULT 0,
  last_played_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  UNIQUE (user_id, word_id, game_type)
);
CREATE INDEX IF NOT EXISTS idx_user_progress_user ON user_progress(user_id);
ALTER TABLE user_progress ADD COLUMN IF NOT EXISTS best_streak INT NOT NULL DEFAULT 0;
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// FindOne returns the row for the composite key or sql.ErrNoRows.
func (r *ProgressRepo) FindOne(ctx context.Context, userID, wordID int64, gameType string) (*progress.Progress, error) {
	var p progress.Progress
	const q = `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id=$1 AND word_id=$2 AND game_type=$3`
	if err := r.db.GetContext(ctx, &p, q, userID, wordID, gameType); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts p. When the key already exists the stored row is loaded
// into p and inserted is false.
func (r *ProgressRepo) Create(ctx context.Context, p *progress.Progress) (inserted bool, err error) {
	const q = `INSERT INTO user_progress (user_id, word_id, game_type, correct_count, incorrect_count,
			mastery_level, streak, best_streak, time_spent, last_played_at)
		VALUES (:user_id, :word_id, :game_type, :correct_count, :incorrect_count,
			:mastery_level, :streak, :best_streak, :time_spent, :last_played_at)
		ON CONFLICT (user_id, word_id, game_type) DO NOTHING
		RETURNING id, created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, q, p)
	if err != nil {
		return false, err
	}
	if rows.Next() {
		err = rows.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		rows.Close()
		return err == nil, err
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return false, err
	}
	existing, err := r.FindOne(ctx, p.UserID, p.WordID, p.GameType)
	if err != nil {
		return false, err
	}
	*p = *existing
	return false, nil
}

// Save writes every mutable column of p.
func (r *ProgressRepo) Save(ctx context.Context, p *progress.Progress) error {
	const q = `UPDATE user_progress SET correct_count=$2, incorrect_count=$3, mastery_level=$4,
		streak=$5, best_streak=$6, time_spent=$7, last_played_at=$8, updated_at=NOW()
		WHERE id=$1 RETURNING updated_at`
	return r.db.QueryRowxContext(ctx, q, p.ID, p.CorrectCount, p.IncorrectCount, p.MasteryLevel,
		p.Streak, p.BestStreak, p.TimeSpent, p.LastPlayedAt).Scan(&p.UpdatedAt)
}

func (r *ProgressRepo) FindAllByUser(ctx context.Context, userID int64) ([]progress.Progress, error) {
	out := []progress.Progress{}
	const q = `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id=$1 ORDER BY last_played_at DESC`
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// FindForSelection keeps one row per word (the least mastered, least
// recently played) and orders by mastery then last play.
func (r *ProgressRepo) FindForSelection(ctx context.Context, userID int64, sel progress.Selection) ([]progress.Progress, error) {
	conds := []string{"user_id = $1"}
	args := []any{userID}
	if sel.GameType != "" {
		args = append(args, sel.GameType)
		conds = append(conds, fmt.Sprintf("game_type = $%d", len(args)))
	}
	if sel.MaxMastery != nil {
		args = append(args, *sel.MaxMastery)
		conds = append(conds, fmt.Sprintf("mastery_level <= $%d", len(args)))
	}
	if sel.MinCorrect > 0 {
		args = append(args, sel.MinCorrect)
		conds = append(conds, fmt.Sprintf("correct_count >= $%d", len(args)))
	}
	args = append(args, sel.Limit)
	q := fmt.Sprintf(`SELECT %s FROM (
			SELECT DISTINCT ON (word_id) %s FROM user_progress WHERE %s
			ORDER BY word_id, mastery_level ASC, last_played_at ASC
		) p ORDER BY mastery_level ASC, last_played_at ASC LIMIT $%d`,
		progressColumns, progressColumns, strings.Join(conds, " AND "), len(args))
	out := []progress.Progress{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// LearnedWordIDs returns distinct words with at least one correct answer.
func (r *ProgressRepo) LearnedWordIDs(ctx context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	const q = `SELECT DISTINCT word_id FROM user_progress WHERE user_id=$1 AND correct_count >= 1 ORDER BY word_id`
	if err := r.db.SelectContext(ctx, &ids, q, userID); err != nil {
		return nil, err
	}
	return ids, nil
}

// CountWordsAtMastery counts distinct words with mastery_level >= minLevel.
func (r *ProgressRepo) CountWordsAtMastery(ctx context.Context, userID int64, minLevel int) (int, error) {
	var n int
	const q = `SELECT COUNT(DISTINCT word_id) FROM user_progress WHERE user_id=$1 AND mastery_level >= $2`
	err := r.db.GetContext(ctx, &n, q, userID, minLevel)
	return n, err
}

// CountWordsForGameType counts distinct words with any row for gameType.
func (r *ProgressRepo) CountWordsForGameType(ctx context.Context, userID int64, gameType string) (int, error) {
	var n int
	const q = `SELECT COUNT(DISTINCT word_id) FROM user_progress WHERE user_id=$1 AND game_type=$2`
	err := r.db.GetContext(ctx, &n, q, userID, gameType)
	return n, err
}

// CountWordsByGameType is the grouped variant of CountWordsForGameType.
func (r *ProgressRepo) CountWordsByGameType(ctx context.Context, userID int64) (map[string]int, error) {
	var rows []struct {
		GameType string `db:"game_type"`
		Words    int    `db:"words"`
	}
	const q = `SELECT game_type, COUNT(DISTINCT word_id) AS words FROM user_progress WHERE user_id=$1 GROUP BY game_type`
	if err := r.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.GameType] = row.Words
	}
	return out, nil
}

// StreakAndAccuracy returns the best current streak across rows and the
// overall accuracy percentage.
func (r *ProgressRepo) StreakAndAccuracy(ctx context.Context, userID int64) (int, float64, error) {
	var row struct {
		Streak    int `db:"streak"`
		Correct   int `db:"correct"`
		Incorrect int `db:"incorrect"`
	}
	const q = `SELECT COALESCE(MAX(streak), 0) AS streak, COALESCE(SUM(correct_count), 0) AS correct,
		COALESCE(SUM(incorrect_count), 0) AS incorrect FROM user_progress WHERE user_id=$1`
	if err := r.db.GetContext(ctx, &row, q, userID); err != nil {
		return 0, 0, err
	}
	total := row.Correct + row.Incorrect
	if total == 0 {
		return row.Streak, 0, nil
	}
	return row.Streak, float64(row.Correct) * 100 / float64(total), nil
}
