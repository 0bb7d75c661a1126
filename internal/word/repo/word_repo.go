package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vapmail16/synonym-quest-sub000/internal/word/entity"
)

const wordColumns = `id, word, synonyms, difficulty, meaning, category, tags,
	correct_count, incorrect_count, created_at, updated_at`

// WordRepo provides data access for the words table using sqlx.
type WordRepo struct {
	db *sqlx.DB
}

func NewWordRepo(db *sqlx.DB) *WordRepo { return &WordRepo{db: db} }

// EnsureTable creates the words table if not exists (idempotent).
func (r *WordRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS words (
  id BIGSERIAL PRIMARY KEY,
  word TEXT NOT NULL UNIQUE,
  synonyms JSONB NOT NULL DEFAULT '[]'::jsonb,
  difficulty TEXT NOT NULL DEFAULT 'medium',
  meaning TEXT,
  category TEXT,
  tags TEXT[] NOT NULL DEFAULT '{}',
  correct_count INT NOT NULL DEFAULT 0,
  incorrect_count INT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_words_difficulty ON words(difficulty);
CREATE INDEX IF NOT EXISTS idx_words_category ON words(category);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// List returns a page of words and the total count for the filter.
func (r *WordRepo) List(ctx context.Context, f entity.Filter) ([]entity.Word, int, error) {
	where, args := filterClause(f)
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM words`+where, args...); err != nil {
		return nil, 0, err
	}
	order := "word ASC"
	switch {
	case f.Seed != "":
		args = append(args, f.Seed)
		order = fmt.Sprintf("md5(id::text || $%d), id", len(args))
	case f.Shuffle:
		order = "RANDOM()"
	}
	q := fmt.Sprintf(`SELECT %s FROM words%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		wordColumns, where, order, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)
	words := []entity.Word{}
	if err := r.db.SelectContext(ctx, &words, q, args...); err != nil {
		return nil, 0, err
	}
	return words, total, nil
}

func filterClause(f entity.Filter) (string, []any) {
	var conds []string
	var args []any
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf("(word ILIKE $%d OR meaning ILIKE $%d)", len(args), len(args)))
	}
	if f.Difficulty != "" {
		args = append(args, f.Difficulty)
		conds = append(conds, fmt.Sprintf("difficulty = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// GetByID returns a word or sql.ErrNoRows.
func (r *WordRepo) GetByID(ctx context.Context, id int64) (*entity.Word, error) {
	var w entity.Word
	if err := r.db.GetContext(ctx, &w, `SELECT `+wordColumns+` FROM words WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &w, nil
}

// GetByText looks a word up case-insensitively.
func (r *WordRepo) GetByText(ctx context.Context, text string) (*entity.Word, error) {
	var w entity.Word
	if err := r.db.GetContext(ctx, &w, `SELECT `+wordColumns+` FROM words WHERE LOWER(word)=LOWER($1)`, text); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WordRepo) GetByIDs(ctx context.Context, ids []int64) ([]entity.Word, error) {
	words := []entity.Word{}
	if len(ids) == 0 {
		return words, nil
	}
	q := `SELECT ` + wordColumns + ` FROM words WHERE id = ANY($1) ORDER BY word ASC`
	if err := r.db.SelectContext(ctx, &words, q, pq.Array(ids)); err != nil {
		return nil, err
	}
	return words, nil
}

func (r *WordRepo) Create(ctx context.Context, w *entity.Word) error {
	const q = `INSERT INTO words (word, synonyms, difficulty, meaning, category, tags)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, correct_count, incorrect_count, created_at, updated_at`
	if w.Tags == nil {
		w.Tags = pq.StringArray{}
	}
	row := r.db.QueryRowxContext(ctx, q, w.Word, w.Synonyms, w.Difficulty, w.Meaning, w.Category, w.Tags)
	return row.Scan(&w.ID, &w.CorrectCount, &w.IncorrectCount, &w.CreatedAt, &w.UpdatedAt)
}

func (r *WordRepo) Update(ctx context.Context, w *entity.Word) error {
	const q = `UPDATE words SET word=$2, synonyms=$3, difficulty=$4, meaning=$5, category=$6, tags=$7, updated_at=NOW()
		WHERE id=$1 RETURNING updated_at`
	if w.Tags == nil {
		w.Tags = pq.StringArray{}
	}
	row := r.db.QueryRowxContext(ctx, q, w.ID, w.Word, w.Synonyms, w.Difficulty, w.Meaning, w.Category, w.Tags)
	return row.Scan(&w.UpdatedAt)
}

func (r *WordRepo) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM words WHERE id=$1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Random samples up to count words in random order, skipping exclude.
func (r *WordRepo) Random(ctx context.Context, count int, difficulty string, exclude []int64) ([]entity.Word, error) {
	var conds []string
	var args []any
	if difficulty != "" {
		args = append(args, difficulty)
		conds = append(conds, fmt.Sprintf("difficulty = $%d", len(args)))
	}
	if len(exclude) > 0 {
		args = append(args, pq.Array(exclude))
		conds = append(conds, fmt.Sprintf("NOT (id = ANY($%d))", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, count)
	q := fmt.Sprintf(`SELECT %s FROM words%s ORDER BY RANDOM() LIMIT $%d`, wordColumns, where, len(args))
	words := []entity.Word{}
	if err := r.db.SelectContext(ctx, &words, q, args...); err != nil {
		return nil, err
	}
	return words, nil
}

// Review returns the words answered wrong most often relative to attempts.
func (r *WordRepo) Review(ctx context.Context, count int) ([]entity.Word, error) {
	const q = `SELECT ` + wordColumns + ` FROM words
		WHERE incorrect_count > 0
		ORDER BY incorrect_count::float / (correct_count + incorrect_count) DESC, incorrect_count DESC
		LIMIT $1`
	words := []entity.Word{}
	if err := r.db.SelectContext(ctx, &words, q, count); err != nil {
		return nil, err
	}
	return words, nil
}

// RecordAnswer bumps the lifetime counters of a word.
func (r *WordRepo) RecordAnswer(ctx context.Context, id int64, correct bool) error {
	q := `UPDATE words SET incorrect_count = incorrect_count + 1, updated_at=NOW() WHERE id=$1`
	if correct {
		q = `UPDATE words SET correct_count = correct_count + 1, updated_at=NOW() WHERE id=$1`
	}
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
