package word

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/vapmail16/synonym-quest-sub000/internal/word/entity"
	"github.com/vapmail16/synonym-quest-sub000/pkg/database"
)

// Repository is the storage the word service needs. *repo.WordRepo
// implements it; lookups return sql.ErrNoRows when nothing matches.
type Repository interface {
	List(ctx context.Context, f entity.Filter) ([]entity.Word, int, error)
	GetByID(ctx context.Context, id int64) (*entity.Word, error)
	GetByText(ctx context.Context, text string) (*entity.Word, error)
	GetByIDs(ctx context.Context, ids []int64) ([]entity.Word, error)
	Create(ctx context.Context, w *entity.Word) error
	Update(ctx context.Context, w *entity.Word) error
	Delete(ctx context.Context, id int64) (int64, error)
	Random(ctx context.Context, count int, difficulty string, exclude []int64) ([]entity.Word, error)
	Review(ctx context.Context, count int) ([]entity.Word, error)
	RecordAnswer(ctx context.Context, id int64, correct bool) error
}

// Generator produces AI content and never fails; fallback reports whether
// templated content was used.
type Generator interface {
	SynonymsOrFallback(ctx context.Context, word string) (syns []entity.Synonym, fallback bool)
	MeaningOrFallback(ctx context.Context, word string) (meaning string, fallback bool)
}

// ProgressReader exposes the per-user learned word IDs.
type ProgressReader interface {
	LearnedWordIDs(ctx context.Context, userID int64) ([]int64, error)
}

var (
	ErrNotFound      = errors.New("word not found")
	ErrDuplicateWord = errors.New("word already exists")
	ErrInvalidWord   = errors.New("word is required")
	ErrDifficulty    = errors.New("difficulty must be easy, medium or hard")
	ErrSynonymType   = errors.New("synonym type must be exact, similar or related")
)

// Service holds word CRUD and selection logic.
type Service struct {
	repo     Repository
	gen      Generator
	progress ProgressReader
}

func NewService(r Repository, gen Generator, progress ProgressReader) *Service {
	return &Service{repo: r, gen: gen, progress: progress}
}

// Input is the create/update payload. Nil fields are left untouched on update.
type Input struct {
	Word       *string          `json:"word"`
	Synonyms   []entity.Synonym `json:"synonyms"`
	Difficulty *string          `json:"difficulty"`
	Meaning    *string          `json:"meaning"`
	Category   *string          `json:"category"`
	Tags       []string         `json:"tags"`
}

// Page is a listing result.
type Page struct {
	Words  []entity.Word `json:"words"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func (s *Service) List(ctx context.Context, f entity.Filter) (*Page, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	words, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Page{Words: words, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.Word, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*entity.Word, error) {
	if in.Word == nil || strings.TrimSpace(*in.Word) == "" {
		return nil, ErrInvalidWord
	}
	w := &entity.Word{Difficulty: entity.DifficultyMedium, Synonyms: entity.Synonyms{}}
	if err := apply(w, in); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByText(ctx, w.Word); err == nil {
		return nil, ErrDuplicateWord
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err := s.repo.Create(ctx, w); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateWord
		}
		return nil, err
	}
	return w, nil
}

func (s *Service) Update(ctx context.Context, id int64, in Input) (*entity.Word, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(w, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, w); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateWord
		}
		return nil, err
	}
	return w, nil
}

// apply validates in and copies the set fields onto w.
func apply(w *entity.Word, in Input) error {
	if in.Word != nil {
		text := strings.ToLower(strings.TrimSpace(*in.Word))
		if text == "" {
			return ErrInvalidWord
		}
		w.Word = text
	}
	if in.Difficulty != nil {
		d := strings.ToLower(strings.TrimSpace(*in.Difficulty))
		if !entity.ValidDifficulty(d) {
			return ErrDifficulty
		}
		w.Difficulty = d
	}
	if in.Synonyms != nil {
		syns, err := normalizeSynonyms(w.Word, in.Synonyms)
		if err != nil {
			return err
		}
		w.Synonyms = syns
	}
	if in.Meaning != nil {
		w.Meaning = trimmedOrNil(*in.Meaning)
	}
	if in.Category != nil {
		w.Category = trimmedOrNil(*in.Category)
	}
	if in.Tags != nil {
		tags := pq.StringArray{}
		for _, t := range in.Tags {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		w.Tags = tags
	}
	return nil
}

func normalizeSynonyms(headword string, in []entity.Synonym) (entity.Synonyms, error) {
	out := entity.Synonyms{}
	seen := map[string]bool{headword: true}
	for _, s := range in {
		text := strings.ToLower(strings.TrimSpace(s.Synonym))
		if text == "" || seen[text] {
			continue
		}
		if s.Type == "" {
			s.Type = entity.SynonymSimilar
		}
		if !s.Type.Valid() {
			return nil, ErrSynonymType
		}
		seen[text] = true
		out = append(out, entity.Synonym{Synonym: text, Type: s.Type})
	}
	return out, nil
}

func trimmedOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	rows, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) Random(ctx context.Context, count int, difficulty string) ([]entity.Word, error) {
	if difficulty != "" && !entity.ValidDifficulty(difficulty) {
		return nil, ErrDifficulty
	}
	return s.repo.Random(ctx, clampCount(count), difficulty, nil)
}

func (s *Service) Review(ctx context.Context, count int) ([]entity.Word, error) {
	return s.repo.Review(ctx, clampCount(count))
}

func clampCount(n int) int {
	if n <= 0 {
		return 10
	}
	if n > 100 {
		return 100
	}
	return n
}

// RecordAnswer updates the lifetime counters of a word.
func (s *Service) RecordAnswer(ctx context.Context, id int64, correct bool) error {
	if err := s.repo.RecordAnswer(ctx, id, correct); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Generated is the result of an AI generation call.
type Generated struct {
	Word     *entity.Word     `json:"word"`
	Synonyms []entity.Synonym `json:"synonyms,omitempty"`
	Meaning  string           `json:"meaning,omitempty"`
	Fallback bool             `json:"fallback"`
	Saved    bool             `json:"saved"`
}

// GenerateSynonyms asks the generator for synonyms; save merges them into
// the stored word. Fallback content is never saved.
func (s *Service) GenerateSynonyms(ctx context.Context, id int64, save bool) (*Generated, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	syns, fallback := s.gen.SynonymsOrFallback(ctx, w.Word)
	out := &Generated{Word: w, Synonyms: syns, Fallback: fallback}
	if save && !fallback {
		merged, err := normalizeSynonyms(w.Word, append(append([]entity.Synonym{}, w.Synonyms...), syns...))
		if err != nil {
			return nil, err
		}
		w.Synonyms = merged
		if err := s.repo.Update(ctx, w); err != nil {
			return nil, err
		}
		out.Saved = true
	}
	return out, nil
}

func (s *Service) GenerateMeaning(ctx context.Context, id int64, save bool) (*Generated, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	meaning, fallback := s.gen.MeaningOrFallback(ctx, w.Word)
	out := &Generated{Word: w, Meaning: meaning, Fallback: fallback}
	if save && !fallback {
		w.Meaning = &meaning
		if err := s.repo.Update(ctx, w); err != nil {
			return nil, err
		}
		out.Saved = true
	}
	return out, nil
}

// Learned returns the words the user has answered correctly at least once.
func (s *Service) Learned(ctx context.Context, userID int64) ([]entity.Word, error) {
	ids, err := s.progress.LearnedWordIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByIDs(ctx, ids)
}

// New returns random words the user has not learned yet.
func (s *Service) New(ctx context.Context, userID int64, count int, difficulty string) ([]entity.Word, error) {
	ids, err := s.progress.LearnedWordIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.Random(ctx, clampCount(count), difficulty, ids)
}
