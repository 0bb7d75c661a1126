package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/vapmail16/synonym-quest-sub000/internal/word/entity"
)

// WordStore implements word.Repository. Random and Shuffle listings return
// words in id order so tests are deterministic; a Seed reorders by hash.
type WordStore struct {
	mu     sync.Mutex
	words  map[int64]*entity.Word
	nextID int64
}

func NewWordStore(words ...entity.Word) *WordStore {
	s := &WordStore{words: map[int64]*entity.Word{}}
	for i := range words {
		w := words[i]
		_ = s.Create(context.Background(), &w)
	}
	return s
}

// Syn builds a word with synonyms given as "text:type" or plain text (similar).
func Syn(text string, synonyms ...string) entity.Word {
	w := entity.Word{Word: text, Difficulty: entity.DifficultyMedium, Synonyms: entity.Synonyms{}}
	for _, s := range synonyms {
		typ := entity.SynonymSimilar
		if i := strings.LastIndex(s, ":"); i > 0 {
			s, typ = s[:i], entity.SynonymType(s[i+1:])
		}
		w.Synonyms = append(w.Synonyms, entity.Synonym{Synonym: s, Type: typ})
	}
	return w
}

func (s *WordStore) sorted() []entity.Word {
	out := make([]entity.Word, 0, len(s.words))
	for _, w := range s.words {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *WordStore) List(_ context.Context, f entity.Filter) ([]entity.Word, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var match []entity.Word
	for _, w := range s.sorted() {
		if f.Search != "" && !strings.Contains(w.Word, strings.ToLower(f.Search)) {
			continue
		}
		if f.Difficulty != "" && w.Difficulty != f.Difficulty {
			continue
		}
		if f.Category != "" && (w.Category == nil || *w.Category != f.Category) {
			continue
		}
		match = append(match, w)
	}
	if f.Seed != "" {
		key := func(id int64) uint32 {
			h := fnv.New32a()
			fmt.Fprintf(h, "%d%s", id, f.Seed)
			return h.Sum32()
		}
		sort.SliceStable(match, func(i, j int) bool { return key(match[i].ID) < key(match[j].ID) })
	}
	total := len(match)
	if f.Offset >= len(match) {
		return []entity.Word{}, total, nil
	}
	match = match[f.Offset:]
	if f.Limit > 0 && len(match) > f.Limit {
		match = match[:f.Limit]
	}
	return match, total, nil
}

func (s *WordStore) GetByID(_ context.Context, id int64) (*entity.Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.words[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *w
	return &cp, nil
}

func (s *WordStore) GetByText(_ context.Context, text string) (*entity.Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.words {
		if strings.EqualFold(w.Word, text) {
			cp := *w
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *WordStore) GetByIDs(_ context.Context, ids []int64) ([]entity.Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []entity.Word{}
	for _, w := range s.sorted() {
		if want[w.ID] {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *WordStore) Create(_ context.Context, w *entity.Word) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.words {
		if strings.EqualFold(existing.Word, w.Word) {
			return &pq.Error{Code: "23505", Constraint: "words_word_key"}
		}
	}
	s.nextID++
	w.ID = s.nextID
	w.CreatedAt, w.UpdatedAt = time.Now(), time.Now()
	cp := *w
	s.words[w.ID] = &cp
	return nil
}

func (s *WordStore) Update(_ context.Context, w *entity.Word) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.words[w.ID]; !ok {
		return sql.ErrNoRows
	}
	w.UpdatedAt = time.Now()
	cp := *w
	s.words[w.ID] = &cp
	return nil
}

func (s *WordStore) Delete(_ context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.words[id]; !ok {
		return 0, nil
	}
	delete(s.words, id)
	return 1, nil
}

func (s *WordStore) Random(_ context.Context, count int, difficulty string, exclude []int64) ([]entity.Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	skip := map[int64]bool{}
	for _, id := range exclude {
		skip[id] = true
	}
	out := []entity.Word{}
	for _, w := range s.sorted() {
		if skip[w.ID] || (difficulty != "" && w.Difficulty != difficulty) {
			continue
		}
		if len(out) == count {
			break
		}
		out = append(out, w)
	}
	return out, nil
}

func (s *WordStore) Review(_ context.Context, count int) ([]entity.Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Word
	for _, w := range s.sorted() {
		if w.IncorrectCount > 0 {
			out = append(out, w)
		}
	}
	ratio := func(w entity.Word) float64 {
		return float64(w.IncorrectCount) / float64(w.CorrectCount+w.IncorrectCount)
	}
	sort.SliceStable(out, func(i, j int) bool { return ratio(out[i]) > ratio(out[j]) })
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}

func (s *WordStore) RecordAnswer(_ context.Context, id int64, correct bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.words[id]
	if !ok {
		return sql.ErrNoRows
	}
	if correct {
		w.CorrectCount++
	} else {
		w.IncorrectCount++
	}
	return nil
}
