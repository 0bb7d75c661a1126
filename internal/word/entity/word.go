package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
)

// SynonymType grades how closely a synonym matches its headword.
type SynonymType string

const (
	SynonymExact   SynonymType = "exact"
	SynonymSimilar SynonymType = "similar"
	SynonymRelated SynonymType = "related"
)

func (t SynonymType) Valid() bool {
	switch t {
	case SynonymExact, SynonymSimilar, SynonymRelated:
		return true
	}
	return false
}

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// ValidDifficulty reports whether d is one of easy / medium / hard.
func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type Synonym struct {
	Synonym string      `json:"synonym"`
	Type    SynonymType `json:"type"`
}

// Synonyms is stored as a JSONB array in words.synonyms.
type Synonyms []Synonym

func (s Synonyms) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *Synonyms) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = Synonyms{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("synonyms: unsupported scan type")
	}
	if len(raw) == 0 {
		*s = Synonyms{}
		return nil
	}
	return json.Unmarshal(raw, s)
}

// Word is a row of the words table.
type Word struct {
	ID             int64          `db:"id" json:"id"`
	Word           string         `db:"word" json:"word"`
	Synonyms       Synonyms       `db:"synonyms" json:"synonyms"`
	Difficulty     string         `db:"difficulty" json:"difficulty"`
	Meaning        *string        `db:"meaning" json:"meaning,omitempty"`
	Category       *string        `db:"category" json:"category,omitempty"`
	Tags           pq.StringArray `db:"tags" json:"tags"`
	CorrectCount   int            `db:"correct_count" json:"correctCount"`
	IncorrectCount int            `db:"incorrect_count" json:"incorrectCount"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// SynonymsOfType returns the synonym strings with the given exactness.
func (w *Word) SynonymsOfType(t SynonymType) []string {
	var out []string
	for _, s := range w.Synonyms {
		if s.Type == t {
			out = append(out, s.Synonym)
		}
	}
	return out
}

// SynonymStrings returns every synonym regardless of type.
func (w *Word) SynonymStrings() []string {
	out := make([]string, 0, len(w.Synonyms))
	for _, s := range w.Synonyms {
		out = append(out, s.Synonym)
	}
	return out
}

// HasSynonym matches case-insensitively against all synonyms.
func (w *Word) HasSynonym(candidate string) bool {
	c := strings.ToLower(strings.TrimSpace(candidate))
	if c == "" {
		return false
	}
	for _, s := range w.Synonyms {
		if strings.ToLower(s.Synonym) == c {
			return true
		}
	}
	return false
}

// Filter narrows word listings.
type Filter struct {
	Search     string
	Difficulty string
	Category   string
	Limit      int
	Offset     int
	// Shuffle returns rows in random order instead of alphabetically.
	Shuffle bool
	// Seed orders rows by a hash of id and seed; one seed gives one order.
	Seed string
}
