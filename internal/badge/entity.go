package badge

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// CriteriaType selects how a badge is earned.
type CriteriaType string

const (
	CriteriaWordCount        CriteriaType = "word_count"
	CriteriaStreak           CriteriaType = "streak"
	CriteriaGameMode         CriteriaType = "game_mode"
	CriteriaLetterCompletion CriteriaType = "letter_completion"
	CriteriaAccuracy         CriteriaType = "accuracy"
	CriteriaCustom           CriteriaType = "custom"
)

// Criteria is stored as JSONB in badges.criteria.
type Criteria struct {
	Type        CriteriaType `json:"type" yaml:"type"`
	Target      int          `json:"value" yaml:"value"`
	GameType    string       `json:"gameType,omitempty" yaml:"gameType,omitempty"`
	MinAccuracy float64      `json:"minAccuracy,omitempty" yaml:"minAccuracy,omitempty"`
	Letter      string       `json:"letter,omitempty" yaml:"letter,omitempty"`
}

func (c Criteria) Value() (driver.Value, error) { return json.Marshal(c) }

func (c *Criteria) Scan(src any) error {
	return scanJSON(src, c)
}

// Metadata is free-form JSONB attached to an award.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src any) error {
	*m = Metadata{}
	return scanJSON(src, m)
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	}
	return errors.New("badge: unsupported scan type")
}

// Badge is a catalog entry.
type Badge struct {
	ID          int64     `db:"id" json:"id"`
	Key         string    `db:"badge_key" json:"badgeKey"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Icon        string    `db:"icon" json:"icon"`
	Category    string    `db:"category" json:"category"`
	Rarity      string    `db:"rarity" json:"rarity"`
	Criteria    Criteria  `db:"criteria" json:"criteria"`
	IsActive    bool      `db:"is_active" json:"isActive"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// UserBadge records that a user earned a badge.
type UserBadge struct {
	ID       int64     `db:"id" json:"id"`
	UserID   int64     `db:"user_id" json:"userId"`
	BadgeID  int64     `db:"badge_id" json:"badgeId"`
	EarnedAt time.Time `db:"earned_at" json:"earnedAt"`
	Progress int       `db:"progress" json:"progress"`
	Metadata Metadata  `db:"metadata" json:"metadata"`
	Badge    *Badge    `db:"-" json:"badge,omitempty"`
}

// WithProgress is a catalog badge seen from one user.
type WithProgress struct {
	Badge
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earnedAt,omitempty"`
	Progress int        `json:"progress"`
}

// EventType names what happened in a game.
type EventType string

const (
	EventWordLearned   EventType = "word_learned"
	EventStreakUpdated EventType = "streak_updated"
	EventGameCompleted EventType = "game_completed"
	EventPerfectScore  EventType = "perfect_score"
	EventCustom        EventType = "custom"
)

// Event triggers a badge check. Streak and Accuracy are the values carried
// by the event; they are compared as given.
type Event struct {
	Type     EventType `json:"type"`
	UserID   int64     `json:"-"`
	GameType string    `json:"gameType,omitempty"`
	WordID   int64     `json:"wordId,omitempty"`
	Streak   int       `json:"streak,omitempty"`
	Accuracy float64   `json:"accuracy,omitempty"`
	Metadata Metadata  `json:"metadata,omitempty"`
}

var knownEvents = map[EventType]bool{
	EventWordLearned:   true,
	EventStreakUpdated: true,
	EventGameCompleted: true,
	EventPerfectScore:  true,
	EventCustom:        true,
}

// Known reports whether t is a recognised event type.
func (t EventType) Known() bool {
	return knownEvents[t]
}
