package progress

import "time"

const MaxMasteryLevel = 5

// LearnedMasteryLevel is what a single correct answer promotes a word to.
const LearnedMasteryLevel = 2

// Progress is one row of user_progress, unique per (user, word, game type).
type Progress struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"userId"`
	WordID         int64     `db:"word_id" json:"wordId"`
	GameType       string    `db:"game_type" json:"gameType"`
	CorrectCount   int       `db:"correct_count" json:"correctCount"`
	IncorrectCount int       `db:"incorrect_count" json:"incorrectCount"`
	MasteryLevel   int       `db:"mastery_level" json:"masteryLevel"`
	Streak         int       `db:"streak" json:"streak"`
	BestStreak     int       `db:"best_streak" json:"bestStreak"`
	TimeSpent      int       `db:"time_spent" json:"timeSpent"`
	LastPlayedAt   time.Time `db:"last_played_at" json:"lastPlayedAt"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// Attempts is the number of answers recorded on the row.
func (p *Progress) Attempts() int { return p.CorrectCount + p.IncorrectCount }

// Stats summarises a user's progress rows.
type Stats struct {
	TotalWordsLearned int         `json:"totalWordsLearned"`
	TotalGamesPlayed  int         `json:"totalGamesPlayed"`
	CurrentStreak     int         `json:"currentStreak"`
	LongestStreak     int         `json:"longestStreak"`
	AverageAccuracy   float64     `json:"averageAccuracy"`
	FavoriteGameType  string      `json:"favoriteGameType,omitempty"`
	MasteryLevels     map[int]int `json:"masteryLevels"`
	TotalTimeSpent    int         `json:"totalTimeSpent"`
}

// Selection filters rows for game word selection. Zero values disable a filter.
type Selection struct {
	GameType   string
	MaxMastery *int
	MinCorrect int
	Limit      int
}

// Flavor groups game types by which words they should draw.
type Flavor int

const (
	FlavorAny Flavor = iota
	FlavorNew
	FlavorReview
)
