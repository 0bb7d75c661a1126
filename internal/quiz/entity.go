package quiz

import "time"

// Item is one question of a quiz session as stored.
type Item struct {
	WordID        int64    `json:"wordId"`
	Word          string   `json:"word"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Accepted      []string `json:"accepted"`
	Answered      bool     `json:"answered"`
	UserAnswer    string   `json:"userAnswer,omitempty"`
	Correct       bool     `json:"correct"`
}

// Session is the persisted quiz state. Stores serialize it as JSON.
type Session struct {
	ID         string     `json:"id"`
	Difficulty string     `json:"difficulty,omitempty"`
	Category   string     `json:"category,omitempty"`
	Items      []Item     `json:"items"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

func (s *Session) expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }

func (s *Session) score() (answered, correct int) {
	for _, it := range s.Items {
		if it.Answered {
			answered++
			if it.Correct {
				correct++
			}
		}
	}
	return answered, correct
}

// QuestionView is what a player sees; the answer shows up once answered.
type QuestionView struct {
	Index         int      `json:"index"`
	WordID        int64    `json:"wordId"`
	Word          string   `json:"word"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	Answered      bool     `json:"answered"`
	UserAnswer    string   `json:"userAnswer,omitempty"`
	Correct       *bool    `json:"correct,omitempty"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
}

type View struct {
	ID        string         `json:"id"`
	Total     int            `json:"total"`
	Answered  int            `json:"answered"`
	Finished  bool           `json:"finished"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Questions []QuestionView `json:"questions"`
}

func (s *Session) view() *View {
	answered, _ := s.score()
	v := &View{
		ID:        s.ID,
		Total:     len(s.Items),
		Answered:  answered,
		Finished:  s.FinishedAt != nil,
		ExpiresAt: s.ExpiresAt,
		Questions: make([]QuestionView, len(s.Items)),
	}
	for i, it := range s.Items {
		q := QuestionView{Index: i, WordID: it.WordID, Word: it.Word, Prompt: it.Prompt, Options: it.Options}
		if it.Answered {
			correct := it.Correct
			q.Answered, q.UserAnswer, q.Correct, q.CorrectAnswer = true, it.UserAnswer, &correct, it.CorrectAnswer
		}
		v.Questions[i] = q
	}
	return v
}

// AnswerResult is returned for one answered question.
type AnswerResult struct {
	Index         int    `json:"index"`
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
	Answered      int    `json:"answered"`
	Total         int    `json:"total"`
	Finished      bool   `json:"finished"`
}

type Review struct {
	Word          string `json:"word"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	Correct       bool   `json:"correct"`
}

type Result struct {
	ID       string   `json:"id"`
	Total    int      `json:"total"`
	Answered int      `json:"answered"`
	Score    int      `json:"score"`
	Accuracy float64  `json:"accuracy"`
	Finished bool     `json:"finished"`
	Review   []Review `json:"review"`
}
