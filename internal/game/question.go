package game

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/vapmail16/synonym-quest-sub000/internal/word/entity"
	"github.com/vapmail16/synonym-quest-sub000/pkg/utilities"
)

// Game modes.
const (
	ModeSynonymMatch = "synonym-match"
	ModeSpelling     = "spelling"
	ModeWordLadder   = "word-ladder"
	ModeDailyQuest   = "daily-quest"
	ModeSpeedRound   = "speed-round"
	ModeNewWords     = "new-words"
	ModeOldWords     = "old-words"
	ModeReview       = "review"
)

var modes = map[string]bool{
	ModeSynonymMatch: true,
	ModeSpelling:     true,
	ModeWordLadder:   true,
	ModeDailyQuest:   true,
	ModeSpeedRound:   true,
	ModeNewWords:     true,
	ModeOldWords:     true,
	ModeReview:       true,
}

// ValidMode reports whether mode is a known game mode.
func ValidMode(mode string) bool { return modes[mode] }

// PersonalMode reports whether mode draws from the caller's own progress.
func PersonalMode(mode string) bool {
	return mode == ModeNewWords || mode == ModeOldWords || mode == ModeReview
}

// optionCount is the number of choices of a multiple-choice question.
const optionCount = 4

var genericSynonyms = []string{"similar", "alike", "equivalent", "comparable"}

var fillerWords = []string{
	"table", "window", "river", "pencil", "garden", "cloud",
	"basket", "ladder", "candle", "mirror", "button", "meadow",
}

// Question is sent to the client. The correct answer travels with it; the
// server re-checks submitted answers against the stored word.
type Question struct {
	ID            string   `json:"id"`
	Mode          string   `json:"gameType"`
	WordID        int64    `json:"wordId"`
	Word          string   `json:"word,omitempty"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
	Hint          string   `json:"hint,omitempty"`
	Difficulty    string   `json:"difficulty"`
	Level         int      `json:"level,omitempty"`
}

// pickTarget prefers the first pool word with an exact synonym.
func pickTarget(pool []entity.Word) *entity.Word {
	for i := range pool {
		if len(pool[i].SynonymsOfType(entity.SynonymExact)) > 0 {
			return &pool[i]
		}
	}
	return &pool[0]
}

func correctSynonym(w *entity.Word, r *rand.Rand) string {
	if exact := w.SynonymsOfType(entity.SynonymExact); len(exact) > 0 {
		return exact[r.IntN(len(exact))]
	}
	if all := w.SynonymStrings(); len(all) > 0 {
		return all[r.IntN(len(all))]
	}
	return genericSynonyms[r.IntN(len(genericSynonyms))]
}

// distractors draws n wrong options from the other pool words' synonyms and
// pads with filler words. Nothing that answers the target is used.
func distractors(target *entity.Word, answer string, pool []entity.Word, n int, r *rand.Rand) []string {
	used := map[string]bool{strings.ToLower(target.Word): true, strings.ToLower(answer): true}
	for _, s := range target.SynonymStrings() {
		used[strings.ToLower(s)] = true
	}
	var candidates []string
	for i := range pool {
		if &pool[i] == target {
			continue
		}
		for _, s := range pool[i].SynonymStrings() {
			key := strings.ToLower(s)
			if !used[key] {
				used[key] = true
				candidates = append(candidates, s)
			}
		}
	}
	r.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	fillers := append([]string(nil), fillerWords...)
	r.Shuffle(len(fillers), func(i, j int) { fillers[i], fillers[j] = fillers[j], fillers[i] })
	for _, f := range fillers {
		if len(candidates) >= n {
			break
		}
		if !used[f] {
			used[f] = true
			candidates = append(candidates, f)
		}
	}
	return candidates
}

// BuildQuestion turns a sampled pool into a question for mode. pool must
// not be empty.
func BuildQuestion(mode string, pool []entity.Word, r *rand.Rand) Question {
	return QuestionFor(mode, pickTarget(pool), pool, r)
}

// QuestionFor asks about target, drawing distractors from the rest of pool.
func QuestionFor(mode string, target *entity.Word, pool []entity.Word, r *rand.Rand) Question {
	q := Question{
		ID:         utilities.NewKSUID(),
		Mode:       mode,
		WordID:     target.ID,
		Difficulty: target.Difficulty,
	}
	if mode == ModeSpelling {
		q.CorrectAnswer = target.Word
		q.Prompt = "Spell the word that matches the hint"
		q.Hint = spellingHint(target)
		return q
	}
	answer := correctSynonym(target, r)
	options := append([]string{answer}, distractors(target, answer, pool, optionCount-1, r)...)
	r.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	q.Word = target.Word
	q.Prompt = fmt.Sprintf("Which word is a synonym of %q?", target.Word)
	q.Options = options
	q.CorrectAnswer = answer
	if target.Meaning != nil {
		q.Hint = *target.Meaning
	}
	return q
}

func spellingHint(w *entity.Word) string {
	var parts []string
	if w.Meaning != nil && *w.Meaning != "" {
		parts = append(parts, *w.Meaning)
	}
	if syns := w.SynonymStrings(); len(syns) > 0 {
		if len(syns) > 3 {
			syns = syns[:3]
		}
		parts = append(parts, "similar to: "+strings.Join(syns, ", "))
	}
	if runes := []rune(w.Word); len(runes) > 0 {
		parts = append(parts, fmt.Sprintf("%d letters, starts with %q", len(runes), string(runes[0])))
	}
	return strings.Join(parts, "; ")
}

// CheckAnswer compares a submitted answer with the stored word.
func CheckAnswer(mode string, w *entity.Word, answer string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}
	if mode == ModeSpelling {
		return strings.EqualFold(answer, w.Word)
	}
	if len(w.Synonyms) == 0 {
		for _, g := range genericSynonyms {
			if strings.EqualFold(answer, g) {
				return true
			}
		}
	}
	return w.HasSynonym(answer)
}
