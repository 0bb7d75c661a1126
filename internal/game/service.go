package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vapmail16/synonym-quest-sub000/internal/badge"
	"github.com/vapmail16/synonym-quest-sub000/internal/progress"
	"github.com/vapmail16/synonym-quest-sub000/internal/word/entity"
)

// WordStore is the word access the games need. *word/repo.WordRepo implements it.
type WordStore interface {
	List(ctx context.Context, f entity.Filter) ([]entity.Word, int, error)
	GetByID(ctx context.Context, id int64) (*entity.Word, error)
	GetByIDs(ctx context.Context, ids []int64) ([]entity.Word, error)
	Random(ctx context.Context, count int, difficulty string, exclude []int64) ([]entity.Word, error)
	RecordAnswer(ctx context.Context, id int64, correct bool) error
}

// ProgressTracker is implemented by *progress.Service.
type ProgressTracker interface {
	UpdateProgress(ctx context.Context, userID, wordID int64, gameType string, correct bool, timeSpent int) (*progress.Update, error)
	GetWordsForGame(ctx context.Context, userID int64, gameType string, limit int) ([]progress.Progress, error)
	GetUserStats(ctx context.Context, userID int64) (*progress.Stats, error)
	GetUserProgress(ctx context.Context, userID int64) ([]progress.Progress, error)
}

// BadgeChecker is implemented by *badge.Service.
type BadgeChecker interface {
	CheckAndAwardBadges(ctx context.Context, ev badge.Event) ([]badge.UserBadge, error)
}

// AnswerValidator confirms free-text synonym answers. *ai.Client implements it.
type AnswerValidator interface {
	ValidateOrFallback(ctx context.Context, w *entity.Word, answer string) bool
}

var (
	ErrUnknownMode  = errors.New("unknown game type")
	ErrNoWords      = errors.New("no words available for this game")
	ErrWordNotFound = errors.New("word not found")
	ErrAuthRequired = errors.New("this game type requires a signed-in user")
	ErrEmptyRound   = errors.New("round has no answers")
)

const (
	poolSize          = 10
	defaultRoundSize  = 10
	maxRoundSize      = 50
	dailyQuestSize    = 5
	dailyCandidateCap = 500
	// SpeedRoundSeconds is the time limit of a speed round.
	SpeedRoundSeconds = 60
)

var ladderSteps = []string{entity.DifficultyEasy, entity.DifficultyMedium, entity.DifficultyHard}

type Service struct {
	words     WordStore
	progress  ProgressTracker
	badges    BadgeChecker
	validator AnswerValidator
	logger    *zap.SugaredLogger
	now       func() time.Time
	rand      func() *rand.Rand
}

// NewService wires the game logic. validator may be nil.
func NewService(words WordStore, tracker ProgressTracker, badges BadgeChecker, validator AnswerValidator, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		words:     words,
		progress:  tracker,
		badges:    badges,
		validator: validator,
		logger:    logger,
		now:       time.Now,
		rand:      func() *rand.Rand { return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) },
	}
}

// QuestionOptions narrows question generation.
type QuestionOptions struct {
	Difficulty string
	Exclude    []int64
	// UserID is zero for anonymous players.
	UserID int64
	Count  int
}

// Question returns a single question for mode.
func (s *Service) Question(ctx context.Context, mode string, opts QuestionOptions) (*Question, error) {
	if !ValidMode(mode) {
		return nil, ErrUnknownMode
	}
	if mode == ModeDailyQuest {
		qs, err := s.dailyQuest(ctx, 1)
		if err != nil {
			return nil, err
		}
		return &qs[0], nil
	}
	pool, err := s.pool(ctx, mode, opts)
	if err != nil {
		return nil, err
	}
	q := BuildQuestion(questionStyle(mode), pool, s.rand())
	q.Mode = mode
	return &q, nil
}

// questionStyle maps a mode to how its questions look.
func questionStyle(mode string) string {
	if mode == ModeSpelling {
		return ModeSpelling
	}
	return ModeSynonymMatch
}

func (s *Service) pool(ctx context.Context, mode string, opts QuestionOptions) ([]entity.Word, error) {
	if PersonalMode(mode) {
		return s.personalPool(ctx, mode, opts)
	}
	pool, err := s.words.Random(ctx, poolSize, opts.Difficulty, opts.Exclude)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 && len(opts.Exclude) > 0 {
		// everything was excluded; repetition beats an empty game
		pool, err = s.words.Random(ctx, poolSize, opts.Difficulty, nil)
		if err != nil {
			return nil, err
		}
	}
	if len(pool) == 0 {
		return nil, ErrNoWords
	}
	return pool, nil
}

// personalPool draws from the caller's progress rows, topping up with random
// words for distractors or when the user has nothing to review yet.
func (s *Service) personalPool(ctx context.Context, mode string, opts QuestionOptions) ([]entity.Word, error) {
	if opts.UserID == 0 {
		return nil, ErrAuthRequired
	}
	rows, err := s.progress.GetWordsForGame(ctx, opts.UserID, mode, poolSize)
	if err != nil {
		return nil, err
	}
	skip := make(map[int64]bool, len(opts.Exclude))
	for _, id := range opts.Exclude {
		skip[id] = true
	}
	ids := make([]int64, 0, len(rows))
	for _, p := range rows {
		if !skip[p.WordID] {
			ids = append(ids, p.WordID)
		}
	}
	var pool []entity.Word
	if len(ids) > 0 {
		found, err := s.words.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		// keep the least-mastered-first order of the progress rows
		pos := make(map[int64]int, len(ids))
		for i, id := range ids {
			pos[id] = i
		}
		sort.SliceStable(found, func(i, j int) bool { return pos[found[i].ID] < pos[found[j].ID] })
		pool = found
	}
	if len(pool) == 0 && mode != ModeNewWords {
		return nil, ErrNoWords
	}
	if len(pool) < poolSize {
		exclude := append(append([]int64(nil), opts.Exclude...), ids...)
		extra, err := s.words.Random(ctx, poolSize-len(pool), opts.Difficulty, exclude)
		if err != nil {
			return nil, err
		}
		pool = append(pool, extra...)
	}
	if len(pool) == 0 {
		return nil, ErrNoWords
	}
	return pool, nil
}

// Round is a batch of questions played together.
type Round struct {
	Mode      string     `json:"gameType"`
	Questions []Question `json:"questions"`
	TimeLimit int        `json:"timeLimit,omitempty"`
	Date      string     `json:"date,omitempty"`
}

// Round builds a full game for mode: a ladder of rising difficulty, the
// daily quest, a timed speed round or a plain batch of questions.
func (s *Service) Round(ctx context.Context, mode string, opts QuestionOptions) (*Round, error) {
	if !ValidMode(mode) {
		return nil, ErrUnknownMode
	}
	switch mode {
	case ModeWordLadder:
		qs, err := s.ladder(ctx, opts)
		if err != nil {
			return nil, err
		}
		return &Round{Mode: mode, Questions: qs}, nil
	case ModeDailyQuest:
		qs, err := s.dailyQuest(ctx, dailyQuestSize)
		if err != nil {
			return nil, err
		}
		return &Round{Mode: mode, Questions: qs, Date: s.now().UTC().Format(time.DateOnly)}, nil
	}
	n := opts.Count
	if n <= 0 {
		n = defaultRoundSize
	}
	if n > maxRoundSize {
		n = maxRoundSize
	}
	round := &Round{Mode: mode, Questions: make([]Question, 0, n)}
	if mode == ModeSpeedRound {
		round.TimeLimit = SpeedRoundSeconds
	}
	seen := append([]int64(nil), opts.Exclude...)
	for len(round.Questions) < n {
		o := opts
		o.Exclude = seen
		q, err := s.Question(ctx, mode, o)
		if errors.Is(err, ErrNoWords) && len(round.Questions) > 0 {
			break
		}
		if err != nil {
			return nil, err
		}
		if containsID(seen, q.WordID) {
			// the pool wrapped around; the catalog is smaller than the round
			break
		}
		seen = append(seen, q.WordID)
		round.Questions = append(round.Questions, *q)
	}
	return round, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// ladder asks one question per difficulty step, falling back to any
// difficulty when a step has no words.
func (s *Service) ladder(ctx context.Context, opts QuestionOptions) ([]Question, error) {
	r := s.rand()
	var out []Question
	seen := append([]int64(nil), opts.Exclude...)
	for i, diff := range ladderSteps {
		pool, err := s.words.Random(ctx, poolSize, diff, seen)
		if err != nil {
			return nil, err
		}
		if len(pool) == 0 {
			if pool, err = s.words.Random(ctx, poolSize, "", seen); err != nil {
				return nil, err
			}
		}
		if len(pool) == 0 {
			break
		}
		q := BuildQuestion(ModeSynonymMatch, pool, r)
		q.Mode, q.Level = ModeWordLadder, i+1
		seen = append(seen, q.WordID)
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, ErrNoWords
	}
	return out, nil
}

// dailySeed is stable for one UTC day.
func dailySeed(t time.Time) uint64 {
	y, m, d := t.UTC().Date()
	return uint64(y*10000 + int(m)*100 + d)
}

// dailyQuest picks n questions deterministically from the UTC date. The
// candidates are a date-seeded sample of the whole catalog.
func (s *Service) dailyQuest(ctx context.Context, n int) ([]Question, error) {
	seed := dailySeed(s.now())
	words, _, err := s.words.List(ctx, entity.Filter{Limit: dailyCandidateCap, Seed: strconv.FormatUint(seed, 10)})
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, ErrNoWords
	}
	sort.Slice(words, func(i, j int) bool { return words[i].ID < words[j].ID })
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	r.Shuffle(len(words), func(i, j int) { words[i], words[j] = words[j], words[i] })
	if n > len(words) {
		n = len(words)
	}
	out := make([]Question, 0, n)
	for i := 0; i < n; i++ {
		pool := append([]entity.Word{words[i]}, sample(words, i, poolSize-1)...)
		q := QuestionFor(ModeSynonymMatch, &pool[0], pool, r)
		q.Mode, q.Level = ModeDailyQuest, i+1
		q.ID = questID(seed, i)
		out = append(out, q)
	}
	return out, nil
}

// sample returns up to n words after index skip, wrapping around.
func sample(words []entity.Word, skip, n int) []entity.Word {
	var out []entity.Word
	for k := 1; k < len(words) && len(out) < n; k++ {
		out = append(out, words[(skip+k)%len(words)])
	}
	return out
}

func questID(seed uint64, i int) string {
	return fmt.Sprintf("daily-%d-%d", seed, i+1)
}

// Answer is one submitted answer.
type Answer struct {
	WordID    int64  `json:"wordId"`
	Mode      string `json:"gameType"`
	Answer    string `json:"answer"`
	TimeSpent int    `json:"timeSpent"`
}

// AnswerResult reports the verdict and, for signed-in players, the updated
// progress and any badges earned.
type AnswerResult struct {
	WordID        int64              `json:"wordId"`
	Correct       bool               `json:"correct"`
	CorrectAnswer string             `json:"correctAnswer"`
	Synonyms      []string           `json:"synonyms"`
	Progress      *progress.Progress `json:"progress,omitempty"`
	NewBadges     []badge.UserBadge  `json:"newBadges"`
}

// SubmitAnswer checks an answer, updates the word counters and, when
// userID is set, the user's progress and badges.
func (s *Service) SubmitAnswer(ctx context.Context, userID int64, in Answer) (*AnswerResult, error) {
	if !ValidMode(in.Mode) {
		return nil, ErrUnknownMode
	}
	w, err := s.words.GetByID(ctx, in.WordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWordNotFound
		}
		return nil, err
	}
	correct := s.check(ctx, in.Mode, w, in.Answer)
	if err := s.words.RecordAnswer(ctx, w.ID, correct); err != nil {
		return nil, err
	}
	res := &AnswerResult{
		WordID:        w.ID,
		Correct:       correct,
		CorrectAnswer: expected(in.Mode, w),
		Synonyms:      w.SynonymStrings(),
		NewBadges:     []badge.UserBadge{},
	}
	if userID == 0 {
		return res, nil
	}
	up, err := s.progress.UpdateProgress(ctx, userID, w.ID, in.Mode, correct, in.TimeSpent)
	if err != nil {
		return nil, err
	}
	res.Progress = up.Progress
	if up.LearnedNow {
		res.NewBadges = append(res.NewBadges, s.checkBadges(ctx, badge.Event{
			Type: badge.EventWordLearned, UserID: userID, GameType: in.Mode, WordID: w.ID,
		})...)
	}
	if correct {
		res.NewBadges = append(res.NewBadges, s.checkBadges(ctx, badge.Event{
			Type: badge.EventStreakUpdated, UserID: userID, GameType: in.Mode, WordID: w.ID, Streak: up.Progress.Streak,
		})...)
	}
	return res, nil
}

func (s *Service) check(ctx context.Context, mode string, w *entity.Word, answer string) bool {
	if CheckAnswer(mode, w, answer) {
		return true
	}
	if mode == ModeSpelling || s.validator == nil || answer == "" {
		return false
	}
	return s.validator.ValidateOrFallback(ctx, w, answer)
}

func expected(mode string, w *entity.Word) string {
	if mode == ModeSpelling {
		return w.Word
	}
	if exact := w.SynonymsOfType(entity.SynonymExact); len(exact) > 0 {
		return exact[0]
	}
	if all := w.SynonymStrings(); len(all) > 0 {
		return all[0]
	}
	return ""
}

// checkBadges never fails the calling game action.
func (s *Service) checkBadges(ctx context.Context, ev badge.Event) []badge.UserBadge {
	if s.badges == nil {
		return nil
	}
	awarded, err := s.badges.CheckAndAwardBadges(ctx, ev)
	if err != nil {
		s.logger.Warnw("badge check failed", "event", ev.Type, "user_id", ev.UserID, "err", err)
		return nil
	}
	return awarded
}

// RoundSubmission is a finished round.
type RoundSubmission struct {
	Mode    string   `json:"gameType"`
	Answers []Answer `json:"answers"`
}

type RoundResult struct {
	Mode      string            `json:"gameType"`
	Total     int               `json:"total"`
	Correct   int               `json:"correct"`
	Accuracy  float64           `json:"accuracy"`
	Results   []AnswerResult    `json:"results"`
	NewBadges []badge.UserBadge `json:"newBadges"`
}

// SubmitRound scores every answer of a round, then raises game_completed
// and, for a flawless round, perfect_score.
func (s *Service) SubmitRound(ctx context.Context, userID int64, in RoundSubmission) (*RoundResult, error) {
	if !ValidMode(in.Mode) {
		return nil, ErrUnknownMode
	}
	if len(in.Answers) == 0 {
		return nil, ErrEmptyRound
	}
	out := &RoundResult{Mode: in.Mode, Results: make([]AnswerResult, 0, len(in.Answers)), NewBadges: []badge.UserBadge{}}
	for _, a := range in.Answers {
		if a.Mode == "" {
			a.Mode = in.Mode
		}
		res, err := s.SubmitAnswer(ctx, userID, a)
		if errors.Is(err, ErrWordNotFound) {
			s.logger.Debugw("round answer for missing word", "word_id", a.WordID)
			out.Total++
			continue
		}
		if err != nil {
			return nil, err
		}
		out.Total++
		if res.Correct {
			out.Correct++
		}
		out.NewBadges = append(out.NewBadges, res.NewBadges...)
		res.NewBadges = nil
		out.Results = append(out.Results, *res)
	}
	out.Accuracy = float64(out.Correct) * 100 / float64(out.Total)
	if userID == 0 {
		return out, nil
	}
	out.NewBadges = append(out.NewBadges, s.checkBadges(ctx, badge.Event{
		Type: badge.EventGameCompleted, UserID: userID, GameType: in.Mode, Accuracy: out.Accuracy,
	})...)
	if out.Correct == out.Total {
		out.NewBadges = append(out.NewBadges, s.checkBadges(ctx, badge.Event{
			Type: badge.EventPerfectScore, UserID: userID, GameType: in.Mode, Accuracy: 100, Streak: out.Correct,
		})...)
	}
	return out, nil
}

func (s *Service) UserStats(ctx context.Context, userID int64) (*progress.Stats, error) {
	return s.progress.GetUserStats(ctx, userID)
}

func (s *Service) UserProgress(ctx context.Context, userID int64) ([]progress.Progress, error) {
	return s.progress.GetUserProgress(ctx, userID)
}

// WordProgress pairs a selected progress row with its word.
type WordProgress struct {
	Word     entity.Word       `json:"word"`
	Progress progress.Progress `json:"progress"`
}

func (s *Service) WordsForGame(ctx context.Context, userID int64, gameType string, limit int) ([]WordProgress, error) {
	rows, err := s.progress.GetWordsForGame(ctx, userID, gameType, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, p := range rows {
		ids = append(ids, p.WordID)
	}
	words, err := s.words.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]entity.Word, len(words))
	for _, w := range words {
		byID[w.ID] = w
	}
	out := make([]WordProgress, 0, len(rows))
	for _, p := range rows {
		if w, ok := byID[p.WordID]; ok {
			out = append(out, WordProgress{Word: w, Progress: p})
		}
	}
	return out, nil
}
