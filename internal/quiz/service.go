package quiz

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vapmail16/synonym-quest-sub000/internal/game"
	"github.com/vapmail16/synonym-quest-sub000/internal/word/entity"
	"github.com/vapmail16/synonym-quest-sub000/pkg/utilities"
)

// WordSource is the word access a quiz needs. *word/repo.WordRepo implements it.
type WordSource interface {
	List(ctx context.Context, f entity.Filter) ([]entity.Word, int, error)
	RecordAnswer(ctx context.Context, id int64, correct bool) error
}

var (
	ErrNoWords         = errors.New("no words match the quiz settings")
	ErrQuestionIndex   = errors.New("question index out of range")
	ErrAlreadyAnswered = errors.New("question already answered")
	ErrDifficulty      = errors.New("difficulty must be easy, medium or hard")
)

const (
	SessionTTL       = time.Hour
	defaultQuizSize  = 10
	maxQuizSize      = 50
	candidateCap     = 500
	distractorSample = 10
)

type Service struct {
	words  WordSource
	store  Store
	logger *zap.SugaredLogger
	now    func() time.Time
	rand   func() *rand.Rand
}

func NewService(words WordSource, store Store, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		words:  words,
		store:  store,
		logger: logger,
		now:    time.Now,
		rand:   func() *rand.Rand { return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) },
	}
}

// StartOptions configures a new quiz. Zero values mean any.
type StartOptions struct {
	Count      int    `json:"count"`
	Difficulty string `json:"difficulty"`
	Category   string `json:"category"`
}

// Start samples count words matching the options and stores a new session.
// A catalog smaller than count gives a shorter quiz.
func (s *Service) Start(ctx context.Context, opts StartOptions) (*View, error) {
	if opts.Difficulty != "" && !entity.ValidDifficulty(opts.Difficulty) {
		return nil, ErrDifficulty
	}
	n := opts.Count
	if n <= 0 {
		n = defaultQuizSize
	}
	if n > maxQuizSize {
		n = maxQuizSize
	}
	words, _, err := s.words.List(ctx, entity.Filter{
		Difficulty: opts.Difficulty,
		Category:   opts.Category,
		Limit:      candidateCap,
		Shuffle:    true,
	})
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, ErrNoWords
	}
	r := s.rand()
	r.Shuffle(len(words), func(i, j int) { words[i], words[j] = words[j], words[i] })
	if n > len(words) {
		n = len(words)
	}

	now := s.now()
	sess := &Session{
		ID:         utilities.NewKSUID(),
		Difficulty: opts.Difficulty,
		Category:   opts.Category,
		Items:      make([]Item, 0, n),
		CreatedAt:  now,
		ExpiresAt:  now.Add(SessionTTL),
	}
	for i := 0; i < n; i++ {
		pool := distractorPool(words, i)
		q := game.QuestionFor(game.ModeSynonymMatch, &pool[0], pool, r)
		sess.Items = append(sess.Items, Item{
			WordID:        q.WordID,
			Word:          q.Word,
			Prompt:        q.Prompt,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Accepted:      accepted(&words[i], q.CorrectAnswer),
		})
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess.view(), nil
}

// distractorPool puts words[i] first, followed by its neighbours.
func distractorPool(words []entity.Word, i int) []entity.Word {
	pool := []entity.Word{words[i]}
	for k := 1; k < len(words) && len(pool) < distractorSample; k++ {
		pool = append(pool, words[(i+k)%len(words)])
	}
	return pool
}

func accepted(w *entity.Word, answer string) []string {
	out := w.SynonymStrings()
	for _, s := range out {
		if strings.EqualFold(s, answer) {
			return out
		}
	}
	return append(out, answer)
}

func (s *Service) load(ctx context.Context, id string) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.expired(s.now()) {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.view(), nil
}

// Answer records the answer to question index. Each question can be
// answered once; the word's global counters follow the verdict.
func (s *Service) Answer(ctx context.Context, id string, index int, answer string) (*AnswerResult, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(sess.Items) {
		return nil, ErrQuestionIndex
	}
	it := &sess.Items[index]
	if it.Answered {
		return nil, ErrAlreadyAnswered
	}
	it.Answered = true
	it.UserAnswer = strings.TrimSpace(answer)
	it.Correct = matches(it.Accepted, it.UserAnswer)

	answered, _ := sess.score()
	if answered == len(sess.Items) {
		done := s.now()
		sess.FinishedAt = &done
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	if err := s.words.RecordAnswer(ctx, it.WordID, it.Correct); err != nil {
		s.logger.Warnw("record quiz answer failed", "word_id", it.WordID, "err", err)
	}
	return &AnswerResult{
		Index:         index,
		Correct:       it.Correct,
		CorrectAnswer: it.CorrectAnswer,
		Answered:      answered,
		Total:         len(sess.Items),
		Finished:      sess.FinishedAt != nil,
	}, nil
}

func matches(accepted []string, answer string) bool {
	if answer == "" {
		return false
	}
	for _, a := range accepted {
		if strings.EqualFold(a, answer) {
			return true
		}
	}
	return false
}

// Result scores the session so far. Accuracy covers answered questions.
func (s *Service) Result(ctx context.Context, id string) (*Result, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	answered, correct := sess.score()
	res := &Result{
		ID:       sess.ID,
		Total:    len(sess.Items),
		Answered: answered,
		Score:    correct,
		Finished: sess.FinishedAt != nil,
		Review:   make([]Review, 0, answered),
	}
	if answered > 0 {
		res.Accuracy = float64(correct) * 100 / float64(answered)
	}
	for _, it := range sess.Items {
		if !it.Answered {
			continue
		}
		res.Review = append(res.Review, Review{
			Word:          it.Word,
			UserAnswer:    it.UserAnswer,
			CorrectAnswer: it.CorrectAnswer,
			Correct:       it.Correct,
		})
	}
	return res, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}
