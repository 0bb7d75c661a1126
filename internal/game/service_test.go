package game_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vapmail16/synonym-quest-sub000/internal/badge"
	"github.com/vapmail16/synonym-quest-sub000/internal/game"
	"github.com/vapmail16/synonym-quest-sub000/internal/progress"
	"github.com/vapmail16/synonym-quest-sub000/internal/testutil"
	"github.com/vapmail16/synonym-quest-sub000/internal/word/entity"
)

func seeded() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func sampleWords() []entity.Word {
	return []entity.Word{
		testutil.Syn("happy", "cheerful:similar", "joyful:similar"),
		testutil.Syn("big", "large:exact", "huge:similar"),
		testutil.Syn("fast", "quick:exact", "rapid:similar"),
		testutil.Syn("cold", "chilly:similar"),
	}
}

// recorder is a BadgeChecker that remembers events.
type recorder struct {
	events []badge.Event
	err    error
}

func (r *recorder) CheckAndAwardBadges(_ context.Context, ev badge.Event) ([]badge.UserBadge, error) {
	r.events = append(r.events, ev)
	if r.err != nil {
		return nil, r.err
	}
	return []badge.UserBadge{}, nil
}

func (r *recorder) types() []badge.EventType {
	var out []badge.EventType
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func unique(ss []string) bool {
	seen := map[string]bool{}
	for _, s := range ss {
		if seen[strings.ToLower(s)] {
			return false
		}
		seen[strings.ToLower(s)] = true
	}
	return true
}

func TestBuildQuestionPrefersExactSynonym(t *testing.T) {
	pool := sampleWords()
	for i := range pool {
		pool[i].ID = int64(i + 1)
	}
	for i := 0; i < 20; i++ {
		q := game.BuildQuestion(game.ModeSynonymMatch, pool, rand.New(rand.NewPCG(uint64(i), 7)))
		if q.Word != "big" || q.CorrectAnswer != "large" {
			t.Fatalf("expected the first word with an exact synonym, got %q -> %q", q.Word, q.CorrectAnswer)
		}
		if len(q.Options) != 4 || !unique(q.Options) {
			t.Fatalf("options: %v", q.Options)
		}
		found := false
		for _, o := range q.Options {
			if o == q.CorrectAnswer {
				found = true
			}
			if o == "huge" {
				t.Fatalf("a synonym of the target must not be a distractor: %v", q.Options)
			}
		}
		if !found {
			t.Fatalf("correct answer missing from %v", q.Options)
		}
	}
}

func TestBuildQuestionPadsWithFiller(t *testing.T) {
	pool := []entity.Word{testutil.Syn("brave", "bold:exact")}
	q := game.BuildQuestion(game.ModeSynonymMatch, pool, seeded())
	if len(q.Options) != 4 || !unique(q.Options) {
		t.Fatalf("single-word pool must still give 4 options: %v", q.Options)
	}
}

func TestBuildQuestionGenericFallback(t *testing.T) {
	pool := []entity.Word{testutil.Syn("zephyr")}
	q := game.BuildQuestion(game.ModeSynonymMatch, pool, seeded())
	if q.CorrectAnswer == "" {
		t.Fatal("expected a generic synonym")
	}
	if !game.CheckAnswer(game.ModeSynonymMatch, &pool[0], q.CorrectAnswer) {
		t.Fatalf("generic answer %q should be accepted", q.CorrectAnswer)
	}
}

func TestBuildQuestionSpelling(t *testing.T) {
	pool := sampleWords()
	q := game.BuildQuestion(game.ModeSpelling, pool, seeded())
	if q.CorrectAnswer != "big" {
		t.Fatalf("spelling answer is the headword, got %q", q.CorrectAnswer)
	}
	if len(q.Options) != 0 || q.Word != "" {
		t.Fatalf("spelling questions do not reveal the word: %+v", q)
	}
	if !strings.Contains(q.Hint, "large") {
		t.Fatalf("hint should mention synonyms: %q", q.Hint)
	}
}

func TestCheckAnswer(t *testing.T) {
	w := testutil.Syn("big", "large:exact")
	cases := []struct {
		mode, answer string
		want         bool
	}{
		{game.ModeSynonymMatch, "Large ", true},
		{game.ModeSynonymMatch, "big", false},
		{game.ModeSpelling, "BIG", true},
		{game.ModeSpelling, "large", false},
		{game.ModeSpeedRound, "", false},
	}
	for _, c := range cases {
		if got := game.CheckAnswer(c.mode, &w, c.answer); got != c.want {
			t.Errorf("CheckAnswer(%s, %q)=%v want %v", c.mode, c.answer, got, c.want)
		}
	}
}

type fixture struct {
	svc      *game.Service
	words    *testutil.WordStore
	progress *testutil.ProgressStore
	badges   *recorder
}

func newFixture() *fixture {
	f := &fixture{
		words:    testutil.NewWordStore(sampleWords()...),
		progress: testutil.NewProgressStore(),
		badges:   &recorder{},
	}
	f.svc = game.NewService(f.words, progress.NewService(f.progress), f.badges, nil, nil)
	return f
}

func TestSubmitAnswerAnonymous(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	res, err := f.svc.SubmitAnswer(ctx, 0, game.Answer{WordID: 2, Mode: game.ModeSynonymMatch, Answer: "large"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Correct || res.Progress != nil {
		t.Fatalf("anonymous answer: %+v", res)
	}
	w, _ := f.words.GetByID(ctx, 2)
	if w.CorrectCount != 1 {
		t.Fatalf("word counter: %d", w.CorrectCount)
	}
	if len(f.badges.events) != 0 || len(f.progress.Rows(0)) != 0 {
		t.Fatal("anonymous answers must not touch progress or badges")
	}
}

func TestSubmitAnswerAuthenticated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	res, err := f.svc.SubmitAnswer(ctx, 7, game.Answer{WordID: 2, Mode: game.ModeSynonymMatch, Answer: "large", TimeSpent: 4})
	if err != nil {
		t.Fatal(err)
	}
	if res.Progress == nil || res.Progress.MasteryLevel != 2 || res.Progress.Streak != 1 {
		t.Fatalf("progress: %+v", res.Progress)
	}
	got := f.badges.types()
	if len(got) != 2 || got[0] != badge.EventWordLearned || got[1] != badge.EventStreakUpdated {
		t.Fatalf("events: %v", got)
	}
	if f.badges.events[1].Streak != 1 {
		t.Fatalf("streak event carries the row streak: %+v", f.badges.events[1])
	}

	f.badges.events = nil
	res, _ = f.svc.SubmitAnswer(ctx, 7, game.Answer{WordID: 2, Mode: game.ModeSynonymMatch, Answer: "tiny"})
	if res.Correct || len(f.badges.events) != 0 {
		t.Fatalf("wrong answer: correct=%v events=%v", res.Correct, f.badges.types())
	}
	if res.CorrectAnswer != "large" {
		t.Fatalf("expected answer: %q", res.CorrectAnswer)
	}
}

func TestSubmitAnswerSwallowsBadgeErrors(t *testing.T) {
	f := newFixture()
	f.badges.err = errors.New("badge store down")
	res, err := f.svc.SubmitAnswer(context.Background(), 7, game.Answer{WordID: 1, Mode: game.ModeSpelling, Answer: "happy"})
	if err != nil {
		t.Fatalf("badge failures must not fail the answer: %v", err)
	}
	if !res.Correct || res.Progress == nil || len(res.NewBadges) != 0 {
		t.Fatalf("result: %+v", res)
	}
}

func TestSubmitAnswerErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.SubmitAnswer(ctx, 0, game.Answer{WordID: 99, Mode: game.ModeSpelling}); !errors.Is(err, game.ErrWordNotFound) {
		t.Fatalf("missing word: %v", err)
	}
	if _, err := f.svc.SubmitAnswer(ctx, 0, game.Answer{WordID: 1, Mode: "tetris"}); !errors.Is(err, game.ErrUnknownMode) {
		t.Fatalf("bad mode: %v", err)
	}
}

func TestSubmitRoundPerfectScore(t *testing.T) {
	f := newFixture()
	res, err := f.svc.SubmitRound(context.Background(), 7, game.RoundSubmission{
		Mode: game.ModeSpeedRound,
		Answers: []game.Answer{
			{WordID: 2, Answer: "large"},
			{WordID: 3, Answer: "quick"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 || res.Correct != 2 || res.Accuracy != 100 {
		t.Fatalf("round: %+v", res)
	}
	got := f.badges.types()
	if got[len(got)-2] != badge.EventGameCompleted || got[len(got)-1] != badge.EventPerfectScore {
		t.Fatalf("round events: %v", got)
	}
	if rows := f.progress.Rows(7); len(rows) != 2 || rows[0].GameType != game.ModeSpeedRound {
		t.Fatalf("answers inherit the round game type: %+v", rows)
	}
}

func TestSubmitRoundPartial(t *testing.T) {
	f := newFixture()
	res, err := f.svc.SubmitRound(context.Background(), 7, game.RoundSubmission{
		Mode:    game.ModeSynonymMatch,
		Answers: []game.Answer{{WordID: 2, Answer: "large"}, {WordID: 3, Answer: "slow"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Accuracy != 50 {
		t.Fatalf("accuracy: %v", res.Accuracy)
	}
	for _, typ := range f.badges.types() {
		if typ == badge.EventPerfectScore {
			t.Fatal("perfect score raised for a partial round")
		}
	}
	if _, err := f.svc.SubmitRound(context.Background(), 7, game.RoundSubmission{Mode: game.ModeSynonymMatch}); !errors.Is(err, game.ErrEmptyRound) {
		t.Fatalf("empty round: %v", err)
	}
}

func TestRoundModes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	speed, err := f.svc.Round(ctx, game.ModeSpeedRound, game.QuestionOptions{Count: 10})
	if err != nil {
		t.Fatal(err)
	}
	if speed.TimeLimit != game.SpeedRoundSeconds {
		t.Fatalf("time limit: %d", speed.TimeLimit)
	}
	if len(speed.Questions) == 0 || len(speed.Questions) > 4 {
		t.Fatalf("a 4-word catalog cannot give %d distinct questions", len(speed.Questions))
	}
	seen := map[int64]bool{}
	for _, q := range speed.Questions {
		if seen[q.WordID] {
			t.Fatalf("word %d repeated within a round", q.WordID)
		}
		seen[q.WordID] = true
	}

	ladder, err := f.svc.Round(ctx, game.ModeWordLadder, game.QuestionOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for i, q := range ladder.Questions {
		if q.Level != i+1 {
			t.Fatalf("ladder levels: %+v", ladder.Questions)
		}
	}

	a, err := f.svc.Round(ctx, game.ModeDailyQuest, game.QuestionOptions{})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := f.svc.Round(ctx, game.ModeDailyQuest, game.QuestionOptions{})
	if len(a.Questions) != 4 || a.Date == "" {
		t.Fatalf("daily quest: %+v", a)
	}
	for i := range a.Questions {
		if a.Questions[i].WordID != b.Questions[i].WordID || a.Questions[i].ID != b.Questions[i].ID {
			t.Fatal("daily quest must be stable within a day")
		}
	}
}

func TestPersonalModes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Question(ctx, game.ModeReview, game.QuestionOptions{}); !errors.Is(err, game.ErrAuthRequired) {
		t.Fatalf("anonymous review: %v", err)
	}
	if _, err := f.svc.Question(ctx, game.ModeReview, game.QuestionOptions{UserID: 7}); !errors.Is(err, game.ErrNoWords) {
		t.Fatalf("nothing to review yet: %v", err)
	}
	q, err := f.svc.Question(ctx, game.ModeNewWords, game.QuestionOptions{UserID: 7})
	if err != nil {
		t.Fatalf("new words fall back to the catalog: %v", err)
	}
	if q.Mode != game.ModeNewWords {
		t.Fatalf("mode: %q", q.Mode)
	}

	f.progress.Put(progress.Progress{UserID: 7, WordID: 4, GameType: game.ModeSynonymMatch, CorrectCount: 2, MasteryLevel: 2})
	q, err = f.svc.Question(ctx, game.ModeReview, game.QuestionOptions{UserID: 7})
	if err != nil {
		t.Fatal(err)
	}
	// word 4 has no exact synonym, but the random top-up words do
	if q.WordID == 0 {
		t.Fatalf("review question: %+v", q)
	}
}

func TestHandlerRejectsUnknownMode(t *testing.T) {
	f := newFixture()
	h := game.NewHandler(f.svc, testutil.Logger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/games/{mode}/question", h.Question)
	mux.HandleFunc("POST /api/games/answer", h.SubmitAnswer)
	mux.HandleFunc("GET /api/games/user/stats", h.UserStats)

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/api/games/tetris/question", "", http.StatusBadRequest},
		{http.MethodGet, "/api/games/synonym-match/question?difficulty=extreme", "", http.StatusBadRequest},
		{http.MethodGet, "/api/games/synonym-match/question", "", http.StatusOK},
		{http.MethodGet, "/api/games/review/question", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/games/answer", `{"gameType":"spelling"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/games/answer", `{"wordId":1,"gameType":"spelling","answer":"happy"}`, http.StatusOK},
		{http.MethodGet, "/api/games/user/stats", "", http.StatusUnauthorized},
	}
	for _, c := range cases {
		req := httptest.NewRequest(c.method, c.path, strings.NewReader(c.body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != c.want {
			t.Errorf("%s %s: status=%d want %d body=%s", c.method, c.path, rec.Code, c.want, rec.Body)
		}
	}
}

type listSpy struct {
	*testutil.WordStore
	filters []entity.Filter
}

func (s *listSpy) List(ctx context.Context, f entity.Filter) ([]entity.Word, int, error) {
	s.filters = append(s.filters, f)
	return s.WordStore.List(ctx, f)
}

func TestDailyQuestSeedsCandidateOrder(t *testing.T) {
	spy := &listSpy{WordStore: testutil.NewWordStore(sampleWords()...)}
	svc := game.NewService(spy, progress.NewService(testutil.NewProgressStore()), &recorder{}, nil, nil)
	if _, err := svc.Round(context.Background(), game.ModeDailyQuest, game.QuestionOptions{}); err != nil {
		t.Fatal(err)
	}
	if len(spy.filters) != 1 {
		t.Fatalf("list calls: %d", len(spy.filters))
	}
	if f := spy.filters[0]; f.Seed == "" || f.Limit == 0 || f.Search != "" || f.Difficulty != "" {
		t.Fatalf("daily candidates must be a seeded sample of the whole catalog: %+v", f)
	}
}

func TestSeededListingIsStablePerSeed(t *testing.T) {
	var words []entity.Word
	for _, w := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		words = append(words, testutil.Syn(w))
	}
	store := testutil.NewWordStore(words...)
	ctx := context.Background()
	order := func(seed string) string {
		list, _, _ := store.List(ctx, entity.Filter{Seed: seed, Limit: 3})
		var b strings.Builder
		for _, w := range list {
			b.WriteString(w.Word)
		}
		return b.String()
	}
	if order("20261014") != order("20261014") {
		t.Fatal("one seed must give one order")
	}
}
