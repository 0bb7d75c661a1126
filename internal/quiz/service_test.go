package quiz

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vapmail16/synonym-quest-sub000/internal/testutil"
	"github.com/vapmail16/synonym-quest-sub000/internal/word/entity"
)

func newTestService() (*Service, *testutil.WordStore, *MemoryStore) {
	words := testutil.NewWordStore(
		testutil.Syn("big", "large:exact"),
		testutil.Syn("fast", "quick:exact", "rapid"),
		testutil.Syn("happy", "glad"),
	)
	store := NewMemoryStore()
	return NewService(words, store, testutil.Logger()), words, store
}

func TestStartHidesAnswers(t *testing.T) {
	svc, _, store := newTestService()
	ctx := context.Background()
	v, err := svc.Start(ctx, StartOptions{Count: 10})
	if err != nil {
		t.Fatal(err)
	}
	if v.Total != 3 || len(v.Questions) != 3 {
		t.Fatalf("a 3-word catalog gives a 3-question quiz, got %d", v.Total)
	}
	for _, q := range v.Questions {
		if q.CorrectAnswer != "" || q.Correct != nil {
			t.Fatalf("unanswered question leaks its answer: %+v", q)
		}
		if len(q.Options) != 4 {
			t.Fatalf("options: %v", q.Options)
		}
	}
	sess, err := store.Get(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range sess.Items {
		found := false
		for _, o := range it.Options {
			found = found || o == it.CorrectAnswer
		}
		if !found {
			t.Fatalf("%q missing from %v", it.CorrectAnswer, it.Options)
		}
	}
	if got := sess.ExpiresAt.Sub(sess.CreatedAt); got != SessionTTL {
		t.Fatalf("ttl: %v", got)
	}
}

func TestStartValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.Start(ctx, StartOptions{Difficulty: "extreme"}); !errors.Is(err, ErrDifficulty) {
		t.Fatalf("difficulty: %v", err)
	}
	if _, err := svc.Start(ctx, StartOptions{Category: "nautical"}); !errors.Is(err, ErrNoWords) {
		t.Fatalf("empty category: %v", err)
	}
}

func TestAnswerFlow(t *testing.T) {
	svc, words, store := newTestService()
	ctx := context.Background()
	v, err := svc.Start(ctx, StartOptions{Count: 2})
	if err != nil {
		t.Fatal(err)
	}
	sess, _ := store.Get(ctx, v.ID)

	res, err := svc.Answer(ctx, v.ID, 0, " "+strings.ToUpper(sess.Items[0].CorrectAnswer))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Correct || res.Answered != 1 || res.Finished {
		t.Fatalf("first answer: %+v", res)
	}
	if _, err := svc.Answer(ctx, v.ID, 0, "again"); !errors.Is(err, ErrAlreadyAnswered) {
		t.Fatalf("second answer to the same question: %v", err)
	}
	if _, err := svc.Answer(ctx, v.ID, 5, "x"); !errors.Is(err, ErrQuestionIndex) {
		t.Fatalf("index: %v", err)
	}

	res, err = svc.Answer(ctx, v.ID, 1, "nonsense")
	if err != nil {
		t.Fatal(err)
	}
	if res.Correct || !res.Finished {
		t.Fatalf("last answer: %+v", res)
	}

	got, err := svc.Get(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Finished || got.Questions[1].CorrectAnswer == "" || *got.Questions[1].Correct {
		t.Fatalf("answered questions reveal their verdict: %+v", got.Questions[1])
	}

	result, err := svc.Result(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if result.Score != 1 || result.Accuracy != 50 || len(result.Review) != 2 {
		t.Fatalf("result: %+v", result)
	}

	w0, _ := words.GetByID(ctx, sess.Items[0].WordID)
	w1, _ := words.GetByID(ctx, sess.Items[1].WordID)
	if w0.CorrectCount != 1 || w1.IncorrectCount != 1 {
		t.Fatalf("word counters: %d/%d", w0.CorrectCount, w1.IncorrectCount)
	}
}

func TestSessionExpiry(t *testing.T) {
	svc, _, store := newTestService()
	ctx := context.Background()
	v, err := svc.Start(ctx, StartOptions{})
	if err != nil {
		t.Fatal(err)
	}
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := svc.Get(ctx, v.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expired session: %v", err)
	}
	if n := store.Sweep(time.Now().Add(2 * time.Hour)); n != 1 || store.Len() != 0 {
		t.Fatalf("sweep removed %d, %d left", n, store.Len())
	}
}

func TestDelete(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	v, _ := svc.Start(ctx, StartOptions{})
	if err := svc.Delete(ctx, v.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, v.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := svc.Result(ctx, v.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("result after delete: %v", err)
	}
}

func TestMemoryStoreCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	s := &Session{ID: "q1", Items: []Item{{Word: "big"}}, ExpiresAt: time.Now().Add(time.Minute)}
	if err := store.Save(ctx, s); err != nil {
		t.Fatal(err)
	}
	s.Items[0].Word = "changed"
	got, err := store.Get(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Items[0].Word != "big" {
		t.Fatal("store must not alias the saved session")
	}
}

func TestRedisKey(t *testing.T) {
	if got := redisKey("abc"); got != "quiz:session:abc" {
		t.Fatalf("key: %s", got)
	}
}

func TestHandler(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc, testutil.Logger())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/quiz/start", h.Start)
	mux.HandleFunc("POST /api/quiz/{id}/answer", h.Answer)
	mux.HandleFunc("GET /api/quiz/{id}", h.Get)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/quiz/start", strings.NewReader(`{"count":2}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: %d %s", rec.Code, rec.Body)
	}

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/api/quiz/start", `{"difficulty":"extreme"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/quiz/missing/answer", `{"answer":"x"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/quiz/missing/answer", `{"questionIndex":0,"answer":"x"}`, http.StatusNotFound},
		{http.MethodGet, "/api/quiz/missing", "", http.StatusNotFound},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(c.method, c.path, strings.NewReader(c.body)))
		if rec.Code != c.want {
			t.Errorf("%s %s: %d want %d", c.method, c.path, rec.Code, c.want)
		}
	}
}

var _ WordSource = (*testutil.WordStore)(nil)

type filterSpy struct {
	*testutil.WordStore
	filters []entity.Filter
}

func (s *filterSpy) List(ctx context.Context, f entity.Filter) ([]entity.Word, int, error) {
	s.filters = append(s.filters, f)
	return s.WordStore.List(ctx, f)
}

func TestStartSamplesWholeCatalog(t *testing.T) {
	spy := &filterSpy{WordStore: testutil.NewWordStore(testutil.Syn("big", "large:exact"))}
	svc := NewService(spy, NewMemoryStore(), testutil.Logger())
	if _, err := svc.Start(context.Background(), StartOptions{Difficulty: "medium", Category: "size"}); !errors.Is(err, ErrNoWords) {
		t.Fatalf("category filter: %v", err)
	}
	if _, err := svc.Start(context.Background(), StartOptions{Difficulty: "medium"}); err != nil {
		t.Fatal(err)
	}
	for _, f := range spy.filters {
		if !f.Shuffle || f.Difficulty != "medium" || f.Limit == 0 {
			t.Fatalf("candidates must be a random sample with the quiz filters: %+v", f)
		}
	}
	if spy.filters[0].Category != "size" {
		t.Fatalf("category: %+v", spy.filters[0])
	}
}
