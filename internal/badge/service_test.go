package badge_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vapmail16/synonym-quest-sub000/internal/badge"
	"github.com/vapmail16/synonym-quest-sub000/internal/progress"
	"github.com/vapmail16/synonym-quest-sub000/internal/testutil"
)

func catalog() []badge.Badge {
	return []badge.Badge{
		{Key: "first-word", Name: "First Word", IsActive: true, Criteria: badge.Criteria{Type: badge.CriteriaWordCount, Target: 1}},
		{Key: "ten-words", Name: "Ten Words", IsActive: true, Criteria: badge.Criteria{Type: badge.CriteriaWordCount, Target: 10}},
		{Key: "on-a-roll", Name: "On a Roll", IsActive: true, Criteria: badge.Criteria{Type: badge.CriteriaStreak, Target: 5}},
		{Key: "speller", Name: "Speller", IsActive: true, Criteria: badge.Criteria{Type: badge.CriteriaGameMode, Target: 2, GameType: "spelling"}},
		{Key: "letter-a", Name: "Letter A", IsActive: true, Criteria: badge.Criteria{Type: badge.CriteriaLetterCompletion, Target: 1, Letter: "a"}},
		{Key: "sharp", Name: "Sharp", IsActive: true, Criteria: badge.Criteria{Type: badge.CriteriaAccuracy, Target: 1, MinAccuracy: 90}},
		{Key: "mystery", Name: "Mystery", IsActive: true, Criteria: badge.Criteria{Type: "secret_handshake", Target: 1}},
	}
}

type fixture struct {
	svc      *badge.Service
	catalog  *testutil.BadgeCatalog
	awards   *testutil.AwardStore
	progress *testutil.ProgressStore
}

func newFixture() *fixture {
	f := &fixture{
		catalog:  testutil.NewBadgeCatalog(catalog()...),
		awards:   testutil.NewAwardStore(),
		progress: testutil.NewProgressStore(),
	}
	f.svc = badge.NewService(f.catalog, f.awards, f.progress, nil)
	return f
}

func (f *fixture) learn(userID int64, gameType string, words ...int64) {
	for _, w := range words {
		f.progress.Put(progress.Progress{UserID: userID, WordID: w, GameType: gameType, CorrectCount: 1, MasteryLevel: 2, Streak: 1, BestStreak: 1})
	}
}

func (f *fixture) badgeID(t *testing.T, key string) int64 {
	t.Helper()
	all, _ := f.catalog.FindAll(context.Background(), false)
	for _, b := range all {
		if b.Key == key {
			return b.ID
		}
	}
	t.Fatalf("no badge %q", key)
	return 0
}

func keys(awards []badge.UserBadge) map[string]bool {
	out := map[string]bool{}
	for _, ub := range awards {
		if ub.Badge != nil {
			out[ub.Badge.Key] = true
		}
	}
	return out
}

func TestCheckAndAwardBadgesIsIdempotent(t *testing.T) {
	f := newFixture()
	f.learn(1, "synonym-match", 100)
	ev := badge.Event{Type: badge.EventWordLearned, UserID: 1}
	ctx := context.Background()

	first, err := f.svc.CheckAndAwardBadges(ctx, ev)
	if err != nil {
		t.Fatal(err)
	}
	if got := keys(first); len(got) != 1 || !got["first-word"] {
		t.Fatalf("first check awarded %v", got)
	}
	if first[0].Progress != 100 {
		t.Fatalf("award progress: %d", first[0].Progress)
	}

	second, err := f.svc.CheckAndAwardBadges(ctx, ev)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 0 {
		t.Fatalf("replay must award nothing, got %d", len(second))
	}
	if n, _ := f.awards.Count(ctx, 1); n != 1 {
		t.Fatalf("stored awards: %d", n)
	}
}

func TestCheckAndAwardBadgesEventValues(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	awarded, _ := f.svc.CheckAndAwardBadges(ctx, badge.Event{Type: badge.EventStreakUpdated, UserID: 1, Streak: 4})
	if len(awarded) != 0 {
		t.Fatal("streak 4 must not satisfy a streak-5 badge")
	}
	awarded, _ = f.svc.CheckAndAwardBadges(ctx, badge.Event{Type: badge.EventStreakUpdated, UserID: 1, Streak: 5})
	if got := keys(awarded); !got["on-a-roll"] || len(got) != 1 {
		t.Fatalf("streak awards: %v", got)
	}

	awarded, _ = f.svc.CheckAndAwardBadges(ctx, badge.Event{Type: badge.EventPerfectScore, UserID: 1, Accuracy: 100})
	if got := keys(awarded); !got["sharp"] || len(got) != 1 {
		t.Fatalf("accuracy awards: %v", got)
	}
}

func TestCheckAndAwardBadgesGameMode(t *testing.T) {
	f := newFixture()
	f.learn(1, "spelling", 1)
	f.progress.Put(progress.Progress{UserID: 1, WordID: 2, GameType: "spelling", IncorrectCount: 1})
	awarded, err := f.svc.CheckAndAwardBadges(context.Background(), badge.Event{Type: badge.EventGameCompleted, UserID: 1, GameType: "spelling"})
	if err != nil {
		t.Fatal(err)
	}
	got := keys(awarded)
	if !got["speller"] {
		t.Fatalf("game mode counts any row for the game type: %v", got)
	}
	if !got["first-word"] {
		t.Fatalf("word count should be checked on game completion: %v", got)
	}
}

func TestCheckAndAwardBadgesEvaluatesEveryCriteria(t *testing.T) {
	f := newFixture()
	f.learn(1, "synonym-match", 100)
	awarded, err := f.svc.CheckAndAwardBadges(context.Background(), badge.Event{Type: badge.EventStreakUpdated, UserID: 1, Streak: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got := keys(awarded); len(got) != 1 || !got["first-word"] {
		t.Fatalf("a streak event must still award met word count badges: %v", got)
	}

	f.learn(2, "spelling", 1, 2)
	awarded, err = f.svc.CheckAndAwardBadges(context.Background(), badge.Event{Type: badge.EventPerfectScore, UserID: 2, Accuracy: 100})
	if err != nil {
		t.Fatal(err)
	}
	got := keys(awarded)
	for _, k := range []string{"first-word", "speller", "sharp"} {
		if !got[k] {
			t.Fatalf("perfect score for user 2 missing %s: %v", k, got)
		}
	}
	if got["on-a-roll"] || got["ten-words"] {
		t.Fatalf("unmet badges awarded: %v", got)
	}
}

func TestCheckAndAwardBadgesEmptyEventType(t *testing.T) {
	f := newFixture()
	f.learn(1, "spelling", 1)
	awarded, err := f.svc.CheckAndAwardBadges(context.Background(), badge.Event{UserID: 1})
	if err != nil || awarded == nil || len(awarded) != 0 {
		t.Fatalf("empty type: %#v %v", awarded, err)
	}
}

func TestCheckAndAwardBadgesUnknownEvent(t *testing.T) {
	f := newFixture()
	f.learn(1, "spelling", 1, 2, 3)
	awarded, err := f.svc.CheckAndAwardBadges(context.Background(), badge.Event{Type: "confetti", UserID: 1, Streak: 50})
	if err != nil {
		t.Fatalf("unknown events must not fail: %v", err)
	}
	if awarded == nil || len(awarded) != 0 {
		t.Fatalf("expected empty list, got %#v", awarded)
	}
}

func TestCheckAndAwardBadgesNeverMeetsStubCriteria(t *testing.T) {
	f := newFixture()
	f.learn(1, "spelling", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11)
	awarded, err := f.svc.CheckAndAwardBadges(context.Background(), badge.Event{Type: badge.EventCustom, UserID: 1, Streak: 99, Accuracy: 100})
	if err != nil {
		t.Fatal(err)
	}
	got := keys(awarded)
	if got["letter-a"] || got["mystery"] {
		t.Fatalf("letter completion and unknown criteria must stay unmet: %v", got)
	}
	if !got["ten-words"] || !got["on-a-roll"] {
		t.Fatalf("custom events evaluate everything else: %v", got)
	}
}

func TestCheckAndAwardBadgesDegradesOnAggregateError(t *testing.T) {
	f := newFixture()
	f.progress.Err = errors.New("db down")
	awarded, err := f.svc.CheckAndAwardBadges(context.Background(), badge.Event{Type: badge.EventStreakUpdated, UserID: 1, Streak: 5})
	if err != nil {
		t.Fatalf("streak badges do not read storage: %v", err)
	}
	if !keys(awarded)["on-a-roll"] {
		t.Fatal("streak badge should still be awarded")
	}
	awarded, err = f.svc.CheckAndAwardBadges(context.Background(), badge.Event{Type: badge.EventWordLearned, UserID: 1})
	if err != nil || len(awarded) != 0 {
		t.Fatalf("failed aggregates degrade to not met: %v %v", awarded, err)
	}
}

func TestGetBadgeProgress(t *testing.T) {
	f := newFixture()
	f.learn(1, "synonym-match", 1, 2, 3, 4, 5)
	ctx := context.Background()

	p, err := f.svc.GetBadgeProgress(ctx, 1, f.badgeID(t, "ten-words"))
	if err != nil {
		t.Fatal(err)
	}
	if p != 50 {
		t.Fatalf("5 of 10 words: got %d", p)
	}
	if p, _ := f.svc.GetBadgeProgress(ctx, 1, f.badgeID(t, "letter-a")); p != 0 {
		t.Fatalf("letter completion progress: %d", p)
	}
	if _, err := f.svc.GetBadgeProgress(ctx, 1, 999); !errors.Is(err, badge.ErrBadgeNotFound) {
		t.Fatalf("expected ErrBadgeNotFound, got %v", err)
	}
}

func TestBadgeProgressIsStickyOnceEarned(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.badgeID(t, "ten-words")
	if _, err := f.svc.AwardBadge(ctx, 1, id, nil); err != nil {
		t.Fatal(err)
	}
	p, err := f.svc.GetBadgeProgress(ctx, 1, id)
	if err != nil {
		t.Fatal(err)
	}
	if p != 100 {
		t.Fatalf("earned badge must report 100 with no learned words, got %d", p)
	}
}

func TestGetAllBadgesWithProgress(t *testing.T) {
	f := newFixture()
	f.learn(1, "spelling", 1)
	f.learn(1, "synonym-match", 1, 2, 3, 4)
	ctx := context.Background()
	if _, err := f.svc.AwardBadge(ctx, 1, f.badgeID(t, "first-word"), nil); err != nil {
		t.Fatal(err)
	}

	all, err := f.svc.GetAllBadgesWithProgress(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]int{
		"first-word": 100,
		"ten-words":  40,
		"on-a-roll":  20,
		"speller":    50,
		"letter-a":   0,
		"sharp":      100,
		"mystery":    0,
	}
	if len(all) != len(want) {
		t.Fatalf("got %d badges", len(all))
	}
	for _, wp := range all {
		if wp.Progress != want[wp.Key] {
			t.Errorf("%s: progress=%d want %d", wp.Key, wp.Progress, want[wp.Key])
		}
		if wp.Earned != (wp.Key == "first-word") {
			t.Errorf("%s: earned=%v", wp.Key, wp.Earned)
		}
	}
}

func TestAwardBadge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.badgeID(t, "sharp")

	first, err := f.svc.AwardBadge(ctx, 1, id, badge.Metadata{"reason": "manual"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.svc.AwardBadge(ctx, 1, id, nil)
	if err != nil {
		t.Fatalf("repeat award must not fail: %v", err)
	}
	if first.ID != second.ID || second.Metadata["reason"] != "manual" {
		t.Fatalf("repeat award should return the stored record: %+v vs %+v", first, second)
	}
	if _, err := f.svc.AwardBadge(ctx, 1, 12345, nil); !errors.Is(err, badge.ErrBadgeNotFound) {
		t.Fatalf("expected ErrBadgeNotFound, got %v", err)
	}
}

func TestLoadCatalogEmbedded(t *testing.T) {
	badges, err := badge.LoadCatalog(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(badges) == 0 {
		t.Fatal("embedded catalog is empty")
	}
	for _, b := range badges {
		if b.Criteria.Type == "" || !b.IsActive {
			t.Errorf("%s: criteria=%+v active=%v", b.Key, b.Criteria, b.IsActive)
		}
	}
}

func TestLoadCatalogRejectsDuplicates(t *testing.T) {
	src := []byte(`
badges:
  - {key: a, name: A, criteria: {type: streak, value: 3}}
  - {key: a, name: B, criteria: {type: streak, value: 4}}
`)
	if _, err := badge.LoadCatalog(src); err == nil {
		t.Fatal("expected duplicate key error")
	}
}

func TestSeedCatalogUpserts(t *testing.T) {
	c := testutil.NewBadgeCatalog()
	src := []byte(`
badges:
  - {key: a, name: A, criteria: {type: streak, value: 3}}
  - {key: b, name: B, criteria: {type: accuracy, value: 1, minAccuracy: 80}}
`)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		n, err := badge.SeedCatalog(ctx, c, src)
		if err != nil || n != 2 {
			t.Fatalf("seed run %d: n=%d err=%v", i, n, err)
		}
	}
	all, _ := c.FindAll(ctx, false)
	if len(all) != 2 {
		t.Fatalf("seeding twice must not duplicate: %d", len(all))
	}
	if all[1].Criteria.MinAccuracy != 80 {
		t.Fatalf("minAccuracy: %v", all[1].Criteria.MinAccuracy)
	}
}
