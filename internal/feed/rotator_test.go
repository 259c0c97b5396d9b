package feed

import (
	"context"
	"math/rand/v2"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/example/readdaily/internal/catalog"
	"github.com/example/readdaily/pkg/models"
)

func scenarioCatalog() []models.Article {
	return []models.Article{
		{ID: "1", Genre: "Science"},
		{ID: "2", Genre: "Art"},
		{ID: "3", Genre: "Science"},
		{ID: "4", Genre: "Food"},
	}
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed*31+7))
}

func newTestRotator(seed uint64) *Rotator {
	return &Rotator{DailyCount: 3, Location: time.UTC, Rand: seeded(seed)}
}

func mustCatalog(t *testing.T, articles []models.Article) *catalog.Catalog {
	t.Helper()
	c, err := catalog.FromArticles(articles)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func sortedIDs(articles []models.Article) []string {
	ids := models.ArticleIDs(articles)
	sort.Strings(ids)
	return ids
}

func assertDistinct(t *testing.T, articles []models.Article) {
	t.Helper()
	seen := map[string]bool{}
	for _, a := range articles {
		if seen[a.ID] {
			t.Fatalf("duplicate article %s in %v", a.ID, models.ArticleIDs(articles))
		}
		seen[a.ID] = true
	}
}

func TestSelectDailyGenreFilter(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		got := SelectDaily(scenarioCatalog(), []string{"science"}, 3, seeded(seed))
		if !reflect.DeepEqual(sortedIDs(got), []string{"1", "3"}) {
			t.Fatalf("seed %d: got %v, want permutation of [1 3]", seed, models.ArticleIDs(got))
		}
	}
}

func TestSelectDailyEmptyGenresUsesWholePool(t *testing.T) {
	union := map[string]bool{}
	for seed := uint64(0); seed < 50; seed++ {
		got := SelectDaily(scenarioCatalog(), nil, 3, seeded(seed))
		if len(got) != 3 {
			t.Fatalf("seed %d: expected 3 articles, got %d", seed, len(got))
		}
		assertDistinct(t, got)
		for _, a := range got {
			union[a.ID] = true
		}
	}
	if len(union) != 4 {
		t.Fatalf("expected samples drawn from all 4 articles, saw %v", union)
	}
}

func TestSelectDailyPoolBoundary(t *testing.T) {
	pool := scenarioCatalog()
	for count := 0; count <= 6; count++ {
		got := SelectDaily(pool, nil, count, seeded(uint64(count)))
		want := count
		if want > len(pool) {
			want = len(pool)
		}
		if len(got) != want {
			t.Fatalf("count %d: got %d articles, want %d", count, len(got), want)
		}
		assertDistinct(t, got)
	}
}

func TestSelectDailyEmptyPool(t *testing.T) {
	if got := SelectDaily(nil, []string{"Art"}, 3, seeded(1)); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
	if got := SelectDaily(scenarioCatalog(), []string{"Poetry"}, 3, seeded(1)); len(got) != 0 {
		t.Fatalf("expected empty result for unmatched genre, got %v", got)
	}
}

func TestSelectDailyMatchesGenresCaseInsensitively(t *testing.T) {
	got := SelectDaily(scenarioCatalog(), []string{"ART", "fOoD"}, 3, seeded(3))
	for _, a := range got {
		if !strings.EqualFold(a.Genre, "art") && !strings.EqualFold(a.Genre, "food") {
			t.Fatalf("article %s has genre %s", a.ID, a.Genre)
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(got))
	}
}

func TestSelectDailyDoesNotMutatePool(t *testing.T) {
	pool := scenarioCatalog()
	SelectDaily(pool, nil, 2, seeded(9))
	if !reflect.DeepEqual(models.ArticleIDs(pool), []string{"1", "2", "3", "4"}) {
		t.Fatalf("pool reordered: %v", models.ArticleIDs(pool))
	}
}

func TestIsStaleMidnightBoundary(t *testing.T) {
	r := newTestRotator(1)
	lastNight := time.Date(2025, 7, 8, 23, 59, 0, 0, time.UTC)
	justAfter := time.Date(2025, 7, 9, 0, 1, 0, 0, time.UTC)
	laterSameDay := time.Date(2025, 7, 8, 0, 0, 1, 0, time.UTC)

	if !r.IsStale(nil, justAfter) {
		t.Fatalf("never refreshed must be stale")
	}
	if !r.IsStale(&lastNight, justAfter) {
		t.Fatalf("crossing midnight must be stale even after two minutes")
	}
	if r.IsStale(&laterSameDay, lastNight) {
		t.Fatalf("same calendar day must be fresh even ~24h apart")
	}
}

func TestIsStaleUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	r := &Rotator{Location: tokyo}
	// 23:30 UTC on the 8th is 08:30 on the 9th in Tokyo
	last := time.Date(2025, 7, 8, 23, 30, 0, 0, time.UTC)
	now := time.Date(2025, 7, 9, 2, 0, 0, 0, time.UTC)
	if r.IsStale(&last, now) {
		t.Fatalf("both instants are on the 9th in Tokyo")
	}
	r.Location = time.UTC
	if !r.IsStale(&last, now) {
		t.Fatalf("different UTC days must be stale")
	}
}

func TestEnsureTodaysFeedAssignsAndPersists(t *testing.T) {
	r := newTestRotator(4)
	cat := mustCatalog(t, scenarioCatalog())
	p := models.NewUserProgress("u1")
	now := time.Date(2025, 7, 9, 10, 0, 0, 0, time.UTC)

	got, changed := r.EnsureTodaysFeed(context.Background(), p, cat, now)
	if !changed {
		t.Fatalf("first call must change progress")
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(got))
	}
	if !reflect.DeepEqual(p.TodaysArticleIDs, models.ArticleIDs(got)) {
		t.Fatalf("stored ids %v differ from returned %v", p.TodaysArticleIDs, models.ArticleIDs(got))
	}
	if p.LastRefreshAt == nil || !p.LastRefreshAt.Equal(now) {
		t.Fatalf("lastRefreshAt = %v, want %v", p.LastRefreshAt, now)
	}
}

func TestEnsureTodaysFeedIdempotentSameDay(t *testing.T) {
	r := newTestRotator(5)
	cat := mustCatalog(t, scenarioCatalog())
	p := models.NewUserProgress("u1")
	morning := time.Date(2025, 7, 9, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 7, 9, 22, 0, 0, 0, time.UTC)

	first, _ := r.EnsureTodaysFeed(context.Background(), p, cat, morning)
	second, changed := r.EnsureTodaysFeed(context.Background(), p, cat, evening)
	if changed {
		t.Fatalf("same-day call must not change progress")
	}
	if !reflect.DeepEqual(models.ArticleIDs(first), models.ArticleIDs(second)) {
		t.Fatalf("feed changed within a day: %v vs %v", models.ArticleIDs(first), models.ArticleIDs(second))
	}
	if !p.LastRefreshAt.Equal(morning) {
		t.Fatalf("lastRefreshAt moved to %v", p.LastRefreshAt)
	}
}

func TestEnsureTodaysFeedRefreshesAfterMidnight(t *testing.T) {
	r := newTestRotator(6)
	cat := mustCatalog(t, scenarioCatalog())
	p := models.NewUserProgress("u1")
	last := time.Date(2025, 7, 8, 23, 59, 0, 0, time.UTC)
	p.LastRefreshAt = &last
	p.TodaysArticleIDs = []string{"1", "2", "3"}

	now := time.Date(2025, 7, 9, 0, 1, 0, 0, time.UTC)
	_, changed := r.EnsureTodaysFeed(context.Background(), p, cat, now)
	if !changed {
		t.Fatalf("expected recompute after midnight")
	}
	if !p.LastRefreshAt.Equal(now) {
		t.Fatalf("lastRefreshAt = %v, want %v", p.LastRefreshAt, now)
	}
}

func TestEnsureTodaysFeedEmptyAssignmentFallback(t *testing.T) {
	r := newTestRotator(7)
	cat := mustCatalog(t, scenarioCatalog())
	p := models.NewUserProgress("u1")
	now := time.Date(2025, 7, 9, 12, 0, 0, 0, time.UTC)
	p.LastRefreshAt = &now

	got, changed := r.EnsureTodaysFeed(context.Background(), p, cat, now)
	if !changed || len(got) != 3 {
		t.Fatalf("fresh but empty feed must be recomputed, got %v changed=%v", models.ArticleIDs(got), changed)
	}
}

func TestEnsureTodaysFeedStaleCatalogFallback(t *testing.T) {
	r := newTestRotator(8)
	cat := mustCatalog(t, scenarioCatalog())
	p := models.NewUserProgress("u1")
	now := time.Date(2025, 7, 9, 12, 0, 0, 0, time.UTC)
	p.LastRefreshAt = &now
	p.TodaysArticleIDs = []string{"gone-1", "gone-2"}

	got, changed := r.EnsureTodaysFeed(context.Background(), p, cat, now)
	if !changed || len(got) == 0 {
		t.Fatalf("unresolvable ids must trigger a fresh selection")
	}
	for _, id := range p.TodaysArticleIDs {
		if strings.HasPrefix(id, "gone") {
			t.Fatalf("stale id %s kept", id)
		}
	}
}

func TestEnsureTodaysFeedPartialResolutionKeepsOrder(t *testing.T) {
	r := newTestRotator(9)
	cat := mustCatalog(t, scenarioCatalog())
	p := models.NewUserProgress("u1")
	now := time.Date(2025, 7, 9, 12, 0, 0, 0, time.UTC)
	p.LastRefreshAt = &now
	p.TodaysArticleIDs = []string{"4", "gone", "2"}

	got, changed := r.EnsureTodaysFeed(context.Background(), p, cat, now)
	if changed {
		t.Fatalf("partially resolvable feed should be kept")
	}
	if !reflect.DeepEqual(models.ArticleIDs(got), []string{"4", "2"}) {
		t.Fatalf("got %v, want [4 2]", models.ArticleIDs(got))
	}
}

func TestEnsureTodaysFeedUnavailableCatalog(t *testing.T) {
	r := newTestRotator(10)
	cat := catalog.New(catalog.FileSource{Path: t.TempDir() + "/missing.json"})
	p := models.NewUserProgress("u1")
	now := time.Date(2025, 7, 9, 12, 0, 0, 0, time.UTC)

	got, changed := r.EnsureTodaysFeed(context.Background(), p, cat, now)
	if len(got) != 0 {
		t.Fatalf("expected empty feed, got %v", got)
	}
	if !changed || p.LastRefreshAt == nil {
		t.Fatalf("empty selection is still a refresh")
	}
}

func TestEnsureTodaysFeedHonoursPreferences(t *testing.T) {
	r := newTestRotator(11)
	cat := mustCatalog(t, scenarioCatalog())
	p := models.NewUserProgress("u1")
	p.Preferences.Genres = []string{"science"}

	got, _ := r.EnsureTodaysFeed(context.Background(), p, cat, time.Now())
	if !reflect.DeepEqual(sortedIDs(got), []string{"1", "3"}) {
		t.Fatalf("got %v", models.ArticleIDs(got))
	}
}
