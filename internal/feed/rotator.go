package feed

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/example/readdaily/pkg/models"
)

// DefaultDailyCount is the number of articles assigned per day
const DefaultDailyCount = 3

// Catalog is the part of the article catalog the rotator reads
type Catalog interface {
	LoadAll(ctx context.Context) ([]models.Article, error)
	GetByIDs(ctx context.Context, ids []string) []models.Article
}

// Shuffler randomizes element order. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type globalShuffler struct{}

func (globalShuffler) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// Rotator decides when a user's daily feed is stale and picks a new one
type Rotator struct {
	DailyCount int
	// Location defines the calendar day boundary
	Location *time.Location
	// Rand must be safe for concurrent use when the rotator is shared
	Rand Shuffler
}

// NewRotator creates a rotator with the default count, local time and a
// non-deterministic random source.
func NewRotator() *Rotator {
	return &Rotator{
		DailyCount: DefaultDailyCount,
		Location:   time.Local,
		Rand:       globalShuffler{},
	}
}

// IsStale reports whether a feed refreshed at last must be recomputed at now.
// Staleness follows calendar days in r.Location, not a rolling 24h window.
func (r *Rotator) IsStale(last *time.Time, now time.Time) bool {
	if last == nil {
		return true
	}
	return !SameDay(*last, now, r.location())
}

// EnsureTodaysFeed returns today's articles for progress, selecting a new set
// when the stored one is stale, empty or no longer resolvable. The second
// result is true when progress was modified and needs saving.
func (r *Rotator) EnsureTodaysFeed(ctx context.Context, progress *models.UserProgress, catalog Catalog, now time.Time) ([]models.Article, bool) {
	if !r.IsStale(progress.LastRefreshAt, now) && len(progress.TodaysArticleIDs) > 0 {
		articles := catalog.GetByIDs(ctx, progress.TodaysArticleIDs)
		if len(articles) > 0 {
			return articles, false
		}
	}

	// Catalog errors are logged by the catalog and degrade to an empty pool
	pool, _ := catalog.LoadAll(ctx)
	selected := SelectDaily(pool, progress.Preferences.Genres, r.dailyCount(), r.shuffler())

	refreshedAt := now
	progress.TodaysArticleIDs = models.ArticleIDs(selected)
	progress.LastRefreshAt = &refreshedAt
	return selected, true
}

// SelectDaily picks up to count distinct articles from pool in random order.
// With no genres the whole pool is eligible; otherwise only articles whose
// genre matches one of genres, ignoring case.
func SelectDaily(pool []models.Article, genres []string, count int, rng Shuffler) []models.Article {
	prefs := models.GenrePreferences{Genres: genres}
	candidates := make([]models.Article, 0, len(pool))
	for _, a := range pool {
		if len(genres) == 0 || prefs.Matches(a.Genre) {
			candidates = append(candidates, a)
		}
	}
	if rng == nil {
		rng = globalShuffler{}
	}
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if count >= 0 && len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates
}

// SameDay reports whether a and b fall on the same calendar day in loc
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

func (r *Rotator) location() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}

func (r *Rotator) dailyCount() int {
	if r.DailyCount <= 0 {
		return DefaultDailyCount
	}
	return r.DailyCount
}

func (r *Rotator) shuffler() Shuffler {
	if r.Rand == nil {
		return globalShuffler{}
	}
	return r.Rand
}
