package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/readdaily/pkg/models"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Connect(Config{Type: "sqlite", SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadCreatesEmptyRecord(t *testing.T) {
	repo := NewUserProgressRepository(setupTestDB(t))
	ctx := context.Background()

	exists, err := repo.Exists(ctx, "alice")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatalf("expected no record before first load")
	}

	p, err := repo.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.UserID != "alice" {
		t.Fatalf("expected user alice, got %q", p.UserID)
	}
	if p.LastRefreshAt != nil {
		t.Fatalf("expected nil last refresh, got %v", p.LastRefreshAt)
	}
	if len(p.CompletedArticleIDs) != 0 || len(p.InProgressArticleIDs) != 0 || len(p.TodaysArticleIDs) != 0 {
		t.Fatalf("expected empty lists, got %+v", p)
	}
	if p.SavedWords == nil || len(p.SavedWords) != 0 {
		t.Fatalf("expected empty non-nil words, got %#v", p.SavedWords)
	}

	// A second load must not create another record
	if _, err := repo.Load(ctx, "alice"); err != nil {
		t.Fatalf("second load: %v", err)
	}
	ids, err := repo.ListUserIDs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 || ids[0] != "alice" {
		t.Fatalf("expected [alice], got %v", ids)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	repo := NewUserProgressRepository(setupTestDB(t))
	ctx := context.Background()

	refreshed := time.Date(2025, 7, 8, 9, 30, 0, 0, time.UTC)
	added := time.Date(2025, 7, 8, 10, 0, 0, 0, time.UTC)

	p := models.NewUserProgress("bob")
	p.CompletedArticleIDs = []string{"sci-001"}
	p.InProgressArticleIDs = []string{"art-002", "food-001"}
	p.TodaysArticleIDs = []string{"sci-001", "art-002", "hist-001"}
	p.LastRefreshAt = &refreshed
	p.Preferences = models.GenrePreferences{Genres: []string{"Science", "Art"}, HasSeenGenreScreen: true}
	if err := p.AddWord(models.NewDictionaryEntry("serendipity", "a happy accident", added)); err != nil {
		t.Fatalf("add word: %v", err)
	}
	if err := p.AddWord(models.NewDictionaryEntry("ephemeral", "", added.Add(time.Minute))); err != nil {
		t.Fatalf("add word: %v", err)
	}

	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.Load(ctx, "bob")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !equalIDs(got.CompletedArticleIDs, p.CompletedArticleIDs) {
		t.Fatalf("completed: got %v want %v", got.CompletedArticleIDs, p.CompletedArticleIDs)
	}
	if !equalIDs(got.InProgressArticleIDs, p.InProgressArticleIDs) {
		t.Fatalf("in progress: got %v want %v", got.InProgressArticleIDs, p.InProgressArticleIDs)
	}
	if !equalIDs(got.TodaysArticleIDs, p.TodaysArticleIDs) {
		t.Fatalf("todays: got %v want %v", got.TodaysArticleIDs, p.TodaysArticleIDs)
	}
	if got.LastRefreshAt == nil || !got.LastRefreshAt.Equal(refreshed) {
		t.Fatalf("last refresh: got %v want %v", got.LastRefreshAt, refreshed)
	}
	if !equalIDs(got.Preferences.Genres, []string{"Science", "Art"}) || !got.Preferences.HasSeenGenreScreen {
		t.Fatalf("preferences: got %+v", got.Preferences)
	}

	if len(got.SavedWords) != 2 {
		t.Fatalf("expected 2 words, got %d", len(got.SavedWords))
	}
	// Newest first, as saved
	if got.SavedWords[0].Word != "ephemeral" || got.SavedWords[1].Word != "serendipity" {
		t.Fatalf("unexpected word order: %v, %v", got.SavedWords[0].Word, got.SavedWords[1].Word)
	}
	if got.SavedWords[0].Context != nil {
		t.Fatalf("expected nil context, got %q", *got.SavedWords[0].Context)
	}
	if got.SavedWords[1].Context == nil || *got.SavedWords[1].Context != "a happy accident" {
		t.Fatalf("unexpected context: %v", got.SavedWords[1].Context)
	}
	if got.SavedWords[1].ID != p.SavedWords[1].ID {
		t.Fatalf("word id changed: %s != %s", got.SavedWords[1].ID, p.SavedWords[1].ID)
	}
	if !got.SavedWords[1].DateAdded.Equal(added) {
		t.Fatalf("date added: got %v want %v", got.SavedWords[1].DateAdded, added)
	}
}

func TestSaveReplacesWords(t *testing.T) {
	repo := NewUserProgressRepository(setupTestDB(t))
	ctx := context.Background()

	p, err := repo.Load(ctx, "carol")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	now := time.Now()
	for _, w := range []string{"alpha", "beta", "gamma"} {
		if err := p.AddWord(models.NewDictionaryEntry(w, "", now)); err != nil {
			t.Fatalf("add %s: %v", w, err)
		}
	}
	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}

	removed, pos, ok := p.RemoveWord(p.SavedWords[1].ID)
	if !ok || removed.Word != "beta" || pos != 1 {
		t.Fatalf("unexpected removal: %v %d %v", removed.Word, pos, ok)
	}
	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("save after remove: %v", err)
	}

	got, err := repo.Load(ctx, "carol")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.SavedWords) != 2 || got.SavedWords[0].Word != "gamma" || got.SavedWords[1].Word != "alpha" {
		t.Fatalf("unexpected words after removal: %+v", got.SavedWords)
	}

	// Re-adding a removed word under the same id at its old position must work
	if err := got.RestoreWord(removed, pos); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("save after restore: %v", err)
	}
	got, err = repo.Load(ctx, "carol")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.SavedWords) != 3 || got.SavedWords[1].Word != "beta" {
		t.Fatalf("unexpected words after restore: %+v", got.SavedWords)
	}
}

func TestDeleteRemovesEverything(t *testing.T) {
	repo := NewUserProgressRepository(setupTestDB(t))
	ctx := context.Background()

	p, err := repo.Load(ctx, "dave")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p.MarkCompleted("sci-001")
	if err := p.AddWord(models.NewDictionaryEntry("quixotic", "", time.Now())); err != nil {
		t.Fatalf("add word: %v", err)
	}
	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := repo.Delete(ctx, "dave"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	exists, err := repo.Exists(ctx, "dave")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatalf("expected record to be gone")
	}

	fresh, err := repo.Load(ctx, "dave")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(fresh.CompletedArticleIDs) != 0 || len(fresh.SavedWords) != 0 {
		t.Fatalf("expected fresh record, got %+v", fresh)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	repo := NewUserProgressRepository(setupTestDB(t))
	ctx := context.Background()

	a, _ := repo.Load(ctx, "a")
	b, _ := repo.Load(ctx, "b")
	a.MarkCompleted("x")
	if err := a.AddWord(models.NewDictionaryEntry("shared", "", time.Now())); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.AddWord(models.NewDictionaryEntry("Shared", "", time.Now())); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := repo.Save(ctx, a); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := repo.Save(ctx, b); err != nil {
		t.Fatalf("save b: %v", err)
	}

	gotB, err := repo.Load(ctx, "b")
	if err != nil {
		t.Fatalf("load b: %v", err)
	}
	if len(gotB.CompletedArticleIDs) != 0 {
		t.Fatalf("b should not see a's progress: %v", gotB.CompletedArticleIDs)
	}
	if len(gotB.SavedWords) != 1 || gotB.SavedWords[0].Word != "Shared" {
		t.Fatalf("unexpected words for b: %+v", gotB.SavedWords)
	}
}

func TestClosedDatabaseReturnsPersistenceError(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserProgressRepository(db)
	db.Close()

	_, err := repo.Load(context.Background(), "eve")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if err := repo.Save(context.Background(), models.NewUserProgress("eve")); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence from save, got %v", err)
	}
}

func TestConnectRejectsUnknownType(t *testing.T) {
	if _, err := Connect(Config{Type: "mysql"}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := Connect(Config{Type: "postgres"}); err == nil {
		t.Fatalf("expected error for postgres without url")
	}
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
