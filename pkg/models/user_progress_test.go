package models

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestMarkCompletedRemovesFromInProgress(t *testing.T) {
	p := NewUserProgress("u1")
	p.MarkInProgress("a")
	p.MarkInProgress("b")

	if !p.MarkCompleted("a") {
		t.Fatalf("expected change")
	}
	if !reflect.DeepEqual(p.InProgressArticleIDs, []string{"b"}) {
		t.Fatalf("in progress = %v, want [b]", p.InProgressArticleIDs)
	}
	if !reflect.DeepEqual(p.CompletedArticleIDs, []string{"a"}) {
		t.Fatalf("completed = %v, want [a]", p.CompletedArticleIDs)
	}
	if p.MarkCompleted("a") {
		t.Fatalf("second MarkCompleted should be a no-op")
	}
}

func TestMarkInProgressNoDuplicates(t *testing.T) {
	p := NewUserProgress("u1")
	p.MarkInProgress("a")
	p.MarkInProgress("a")
	if len(p.InProgressArticleIDs) != 1 {
		t.Fatalf("expected 1 id, got %v", p.InProgressArticleIDs)
	}

	p.MarkCompleted("c")
	if p.MarkInProgress("c") {
		t.Fatalf("completed article should not return to in-progress")
	}
}

func TestUnmarkCompleted(t *testing.T) {
	p := NewUserProgress("u1")
	p.MarkCompleted("a")
	if !p.UnmarkCompleted("a") {
		t.Fatalf("expected removal")
	}
	if p.UnmarkCompleted("a") {
		t.Fatalf("expected no-op")
	}
	if len(p.CompletedArticleIDs) != 0 {
		t.Fatalf("completed = %v", p.CompletedArticleIDs)
	}
}

func TestAddWordCaseInsensitive(t *testing.T) {
	p := NewUserProgress("u1")
	now := time.Now()
	if err := p.AddWord(NewDictionaryEntry("Serendipity", "", now)); err != nil {
		t.Fatalf("add: %v", err)
	}
	err := p.AddWord(NewDictionaryEntry("  serendipity ", "ctx", now))
	if !errors.Is(err, ErrDuplicateWord) {
		t.Fatalf("expected ErrDuplicateWord, got %v", err)
	}
	if err := p.AddWord(NewDictionaryEntry("   ", "", now)); !errors.Is(err, ErrInvalidWord) {
		t.Fatalf("expected ErrInvalidWord, got %v", err)
	}
	if err := p.AddWord(NewDictionaryEntry("ephemeral", "", now)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if p.SavedWords[0].Word != "ephemeral" {
		t.Fatalf("newest word should be first, got %q", p.SavedWords[0].Word)
	}
}

func TestRemoveAndRestoreWord(t *testing.T) {
	p := NewUserProgress("u1")
	now := time.Now()
	for _, w := range []string{"c", "b", "a"} {
		if err := p.AddWord(NewDictionaryEntry(w, "", now)); err != nil {
			t.Fatalf("add %s: %v", w, err)
		}
	}
	id := p.SavedWords[1].ID
	entry, pos, ok := p.RemoveWord(id)
	if !ok || pos != 1 || entry.Word != "b" {
		t.Fatalf("remove = %+v %d %v", entry, pos, ok)
	}
	if err := p.RestoreWord(entry, pos); err != nil {
		t.Fatalf("restore: %v", err)
	}
	var words []string
	for _, w := range p.SavedWords {
		words = append(words, w.Word)
	}
	if !reflect.DeepEqual(words, []string{"a", "b", "c"}) {
		t.Fatalf("words = %v", words)
	}
	if err := p.RestoreWord(entry, 0); !errors.Is(err, ErrDuplicateWord) {
		t.Fatalf("expected duplicate on second restore, got %v", err)
	}
}

func TestNewDictionaryEntryBlankContext(t *testing.T) {
	e := NewDictionaryEntry(" word ", "  ", time.Now())
	if e.Context != nil {
		t.Fatalf("expected nil context")
	}
	if e.Word != "word" || e.ID == "" {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := NewUserProgress("u1")
	now := time.Now()
	p.LastRefreshAt = &now
	p.MarkInProgress("a")
	p.AddWord(NewDictionaryEntry("w", "ctx", now))

	c := p.Clone()
	c.MarkCompleted("a")
	*c.SavedWords[0].Context = "changed"
	later := now.Add(time.Hour)
	c.LastRefreshAt = &later

	if !p.IsInProgress("a") || p.IsCompleted("a") {
		t.Fatalf("original mutated: %+v", p)
	}
	if *p.SavedWords[0].Context != "ctx" {
		t.Fatalf("original context mutated")
	}
	if !p.LastRefreshAt.Equal(now) {
		t.Fatalf("original timestamp mutated")
	}
}

func TestGenrePreferences(t *testing.T) {
	prefs := GenrePreferences{Genres: NormalizeGenres([]string{" Science", "science", "", "Art"})}
	if !reflect.DeepEqual(prefs.Genres, []string{"Science", "Art"}) {
		t.Fatalf("genres = %v", prefs.Genres)
	}
	if !prefs.Matches("SCIENCE") || prefs.Matches("Food") {
		t.Fatalf("unexpected match result")
	}
	prefs.ToggleGenre("art")
	prefs.ToggleGenre("Food")
	if !reflect.DeepEqual(prefs.Genres, []string{"Science", "Food"}) {
		t.Fatalf("genres after toggle = %v", prefs.Genres)
	}
	if prefs.ToggleGenre("   ") || prefs.ToggleGenre("") {
		t.Fatal("blank genre must not change preferences")
	}
	if !prefs.ToggleGenre(" Travel ") || !reflect.DeepEqual(prefs.Genres, []string{"Science", "Food", "Travel"}) {
		t.Fatalf("genres after trimmed toggle = %v", prefs.Genres)
	}
}
