package models

import (
	"errors"
	"time"
)

var (
	// ErrInvalidWord is returned when a word is empty after trimming
	ErrInvalidWord = errors.New("word must be non-empty")
	// ErrDuplicateWord is returned when the word is already saved (case-insensitive)
	ErrDuplicateWord = errors.New("word already saved")
)

// UserProgress tracks one user's reading state
type UserProgress struct {
	UserID               string            `json:"userId"`
	CompletedArticleIDs  []string          `json:"completedArticleIds"`
	InProgressArticleIDs []string          `json:"inProgressArticleIds"`
	TodaysArticleIDs     []string          `json:"todaysArticleIds"`
	LastRefreshAt        *time.Time        `json:"lastRefreshDate"` // nil means never refreshed
	SavedWords           []DictionaryEntry `json:"savedWords"`
	Preferences          GenrePreferences  `json:"preferences"`
}

// NewUserProgress returns an empty record for userID
func NewUserProgress(userID string) *UserProgress {
	return &UserProgress{
		UserID:               userID,
		CompletedArticleIDs:  []string{},
		InProgressArticleIDs: []string{},
		TodaysArticleIDs:     []string{},
		SavedWords:           []DictionaryEntry{},
		Preferences:          GenrePreferences{Genres: []string{}},
	}
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (p *UserProgress) Clone() *UserProgress {
	c := &UserProgress{
		UserID:               p.UserID,
		CompletedArticleIDs:  append([]string{}, p.CompletedArticleIDs...),
		InProgressArticleIDs: append([]string{}, p.InProgressArticleIDs...),
		TodaysArticleIDs:     append([]string{}, p.TodaysArticleIDs...),
		SavedWords:           make([]DictionaryEntry, 0, len(p.SavedWords)),
		Preferences: GenrePreferences{
			Genres:             append([]string{}, p.Preferences.Genres...),
			HasSeenGenreScreen: p.Preferences.HasSeenGenreScreen,
		},
	}
	if p.LastRefreshAt != nil {
		t := *p.LastRefreshAt
		c.LastRefreshAt = &t
	}
	for _, w := range p.SavedWords {
		if w.Context != nil {
			ctx := *w.Context
			w.Context = &ctx
		}
		c.SavedWords = append(c.SavedWords, w)
	}
	return c
}

// IsCompleted reports whether the article is in the completed list
func (p *UserProgress) IsCompleted(articleID string) bool {
	return indexOf(p.CompletedArticleIDs, articleID) >= 0
}

// IsInProgress reports whether the article is in the in-progress list
func (p *UserProgress) IsInProgress(articleID string) bool {
	return indexOf(p.InProgressArticleIDs, articleID) >= 0
}

// MarkInProgress records that the user started reading an article.
// Completed articles are left alone. Returns true if anything changed.
func (p *UserProgress) MarkInProgress(articleID string) bool {
	if p.IsCompleted(articleID) || p.IsInProgress(articleID) {
		return false
	}
	p.InProgressArticleIDs = append(p.InProgressArticleIDs, articleID)
	return true
}

// MarkCompleted moves an article to the completed list
func (p *UserProgress) MarkCompleted(articleID string) bool {
	changed := false
	if !p.IsCompleted(articleID) {
		p.CompletedArticleIDs = append(p.CompletedArticleIDs, articleID)
		changed = true
	}
	var removed bool
	p.InProgressArticleIDs, removed = removeID(p.InProgressArticleIDs, articleID)
	return changed || removed
}

// UnmarkCompleted removes an article from the completed list
func (p *UserProgress) UnmarkCompleted(articleID string) bool {
	var removed bool
	p.CompletedArticleIDs, removed = removeID(p.CompletedArticleIDs, articleID)
	return removed
}

// FindWord returns the index of the saved word with the given id, or -1
func (p *UserProgress) FindWord(id string) int {
	for i, w := range p.SavedWords {
		if w.ID == id {
			return i
		}
	}
	return -1
}

// HasWord reports whether a word is saved, ignoring case
func (p *UserProgress) HasWord(word string) bool {
	key := WordKey(word)
	for _, w := range p.SavedWords {
		if w.Key() == key {
			return true
		}
	}
	return false
}

// AddWord puts a new entry at the front of the saved words
func (p *UserProgress) AddWord(entry DictionaryEntry) error {
	if entry.Key() == "" {
		return ErrInvalidWord
	}
	if p.HasWord(entry.Word) {
		return ErrDuplicateWord
	}
	p.SavedWords = append([]DictionaryEntry{entry}, p.SavedWords...)
	return nil
}

// RemoveWord deletes the entry with id and returns it along with its former position.
func (p *UserProgress) RemoveWord(id string) (DictionaryEntry, int, bool) {
	i := p.FindWord(id)
	if i < 0 {
		return DictionaryEntry{}, -1, false
	}
	entry := p.SavedWords[i]
	p.SavedWords = append(p.SavedWords[:i], p.SavedWords[i+1:]...)
	return entry, i, true
}

// RestoreWord re-inserts a removed entry at position, clamped to the list bounds.
func (p *UserProgress) RestoreWord(entry DictionaryEntry, position int) error {
	if p.HasWord(entry.Word) {
		return ErrDuplicateWord
	}
	if position < 0 {
		position = 0
	}
	if position > len(p.SavedWords) {
		position = len(p.SavedWords)
	}
	p.SavedWords = append(p.SavedWords, DictionaryEntry{})
	copy(p.SavedWords[position+1:], p.SavedWords[position:])
	p.SavedWords[position] = entry
	return nil
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func removeID(ids []string, id string) ([]string, bool) {
	i := indexOf(ids, id)
	if i < 0 {
		return ids, false
	}
	return append(ids[:i], ids[i+1:]...), true
}
