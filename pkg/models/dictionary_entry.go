package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DictionaryEntry is a word the user saved while reading
type DictionaryEntry struct {
	ID        string    `json:"id" db:"id"`
	Word      string    `json:"word" db:"word"`
	Context   *string   `json:"context" db:"context"` // nullable
	DateAdded time.Time `json:"dateAdded" db:"added_at"`
}

// NewDictionaryEntry creates an entry with a fresh id. A blank context is stored as nil.
func NewDictionaryEntry(word, context string, addedAt time.Time) DictionaryEntry {
	entry := DictionaryEntry{
		ID:        uuid.NewString(),
		Word:      strings.TrimSpace(word),
		DateAdded: addedAt,
	}
	if c := strings.TrimSpace(context); c != "" {
		entry.Context = &c
	}
	return entry
}

// Key is the case-insensitive identity of the word
func (e DictionaryEntry) Key() string {
	return WordKey(e.Word)
}

// WordKey normalizes a word for uniqueness checks
func WordKey(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}
