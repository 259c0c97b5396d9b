package database

import (
	"database/sql"
	"time"
)

// progressRow mirrors the user_progress table. Id lists are JSON arrays.
type progressRow struct {
	UserID               string       `db:"user_id"`
	CompletedArticleIDs  string       `db:"completed_article_ids"`
	InProgressArticleIDs string       `db:"in_progress_article_ids"`
	TodaysArticleIDs     string       `db:"todays_article_ids"`
	LastRefreshAt        sql.NullTime `db:"last_refresh_at"`
	Genres               string       `db:"genres"`
	HasSeenGenreScreen   bool         `db:"has_seen_genre_screen"`
	CreatedAt            time.Time    `db:"created_at"`
	UpdatedAt            time.Time    `db:"updated_at"`
}

// wordRow mirrors the saved_words table
type wordRow struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	Word      string         `db:"word"`
	WordKey   string         `db:"word_key"`
	Context   sql.NullString `db:"context"`
	AddedAt   time.Time      `db:"added_at"`
	SortOrder int            `db:"sort_order"`
}
