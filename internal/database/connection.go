package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ErrPersistence wraps every failure of the underlying store
var ErrPersistence = errors.New("persistence error")

// Config selects the database driver and location
type Config struct {
	// Type is "sqlite" or "postgres"
	Type string
	// URL is the postgres connection string
	URL string
	// SQLitePath is the database file used for sqlite, ":memory:" is allowed
	SQLitePath string
}

// Connect opens the database described by cfg and creates the schema
func Connect(cfg Config) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch cfg.Type {
	case "postgres":
		if cfg.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for postgres")
		}
		db, err = sqlx.Connect("postgres", cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
	case "", "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = filepath.Join("data", "readdaily.db")
		}
		if path != ":memory:" {
			// Create data directory if it doesn't exist
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		db, err = sqlx.Connect("sqlite3", path)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers, and each :memory:
		// connection would otherwise get its own database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q (valid: sqlite, postgres)", cfg.Type)
	}

	if err := InitializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS user_progress (
		user_id TEXT PRIMARY KEY,
		completed_article_ids TEXT NOT NULL DEFAULT '[]',
		in_progress_article_ids TEXT NOT NULL DEFAULT '[]',
		todays_article_ids TEXT NOT NULL DEFAULT '[]',
		last_refresh_at TIMESTAMP NULL,
		genres TEXT NOT NULL DEFAULT '[]',
		has_seen_genre_screen BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS saved_words (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		word TEXT NOT NULL,
		word_key TEXT NOT NULL,
		context TEXT NULL,
		added_at TIMESTAMP NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (user_id) REFERENCES user_progress(user_id) ON DELETE CASCADE,
		UNIQUE(user_id, word_key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_saved_words_user ON saved_words(user_id, sort_order)`,
}

// InitializeSchema creates necessary tables if they don't exist
func InitializeSchema(db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}
