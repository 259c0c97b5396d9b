package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/readdaily/pkg/models"
)

// UserProgressRepository persists one progress record per user
type UserProgressRepository struct {
	db *sqlx.DB
}

// NewUserProgressRepository creates a new repository instance
func NewUserProgressRepository(db *sqlx.DB) *UserProgressRepository {
	return &UserProgressRepository{db: db}
}

// Load returns the stored record for userID, creating an empty one on first access
func (r *UserProgressRepository) Load(ctx context.Context, userID string) (*models.UserProgress, error) {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO user_progress (user_id, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`), userID, now, now)
	if err != nil {
		return nil, fmt.Errorf("%w: create progress for %s: %w", ErrPersistence, userID, err)
	}

	var row progressRow
	err = r.db.GetContext(ctx, &row, r.db.Rebind("SELECT * FROM user_progress WHERE user_id = ?"), userID)
	if err != nil {
		return nil, fmt.Errorf("%w: load progress for %s: %w", ErrPersistence, userID, err)
	}

	var words []wordRow
	err = r.db.SelectContext(ctx, &words, r.db.Rebind(`
		SELECT * FROM saved_words WHERE user_id = ? ORDER BY sort_order ASC
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("%w: load words for %s: %w", ErrPersistence, userID, err)
	}

	progress, err := row.toModel(words)
	if err != nil {
		return nil, fmt.Errorf("%w: decode progress for %s: %w", ErrPersistence, userID, err)
	}
	return progress, nil
}

// Exists reports whether a record has been created for userID
func (r *UserProgressRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind("SELECT COUNT(*) FROM user_progress WHERE user_id = ?"), userID)
	if err != nil {
		return false, fmt.Errorf("%w: check progress for %s: %w", ErrPersistence, userID, err)
	}
	return n > 0, nil
}

// Save replaces the stored record with p in a single transaction
func (r *UserProgressRepository) Save(ctx context.Context, p *models.UserProgress) error {
	row, err := fromModel(p)
	if err != nil {
		return fmt.Errorf("%w: encode progress for %s: %w", ErrPersistence, p.UserID, err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", ErrPersistence, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO user_progress (
			user_id, completed_article_ids, in_progress_article_ids, todays_article_ids,
			last_refresh_at, genres, has_seen_genre_screen, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			completed_article_ids = excluded.completed_article_ids,
			in_progress_article_ids = excluded.in_progress_article_ids,
			todays_article_ids = excluded.todays_article_ids,
			last_refresh_at = excluded.last_refresh_at,
			genres = excluded.genres,
			has_seen_genre_screen = excluded.has_seen_genre_screen,
			updated_at = excluded.updated_at
	`),
		row.UserID,
		row.CompletedArticleIDs,
		row.InProgressArticleIDs,
		row.TodaysArticleIDs,
		row.LastRefreshAt,
		row.Genres,
		row.HasSeenGenreScreen,
		row.CreatedAt,
		row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: save progress for %s: %w", ErrPersistence, p.UserID, err)
	}

	if _, err = tx.ExecContext(ctx, tx.Rebind("DELETE FROM saved_words WHERE user_id = ?"), p.UserID); err != nil {
		return fmt.Errorf("%w: clear words for %s: %w", ErrPersistence, p.UserID, err)
	}

	insert := tx.Rebind(`
		INSERT INTO saved_words (id, user_id, word, word_key, context, added_at, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	for i, w := range p.SavedWords {
		var wordContext sql.NullString
		if w.Context != nil {
			wordContext = sql.NullString{String: *w.Context, Valid: true}
		}
		_, err = tx.ExecContext(ctx, insert, w.ID, p.UserID, w.Word, w.Key(), wordContext, w.DateAdded.UTC(), i)
		if err != nil {
			return fmt.Errorf("%w: save word %q for %s: %w", ErrPersistence, w.Word, p.UserID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit progress for %s: %w", ErrPersistence, p.UserID, err)
	}
	return nil
}

// Delete removes the record and saved words of userID
func (r *UserProgressRepository) Delete(ctx context.Context, userID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", ErrPersistence, err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, tx.Rebind("DELETE FROM saved_words WHERE user_id = ?"), userID); err != nil {
		return fmt.Errorf("%w: delete words for %s: %w", ErrPersistence, userID, err)
	}
	if _, err = tx.ExecContext(ctx, tx.Rebind("DELETE FROM user_progress WHERE user_id = ?"), userID); err != nil {
		return fmt.Errorf("%w: delete progress for %s: %w", ErrPersistence, userID, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit delete for %s: %w", ErrPersistence, userID, err)
	}
	return nil
}

// ListUserIDs returns every user that has a record, oldest first
func (r *UserProgressRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, "SELECT user_id FROM user_progress ORDER BY created_at ASC, user_id ASC")
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %w", ErrPersistence, err)
	}
	return ids, nil
}

func fromModel(p *models.UserProgress) (progressRow, error) {
	row := progressRow{
		UserID:             p.UserID,
		HasSeenGenreScreen: p.Preferences.HasSeenGenreScreen,
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}
	if p.LastRefreshAt != nil {
		row.LastRefreshAt = sql.NullTime{Time: p.LastRefreshAt.UTC(), Valid: true}
	}

	var err error
	if row.CompletedArticleIDs, err = encodeList(p.CompletedArticleIDs); err != nil {
		return row, err
	}
	if row.InProgressArticleIDs, err = encodeList(p.InProgressArticleIDs); err != nil {
		return row, err
	}
	if row.TodaysArticleIDs, err = encodeList(p.TodaysArticleIDs); err != nil {
		return row, err
	}
	if row.Genres, err = encodeList(p.Preferences.Genres); err != nil {
		return row, err
	}
	return row, nil
}

func (row progressRow) toModel(words []wordRow) (*models.UserProgress, error) {
	p := models.NewUserProgress(row.UserID)
	p.Preferences.HasSeenGenreScreen = row.HasSeenGenreScreen
	if row.LastRefreshAt.Valid {
		t := row.LastRefreshAt.Time.UTC()
		p.LastRefreshAt = &t
	}

	var err error
	if p.CompletedArticleIDs, err = decodeList(row.CompletedArticleIDs); err != nil {
		return nil, err
	}
	if p.InProgressArticleIDs, err = decodeList(row.InProgressArticleIDs); err != nil {
		return nil, err
	}
	if p.TodaysArticleIDs, err = decodeList(row.TodaysArticleIDs); err != nil {
		return nil, err
	}
	if p.Preferences.Genres, err = decodeList(row.Genres); err != nil {
		return nil, err
	}

	for _, w := range words {
		entry := models.DictionaryEntry{
			ID:        w.ID,
			Word:      w.Word,
			DateAdded: w.AddedAt.UTC(),
		}
		if w.Context.Valid {
			c := w.Context.String
			entry.Context = &c
		}
		p.SavedWords = append(p.SavedWords, entry)
	}
	return p, nil
}

func encodeList(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList(raw string) ([]string, error) {
	ids := []string{}
	if raw == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("invalid id list %q: %w", raw, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
