// Package reading runs every per-user operation as a locked load, mutate, save sequence.
package reading

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/readdaily/internal/feed"
	"github.com/example/readdaily/internal/userlock"
	"github.com/example/readdaily/pkg/models"
)

// DefaultUndoWindow is how long a deleted word can be restored
const DefaultUndoWindow = 3 * time.Second

var (
	// ErrUnknownArticle is returned for article ids the catalog does not know
	ErrUnknownArticle = errors.New("unknown article")
	// ErrUnknownWord is returned when a saved word id does not exist
	ErrUnknownWord = errors.New("unknown word")
	// ErrUndoExpired is returned when the undo window has closed or the token is unknown
	ErrUndoExpired = errors.New("undo window expired")
)

// DefaultGenres is the genre picker offered before the catalog has been consulted
var DefaultGenres = []string{
	"Science", "Technology", "Fashion", "History", "Architecture",
	"Celebrities", "Travel", "Food", "Art", "Literature",
}

// Store persists user progress
type Store interface {
	Load(ctx context.Context, userID string) (*models.UserProgress, error)
	Save(ctx context.Context, progress *models.UserProgress) error
	Delete(ctx context.Context, userID string) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

// Catalog is the article catalog as used by the service
type Catalog interface {
	feed.Catalog
	Get(ctx context.Context, id string) (models.Article, bool)
	Genres(ctx context.Context) []string
}

// Options tune a Service. Zero values select the defaults.
type Options struct {
	Rotator    *feed.Rotator
	Locker     userlock.Locker
	UndoWindow time.Duration
	Now        func() time.Time
}

// UndoTicket identifies a deleted word that can still be restored
type UndoTicket struct {
	Token     string                 `json:"undoToken"`
	ExpiresAt time.Time              `json:"expiresAt"`
	Word      models.DictionaryEntry `json:"word"`
}

type pendingUndo struct {
	userID    string
	entry     models.DictionaryEntry
	position  int
	expiresAt time.Time
}

// Service exposes the reading operations of a user
type Service struct {
	store      Store
	catalog    Catalog
	rotator    *feed.Rotator
	locker     userlock.Locker
	undoWindow time.Duration
	now        func() time.Time

	mu      sync.Mutex
	pending map[string]pendingUndo
}

// NewService creates a new reading service
func NewService(store Store, catalog Catalog, opts Options) *Service {
	s := &Service{
		store:      store,
		catalog:    catalog,
		rotator:    opts.Rotator,
		locker:     opts.Locker,
		undoWindow: opts.UndoWindow,
		now:        opts.Now,
		pending:    make(map[string]pendingUndo),
	}
	if s.rotator == nil {
		s.rotator = feed.NewRotator()
	}
	if s.locker == nil {
		s.locker = userlock.NewKeyedMutex()
	}
	if s.undoWindow <= 0 {
		s.undoWindow = DefaultUndoWindow
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// update loads the record of userID under its lock, applies fn to a copy
// and saves the copy when fn reports a change.
func (s *Service) update(ctx context.Context, userID string, fn func(p *models.UserProgress) (bool, error)) (*models.UserProgress, error) {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock user %s: %w", userID, err)
	}
	defer unlock()

	stored, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := stored.Clone()
	changed, err := fn(p)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.store.Save(ctx, p); err != nil {
			log.Printf("Error saving progress for %s: %v", userID, err)
			return nil, err
		}
	}
	return p, nil
}

// TodaysFeed returns the articles assigned to userID for the current day,
// rotating the assignment when it is stale.
func (s *Service) TodaysFeed(ctx context.Context, userID string) ([]models.Article, error) {
	var articles []models.Article
	_, err := s.update(ctx, userID, func(p *models.UserProgress) (bool, error) {
		var changed bool
		articles, changed = s.rotator.EnsureTodaysFeed(ctx, p, s.catalog, s.now())
		if changed {
			log.Printf("Assigned %d articles to %s", len(articles), userID)
		}
		return changed, nil
	})
	if err != nil {
		return nil, err
	}
	return articles, nil
}

// CurrentFeed returns today's articles only if userID already has a fresh
// assignment. It never rotates or saves; a stale feed yields nil.
func (s *Service) CurrentFeed(ctx context.Context, userID string) ([]models.Article, error) {
	p, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.rotator.IsStale(p.LastRefreshAt, s.now()) {
		return nil, nil
	}
	return s.catalog.GetByIDs(ctx, p.TodaysArticleIDs), nil
}

// Progress returns the full record of userID
func (s *Service) Progress(ctx context.Context, userID string) (*models.UserProgress, error) {
	return s.update(ctx, userID, func(*models.UserProgress) (bool, error) { return false, nil })
}

// OpenArticle marks the article as being read and returns it
func (s *Service) OpenArticle(ctx context.Context, userID, articleID string) (models.Article, error) {
	article, ok := s.catalog.Get(ctx, articleID)
	if !ok {
		return models.Article{}, fmt.Errorf("%w: %s", ErrUnknownArticle, articleID)
	}
	_, err := s.update(ctx, userID, func(p *models.UserProgress) (bool, error) {
		return p.MarkInProgress(articleID), nil
	})
	if err != nil {
		return models.Article{}, err
	}
	return article, nil
}

// MarkCompleted moves the article to the completed list
func (s *Service) MarkCompleted(ctx context.Context, userID, articleID string) (*models.UserProgress, error) {
	if _, ok := s.catalog.Get(ctx, articleID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownArticle, articleID)
	}
	return s.update(ctx, userID, func(p *models.UserProgress) (bool, error) {
		return p.MarkCompleted(articleID), nil
	})
}

// UnmarkCompleted removes the article from the completed list. Ids the
// catalog no longer carries can still be removed.
func (s *Service) UnmarkCompleted(ctx context.Context, userID, articleID string) (*models.UserProgress, error) {
	return s.update(ctx, userID, func(p *models.UserProgress) (bool, error) {
		if p.UnmarkCompleted(articleID) {
			return true, nil
		}
		if _, ok := s.catalog.Get(ctx, articleID); !ok {
			return false, fmt.Errorf("%w: %s", ErrUnknownArticle, articleID)
		}
		return false, nil
	})
}

// InProgressArticles returns the articles userID has opened but not finished
func (s *Service) InProgressArticles(ctx context.Context, userID string) ([]models.Article, error) {
	p, err := s.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.catalog.GetByIDs(ctx, p.InProgressArticleIDs), nil
}

// CompletedArticles returns the articles userID has finished
func (s *Service) CompletedArticles(ctx context.Context, userID string) ([]models.Article, error) {
	p, err := s.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.catalog.GetByIDs(ctx, p.CompletedArticleIDs), nil
}

// Genres lists the genres a user can pick from
func (s *Service) Genres(ctx context.Context) []string {
	genres := s.catalog.Genres(ctx)
	if len(genres) == 0 {
		return append([]string{}, DefaultGenres...)
	}
	return genres
}

// SetPreferences replaces the genre preferences of userID. Today's feed is
// left alone; the new genres apply from the next rotation.
func (s *Service) SetPreferences(ctx context.Context, userID string, prefs models.GenrePreferences) (models.GenrePreferences, error) {
	p, err := s.update(ctx, userID, func(p *models.UserProgress) (bool, error) {
		p.Preferences = models.GenrePreferences{
			Genres:             models.NormalizeGenres(prefs.Genres),
			HasSeenGenreScreen: prefs.HasSeenGenreScreen,
		}
		return true, nil
	})
	if err != nil {
		return models.GenrePreferences{}, err
	}
	return p.Preferences, nil
}

// ToggleGenre adds or removes a single genre
func (s *Service) ToggleGenre(ctx context.Context, userID, genre string) (models.GenrePreferences, error) {
	p, err := s.update(ctx, userID, func(p *models.UserProgress) (bool, error) {
		return p.Preferences.ToggleGenre(genre), nil
	})
	if err != nil {
		return models.GenrePreferences{}, err
	}
	return p.Preferences, nil
}

// MarkGenreScreenSeen records that the genre picker was shown
func (s *Service) MarkGenreScreenSeen(ctx context.Context, userID string) error {
	_, err := s.update(ctx, userID, func(p *models.UserProgress) (bool, error) {
		if p.Preferences.HasSeenGenreScreen {
			return false, nil
		}
		p.Preferences.HasSeenGenreScreen = true
		return true, nil
	})
	return err
}

// SavedWords returns the saved words of userID, most recent first
func (s *Service) SavedWords(ctx context.Context, userID string) ([]models.DictionaryEntry, error) {
	p, err := s.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.SavedWords, nil
}

// AddWord saves a word with an optional context sentence
func (s *Service) AddWord(ctx context.Context, userID, word, wordContext string) (models.DictionaryEntry, error) {
	entry := models.NewDictionaryEntry(word, wordContext, s.now())
	_, err := s.update(ctx, userID, func(p *models.UserProgress) (bool, error) {
		if err := p.AddWord(entry); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return models.DictionaryEntry{}, err
	}
	return entry, nil
}

// DeleteWord removes a saved word and opens an undo window for it
func (s *Service) DeleteWord(ctx context.Context, userID, wordID string) (UndoTicket, error) {
	var (
		entry    models.DictionaryEntry
		position int
	)
	_, err := s.update(ctx, userID, func(p *models.UserProgress) (bool, error) {
		var ok bool
		entry, position, ok = p.RemoveWord(wordID)
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrUnknownWord, wordID)
		}
		return true, nil
	})
	if err != nil {
		return UndoTicket{}, err
	}

	ticket := UndoTicket{
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.undoWindow),
		Word:      entry,
	}
	s.mu.Lock()
	s.pending[ticket.Token] = pendingUndo{
		userID:    userID,
		entry:     entry,
		position:  position,
		expiresAt: ticket.ExpiresAt,
	}
	s.mu.Unlock()
	return ticket, nil
}

// UndoDelete restores the word removed under token at its former position
func (s *Service) UndoDelete(ctx context.Context, userID, token string) (models.DictionaryEntry, error) {
	s.mu.Lock()
	pending, ok := s.pending[token]
	if ok && pending.userID == userID {
		delete(s.pending, token)
	}
	s.mu.Unlock()

	if !ok || pending.userID != userID || !s.now().Before(pending.expiresAt) {
		return models.DictionaryEntry{}, ErrUndoExpired
	}

	_, err := s.update(ctx, userID, func(p *models.UserProgress) (bool, error) {
		if err := p.RestoreWord(pending.entry, pending.position); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		// A duplicate stays a duplicate; anything else may succeed on retry
		if !errors.Is(err, models.ErrDuplicateWord) {
			s.mu.Lock()
			s.pending[token] = pending
			s.mu.Unlock()
		}
		return models.DictionaryEntry{}, err
	}
	return pending.entry, nil
}

// PurgeExpiredUndo drops closed undo windows and returns how many were removed
func (s *Service) PurgeExpiredUndo() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for token, p := range s.pending {
		if !now.Before(p.expiresAt) {
			delete(s.pending, token)
			n++
		}
	}
	return n
}

// Reset wipes userID and recreates an empty record
func (s *Service) Reset(ctx context.Context, userID string) (*models.UserProgress, error) {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock user %s: %w", userID, err)
	}
	defer unlock()

	if err := s.store.Delete(ctx, userID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	for token, p := range s.pending {
		if p.userID == userID {
			delete(s.pending, token)
		}
	}
	s.mu.Unlock()

	log.Printf("Reset progress for %s", userID)
	return s.store.Load(ctx, userID)
}

// Users returns every known user id
func (s *Service) Users(ctx context.Context) ([]string, error) {
	return s.store.ListUserIDs(ctx)
}
