package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/example/readdaily/internal/dictionary"
	"github.com/example/readdaily/internal/reading"
	"github.com/example/readdaily/pkg/models"
)

// ReadingService is the part of reading.Service the API exposes
type ReadingService interface {
	TodaysFeed(ctx context.Context, userID string) ([]models.Article, error)
	Progress(ctx context.Context, userID string) (*models.UserProgress, error)
	Genres(ctx context.Context) []string
	SetPreferences(ctx context.Context, userID string, prefs models.GenrePreferences) (models.GenrePreferences, error)
	OpenArticle(ctx context.Context, userID, articleID string) (models.Article, error)
	MarkCompleted(ctx context.Context, userID, articleID string) (*models.UserProgress, error)
	UnmarkCompleted(ctx context.Context, userID, articleID string) (*models.UserProgress, error)
	InProgressArticles(ctx context.Context, userID string) ([]models.Article, error)
	CompletedArticles(ctx context.Context, userID string) ([]models.Article, error)
	SavedWords(ctx context.Context, userID string) ([]models.DictionaryEntry, error)
	AddWord(ctx context.Context, userID, word, wordContext string) (models.DictionaryEntry, error)
	DeleteWord(ctx context.Context, userID, wordID string) (reading.UndoTicket, error)
	UndoDelete(ctx context.Context, userID, token string) (models.DictionaryEntry, error)
	Reset(ctx context.Context, userID string) (*models.UserProgress, error)
}

// Definer looks up word definitions
type Definer interface {
	Lookup(ctx context.Context, word string) ([]dictionary.Entry, error)
}

// Server wires the HTTP routes to the reading service
type Server struct {
	svc  ReadingService
	dict Definer
}

// NewServer creates a new API server instance
func NewServer(svc ReadingService, dict Definer) *Server {
	return &Server{svc: svc, dict: dict}
}

// NewRouter constructs a Gin engine with registered routes.
// allowedOrigins enables CORS for browser clients when non-empty.
func (s *Server) NewRouter(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	if len(allowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: allowedOrigins,
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", userIDHeader},
		}))
	}

	r.GET("/health", s.health)
	r.GET("/genres", s.genres)
	r.GET("/definitions/:word", s.define)

	me := r.Group("/me", requireUser())
	me.GET("/feed", s.todaysFeed)
	me.GET("/progress", s.progress)
	me.PUT("/preferences", s.setPreferences)
	me.DELETE("", s.reset)

	me.POST("/articles/:id/open", s.openArticle)
	me.POST("/articles/:id/complete", s.markCompleted)
	me.DELETE("/articles/:id/complete", s.unmarkCompleted)
	me.GET("/articles/in-progress", s.inProgress)
	me.GET("/articles/completed", s.completed)

	me.GET("/words", s.savedWords)
	me.POST("/words", s.addWord)
	me.DELETE("/words/:id", s.deleteWord)
	me.POST("/words/undo/:token", s.undoDelete)

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string, allowedOrigins []string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.NewRouter(allowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Println("Stopping HTTP API...")
	return srv.Shutdown(shutdownCtx)
}
