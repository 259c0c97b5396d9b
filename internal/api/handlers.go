package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/readdaily/pkg/models"
)

type preferencesRequest struct {
	Genres             []string `json:"genres"`
	HasSeenGenreScreen bool     `json:"hasSeenGenreScreen"`
}

type addWordRequest struct {
	Word    string `json:"word" binding:"required"`
	Context string `json:"context"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) genres(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"genres": s.svc.Genres(c.Request.Context())})
}

func (s *Server) define(c *gin.Context) {
	if s.dict == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dictionary is not configured"})
		return
	}
	entries, err := s.dict.Lookup(c.Request.Context(), c.Param("word"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) todaysFeed(c *gin.Context) {
	articles, err := s.svc.TodaysFeed(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

func (s *Server) progress(c *gin.Context) {
	p, err := s.svc.Progress(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) setPreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	prefs, err := s.svc.SetPreferences(c.Request.Context(), userID(c), models.GenrePreferences{
		Genres:             req.Genres,
		HasSeenGenreScreen: req.HasSeenGenreScreen,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (s *Server) reset(c *gin.Context) {
	p, err := s.svc.Reset(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) openArticle(c *gin.Context) {
	article, err := s.svc.OpenArticle(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

func (s *Server) markCompleted(c *gin.Context) {
	p, err := s.svc.MarkCompleted(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) unmarkCompleted(c *gin.Context) {
	p, err := s.svc.UnmarkCompleted(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) inProgress(c *gin.Context) {
	articles, err := s.svc.InProgressArticles(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

func (s *Server) completed(c *gin.Context) {
	articles, err := s.svc.CompletedArticles(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

func (s *Server) savedWords(c *gin.Context) {
	words, err := s.svc.SavedWords(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"words": words})
}

func (s *Server) addWord(c *gin.Context) {
	var req addWordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "word is required"})
		return
	}
	entry, err := s.svc.AddWord(c.Request.Context(), userID(c), req.Word, req.Context)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) deleteWord(c *gin.Context) {
	ticket, err := s.svc.DeleteWord(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (s *Server) undoDelete(c *gin.Context) {
	entry, err := s.svc.UndoDelete(c.Request.Context(), userID(c), c.Param("token"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}
