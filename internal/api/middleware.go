package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/readdaily/internal/dictionary"
	"github.com/example/readdaily/internal/reading"
	"github.com/example/readdaily/pkg/models"
)

const (
	userIDHeader = "X-User-ID"
	userIDKey    = "userID"
)

// requireUser rejects requests without an identity
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(userIDHeader))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + userIDHeader + " header"})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// statusFor maps service errors to HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, reading.ErrUnknownArticle),
		errors.Is(err, reading.ErrUnknownWord),
		errors.Is(err, dictionary.ErrWordNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrDuplicateWord):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidWord):
		return http.StatusBadRequest
	case errors.Is(err, reading.ErrUndoExpired):
		return http.StatusGone
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Internal details stay in the log.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Error handling %s %s for %q: %v", c.Request.Method, c.FullPath(), userID(c), err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
