package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ripple/engagement"
	"ripple/store"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const requestTimeout = 10 * time.Second

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// currentUserID resolves the acting user set by the auth middleware. A
// missing or malformed id answers 401 and aborts the handler.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, err := primitive.ObjectIDFromHex(c.GetString("userId"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID"})
		return primitive.NilObjectID, false
	}
	return userID, true
}

func pathObjectID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param})
		return primitive.NilObjectID, false
	}
	return id, true
}

// writeError maps the engagement/store taxonomy onto HTTP statuses. Store
// unavailability is the one retryable condition; the client is expected to
// re-trigger the action.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engagement.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
	case errors.Is(err, engagement.ErrSelfReference):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Action cannot target yourself"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, store.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Temporarily unavailable", "retryable": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
