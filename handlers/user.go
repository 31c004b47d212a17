package handlers

import (
	"errors"
	"net/http"

	"ripple/engagement"
	"ripple/models"
	"ripple/store"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserHandler struct {
	db     *mongo.Database
	engine *engagement.Engine
}

func NewUserHandler(db *mongo.Database, engine *engagement.Engine) *UserHandler {
	return &UserHandler{db: db, engine: engine}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	var user models.User
	err := h.db.Collection(store.CollUsers).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetUser returns a profile with its denormalized counters plus whether the
// requesting user follows it.
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	targetID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	var user models.User
	err := h.db.Collection(store.CollUsers).FindOne(ctx, bson.M{"_id": targetID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	following := false
	if userID != targetID {
		if f, err := h.engine.IsActive(ctx, userID, targetID, models.KindFollow); err == nil {
			following = f
		}
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "following": following})
}
