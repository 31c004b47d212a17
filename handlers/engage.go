package handlers

import (
	"context"
	"errors"
	"net/http"

	"ripple/engagement"
	"ripple/models"
	"ripple/store"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OwnerResolver looks up who owns an engagement target, for addressing
// notifications.
type OwnerResolver interface {
	OwnerOf(ctx context.Context, id primitive.ObjectID) (primitive.ObjectID, error)
}

// EngageHandler exposes the toggle engine: like, repost and vote on posts,
// follow on users, membership on communities. Every endpoint flips the
// actor's stored state and reports the new one.
type EngageHandler struct {
	engine *engagement.Engine
	owners OwnerResolver
}

func NewEngageHandler(engine *engagement.Engine, owners OwnerResolver) *EngageHandler {
	return &EngageHandler{engine: engine, owners: owners}
}

func (h *EngageHandler) togglePost(c *gin.Context, kind models.RelationKind) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	ownerID, err := h.owners.OwnerOf(ctx, postID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}

	active, err := h.engine.Toggle(ctx, userID, postID, kind, ownerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": active})
}

func (h *EngageHandler) ToggleLike(c *gin.Context) {
	h.togglePost(c, models.KindLike)
}

func (h *EngageHandler) ToggleRepost(c *gin.Context) {
	h.togglePost(c, models.KindRepost)
}

func (h *EngageHandler) ToggleVote(c *gin.Context) {
	var req struct {
		Type models.VoteType `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	vote, err := h.engine.ToggleVote(ctx, userID, postID, req.Type)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vote": vote})
}

func (h *EngageHandler) ToggleFollow(c *gin.Context) {
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

	// The followed user is the notification recipient.
	active, err := h.engine.Toggle(ctx, userID, targetID, models.KindFollow, targetID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": active})
}

func (h *EngageHandler) ToggleMembership(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	communityID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	active, err := h.engine.Toggle(ctx, userID, communityID, models.KindMember, primitive.NilObjectID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": active})
}
