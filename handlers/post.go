package handlers

import (
	"context"
	"log"
	"net/http"

	"ripple/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostStore is the post-side store surface the handler needs; the Mongo and
// in-memory stores both satisfy it.
type PostStore interface {
	Create(ctx context.Context, post *models.Post) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	CastPollVote(ctx context.Context, postID, actorID primitive.ObjectID, option int) (bool, error)
}

type PostHandler struct {
	posts PostStore
}

func NewPostHandler(posts PostStore) *PostHandler {
	return &PostHandler{posts: posts}
}

type CreatePostRequest struct {
	Content     string   `json:"content" binding:"required"`
	Media       []string `json:"media"`
	CommunityID string   `json:"communityId,omitempty"`
	Poll        *struct {
		Question string   `json:"question" binding:"required"`
		Options  []string `json:"options" binding:"required,min=2"`
	} `json:"poll,omitempty"`
}

func (h *PostHandler) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	post := models.Post{
		UserID:  userID,
		Content: req.Content,
		Media:   req.Media,
	}

	if req.CommunityID != "" {
		communityID, err := primitive.ObjectIDFromHex(req.CommunityID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid community ID"})
			return
		}
		post.CommunityID = &communityID
	}

	if req.Poll != nil {
		options := make([]models.PollOption, len(req.Poll.Options))
		for i, text := range req.Poll.Options {
			options[i] = models.PollOption{Text: text, Voters: []primitive.ObjectID{}}
		}
		post.Poll = &models.Poll{Question: req.Poll.Question, Options: options}
	}

	ctx, cancel := requestContext()
	defer cancel()

	if err := h.posts.Create(ctx, &post); err != nil {
		log.Printf("CreatePost error: %v", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Post created successfully",
		"postId":  post.ID.Hex(),
	})
}

func (h *PostHandler) GetPost(c *gin.Context) {
	postID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	post, err := h.posts.Get(ctx, postID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// VotePoll records a single-choice poll vote. A repeated vote by the same
// user, on any option, is answered with the current state and no write.
func (h *PostHandler) VotePoll(c *gin.Context) {
	var req struct {
		Option *int `json:"option" binding:"required"`
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

	voted, err := h.posts.CastPollVote(ctx, postID, userID, *req.Option)
	if err != nil {
		writeError(c, err)
		return
	}

	post, err := h.posts.Get(ctx, postID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voted": voted, "poll": post.Poll})
}
