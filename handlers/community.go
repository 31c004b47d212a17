package handlers

import (
	"errors"
	"net/http"
	"time"

	"ripple/models"
	"ripple/store"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CommunityHandler struct {
	db *mongo.Database
}

func NewCommunityHandler(db *mongo.Database) *CommunityHandler {
	return &CommunityHandler{db: db}
}

type CreateCommunityRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *CommunityHandler) CreateCommunity(c *gin.Context) {
	var req CreateCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	community := models.Community{
		ID:          primitive.NewObjectID(),
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   userID,
		CreatedAt:   time.Now().Unix(),
	}

	if _, err := h.db.Collection(store.CollCommunities).InsertOne(ctx, community); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create community"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Community created",
		"communityId": community.ID.Hex(),
	})
}

func (h *CommunityHandler) ListCommunities(c *gin.Context) {
	ctx, cancel := requestContext()
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "memberCount", Value: -1}}).SetLimit(100)
	cursor, err := h.db.Collection(store.CollCommunities).Find(ctx, bson.M{}, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch communities"})
		return
	}
	defer cursor.Close(ctx)

	var communities []models.Community
	if err := cursor.All(ctx, &communities); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode communities"})
		return
	}
	if communities == nil {
		communities = []models.Community{}
	}
	c.JSON(http.StatusOK, communities)
}

func (h *CommunityHandler) GetCommunity(c *gin.Context) {
	communityID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	var community models.Community
	err := h.db.Collection(store.CollCommunities).FindOne(ctx, bson.M{"_id": communityID}).Decode(&community)
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Community not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, community)
}
