package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ripple/feedcache"
	"ripple/models"
	"ripple/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func feedRouter(mem *store.Memory, actor primitive.ObjectID, pageSize int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cache := feedcache.New(mem, time.Minute, pageSize)
	feed := NewFeedHandler(cache)

	router := gin.New()
	authed := router.Group("/api")
	authed.Use(func(c *gin.Context) {
		if !actor.IsZero() {
			c.Set("userId", actor.Hex())
		}
		c.Next()
	})
	authed.GET("/feed", feed.GetFeed)
	authed.GET("/feed/next", feed.GetNextFeedPage)
	return router
}

func TestFeedPagination(t *testing.T) {
	mem := store.NewMemory()
	for i := 0; i < 5; i++ {
		mem.AddPost(models.Post{UserID: primitive.NewObjectID(), CreatedAt: int64(100 + i)})
	}
	router := feedRouter(mem, primitive.NewObjectID(), 2)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/feed", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var page feedcache.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)
	require.True(t, page.HasMore)
	require.Equal(t, int64(104), page.Items[0].CreatedAt, "newest first")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/feed/next", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 4)
}

func TestFeedRequiresAuth(t *testing.T) {
	router := feedRouter(store.NewMemory(), primitive.NilObjectID, 10)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/feed", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
