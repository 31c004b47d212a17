package handlers

import (
	"net/http"

	"ripple/feedcache"
	"ripple/models"

	"github.com/gin-gonic/gin"
)

// FeedHandler serves paginated post feeds through the cache: page one hits
// the cache (fresh, stale-while-revalidate, or forced), continuation pages
// extend the scope's in-memory list.
type FeedHandler struct {
	cache *feedcache.Cache
}

func NewFeedHandler(cache *feedcache.Cache) *FeedHandler {
	return &FeedHandler{cache: cache}
}

func feedScope(c *gin.Context) string {
	scope := c.Query("scope")
	if scope == "" {
		return models.FeedScopeAll
	}
	return scope
}

func (h *FeedHandler) GetFeed(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	force := c.Query("refresh") == "1"
	page, err := h.cache.GetPage(ctx, feedScope(c), force)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *FeedHandler) GetNextFeedPage(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	page, err := h.cache.GetNextPage(ctx, feedScope(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
