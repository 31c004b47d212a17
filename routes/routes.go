package routes

import (
	"time"

	"ripple/handlers"
	"ripple/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers bundles the constructed handler set for the router.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Users         *handlers.UserHandler
	Posts         *handlers.PostHandler
	Engage        *handlers.EngageHandler
	Feed          *handlers.FeedHandler
	Communities   *handlers.CommunityHandler
	Notifications *handlers.NotificationHandler
}

func SetupRouter(h Handlers) *gin.Engine {
	router := gin.Default()

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:8080", "http://127.0.0.1:8080", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Public routes (no auth required)
	authLimiter := middleware.NewIPRateLimiter(10, time.Minute)
	router.POST("/api/signup", middleware.RateLimit(authLimiter), h.Auth.Signup)
	router.POST("/api/login", middleware.RateLimit(authLimiter), h.Auth.Login)

	// Protected routes group
	protected := router.Group("/api")
	protected.Use(middleware.JWTAuthMiddleware())

	// Profiles
	protected.GET("/me", h.Users.GetMe)
	protected.GET("/users/:id", h.Users.GetUser)

	// Posts
	protected.POST("/posts", h.Posts.CreatePost)
	protected.GET("/posts/:id", h.Posts.GetPost)
	protected.POST("/posts/:id/poll/vote", h.Posts.VotePoll)

	// Feed
	protected.GET("/feed", h.Feed.GetFeed)
	protected.GET("/feed/next", h.Feed.GetNextFeedPage)

	// Engagement toggles, rate limited as a group
	toggleLimiter := middleware.NewIPRateLimiter(60, time.Minute)
	toggles := protected.Group("")
	toggles.Use(middleware.RateLimit(toggleLimiter))
	toggles.POST("/posts/:id/like", h.Engage.ToggleLike)
	toggles.POST("/posts/:id/repost", h.Engage.ToggleRepost)
	toggles.POST("/posts/:id/vote", h.Engage.ToggleVote)
	toggles.POST("/users/:id/follow", h.Engage.ToggleFollow)
	toggles.POST("/communities/:id/join", h.Engage.ToggleMembership)

	// Communities
	protected.POST("/communities", h.Communities.CreateCommunity)
	protected.GET("/communities", h.Communities.ListCommunities)
	protected.GET("/communities/:id", h.Communities.GetCommunity)

	// Notifications
	protected.GET("/notifications", h.Notifications.ListNotifications)

	router.NoRoute(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 4 && c.Request.URL.Path[:4] == "/api" {
			c.JSON(404, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.Next()
	})

	return router
}
