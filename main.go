package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ripple/database"
	"ripple/engagement"
	"ripple/feedcache"
	"ripple/handlers"
	"ripple/notify"
	"ripple/routes"
	"ripple/store"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid %s, using %s", key, fallback)
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("invalid %s, using %d", key, fallback)
	}
	return fallback
}

func main() {
	log.Println("Starting Ripple backend...")

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	// ===== CONNECT TO MONGODB WITH RETRY =====
	var dbErr error
	for i := 1; i <= 3; i++ {
		if err := database.ConnectMongo(); err != nil {
			dbErr = err
			log.Printf("MongoDB connection attempt %d failed: %v", i, err)
			time.Sleep(2 * time.Second)
			continue
		}
		dbErr = nil
		break
	}
	if dbErr != nil {
		log.Fatal("Failed to connect to MongoDB: ", dbErr)
	}
	defer func() {
		if err := database.DisconnectMongo(); err != nil {
			log.Printf("MongoDB disconnect failed: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := database.EnsureIndexes(ctx); err != nil {
		cancel()
		log.Fatal("Failed to ensure indexes: ", err)
	}
	cancel()

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// ===== COMPOSITION ROOT =====
	db := database.DB()
	relations := store.NewRelations(db)
	posts := store.NewPosts(db)
	feed := store.NewPostFeed(db)
	notifications := notify.NewService(db)
	engine := engagement.NewEngine(relations, notifications)

	feedTTL := envDuration("FEED_CACHE_TTL", 60*time.Second)
	feedPageSize := envInt("FEED_PAGE_SIZE", 20)
	cache := feedcache.New(feed, feedTTL, feedPageSize)

	router := routes.SetupRouter(routes.Handlers{
		Auth:          handlers.NewAuthHandler(db),
		Users:         handlers.NewUserHandler(db, engine),
		Posts:         handlers.NewPostHandler(posts),
		Engage:        handlers.NewEngageHandler(engine, posts),
		Feed:          handlers.NewFeedHandler(cache),
		Communities:   handlers.NewCommunityHandler(db),
		Notifications: handlers.NewNotificationHandler(notifications),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server running on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error: ", err)
		}
	}()

	// ===== GRACEFUL SHUTDOWN =====
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("Forced shutdown:", err)
	}

	log.Println("Server stopped gracefully")
}
