package database

import (
	"context"
	"log"
	"os"
	"time"

	"ripple/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var Client *mongo.Client

const Name = "ripple"

func ConnectMongo() error {
	// Read MongoDB URI from environment variable
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		log.Println("MONGODB_URI not set, using default localhost")
		uri = "mongodb://127.0.0.1:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var err error
	Client, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return err
	}

	// Ping MongoDB
	if err := Client.Ping(ctx, nil); err != nil {
		return err
	}

	log.Println("Connected to MongoDB successfully")
	return nil
}

// DB returns the application database handle.
func DB() *mongo.Database {
	return Client.Database(Name)
}

// EnsureIndexes provisions the indexes the query paths rely on. The feed
// has a client-side fallback when the composite index is missing, but that
// fallback scans the collection; this is the real fix.
func EnsureIndexes(ctx context.Context) error {
	db := DB()

	// Feed: scoped, ordered by (createdAt desc, _id desc).
	_, err := db.Collection(store.CollPosts).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "communityId", Value: 1},
			{Key: "createdAt", Value: -1},
			{Key: "_id", Value: -1},
		},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(store.CollNotifications).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "recipientId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
	})
	if err != nil {
		return err
	}

	// Notification removal is addressed by (kind, actor, target).
	_, err = db.Collection(store.CollNotifications).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "kind", Value: 1},
			{Key: "actorId", Value: 1},
			{Key: "targetId", Value: 1},
		},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(store.CollUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func DisconnectMongo() error {
	if Client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := Client.Disconnect(ctx); err != nil {
		return err
	}

	log.Println("Disconnected from MongoDB")
	return nil
}
