// Package notify is the best-effort notification collaborator: engagement
// events become notification documents for the target's owner. Every
// failure here is logged and swallowed; the consistency of the engagement
// core never depends on this path being available.
package notify

import (
	"context"
	"log"
	"time"

	"ripple/models"
	"ripple/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Service struct {
	db *mongo.Database
}

func NewService(db *mongo.Database) *Service {
	return &Service{db: db}
}

func (s *Service) coll() *mongo.Collection {
	return s.db.Collection(store.CollNotifications)
}

// EngagementCreated records a notification for the recipient. Fire and
// forget.
func (s *Service) EngagementCreated(ctx context.Context, kind models.RelationKind, actorID, recipientID, targetID primitive.ObjectID) {
	n := models.Notification{
		ID:          primitive.NewObjectID(),
		Kind:        kind,
		ActorID:     actorID,
		RecipientID: recipientID,
		TargetID:    targetID,
		CreatedAt:   time.Now().Unix(),
	}
	if _, err := s.coll().InsertOne(ctx, n); err != nil {
		log.Printf("notify: create %s notification failed: %v", kind, err)
	}
}

// EngagementRemoved deletes the notification the matching toggle-on
// created, if it is still present.
func (s *Service) EngagementRemoved(ctx context.Context, kind models.RelationKind, actorID, targetID primitive.ObjectID) {
	filter := bson.M{"kind": kind, "actorId": actorID, "targetId": targetID}
	if _, err := s.coll().DeleteOne(ctx, filter); err != nil {
		log.Printf("notify: delete %s notification failed: %v", kind, err)
	}
}

// ListFor returns the recipient's notifications, newest first.
func (s *Service) ListFor(ctx context.Context, recipientID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	cursor, err := s.coll().Find(ctx, bson.M{"recipientId": recipientID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}
