package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Notification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind        RelationKind       `bson:"kind" json:"kind"`
	ActorID     primitive.ObjectID `bson:"actorId" json:"actorId"`
	RecipientID primitive.ObjectID `bson:"recipientId" json:"recipientId"`
	TargetID    primitive.ObjectID `bson:"targetId" json:"targetId"`
	Read        bool               `bson:"read" json:"read"`
	CreatedAt   int64              `bson:"createdAt" json:"createdAt"`
}
