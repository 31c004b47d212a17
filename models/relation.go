package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RelationKind names the namespace a relation document lives in. Each kind
// maps to its own collection, so the composite key only has to be unique
// per (actor, target) within a kind.
type RelationKind string

const (
	KindLike   RelationKind = "like"   // user -> post
	KindFollow RelationKind = "follow" // user -> user
	KindVote   RelationKind = "vote"   // user -> post, carries a mutable vote type
	KindMember RelationKind = "member" // user -> community
	KindRepost RelationKind = "repost" // user -> post
)

// VoteType is the mutable payload of a vote relation. Empty means no vote,
// which is never stored as a document.
type VoteType string

const (
	VoteNone     VoteType = ""
	VoteAgree    VoteType = "agree"
	VoteDisagree VoteType = "disagree"
)

// Relation is one actor's directed association with one target. The document
// id is the deterministic composite of both ObjectIDs, so an existence check
// is a single point read and duplicates are impossible at the store level.
type Relation struct {
	ID        string             `bson:"_id" json:"id"`
	ActorID   primitive.ObjectID `bson:"actorId" json:"actorId"`
	TargetID  primitive.ObjectID `bson:"targetId" json:"targetId"`
	Kind      RelationKind       `bson:"kind" json:"kind"`
	Vote      VoteType           `bson:"vote,omitempty" json:"vote,omitempty"`
	CreatedAt int64              `bson:"createdAt" json:"createdAt"`
}

// RelationKey builds the composite document id for an (actor, target) pair.
func RelationKey(actorID, targetID primitive.ObjectID) string {
	return actorID.Hex() + "_" + targetID.Hex()
}

// Validate rejects malformed relations before they reach the store, so bad
// shapes fail fast instead of leaking zero ids into the join collections.
func (r Relation) Validate() error {
	if r.ActorID.IsZero() || r.TargetID.IsZero() {
		return fmt.Errorf("relation: actor and target ids are required")
	}
	switch r.Kind {
	case KindLike, KindFollow, KindMember, KindRepost:
		if r.Vote != VoteNone {
			return fmt.Errorf("relation: %s must not carry a vote type", r.Kind)
		}
	case KindVote:
		if r.Vote != VoteAgree && r.Vote != VoteDisagree {
			return fmt.Errorf("relation: invalid vote type %q", r.Vote)
		}
	default:
		return fmt.Errorf("relation: unknown kind %q", r.Kind)
	}
	return nil
}
