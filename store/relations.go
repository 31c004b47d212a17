package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ripple/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection names. One collection per relation namespace keeps the
// composite key unique per (actor, target) within a kind.
const (
	CollUsers         = "users"
	CollPosts         = "posts"
	CollCommunities   = "communities"
	CollNotifications = "notifications"
	CollLikes         = "likes"
	CollFollows       = "follows"
	CollVotes         = "votes"
	CollMembers       = "members"
	CollReposts       = "reposts"
)

func relationColl(kind models.RelationKind) string {
	switch kind {
	case models.KindLike:
		return CollLikes
	case models.KindFollow:
		return CollFollows
	case models.KindVote:
		return CollVotes
	case models.KindMember:
		return CollMembers
	case models.KindRepost:
		return CollReposts
	}
	return ""
}

// counterWrite identifies one denormalized counter field adjusted alongside
// a relation mutation.
type counterWrite struct {
	coll  string
	id    primitive.ObjectID
	field string
}

func voteField(v models.VoteType) string {
	if v == models.VoteDisagree {
		return "disagreementCount"
	}
	return "agreementCount"
}

// counterTargets routes a relation to the counter field(s) it maintains.
// Follow touches two documents: the target gains a follower, the actor
// gains a following.
func counterTargets(rel models.Relation) []counterWrite {
	switch rel.Kind {
	case models.KindLike:
		return []counterWrite{{CollPosts, rel.TargetID, "likesCount"}}
	case models.KindRepost:
		return []counterWrite{{CollPosts, rel.TargetID, "repostsCount"}}
	case models.KindMember:
		return []counterWrite{{CollCommunities, rel.TargetID, "memberCount"}}
	case models.KindVote:
		return []counterWrite{{CollPosts, rel.TargetID, voteField(rel.Vote)}}
	case models.KindFollow:
		return []counterWrite{
			{CollUsers, rel.TargetID, "followersCount"},
			{CollUsers, rel.ActorID, "followingCount"},
		}
	}
	return nil
}

// Relations is the composite-key join table plus counter maintainer. Every
// mutation pairs the join-document write with its counter adjustment in one
// transaction, so the join table and the counters can never desynchronize
// on a partial failure.
type Relations struct {
	db *mongo.Database
}

func NewRelations(db *mongo.Database) *Relations {
	return &Relations{db: db}
}

// errSettled aborts a transaction whose desired state already holds.
var errSettled = errors.New("already in desired state")

func (r *Relations) withTxn(ctx context.Context, fn func(mongo.SessionContext) error) error {
	sess, err := r.db.Client().StartSession()
	if err != nil {
		return wrapErr(err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (r *Relations) incr(sc mongo.SessionContext, cw counterWrite) error {
	_, err := r.db.Collection(cw.coll).UpdateByID(sc, cw.id, bson.M{"$inc": bson.M{cw.field: 1}})
	return err
}

// decr clamps at zero with an update pipeline. Correct operation never needs
// the clamp (every decrement is paired with a deleted relation document),
// but the counter invariant is non-negative, so the floor is enforced here
// rather than trusted.
func (r *Relations) decr(sc mongo.SessionContext, cw counterWrite) error {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: cw.field, Value: bson.D{
				{Key: "$max", Value: bson.A{0, bson.D{
					{Key: "$subtract", Value: bson.A{"$" + cw.field, 1}},
				}}},
			}},
		}}},
	}
	_, err := r.db.Collection(cw.coll).UpdateByID(sc, cw.id, pipeline)
	return err
}

// SetRelation creates the relation document and applies +1 to the routed
// counter(s) as one atomic batch. If the relation already exists the whole
// batch is a no-op and created is false; a duplicate client call (rapid
// double-tap) can therefore never double-increment a counter.
func (r *Relations) SetRelation(ctx context.Context, rel models.Relation) (bool, error) {
	if err := rel.Validate(); err != nil {
		return false, err
	}
	rel.ID = models.RelationKey(rel.ActorID, rel.TargetID)
	if rel.CreatedAt == 0 {
		rel.CreatedAt = time.Now().Unix()
	}

	err := r.withTxn(ctx, func(sc mongo.SessionContext) error {
		if _, err := r.db.Collection(relationColl(rel.Kind)).InsertOne(sc, rel); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return errSettled
			}
			return err
		}
		for _, cw := range counterTargets(rel) {
			if err := r.incr(sc, cw); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, errSettled) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr(err)
	}
	return true, nil
}

// ClearRelation deletes the relation document and applies -1 to the routed
// counter(s) in one atomic batch. Clearing a relation that does not exist
// is a no-op and leaves every counter untouched.
func (r *Relations) ClearRelation(ctx context.Context, actorID, targetID primitive.ObjectID, kind models.RelationKind) (bool, error) {
	if actorID.IsZero() || targetID.IsZero() {
		return false, fmt.Errorf("relation: actor and target ids are required")
	}
	key := models.RelationKey(actorID, targetID)

	err := r.withTxn(ctx, func(sc mongo.SessionContext) error {
		var rel models.Relation
		err := r.db.Collection(relationColl(kind)).FindOneAndDelete(sc, bson.M{"_id": key}).Decode(&rel)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return errSettled
		}
		if err != nil {
			return err
		}
		for _, cw := range counterTargets(rel) {
			if err := r.decr(sc, cw); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, errSettled) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr(err)
	}
	return true, nil
}

// HasRelation is a single point read on the composite key.
func (r *Relations) HasRelation(ctx context.Context, actorID, targetID primitive.ObjectID, kind models.RelationKind) (bool, error) {
	key := models.RelationKey(actorID, targetID)
	err := r.db.Collection(relationColl(kind)).FindOne(ctx, bson.M{"_id": key}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr(err)
	}
	return true, nil
}

// GetVote returns the actor's current vote on the target, VoteNone if the
// actor has not voted.
func (r *Relations) GetVote(ctx context.Context, actorID, targetID primitive.ObjectID) (models.VoteType, error) {
	key := models.RelationKey(actorID, targetID)
	var rel models.Relation
	err := r.db.Collection(CollVotes).FindOne(ctx, bson.M{"_id": key}).Decode(&rel)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.VoteNone, nil
	}
	if err != nil {
		return models.VoteNone, wrapErr(err)
	}
	return rel.Vote, nil
}

// SwitchVote flips an existing vote relation from one type to the other:
// the relation's vote field, -1 on the old counter and +1 on the new one
// are three writes in a single batch, so an external reader never observes
// both counters incremented or both decremented. The update is filtered on
// the expected current type; if the stored vote changed concurrently the
// batch is abandoned and switched is false.
func (r *Relations) SwitchVote(ctx context.Context, actorID, targetID primitive.ObjectID, from, to models.VoteType) (bool, error) {
	if actorID.IsZero() || targetID.IsZero() {
		return false, fmt.Errorf("relation: actor and target ids are required")
	}
	if from == to || from == models.VoteNone || to == models.VoteNone {
		return false, fmt.Errorf("relation: invalid vote switch %q -> %q", from, to)
	}
	key := models.RelationKey(actorID, targetID)

	err := r.withTxn(ctx, func(sc mongo.SessionContext) error {
		res, err := r.db.Collection(CollVotes).UpdateOne(sc,
			bson.M{"_id": key, "vote": from},
			bson.M{"$set": bson.M{"vote": to}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return errSettled
		}
		if err := r.decr(sc, counterWrite{CollPosts, targetID, voteField(from)}); err != nil {
			return err
		}
		return r.incr(sc, counterWrite{CollPosts, targetID, voteField(to)})
	})
	if errors.Is(err, errSettled) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr(err)
	}
	return true, nil
}
