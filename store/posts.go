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
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Posts handles post creation and poll voting. Community post counts follow
// the same batch discipline as the relation counters: the insert and the
// postCount adjustment commit together or not at all.
type Posts struct {
	db *mongo.Database
}

func NewPosts(db *mongo.Database) *Posts {
	return &Posts{db: db}
}

func (p *Posts) Create(ctx context.Context, post *models.Post) error {
	if post.UserID.IsZero() {
		return fmt.Errorf("post: author id is required")
	}
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if post.CreatedAt == 0 {
		post.CreatedAt = time.Now().Unix()
	}

	if post.CommunityID == nil {
		_, err := p.db.Collection(CollPosts).InsertOne(ctx, post)
		return wrapErr(err)
	}

	sess, err := p.db.Client().StartSession()
	if err != nil {
		return wrapErr(err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := p.db.Collection(CollPosts).InsertOne(sc, post); err != nil {
			return nil, err
		}
		_, err := p.db.Collection(CollCommunities).UpdateByID(sc, *post.CommunityID,
			bson.M{"$inc": bson.M{"postCount": 1}})
		return nil, err
	})
	return wrapErr(err)
}

func (p *Posts) Get(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := p.db.Collection(CollPosts).FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &post, nil
}

// OwnerOf is a projection read used to address engagement notifications.
func (p *Posts) OwnerOf(ctx context.Context, id primitive.ObjectID) (primitive.ObjectID, error) {
	var doc struct {
		UserID primitive.ObjectID `bson:"userId"`
	}
	opts := options.FindOne().SetProjection(bson.M{"userId": 1})
	err := p.db.Collection(CollPosts).FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc)
	if err != nil {
		return primitive.NilObjectID, wrapErr(err)
	}
	return doc.UserID, nil
}

// CastPollVote records a single-choice poll vote. The filter rejects voters
// already present in any option's voter set, and the voter, the option's
// vote count and the poll total all change in the same document write, so
// per-option votes always sum to totalVotes and a user can appear in at
// most one option. Returns false when the user already voted or the post
// has no such option.
func (p *Posts) CastPollVote(ctx context.Context, postID, actorID primitive.ObjectID, option int) (bool, error) {
	if postID.IsZero() || actorID.IsZero() {
		return false, fmt.Errorf("poll: post and actor ids are required")
	}
	if option < 0 {
		return false, fmt.Errorf("poll: invalid option index %d", option)
	}
	optField := fmt.Sprintf("poll.options.%d", option)

	filter := bson.M{
		"_id":                 postID,
		optField + ".text":    bson.M{"$exists": true},
		"poll.options.voters": bson.M{"$ne": actorID},
	}
	update := bson.M{
		"$addToSet": bson.M{optField + ".voters": actorID},
		"$inc":      bson.M{optField + ".votes": 1, "poll.totalVotes": 1},
	}

	res, err := p.db.Collection(CollPosts).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, wrapErr(err)
	}
	if res.MatchedCount == 0 {
		// Distinguish "already voted / bad option" from "no such post".
		err := p.db.Collection(CollPosts).FindOne(ctx, bson.M{"_id": postID},
			options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, ErrNotFound
		}
		if err != nil {
			return false, wrapErr(err)
		}
		return false, nil
	}
	return true, nil
}
