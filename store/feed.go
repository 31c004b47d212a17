package store

import (
	"context"
	"errors"
	"log"
	"sort"

	"ripple/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostFeed fetches ordered post pages for a scope: "all" for the firehose,
// or a community id for that community's feed.
type PostFeed struct {
	db *mongo.Database
}

func NewPostFeed(db *mongo.Database) *PostFeed {
	return &PostFeed{db: db}
}

func scopeFilter(scope string) (bson.M, error) {
	if scope == models.FeedScopeAll || scope == "" {
		return bson.M{}, nil
	}
	id, err := primitive.ObjectIDFromHex(scope)
	if err != nil {
		return nil, errors.Join(ErrNotFound, err)
	}
	return bson.M{"communityId": id}, nil
}

func afterFilter(after *models.FeedCursor) bson.M {
	if after == nil {
		return nil
	}
	// Strictly older than the cursor position, with _id breaking ties.
	return bson.M{"$or": bson.A{
		bson.M{"createdAt": bson.M{"$lt": after.CreatedAt}},
		bson.M{"createdAt": after.CreatedAt, "_id": bson.M{"$lt": after.ID}},
	}}
}

// FetchPage returns up to limit posts ordered by (createdAt desc, _id desc),
// strictly after the cursor when one is given. If the backend cannot serve
// the filtered+sorted query because its composite index is missing, the
// query is retried unfiltered and the filter, sort and slice are applied
// client-side; the missing index is a provisioning bug, so it is logged
// loudly, but the caller never sees the error.
func (f *PostFeed) FetchPage(ctx context.Context, scope string, after *models.FeedCursor, limit int) ([]models.Post, error) {
	filter, err := scopeFilter(scope)
	if err != nil {
		return nil, err
	}
	query := filter
	if af := afterFilter(after); af != nil {
		query = bson.M{"$and": bson.A{filter, af}}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := f.db.Collection(CollPosts).Find(ctx, query, opts)
	if err != nil {
		if isMissingIndexErr(err) {
			log.Printf("feed: missing composite index for scope %q, falling back to client-side filter+sort (fix the index provisioning)", scope)
			return f.fetchUnindexed(ctx, scope, after, limit)
		}
		return nil, wrapErr(err)
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, wrapErr(err)
	}
	return posts, nil
}

// fetchUnindexed pulls the whole collection and reproduces the query in
// memory. O(collection size) per call; only reachable when the composite
// index is not provisioned.
func (f *PostFeed) fetchUnindexed(ctx context.Context, scope string, after *models.FeedCursor, limit int) ([]models.Post, error) {
	cursor, err := f.db.Collection(CollPosts).Find(ctx, bson.M{})
	if err != nil {
		return nil, wrapErr(err)
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, wrapErr(err)
	}
	return FilterSortPage(posts, scope, after, limit), nil
}

// FilterSortPage applies the feed scope filter, ordering and cursor window
// to an in-memory post set. Shared by the unindexed fallback and the
// in-memory store.
func FilterSortPage(posts []models.Post, scope string, after *models.FeedCursor, limit int) []models.Post {
	var scopeID *primitive.ObjectID
	if scope != models.FeedScopeAll && scope != "" {
		if id, err := primitive.ObjectIDFromHex(scope); err == nil {
			scopeID = &id
		} else {
			return nil
		}
	}

	var out []models.Post
	for _, p := range posts {
		if scopeID != nil && (p.CommunityID == nil || *p.CommunityID != *scopeID) {
			continue
		}
		if after != nil {
			older := p.CreatedAt < after.CreatedAt ||
				(p.CreatedAt == after.CreatedAt && p.ID.Hex() < after.ID.Hex())
			if !older {
				continue
			}
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
