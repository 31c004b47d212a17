package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ripple/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-memory stand-in for the Mongo-backed store, used by tests
// and local development. Each batch runs under one mutex, which gives the
// same all-or-nothing observability as a server-side transaction: no reader
// ever sees a relation document without its counter adjustment.
type Memory struct {
	mu        sync.Mutex
	relations map[models.RelationKind]map[string]models.Relation
	counters  map[string]map[string]int64 // coll/idHex -> field -> value
	posts     map[primitive.ObjectID]models.Post

	// FailWrites forces every mutation to fail with ErrUnavailable, for
	// exercising rollback paths.
	FailWrites bool
}

func NewMemory() *Memory {
	return &Memory{
		relations: make(map[models.RelationKind]map[string]models.Relation),
		counters:  make(map[string]map[string]int64),
		posts:     make(map[primitive.ObjectID]models.Post),
	}
}

func (m *Memory) bucket(kind models.RelationKind) map[string]models.Relation {
	b, ok := m.relations[kind]
	if !ok {
		b = make(map[string]models.Relation)
		m.relations[kind] = b
	}
	return b
}

func counterKey(coll string, id primitive.ObjectID) string {
	return coll + "/" + id.Hex()
}

func (m *Memory) adjust(cw counterWrite, delta int64) {
	key := counterKey(cw.coll, cw.id)
	fields, ok := m.counters[key]
	if !ok {
		fields = make(map[string]int64)
		m.counters[key] = fields
	}
	next := fields[cw.field] + delta
	if next < 0 {
		next = 0
	}
	fields[cw.field] = next
}

// Counter reads a denormalized counter value.
func (m *Memory) Counter(coll string, id primitive.ObjectID, field string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[counterKey(coll, id)][field]
}

func (m *Memory) SetRelation(ctx context.Context, rel models.Relation) (bool, error) {
	if err := rel.Validate(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return false, ErrUnavailable
	}

	key := models.RelationKey(rel.ActorID, rel.TargetID)
	bucket := m.bucket(rel.Kind)
	if _, exists := bucket[key]; exists {
		return false, nil
	}
	rel.ID = key
	if rel.CreatedAt == 0 {
		rel.CreatedAt = time.Now().Unix()
	}
	bucket[key] = rel
	for _, cw := range counterTargets(rel) {
		m.adjust(cw, 1)
	}
	return true, nil
}

func (m *Memory) ClearRelation(ctx context.Context, actorID, targetID primitive.ObjectID, kind models.RelationKind) (bool, error) {
	if actorID.IsZero() || targetID.IsZero() {
		return false, fmt.Errorf("relation: actor and target ids are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return false, ErrUnavailable
	}

	key := models.RelationKey(actorID, targetID)
	bucket := m.bucket(kind)
	rel, exists := bucket[key]
	if !exists {
		return false, nil
	}
	delete(bucket, key)
	for _, cw := range counterTargets(rel) {
		m.adjust(cw, -1)
	}
	return true, nil
}

func (m *Memory) HasRelation(ctx context.Context, actorID, targetID primitive.ObjectID, kind models.RelationKind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.bucket(kind)[models.RelationKey(actorID, targetID)]
	return exists, nil
}

func (m *Memory) GetVote(ctx context.Context, actorID, targetID primitive.ObjectID) (models.VoteType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rel, exists := m.bucket(models.KindVote)[models.RelationKey(actorID, targetID)]
	if !exists {
		return models.VoteNone, nil
	}
	return rel.Vote, nil
}

func (m *Memory) SwitchVote(ctx context.Context, actorID, targetID primitive.ObjectID, from, to models.VoteType) (bool, error) {
	if from == to || from == models.VoteNone || to == models.VoteNone {
		return false, fmt.Errorf("relation: invalid vote switch %q -> %q", from, to)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return false, ErrUnavailable
	}

	key := models.RelationKey(actorID, targetID)
	bucket := m.bucket(models.KindVote)
	rel, exists := bucket[key]
	if !exists || rel.Vote != from {
		return false, nil
	}
	rel.Vote = to
	bucket[key] = rel
	m.adjust(counterWrite{CollPosts, targetID, voteField(from)}, -1)
	m.adjust(counterWrite{CollPosts, targetID, voteField(to)}, 1)
	return true, nil
}

// AddPost seeds a post for feed fetches and owner lookups, returning its id.
func (m *Memory) AddPost(post models.Post) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	m.posts[post.ID] = post
	return post.ID
}

func (m *Memory) Create(ctx context.Context, post *models.Post) error {
	if post.UserID.IsZero() {
		return fmt.Errorf("post: author id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return ErrUnavailable
	}
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if post.CreatedAt == 0 {
		post.CreatedAt = time.Now().Unix()
	}
	m.posts[post.ID] = *post
	if post.CommunityID != nil {
		m.adjust(counterWrite{CollCommunities, *post.CommunityID, "postCount"}, 1)
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &post, nil
}

func (m *Memory) CastPollVote(ctx context.Context, postID, actorID primitive.ObjectID, option int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return false, ErrUnavailable
	}
	post, ok := m.posts[postID]
	if !ok {
		return false, ErrNotFound
	}
	if post.Poll == nil || option < 0 || option >= len(post.Poll.Options) {
		return false, nil
	}
	for _, opt := range post.Poll.Options {
		for _, voter := range opt.Voters {
			if voter == actorID {
				return false, nil
			}
		}
	}
	post.Poll.Options[option].Voters = append(post.Poll.Options[option].Voters, actorID)
	post.Poll.Options[option].Votes++
	post.Poll.TotalVotes++
	m.posts[postID] = post
	return true, nil
}

func (m *Memory) OwnerOf(ctx context.Context, id primitive.ObjectID) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return primitive.NilObjectID, ErrNotFound
	}
	return post.UserID, nil
}

func (m *Memory) FetchPage(ctx context.Context, scope string, after *models.FeedCursor, limit int) ([]models.Post, error) {
	m.mu.Lock()
	posts := make([]models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		posts = append(posts, p)
	}
	m.mu.Unlock()

	return FilterSortPage(posts, scope, after, limit), nil
}
