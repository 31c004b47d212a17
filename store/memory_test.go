package store

import (
	"context"
	"testing"

	"ripple/models"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSetRelationPairsCounterWithDocument(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	actor := primitive.NewObjectID()
	post := primitive.NewObjectID()

	created, err := m.SetRelation(ctx, models.Relation{ActorID: actor, TargetID: post, Kind: models.KindLike})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, int64(1), m.Counter(CollPosts, post, "likesCount"))

	// Duplicate call is a silent no-op: the counter must not double-count.
	created, err = m.SetRelation(ctx, models.Relation{ActorID: actor, TargetID: post, Kind: models.KindLike})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, int64(1), m.Counter(CollPosts, post, "likesCount"))
}

func TestClearRelationMissingIsNoOp(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	actor := primitive.NewObjectID()
	post := primitive.NewObjectID()

	// Pathological repeated clears never drive the counter negative.
	for i := 0; i < 3; i++ {
		removed, err := m.ClearRelation(ctx, actor, post, models.KindLike)
		require.NoError(t, err)
		require.False(t, removed)
	}
	require.Equal(t, int64(0), m.Counter(CollPosts, post, "likesCount"))
}

func TestFollowAdjustsBothUserCounters(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	actor := primitive.NewObjectID()
	target := primitive.NewObjectID()

	_, err := m.SetRelation(ctx, models.Relation{ActorID: actor, TargetID: target, Kind: models.KindFollow})
	require.NoError(t, err)
	require.Equal(t, int64(1), m.Counter(CollUsers, target, "followersCount"))
	require.Equal(t, int64(1), m.Counter(CollUsers, actor, "followingCount"))

	removed, err := m.ClearRelation(ctx, actor, target, models.KindFollow)
	require.NoError(t, err)
	require.True(t, removed)
	require.Equal(t, int64(0), m.Counter(CollUsers, target, "followersCount"))
	require.Equal(t, int64(0), m.Counter(CollUsers, actor, "followingCount"))
}

func TestSwitchVoteMovesBothCountersTogether(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	actor := primitive.NewObjectID()
	post := primitive.NewObjectID()

	_, err := m.SetRelation(ctx, models.Relation{ActorID: actor, TargetID: post, Kind: models.KindVote, Vote: models.VoteAgree})
	require.NoError(t, err)
	require.Equal(t, int64(1), m.Counter(CollPosts, post, "agreementCount"))
	require.Equal(t, int64(0), m.Counter(CollPosts, post, "disagreementCount"))

	switched, err := m.SwitchVote(ctx, actor, post, models.VoteAgree, models.VoteDisagree)
	require.NoError(t, err)
	require.True(t, switched)
	require.Equal(t, int64(0), m.Counter(CollPosts, post, "agreementCount"))
	require.Equal(t, int64(1), m.Counter(CollPosts, post, "disagreementCount"))

	// Switching a vote that is not in the expected state is abandoned.
	switched, err = m.SwitchVote(ctx, actor, post, models.VoteAgree, models.VoteDisagree)
	require.NoError(t, err)
	require.False(t, switched)
	require.Equal(t, int64(1), m.Counter(CollPosts, post, "disagreementCount"))
}

func TestCastPollVoteSingleChoice(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	author := primitive.NewObjectID()
	voter := primitive.NewObjectID()

	post := models.Post{
		UserID:  author,
		Content: "which one",
		Poll: &models.Poll{
			Question: "which one?",
			Options: []models.PollOption{
				{Text: "a", Voters: []primitive.ObjectID{}},
				{Text: "b", Voters: []primitive.ObjectID{}},
			},
		},
	}
	require.NoError(t, m.Create(ctx, &post))

	voted, err := m.CastPollVote(ctx, post.ID, voter, 0)
	require.NoError(t, err)
	require.True(t, voted)

	// Second vote by the same user, on any option, is rejected.
	voted, err = m.CastPollVote(ctx, post.ID, voter, 1)
	require.NoError(t, err)
	require.False(t, voted)

	got, err := m.Get(ctx, post.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Poll.Options[0].Votes)
	require.Equal(t, int64(0), got.Poll.Options[1].Votes)
	require.Equal(t, int64(1), got.Poll.TotalVotes)

	// Per-option votes always sum to the poll total.
	var sum int64
	for _, opt := range got.Poll.Options {
		sum += opt.Votes
	}
	require.Equal(t, got.Poll.TotalVotes, sum)
}

func TestCreateInCommunityBumpsPostCount(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	community := primitive.NewObjectID()

	post := models.Post{UserID: primitive.NewObjectID(), Content: "hi", CommunityID: &community}
	require.NoError(t, m.Create(ctx, &post))
	require.Equal(t, int64(1), m.Counter(CollCommunities, community, "postCount"))
}

func TestFilterSortPage(t *testing.T) {
	community := primitive.NewObjectID()
	other := primitive.NewObjectID()

	mkPost := func(ts int64, comm *primitive.ObjectID) models.Post {
		return models.Post{ID: primitive.NewObjectID(), CreatedAt: ts, CommunityID: comm}
	}

	posts := []models.Post{
		mkPost(100, nil),
		mkPost(300, &community),
		mkPost(200, &community),
		mkPost(400, &other),
	}

	all := FilterSortPage(posts, models.FeedScopeAll, nil, 10)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		require.GreaterOrEqual(t, all[i-1].CreatedAt, all[i].CreatedAt)
	}

	scoped := FilterSortPage(posts, community.Hex(), nil, 10)
	require.Len(t, scoped, 2)
	require.Equal(t, int64(300), scoped[0].CreatedAt)
	require.Equal(t, int64(200), scoped[1].CreatedAt)

	// Cursor window excludes the cursor position itself.
	after := models.CursorAfter(scoped[:1])
	rest := FilterSortPage(posts, community.Hex(), after, 10)
	require.Len(t, rest, 1)
	require.Equal(t, int64(200), rest[0].CreatedAt)

	// Limit truncates.
	limited := FilterSortPage(posts, models.FeedScopeAll, nil, 2)
	require.Len(t, limited, 2)
	require.Equal(t, int64(400), limited[0].CreatedAt)
}

func TestFilterSortPageBreaksTimestampTies(t *testing.T) {
	a := models.Post{ID: primitive.NewObjectID(), CreatedAt: 100}
	b := models.Post{ID: primitive.NewObjectID(), CreatedAt: 100}
	posts := []models.Post{a, b}

	page := FilterSortPage(posts, models.FeedScopeAll, nil, 1)
	require.Len(t, page, 1)

	after := models.CursorAfter(page)
	rest := FilterSortPage(posts, models.FeedScopeAll, after, 1)
	require.Len(t, rest, 1)
	require.NotEqual(t, page[0].ID, rest[0].ID)
}
