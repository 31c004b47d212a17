package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRelationKeyIsDeterministic(t *testing.T) {
	actor := primitive.NewObjectID()
	target := primitive.NewObjectID()

	key := RelationKey(actor, target)
	require.Equal(t, actor.Hex()+"_"+target.Hex(), key)
	require.Equal(t, key, RelationKey(actor, target))

	// Direction matters: A->B and B->A are different relations.
	require.NotEqual(t, key, RelationKey(target, actor))
}

func TestRelationValidate(t *testing.T) {
	actor := primitive.NewObjectID()
	target := primitive.NewObjectID()

	tests := []struct {
		name    string
		rel     Relation
		wantErr bool
	}{
		{"valid like", Relation{ActorID: actor, TargetID: target, Kind: KindLike}, false},
		{"valid follow", Relation{ActorID: actor, TargetID: target, Kind: KindFollow}, false},
		{"valid agree vote", Relation{ActorID: actor, TargetID: target, Kind: KindVote, Vote: VoteAgree}, false},
		{"valid disagree vote", Relation{ActorID: actor, TargetID: target, Kind: KindVote, Vote: VoteDisagree}, false},
		{"missing actor", Relation{TargetID: target, Kind: KindLike}, true},
		{"missing target", Relation{ActorID: actor, Kind: KindLike}, true},
		{"unknown kind", Relation{ActorID: actor, TargetID: target, Kind: "poke"}, true},
		{"vote without type", Relation{ActorID: actor, TargetID: target, Kind: KindVote}, true},
		{"vote with bad type", Relation{ActorID: actor, TargetID: target, Kind: KindVote, Vote: "maybe"}, true},
		{"like with vote type", Relation{ActorID: actor, TargetID: target, Kind: KindLike, Vote: VoteAgree}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rel.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestFeedCursorRoundTrip(t *testing.T) {
	c := FeedCursor{CreatedAt: 1725000000, ID: primitive.NewObjectID()}

	decoded, err := DecodeFeedCursor(c.Encode())
	require.NoError(t, err)
	require.Equal(t, c, decoded)
}

func TestDecodeFeedCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"", "not-base64!!", "aGVsbG8=", "MTIzNA=="} {
		_, err := DecodeFeedCursor(token)
		require.Error(t, err, "token %q", token)
	}
}

func TestCursorAfter(t *testing.T) {
	require.Nil(t, CursorAfter(nil))

	posts := []Post{
		{ID: primitive.NewObjectID(), CreatedAt: 300},
		{ID: primitive.NewObjectID(), CreatedAt: 200},
	}
	cursor := CursorAfter(posts)
	require.NotNil(t, cursor)
	require.Equal(t, int64(200), cursor.CreatedAt)
	require.Equal(t, posts[1].ID, cursor.ID)
}
