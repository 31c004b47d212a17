package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Post struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID  `bson:"userId" json:"userId"`
	CommunityID *primitive.ObjectID `bson:"communityId,omitempty" json:"communityId,omitempty"`
	Content     string              `bson:"content" json:"content"`
	Media       []string            `bson:"media" json:"media"`
	CreatedAt   int64               `bson:"createdAt" json:"createdAt"`

	// Denormalized counters, mutated only through the relation store.
	LikesCount        int64 `bson:"likesCount" json:"likesCount"`
	RepostsCount      int64 `bson:"repostsCount" json:"repostsCount"`
	AgreementCount    int64 `bson:"agreementCount" json:"agreementCount"`
	DisagreementCount int64 `bson:"disagreementCount" json:"disagreementCount"`

	Poll *Poll `bson:"poll,omitempty" json:"poll,omitempty"`

	User *User `bson:"-" json:"user,omitempty"` // Populated in response only
}

// Poll is a single-choice poll embedded in a post. Voters are recorded per
// option so a second vote by the same user can be rejected at the store
// level; the sum of option votes always equals TotalVotes because all three
// fields change in one document write.
type Poll struct {
	Question   string       `bson:"question" json:"question"`
	Options    []PollOption `bson:"options" json:"options"`
	TotalVotes int64        `bson:"totalVotes" json:"totalVotes"`
}

type PollOption struct {
	Text   string               `bson:"text" json:"text"`
	Votes  int64                `bson:"votes" json:"votes"`
	Voters []primitive.ObjectID `bson:"voters" json:"-"`
}

type Community struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	CreatedBy   primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt   int64              `bson:"createdAt" json:"createdAt"`

	MemberCount int64 `bson:"memberCount" json:"memberCount"`
	PostCount   int64 `bson:"postCount" json:"postCount"`
}
