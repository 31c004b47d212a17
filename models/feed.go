package models

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FeedScopeAll selects the unfiltered firehose feed.
const FeedScopeAll = "all"

// FeedCursor is the continuation token for cursor-based pagination. Pages
// are ordered by (createdAt desc, _id desc); the id component breaks ties
// between posts created in the same second, so continuation never skips or
// repeats an item.
type FeedCursor struct {
	CreatedAt int64
	ID        primitive.ObjectID
}

// Encode renders the cursor as an opaque token safe to hand to clients.
func (c FeedCursor) Encode() string {
	raw := strconv.FormatInt(c.CreatedAt, 10) + ":" + c.ID.Hex()
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeFeedCursor parses a token produced by Encode.
func DecodeFeedCursor(token string) (FeedCursor, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return FeedCursor{}, fmt.Errorf("feed cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return FeedCursor{}, fmt.Errorf("feed cursor: malformed token")
	}
	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return FeedCursor{}, fmt.Errorf("feed cursor: %w", err)
	}
	id, err := primitive.ObjectIDFromHex(parts[1])
	if err != nil {
		return FeedCursor{}, fmt.Errorf("feed cursor: %w", err)
	}
	return FeedCursor{CreatedAt: ts, ID: id}, nil
}

// CursorAfter returns the continuation cursor for a fetched page, or nil if
// the page is empty.
func CursorAfter(items []Post) *FeedCursor {
	if len(items) == 0 {
		return nil
	}
	last := items[len(items)-1]
	return &FeedCursor{CreatedAt: last.CreatedAt, ID: last.ID}
}
