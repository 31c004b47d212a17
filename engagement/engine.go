package engagement

import (
	"context"
	"errors"

	"ripple/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrInvalidArgument signals a missing actor or target id. No write is
	// attempted.
	ErrInvalidArgument = errors.New("engagement: invalid argument")

	// ErrSelfReference signals a nonsensical self-directed action such as
	// following yourself. Rejected before any write.
	ErrSelfReference = errors.New("engagement: self reference")
)

// RelationStore is the slice of the store the engine drives. The Mongo and
// in-memory implementations both satisfy it; every mutation is an atomic
// batch pairing the join document with its counter delta.
type RelationStore interface {
	SetRelation(ctx context.Context, rel models.Relation) (bool, error)
	ClearRelation(ctx context.Context, actorID, targetID primitive.ObjectID, kind models.RelationKind) (bool, error)
	HasRelation(ctx context.Context, actorID, targetID primitive.ObjectID, kind models.RelationKind) (bool, error)
	GetVote(ctx context.Context, actorID, targetID primitive.ObjectID) (models.VoteType, error)
	SwitchVote(ctx context.Context, actorID, targetID primitive.ObjectID, from, to models.VoteType) (bool, error)
}

// Notifier is the best-effort notification collaborator. Implementations
// swallow and log their own failures; the engine never lets a notification
// problem roll back or block a toggle.
type Notifier interface {
	EngagementCreated(ctx context.Context, kind models.RelationKind, actorID, recipientID, targetID primitive.ObjectID)
	EngagementRemoved(ctx context.Context, kind models.RelationKind, actorID, targetID primitive.ObjectID)
}

// Engine is the idempotent toggle state machine on top of the relation
// store. Like, follow, member and repost are two-state toggles; votes are
// the three-state {none, agree, disagree} machine.
type Engine struct {
	store    RelationStore
	notifier Notifier
}

func NewEngine(store RelationStore, notifier Notifier) *Engine {
	return &Engine{store: store, notifier: notifier}
}

// notifyOn lists the kinds whose activation creates a notification for the
// target's owner. Removal deletes it again. Votes are deliberately silent.
func notifyOn(kind models.RelationKind) bool {
	switch kind {
	case models.KindLike, models.KindFollow, models.KindRepost:
		return true
	}
	return false
}

// Toggle flips the actor's relation state against the stored state: a query
// of the current state precedes the decision, so calling twice always flips
// twice. ownerID addresses the notification; pass the target id itself for
// follows, or NilObjectID to suppress notifications. Returns the new state.
func (e *Engine) Toggle(ctx context.Context, actorID, targetID primitive.ObjectID, kind models.RelationKind, ownerID primitive.ObjectID) (bool, error) {
	if actorID.IsZero() || targetID.IsZero() {
		return false, ErrInvalidArgument
	}
	if kind == models.KindFollow && actorID == targetID {
		return false, ErrSelfReference
	}

	active, err := e.store.HasRelation(ctx, actorID, targetID, kind)
	if err != nil {
		return false, err
	}

	if active {
		if _, err := e.store.ClearRelation(ctx, actorID, targetID, kind); err != nil {
			return true, err
		}
		if e.notifier != nil && notifyOn(kind) {
			e.notifier.EngagementRemoved(ctx, kind, actorID, targetID)
		}
		return false, nil
	}

	created, err := e.store.SetRelation(ctx, models.Relation{
		ActorID:  actorID,
		TargetID: targetID,
		Kind:     kind,
	})
	if err != nil {
		return false, err
	}
	// Only a genuinely new relation notifies; a duplicate call that lost
	// the race to another device already did.
	if created && e.notifier != nil && notifyOn(kind) && !ownerID.IsZero() && ownerID != actorID {
		e.notifier.EngagementCreated(ctx, kind, actorID, ownerID, targetID)
	}
	return true, nil
}

// ToggleVote drives the vote state machine: voting the type the actor
// already holds removes the vote, voting the other type switches both
// counters in one batch, voting from none sets it. Returns the new state.
func (e *Engine) ToggleVote(ctx context.Context, actorID, targetID primitive.ObjectID, vote models.VoteType) (models.VoteType, error) {
	if actorID.IsZero() || targetID.IsZero() {
		return models.VoteNone, ErrInvalidArgument
	}
	if vote != models.VoteAgree && vote != models.VoteDisagree {
		return models.VoteNone, ErrInvalidArgument
	}

	current, err := e.store.GetVote(ctx, actorID, targetID)
	if err != nil {
		return models.VoteNone, err
	}

	switch current {
	case vote:
		if _, err := e.store.ClearRelation(ctx, actorID, targetID, models.KindVote); err != nil {
			return current, err
		}
		return models.VoteNone, nil
	case models.VoteNone:
		if _, err := e.store.SetRelation(ctx, models.Relation{
			ActorID:  actorID,
			TargetID: targetID,
			Kind:     models.KindVote,
			Vote:     vote,
		}); err != nil {
			return models.VoteNone, err
		}
		return vote, nil
	default:
		if _, err := e.store.SwitchVote(ctx, actorID, targetID, current, vote); err != nil {
			return current, err
		}
		return vote, nil
	}
}

// IsActive reports the actor's current relation state.
func (e *Engine) IsActive(ctx context.Context, actorID, targetID primitive.ObjectID, kind models.RelationKind) (bool, error) {
	if actorID.IsZero() || targetID.IsZero() {
		return false, ErrInvalidArgument
	}
	return e.store.HasRelation(ctx, actorID, targetID, kind)
}

// Vote reports the actor's current vote state.
func (e *Engine) Vote(ctx context.Context, actorID, targetID primitive.ObjectID) (models.VoteType, error) {
	if actorID.IsZero() || targetID.IsZero() {
		return models.VoteNone, ErrInvalidArgument
	}
	return e.store.GetVote(ctx, actorID, targetID)
}
