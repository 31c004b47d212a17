package store

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrAlreadyExists means the write would duplicate an existing document.
	// Callers treat "already in the desired state" as success, so this
	// rarely escapes the store layer.
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrNotFound means the referenced document does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrMissingIndex means the backend cannot serve a filtered+sorted query
	// because the composite index it needs is not provisioned.
	ErrMissingIndex = errors.New("store: missing index")

	// ErrUnavailable wraps network, timeout and server-side failures. It is
	// the signal for optimistic rollback upstream.
	ErrUnavailable = errors.New("store: unavailable")
)

// Mongo reports an unsatisfiable hint as BadValue (2) and an unplannable
// query as NoQueryExecutionPlans (291).
func isMissingIndexErr(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		if cmdErr.Code == 291 {
			return true
		}
		if cmdErr.Code == 2 && strings.Contains(cmdErr.Message, "hint") {
			return true
		}
	}
	return false
}

// wrapErr maps a driver error onto the store taxonomy.
func wrapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrAlreadyExists
	case isMissingIndexErr(err):
		return ErrMissingIndex
	case errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) || mongo.IsNetworkError(err):
		return errors.Join(ErrUnavailable, err)
	default:
		return errors.Join(ErrUnavailable, err)
	}
}
