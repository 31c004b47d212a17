// Package optimistic provides the client-side optimistic update
// coordinator: it applies a view-state change before the store round-trip
// resolves and restores the exact prior snapshot if the commit fails.
// Likes, follows, votes and reposts all share this one code path instead of
// reimplementing the flip/commit/revert boilerplate per feature.
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrInFlight is returned by TryApply while a commit for the same key is
// still unresolved.
var ErrInFlight = errors.New("optimistic: update in flight")

// Coordinator serializes optimistic updates per key. S is the view state
// being flipped (a boolean plus a displayed counter, typically); it must be
// a value type so the snapshot taken before the flip is an exact copy.
type Coordinator[S any] struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	busy bool
}

func NewCoordinator[S any]() *Coordinator[S] {
	return &Coordinator[S]{entries: make(map[string]*entry)}
}

func (c *Coordinator[S]) entryFor(key string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

// Busy reports whether a commit for key is unresolved. UI layers use this
// as the disable-the-button guard.
func (c *Coordinator[S]) Busy(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && e.busy
}

func (c *Coordinator[S]) setBusy(e *entry, v bool) {
	c.mu.Lock()
	e.busy = v
	c.mu.Unlock()
}

// Apply flips the state optimistically and commits. A second Apply on the
// same key queues behind the in-flight one, so rapid repeated toggles each
// flip exactly once against the state the previous flip left behind, never
// racing each other. On commit failure the snapshot taken before the flip
// is restored bit-for-bit and the error is returned for a retryable notice.
func (c *Coordinator[S]) Apply(ctx context.Context, key string, get func() S, set func(S), next func(S) S, commit func(context.Context) error) error {
	e := c.entryFor(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	return c.run(ctx, e, get, set, next, commit)
}

// TryApply is the rejecting variant: while a commit for key is in flight it
// refuses with ErrInFlight instead of queueing.
func (c *Coordinator[S]) TryApply(ctx context.Context, key string, get func() S, set func(S), next func(S) S, commit func(context.Context) error) error {
	e := c.entryFor(key)
	if !e.mu.TryLock() {
		return ErrInFlight
	}
	defer e.mu.Unlock()
	return c.run(ctx, e, get, set, next, commit)
}

func (c *Coordinator[S]) run(ctx context.Context, e *entry, get func() S, set func(S), next func(S) S, commit func(context.Context) error) error {
	c.setBusy(e, true)
	defer c.setBusy(e, false)

	snapshot := get()
	set(next(snapshot))

	if err := commit(ctx); err != nil {
		set(snapshot)
		return fmt.Errorf("optimistic: commit failed, state restored: %w", err)
	}
	return nil
}
