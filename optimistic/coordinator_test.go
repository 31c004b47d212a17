package optimistic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// likeState is the view state a UI would keep for one post.
type likeState struct {
	Liked bool
	Count int64
}

func flip(s likeState) likeState {
	if s.Liked {
		return likeState{Liked: false, Count: s.Count - 1}
	}
	return likeState{Liked: true, Count: s.Count + 1}
}

func TestApplyCommitsOptimistically(t *testing.T) {
	c := NewCoordinator[likeState]()
	state := likeState{Liked: false, Count: 5}

	var seenDuringCommit likeState
	err := c.Apply(context.Background(), "post-1",
		func() likeState { return state },
		func(s likeState) { state = s },
		flip,
		func(context.Context) error {
			// The view already reflects the outcome before the commit runs.
			seenDuringCommit = state
			return nil
		})
	require.NoError(t, err)
	require.Equal(t, likeState{Liked: true, Count: 6}, seenDuringCommit)
	require.Equal(t, likeState{Liked: true, Count: 6}, state)
}

func TestApplyRollsBackExactSnapshotOnFailure(t *testing.T) {
	c := NewCoordinator[likeState]()
	before := likeState{Liked: true, Count: 41}
	state := before

	err := c.Apply(context.Background(), "post-1",
		func() likeState { return state },
		func(s likeState) { state = s },
		flip,
		func(context.Context) error { return errors.New("store down") })

	require.Error(t, err)
	require.Equal(t, before, state, "state after rollback must equal the pre-toggle snapshot")
}

func TestApplyQueuesRapidTogglesPerKey(t *testing.T) {
	c := NewCoordinator[likeState]()
	var mu sync.Mutex
	state := likeState{Liked: false, Count: 5}

	get := func() likeState { mu.Lock(); defer mu.Unlock(); return state }
	set := func(s likeState) { mu.Lock(); defer mu.Unlock(); state = s }

	slowCommit := func(context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	}

	// Three rapid toggles: each queues behind the previous one and flips
	// the state it left behind. Net effect of three flips is one active
	// state, not a double-count.
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Apply(context.Background(), "post-1", get, set, flip, slowCommit)
		}()
	}
	wg.Wait()

	require.Equal(t, likeState{Liked: true, Count: 6}, get())
}

func TestTryApplyRejectsWhileInFlight(t *testing.T) {
	c := NewCoordinator[likeState]()
	state := likeState{}

	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = c.Apply(context.Background(), "post-1",
			func() likeState { return state },
			func(s likeState) { state = s },
			flip,
			func(context.Context) error {
				close(started)
				<-release
				return nil
			})
	}()

	<-started
	require.True(t, c.Busy("post-1"))

	err := c.TryApply(context.Background(), "post-1",
		func() likeState { return state },
		func(s likeState) { state = s },
		flip,
		func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrInFlight)

	close(release)
}

func TestKeysAreIndependent(t *testing.T) {
	c := NewCoordinator[likeState]()
	states := map[string]*likeState{
		"post-1": {},
		"post-2": {},
	}

	for key, st := range states {
		st := st
		err := c.Apply(context.Background(), key,
			func() likeState { return *st },
			func(s likeState) { *st = s },
			flip,
			func(context.Context) error { return nil })
		require.NoError(t, err)
	}

	require.Equal(t, likeState{Liked: true, Count: 1}, *states["post-1"])
	require.Equal(t, likeState{Liked: true, Count: 1}, *states["post-2"])
	require.False(t, c.Busy("post-1"))
	require.False(t, c.Busy("post-2"))
}
