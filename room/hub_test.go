package room

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huddle/domain"
	"huddle/storage"
)

func newTestHub(t *testing.T, rooms ...*domain.RoomState) (*Hub, *storage.MemoryRepo) {
	t.Helper()
	repo := storage.NewMemoryRepo()
	for _, st := range rooms {
		require.NoError(t, repo.CreateRoom(context.Background(), st))
	}
	h := NewHub(Options{Repo: repo, Verifier: fakeVerifier{}})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})
	return h, repo
}

func TestHub_JoinThenRetire(t *testing.T) {
	t.Parallel()
	h, repo := newTestHub(t, newWheelState("naruto", "A", "B"))
	ctx := context.Background()
	c := NewClient(nil, 16, 10, 10)

	err := h.Join(ctx, JoinRequest{Client: c, RoomKey: "wheel-1", Kind: domain.KindWheel, UserName: "Naruto", Token: "user"})
	require.NoError(t, err)
	assert.Equal(t, 1, h.Size())
	assert.Contains(t, string(<-c.outbox), `"type":"userJoined"`)
	assert.Contains(t, string(<-c.outbox), `"type":"initialize"`)

	st, err := repo.GetRoom(ctx, "wheel-1")
	require.NoError(t, err)
	assert.True(t, st.ConnectedUsers["naruto"])

	require.NoError(t, c.actor.post(ctx, disconnect{client: c}))
	assert.Eventually(t, func() bool { return h.Size() == 0 }, time.Second, 5*time.Millisecond)

	st, err = repo.GetRoom(ctx, "wheel-1")
	require.NoError(t, err)
	assert.False(t, st.ConnectedUsers["naruto"])

	again := NewClient(nil, 16, 10, 10)
	require.NoError(t, h.Join(ctx, JoinRequest{Client: again, RoomKey: "wheel-1", UserName: "naruto", Token: "user"}))
	assert.Equal(t, 1, h.Size())
}

func TestHub_JoinRejections(t *testing.T) {
	t.Parallel()
	h, _ := newTestHub(t, newWheelState("naruto"))
	ctx := context.Background()

	err := h.Join(ctx, JoinRequest{Client: NewClient(nil, 4, 1, 1), RoomKey: "nope", UserName: "naruto", Token: "user"})
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	err = h.Join(ctx, JoinRequest{Client: NewClient(nil, 4, 1, 1), RoomKey: "wheel-1", UserName: "naruto", Token: "forged"})
	assert.ErrorIs(t, err, domain.ErrInvalidSession)

	err = h.Join(ctx, JoinRequest{Client: NewClient(nil, 4, 1, 1), RoomKey: "wheel-1", Kind: domain.KindEstimation, UserName: "naruto", Token: "user"})
	assert.ErrorIs(t, err, ErrRoomKindMismatch)

	assert.Eventually(t, func() bool { return h.Size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_ConcurrentJoinsShareOneActor(t *testing.T) {
	t.Parallel()
	h, repo := newTestHub(t, newEstimationState("naruto"))
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := NewClient(nil, 64, 10, 10)
			errs[i] = h.Join(ctx, JoinRequest{Client: c, RoomKey: "est-1", UserName: fmt.Sprintf("ninja-%d", i), Token: "user"})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, h.Size())
	st, err := repo.GetRoom(ctx, "est-1")
	require.NoError(t, err)
	assert.Len(t, st.Users, 11)
	assert.Len(t, st.ConnectedNames(), 10)
}

func TestHub_Shutdown(t *testing.T) {
	t.Parallel()
	h, repo := newTestHub(t, newWheelState("naruto"))
	ctx := context.Background()
	c := NewClient(nil, 16, 10, 10)
	require.NoError(t, h.Join(ctx, JoinRequest{Client: c, RoomKey: "wheel-1", UserName: "naruto", Token: "user"}))

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(shutdownCtx))

	for range c.outbox {
	}
	st, err := repo.GetRoom(ctx, "wheel-1")
	require.NoError(t, err)
	assert.False(t, st.ConnectedUsers["naruto"])

	err = h.Join(ctx, JoinRequest{Client: NewClient(nil, 4, 1, 1), RoomKey: "wheel-1", UserName: "naruto", Token: "user"})
	assert.ErrorIs(t, err, ErrShuttingDown)
}
