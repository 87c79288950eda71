package room

import (
	"context"
	"errors"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"

	"huddle/domain"
)

const maxJoinAttempts = 3

type JoinRequest struct {
	Client   *Client
	RoomKey  string
	Kind     domain.RoomKind
	UserName string
	Token    string
}

// Hub maps room keys onto running actors. It is the only structure shared
// between rooms.
type Hub struct {
	opts   Options
	rooms  *xsync.MapOf[string, *Actor]
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHub(opts Options) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		opts:   opts.withDefaults(),
		rooms:  xsync.NewMapOf[string, *Actor](),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Join hands the client to the room's actor, loading the room first if
// needed. A join that races with the actor unloading itself is retried on a
// fresh actor.
func (h *Hub) Join(ctx context.Context, req JoinRequest) error {
	for attempt := 0; attempt < maxJoinAttempts; attempt++ {
		if h.ctx.Err() != nil {
			return ErrShuttingDown
		}
		a, err := h.actorFor(ctx, req.RoomKey)
		if err != nil {
			return err
		}
		err = a.join(ctx, req)
		if errors.Is(err, ErrActorRetired) {
			continue
		}
		return err
	}
	return ErrActorRetired
}

func (h *Hub) actorFor(ctx context.Context, key string) (*Actor, error) {
	if a, ok := h.rooms.Load(key); ok {
		return a, nil
	}
	st, err := h.opts.Repo.GetRoom(ctx, key)
	if err != nil {
		return nil, err
	}
	a, _ := h.rooms.LoadOrCompute(key, func() *Actor {
		a := newActor(st, h.opts)
		a.onRetire = h.remove
		a.resumeSpin()
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			a.run(h.ctx)
		}()
		return a
	})
	return a, nil
}

// remove deletes a only if it is still the registered actor for its key.
func (h *Hub) remove(a *Actor) {
	h.rooms.Compute(a.key, func(old *Actor, loaded bool) (*Actor, bool) {
		return old, !loaded || old == a
	})
}

func (h *Hub) Size() int {
	return h.rooms.Size()
}

// Shutdown stops every actor and waits for them, or for ctx.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info().Str("module", "room").Msg("all rooms stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
