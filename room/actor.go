package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"huddle/domain"
	"huddle/games"
)

const spinRetryDelay = time.Second

var ErrInternal = errors.New("internal-error")

type event interface {
	isEvent()
}

type joinRequest struct {
	ctx         context.Context
	client      *Client
	kind        domain.RoomKind
	claimedName string
	token       string
	reply       chan error
}

type inbound struct {
	client *Client
	data   []byte
	err    error
}

type disconnect struct {
	client *Client
}

type spinFired struct {
	startedAt time.Time
}

func (joinRequest) isEvent() {}
func (inbound) isEvent()     {}
func (disconnect) isEvent()  {}
func (spinFired) isEvent()   {}

// Options carries the collaborators shared by every actor of a hub.
type Options struct {
	Repo      Repository
	Verifier  SessionVerifier
	Games     *games.Registry
	Scheduler Scheduler
	Picker    IndexPicker
	Now       func() time.Time
	InboxSize int
}

func (o Options) withDefaults() Options {
	if o.Scheduler == nil {
		o.Scheduler = RealScheduler()
	}
	if o.Picker == nil {
		o.Picker = CryptoPicker()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Games == nil {
		o.Games = games.NewRegistry(games.DefaultRand())
	}
	if o.InboxSize <= 0 {
		o.InboxSize = 256
	}
	return o
}

// Actor owns one loaded room. Everything below runs on the actor goroutine,
// one event at a time.
type Actor struct {
	key      string
	state    *domain.RoomState
	opts     Options
	sessions *SessionRegistry
	inbox    chan event
	done     chan struct{}
	timer    Timer
	onRetire func(*Actor)
	log      zerolog.Logger
}

func newActor(st *domain.RoomState, opts Options) *Actor {
	opts = opts.withDefaults()
	// Nobody is connected to a freshly loaded room.
	if st.ConnectedUsers == nil {
		st.ConnectedUsers = map[string]bool{}
	}
	for name := range st.ConnectedUsers {
		st.ConnectedUsers[name] = false
	}
	switch {
	case st.Kind == domain.KindWheel && st.Wheel == nil:
		st.Wheel = &domain.WheelState{Entries: []domain.Entry{}, Results: []domain.SpinResult{}}
	case st.Kind == domain.KindEstimation && st.Estimation == nil:
		st.Estimation = &domain.EstimationState{Votes: map[string]string{}}
	}
	return &Actor{
		key:      st.Key,
		state:    st,
		opts:     opts,
		sessions: NewSessionRegistry(),
		inbox:    make(chan event, opts.InboxSize),
		done:     make(chan struct{}),
		log:      log.With().Str("module", "room").Str("room", st.Key).Logger(),
	}
}

func (a *Actor) post(ctx context.Context, ev event) error {
	select {
	case a.inbox <- ev:
		return nil
	case <-a.done:
		return ErrActorRetired
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Actor) join(ctx context.Context, req JoinRequest) error {
	jr := joinRequest{
		ctx:         ctx,
		client:      req.Client,
		kind:        req.Kind,
		claimedName: req.UserName,
		token:       req.Token,
		reply:       make(chan error, 1),
	}
	if err := a.post(ctx, jr); err != nil {
		return err
	}
	select {
	case err := <-jr.reply:
		return err
	case <-a.done:
		select {
		case err := <-jr.reply:
			return err
		default:
			return ErrActorRetired
		}
	case <-ctx.Done():
		select {
		case err := <-jr.reply:
			return err
		default:
		}
		// The request is still queued. Whatever the actor makes of it, the
		// caller is gone, so the connection must not stay registered.
		go func() { _ = a.post(context.Background(), disconnect{client: req.Client}) }()
		return ctx.Err()
	}
}

func (a *Actor) run(ctx context.Context) {
	defer close(a.done)
	a.log.Info().Msg("room loaded")
	for {
		select {
		case ev := <-a.inbox:
			a.handle(ctx, ev)
			if a.idle() {
				a.retire()
				return
			}
		case <-ctx.Done():
			a.shutdown()
			return
		}
	}
}

func (a *Actor) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case joinRequest:
		if err := ev.ctx.Err(); err != nil {
			ev.reply <- err
			return
		}
		ev.reply <- a.handleJoin(ctx, ev)
	case inbound:
		a.handleInbound(ctx, ev)
	case disconnect:
		a.handleDisconnect(ctx, ev.client)
	case spinFired:
		a.completeSpin(ctx, ev.startedAt)
	}
}

func (a *Actor) idle() bool {
	return a.sessions.Len() == 0 && a.timer == nil
}

func (a *Actor) retire() {
	if a.onRetire != nil {
		a.onRetire(a)
	}
	a.log.Info().Msg("room unloaded")
}

func (a *Actor) shutdown() {
	a.stopTimer()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, c := range a.sessions.Clients() {
		user, _ := a.sessions.UserOf(c)
		a.sessions.Remove(c)
		c.close()
		if !a.sessions.HasUser(user) {
			a.setOffline(ctx, user)
		}
	}
	a.log.Info().Msg("room stopped")
}

func (a *Actor) now() time.Time {
	return a.opts.Now()
}

func (a *Actor) handleJoin(ctx context.Context, req joinRequest) error {
	if req.kind != "" && req.kind != a.state.Kind {
		return ErrRoomKindMismatch
	}
	claimed, err := domain.CleanName(req.claimedName)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidSession, err)
	}
	name, existing := domain.ResolveName(a.state, claimed)

	claims, err := a.opts.Verifier.VerifySession(ctx, a.key, name, req.token)
	if err != nil {
		a.log.Info().Err(err).Str("user", name).Msg("session rejected")
		if errors.Is(err, domain.ErrStorage) {
			return err
		}
		return domain.ErrInvalidSession
	}

	err = a.mutate(ctx, func(st *domain.RoomState) error {
		if !existing {
			st.AddMember(name, claims.Spectator)
		}
		st.ConnectedUsers[name] = true
		if st.Moderator == "" && st.IsUser(name) {
			st.Moderator = name
		}
		return nil
	})
	if err != nil {
		return err
	}

	req.client.actor = a
	a.sessions.Add(req.client, name)
	a.broadcast(ctx, makeUserJoined(name, a.state))
	a.sendTo(ctx, req.client, makeInitialize(name, a.state, a.opts.Games, a.now()))
	a.sendGameKey(ctx)
	a.log.Info().Str("user", name).Bool("new", !existing).Msg("user joined")
	return nil
}

type handler func(a *Actor, ctx context.Context, c *Client, user string, msg inboundMessage) error

func (a *Actor) handlerFor(msgType string) handler {
	if msgType == "updateSettings" {
		return (*Actor).updateSettings
	}
	if a.state.Kind == domain.KindWheel {
		switch msgType {
		case "addEntry":
			return (*Actor).addEntry
		case "removeEntry":
			return (*Actor).removeEntry
		case "updateEntry":
			return (*Actor).updateEntry
		case "toggleEntry":
			return (*Actor).toggleEntry
		case "clearEntries":
			return (*Actor).clearEntries
		case "bulkAddEntries":
			return (*Actor).bulkAddEntries
		case "spin":
			return (*Actor).spin
		case "resetWheel":
			return (*Actor).resetWheel
		}
		return nil
	}
	switch msgType {
	case "vote":
		return (*Actor).vote
	case "showVotes":
		return (*Actor).showVotes
	case "resetVotes":
		return (*Actor).resetVotes
	case "completeSession":
		return (*Actor).completeSession
	case "startGame":
		return (*Actor).startGame
	case "submitGameMove":
		return (*Actor).submitGameMove
	case "endGame":
		return (*Actor).endGame
	}
	return nil
}

func (a *Actor) handleInbound(ctx context.Context, ev inbound) {
	user, ok := a.sessions.UserOf(ev.client)
	if !ok {
		return
	}
	if ev.err != nil {
		a.reply(ctx, ev.client, ev.err)
		return
	}
	msg, err := decodeInbound(ev.data)
	if err != nil {
		a.reply(ctx, ev.client, err)
		return
	}
	if msg.Type == "ping" {
		a.sendTo(ctx, ev.client, makePong(a.now()))
		return
	}
	h := a.handlerFor(msg.Type)
	if h == nil {
		a.reply(ctx, ev.client, ErrUnknownMessageType)
		return
	}
	if a.state.IsCompleted() {
		return
	}
	if err := h(a, ctx, ev.client, user, msg); err != nil {
		a.log.Debug().Err(err).Str("user", user).Str("type", msg.Type).Msg("message rejected")
		a.reply(ctx, ev.client, err)
	}
}

func (a *Actor) handleDisconnect(ctx context.Context, c *Client) {
	user, ok := a.sessions.UserOf(c)
	if !ok {
		return
	}
	a.sessions.Remove(c)
	c.close()
	if a.sessions.HasUser(user) {
		return
	}
	a.setOffline(ctx, user)
	a.broadcast(ctx, makeUserLeft(user, a.state))
	a.log.Info().Str("user", user).Msg("user left")

	if a.state.Moderator != user {
		return
	}
	next := a.state.NextModerator(user)
	if next == "" {
		return
	}
	if err := a.mutate(ctx, func(st *domain.RoomState) error {
		st.Moderator = next
		return nil
	}); err != nil {
		return
	}
	a.broadcast(ctx, makeNewModerator(next))
	a.sendGameKey(ctx)
}

// setOffline flips liveness in memory first; the write to storage is best
// effort.
func (a *Actor) setOffline(ctx context.Context, user string) {
	a.state.ConnectedUsers[user] = false
	if err := a.opts.Repo.SetUserConnected(ctx, a.key, user, false); err != nil {
		a.log.Error().Err(err).Str("user", user).Msg("failed to persist liveness")
	}
}

// mutate applies fn to a copy of the state, persists the copy and only then
// makes it current. On any error the current state is untouched.
func (a *Actor) mutate(ctx context.Context, fn func(st *domain.RoomState) error) error {
	next, err := a.state.Clone()
	if err != nil {
		a.log.Error().Err(err).Msg("failed to copy room state")
		return ErrInternal
	}
	if err := fn(next); err != nil {
		return err
	}
	if err := a.opts.Repo.ReplaceRoom(ctx, next); err != nil {
		a.log.Error().Err(err).Msg("failed to persist room")
		return err
	}
	a.state = next
	return nil
}

func (a *Actor) requireModerator(user string) error {
	if a.state.Moderator != user {
		return ErrNotModerator
	}
	return nil
}

func (a *Actor) reply(ctx context.Context, c *Client, err error) {
	a.sendTo(ctx, c, makeError(publicError(err)))
}

func (a *Actor) sendTo(ctx context.Context, c *Client, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to encode message")
		return
	}
	if !c.Send(data) {
		a.dropClient(ctx, c)
	}
}

// broadcast encodes msg once and queues it for every live connection.
func (a *Actor) broadcast(ctx context.Context, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to encode message")
		return
	}
	for _, c := range a.sessions.Clients() {
		if !c.Send(data) {
			a.dropClient(ctx, c)
		}
	}
}

// dropClient handles a connection that could not take a message. The user is
// marked offline when this was their last connection, but nobody is told and
// the moderator role stays where it is.
func (a *Actor) dropClient(ctx context.Context, c *Client) {
	user, ok := a.sessions.UserOf(c)
	if !ok {
		return
	}
	a.sessions.Remove(c)
	c.close()
	a.log.Warn().Str("user", user).Str("client", c.id).Msg("dropped unresponsive connection")
	if !a.sessions.HasUser(user) {
		a.setOffline(ctx, user)
	}
}

func (a *Actor) sendToUser(ctx context.Context, user string, msg any) {
	for _, c := range a.sessions.ClientsOf(user) {
		a.sendTo(ctx, c, msg)
	}
}
