package room

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"huddle/domain"
	"huddle/games"
	"huddle/storage"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockConnection) Read() ([]byte, error) {
	args := m.Called()
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockConnection) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockConnection) Close(code int, reason string) {
	m.Called(code, reason)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifySession(ctx context.Context, roomKey, userName, token string) (domain.SessionClaims, error) {
	args := m.Called(ctx, roomKey, userName, token)
	return args.Get(0).(domain.SessionClaims), args.Error(1)
}

// fakeVerifier accepts the tokens "user" and "spectator".
type fakeVerifier struct{}

func (fakeVerifier) VerifySession(_ context.Context, roomKey, userName, token string) (domain.SessionClaims, error) {
	switch token {
	case "user":
		return domain.SessionClaims{RoomKey: roomKey, UserName: userName}, nil
	case "spectator":
		return domain.SessionClaims{RoomKey: roomKey, UserName: userName, Spectator: true}, nil
	}
	return domain.SessionClaims{}, domain.ErrInvalidSession
}

type fakeTimer struct {
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type armedTimer struct {
	d     time.Duration
	f     func()
	timer *fakeTimer
}

type fakeScheduler struct {
	armed []armedTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{}
	s.armed = append(s.armed, armedTimer{d: d, f: f, timer: t})
	return t
}

func (s *fakeScheduler) last(t *testing.T) armedTimer {
	t.Helper()
	require.NotEmpty(t, s.armed, "no timer armed")
	return s.armed[len(s.armed)-1]
}

type fixedPicker int

func (p fixedPicker) Pick(n int) (int, error) {
	return min(int(p), n-1), nil
}

type fixedRand int

func (f fixedRand) IntN(n int) int { return min(int(f), n-1) }

// flakyRepo fails room writes on demand. onLiveness, when set, runs before
// every liveness write.
type flakyRepo struct {
	*storage.MemoryRepo
	fail       bool
	onLiveness func(user string, connected bool)
}

func (r *flakyRepo) SetUserConnected(ctx context.Context, key, user string, connected bool) error {
	if r.onLiveness != nil {
		r.onLiveness(user, connected)
	}
	return r.MemoryRepo.SetUserConnected(ctx, key, user, connected)
}

type verifierFunc func(ctx context.Context, roomKey, userName, token string) (domain.SessionClaims, error)

func (f verifierFunc) VerifySession(ctx context.Context, roomKey, userName, token string) (domain.SessionClaims, error) {
	return f(ctx, roomKey, userName, token)
}

func (r *flakyRepo) ReplaceRoom(ctx context.Context, st *domain.RoomState) error {
	if r.fail {
		return fmt.Errorf("%w: disk full", domain.ErrStorage)
	}
	return r.MemoryRepo.ReplaceRoom(ctx, st)
}

type testRoom struct {
	a     *Actor
	repo  *flakyRepo
	sched *fakeScheduler
	clock time.Time
}

// newTestRoom loads st into an actor that is never started; tests drive it
// by calling its handlers directly.
func newTestRoom(t *testing.T, st *domain.RoomState, configure ...func(*Options)) *testRoom {
	t.Helper()
	ctx := context.Background()
	tr := &testRoom{
		repo:  &flakyRepo{MemoryRepo: storage.NewMemoryRepo()},
		sched: &fakeScheduler{},
		clock: testNow,
	}
	require.NoError(t, tr.repo.CreateRoom(ctx, st))
	loaded, err := tr.repo.GetRoom(ctx, st.Key)
	require.NoError(t, err)

	opts := Options{
		Repo:      tr.repo,
		Verifier:  fakeVerifier{},
		Games:     games.NewRegistry(fixedRand(0)),
		Scheduler: tr.sched,
		Picker:    fixedPicker(0),
		Now:       func() time.Time { return tr.clock },
	}
	for _, fn := range configure {
		fn(&opts)
	}
	tr.a = newActor(loaded, opts)
	return tr
}

func newWheelState(moderator string, entries ...string) *domain.RoomState {
	st := domain.NewRoomState("wheel-1", domain.KindWheel, testNow)
	st.AddMember(moderator, false)
	st.Moderator = moderator
	for _, name := range entries {
		st.Wheel.Entries = append(st.Wheel.Entries, domain.Entry{ID: "id-" + name, Name: name, Enabled: true})
	}
	return st
}

func newEstimationState(moderator string) *domain.RoomState {
	st := domain.NewRoomState("est-1", domain.KindEstimation, testNow)
	st.AddMember(moderator, false)
	st.Moderator = moderator
	return st
}

func (tr *testRoom) joinAs(t *testing.T, name, token string) *Client {
	t.Helper()
	c := NewClient(nil, 64, 100, 100)
	err := tr.a.handleJoin(context.Background(), joinRequest{client: c, claimedName: name, token: token})
	require.NoError(t, err)
	return c
}

func (tr *testRoom) join(t *testing.T, name string) *Client {
	t.Helper()
	return tr.joinAs(t, name, "user")
}

func (tr *testRoom) send(c *Client, raw string) {
	tr.a.handleInbound(context.Background(), inbound{client: c, data: []byte(raw)})
}

// fire runs the callback of the last armed timer and feeds the resulting
// event to the actor.
func (tr *testRoom) fire(t *testing.T) {
	t.Helper()
	tr.sched.last(t).f()
	tr.a.handle(context.Background(), <-tr.a.inbox)
}

// nextEvent waits for the next queued event of a.
func nextEvent(t *testing.T, a *Actor) event {
	t.Helper()
	select {
	case ev := <-a.inbox:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event queued")
		return nil
	}
}

func (tr *testRoom) stored(t *testing.T) *domain.RoomState {
	t.Helper()
	st, err := tr.repo.GetRoom(context.Background(), tr.a.key)
	require.NoError(t, err)
	return st
}

type received map[string]any

func (r received) kind() string {
	s, _ := r["type"].(string)
	return s
}

// drain returns everything queued for c without blocking.
func drain(t *testing.T, c *Client) []received {
	t.Helper()
	var out []received
	for {
		select {
		case data, ok := <-c.outbox:
			if !ok {
				return out
			}
			var msg received
			require.NoError(t, json.Unmarshal(data, &msg))
			out = append(out, msg)
		default:
			return out
		}
	}
}

func kinds(msgs []received) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.kind())
	}
	return out
}

func errorsIn(msgs []received) []string {
	var out []string
	for _, m := range msgs {
		if m.kind() == "error" {
			out = append(out, m["error"].(string))
		}
	}
	return out
}
