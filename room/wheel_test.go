package room

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huddle/domain"
)

func newSpinRoom(t *testing.T, removeWinner bool, entries ...string) (*testRoom, *Client, *Client) {
	t.Helper()
	st := newWheelState("naruto", entries...)
	st.AddMember("sasuke", false)
	st.Settings.RemoveWinnerAfterSpin = removeWinner
	tr := newTestRoom(t, st, func(o *Options) { o.Picker = fixedPicker(1) })
	mod := tr.join(t, "naruto")
	other := tr.join(t, "sasuke")
	drain(t, mod)
	drain(t, other)
	return tr, mod, other
}

func entryNames(entries []domain.Entry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}

func TestEntries_ModeratorEdits(t *testing.T) {
	t.Parallel()
	tr, mod, other := newSpinRoom(t, false, "A")

	tr.send(mod, `{"type":"addEntry","name":"  B  "}`)
	tr.send(mod, `{"type":"updateEntry","entryId":"id-A","name":"Alpha"}`)
	tr.send(mod, `{"type":"toggleEntry","entryId":"id-A","enabled":false}`)
	tr.send(mod, `{"type":"bulkAddEntries","names":["C","  ","D"]}`)

	msgs := drain(t, other)
	assert.Equal(t, []string{"entriesUpdated", "entriesUpdated", "entriesUpdated", "entriesUpdated"}, kinds(msgs))
	assert.Equal(t, []string{"Alpha", "B", "C", "D"}, entryNames(tr.stored(t).Wheel.Entries))
	assert.False(t, tr.a.state.Wheel.Entries[0].Enabled)

	tr.send(mod, `{"type":"removeEntry","entryId":"id-A"}`)
	assert.Equal(t, []string{"B", "C", "D"}, entryNames(tr.a.state.Wheel.Entries))

	tr.send(mod, `{"type":"clearEntries"}`)
	assert.Empty(t, tr.stored(t).Wheel.Entries)
}

func TestEntries_Rejections(t *testing.T) {
	t.Parallel()
	tr, mod, other := newSpinRoom(t, false, "A")

	tr.send(other, `{"type":"addEntry","name":"B"}`)
	tr.send(mod, `{"type":"addEntry","name":"   "}`)
	tr.send(mod, `{"type":"removeEntry","entryId":"missing"}`)
	tr.send(mod, `{"type":"toggleEntry","entryId":"id-A"}`)
	tr.send(mod, `{"type":"bulkAddEntries","names":[" ",""]}`)

	assert.Equal(t, []string{"not-moderator"}, errorsIn(drain(t, other)))
	assert.Equal(t, []string{"invalid-entry-name", "entry-not-found", "malformed-message", "invalid-entry-name"}, errorsIn(drain(t, mod)))
	assert.Equal(t, []string{"A"}, entryNames(tr.a.state.Wheel.Entries))
}

func TestEntries_Limit(t *testing.T) {
	t.Parallel()
	st := newWheelState("naruto")
	for i := 0; i < MaxEntries; i++ {
		st.Wheel.Entries = append(st.Wheel.Entries, domain.Entry{ID: strconv.Itoa(i), Name: "x", Enabled: true})
	}
	tr := newTestRoom(t, st)
	mod := tr.join(t, "naruto")
	drain(t, mod)

	tr.send(mod, `{"type":"addEntry","name":"one too many"}`)

	assert.Equal(t, []string{"too-many-entries"}, errorsIn(drain(t, mod)))
	assert.Len(t, tr.a.state.Wheel.Entries, MaxEntries)
}

func TestSpin_PicksTargetAndRemovesWinner(t *testing.T) {
	t.Parallel()
	tr, mod, other := newSpinRoom(t, true, "A", "B", "C")

	tr.send(mod, `{"type":"spin"}`)

	started := drain(t, other)
	require.Equal(t, []string{"spinStarted"}, kinds(started))
	spin := started[0]["spin"].(map[string]any)
	assert.Equal(t, float64(1), spin["targetIndex"])
	assert.Equal(t, float64(domain.DefaultSpinDurationMs), spin["duration"])
	assert.Equal(t, time.Duration(domain.DefaultSpinDurationMs)*time.Millisecond, tr.sched.last(t).d)
	assert.True(t, tr.stored(t).Wheel.IsSpinning())

	tr.clock = tr.clock.Add(5 * time.Second)
	tr.fire(t)

	ended := drain(t, other)
	require.Equal(t, []string{"spinEnded"}, kinds(ended))
	result := ended[0]["result"].(map[string]any)
	assert.Equal(t, "B", result["winner"])
	assert.Equal(t, true, result["removedAfter"])

	stored := tr.stored(t)
	assert.False(t, stored.Wheel.IsSpinning())
	assert.Equal(t, []string{"A", "C"}, entryNames(stored.Wheel.Entries))
	require.Len(t, stored.Wheel.Results, 1)
	assert.Equal(t, "B", stored.Wheel.Results[0].Winner)
	assert.Nil(t, tr.a.timer)
	drain(t, mod)
}

func TestSpin_KeepsWinnerByDefault(t *testing.T) {
	t.Parallel()
	tr, mod, _ := newSpinRoom(t, false, "A", "B", "C")

	tr.send(mod, `{"type":"spin"}`)
	tr.fire(t)

	assert.Equal(t, []string{"A", "B", "C"}, entryNames(tr.a.state.Wheel.Entries))
	assert.False(t, tr.a.state.Wheel.Results[0].RemovedAfter)
}

func TestSpin_OnlyCountsEnabledEntries(t *testing.T) {
	t.Parallel()
	st := newWheelState("naruto", "A", "B", "C")
	st.Wheel.Entries[1].Enabled = false
	tr := newTestRoom(t, st, func(o *Options) { o.Picker = fixedPicker(1) })
	mod := tr.join(t, "naruto")

	tr.send(mod, `{"type":"spin"}`)
	tr.fire(t)

	assert.Equal(t, "C", tr.a.state.Wheel.Results[0].Winner)
	drain(t, mod)
}

func TestSpin_Rejections(t *testing.T) {
	t.Parallel()
	st := newWheelState("naruto", "A", "B")
	st.Wheel.Entries[1].Enabled = false
	st.AddMember("sasuke", false)
	tr := newTestRoom(t, st)
	mod := tr.join(t, "naruto")
	other := tr.join(t, "sasuke")
	drain(t, mod)
	drain(t, other)

	tr.send(mod, `{"type":"spin"}`)
	tr.send(other, `{"type":"spin"}`)

	assert.Equal(t, []string{"not-enough-entries"}, errorsIn(drain(t, mod)))
	assert.Equal(t, []string{"not-moderator"}, errorsIn(drain(t, other)))
	assert.Empty(t, tr.sched.armed)
}

func TestSpin_LocksWheelWhileSpinning(t *testing.T) {
	t.Parallel()
	tr, mod, _ := newSpinRoom(t, false, "A", "B", "C")
	tr.send(mod, `{"type":"spin"}`)
	drain(t, mod)

	for _, raw := range []string{
		`{"type":"addEntry","name":"D"}`,
		`{"type":"removeEntry","entryId":"id-A"}`,
		`{"type":"updateEntry","entryId":"id-A","name":"Z"}`,
		`{"type":"toggleEntry","entryId":"id-A","enabled":false}`,
		`{"type":"clearEntries"}`,
		`{"type":"bulkAddEntries","names":["D"]}`,
	} {
		tr.send(mod, raw)
		assert.Equal(t, []string{"spin-in-progress"}, errorsIn(drain(t, mod)), raw)
	}

	tr.send(mod, `{"type":"spin"}`)
	tr.send(mod, `{"type":"resetWheel"}`)
	assert.Equal(t, []string{"already-spinning", "already-spinning"}, errorsIn(drain(t, mod)))
	assert.Len(t, tr.sched.armed, 1)
	assert.Equal(t, []string{"A", "B", "C"}, entryNames(tr.a.state.Wheel.Entries))
}

func TestSpin_StaleTimerIsNoop(t *testing.T) {
	t.Parallel()
	tr, mod, other := newSpinRoom(t, false, "A", "B", "C")
	ctx := context.Background()
	tr.send(mod, `{"type":"spin"}`)
	drain(t, other)

	tr.a.completeSpin(ctx, testNow.Add(-time.Minute))
	assert.Empty(t, drain(t, other))
	assert.True(t, tr.a.state.Wheel.IsSpinning())

	tr.fire(t)
	assert.Equal(t, []string{"spinEnded"}, kinds(drain(t, other)))

	tr.a.completeSpin(ctx, testNow)
	assert.Empty(t, drain(t, other))
	assert.Len(t, tr.a.state.Wheel.Results, 1)
	drain(t, mod)
}

func TestSpin_StorageFailureRetries(t *testing.T) {
	t.Parallel()
	tr, mod, other := newSpinRoom(t, true, "A", "B", "C")
	tr.send(mod, `{"type":"spin"}`)
	drain(t, other)

	tr.repo.fail = true
	tr.fire(t)

	assert.Empty(t, drain(t, other))
	assert.True(t, tr.a.state.Wheel.IsSpinning())
	require.Len(t, tr.sched.armed, 2)
	assert.Equal(t, spinRetryDelay, tr.sched.last(t).d)

	tr.repo.fail = false
	tr.fire(t)

	assert.Equal(t, []string{"spinEnded"}, kinds(drain(t, other)))
	assert.Equal(t, []string{"A", "C"}, entryNames(tr.stored(t).Wheel.Entries))
	drain(t, mod)
}

func TestSpin_ResumedAfterReload(t *testing.T) {
	t.Parallel()
	st := newWheelState("naruto", "A", "B")
	st.Wheel.Spin = &domain.SpinState{
		IsSpinning:  true,
		StartedAt:   testNow.Add(-time.Second),
		TargetIndex: 0,
		DurationMs:  5000,
	}
	tr := newTestRoom(t, st)

	tr.a.resumeSpin()

	assert.Equal(t, 4*time.Second, tr.sched.last(t).d)
	tr.fire(t)
	assert.Equal(t, "A", tr.stored(t).Wheel.Results[0].Winner)
}

func TestSpin_OverdueFiresImmediately(t *testing.T) {
	t.Parallel()
	st := newWheelState("naruto", "A", "B")
	st.Wheel.Spin = &domain.SpinState{IsSpinning: true, StartedAt: testNow.Add(-time.Hour), DurationMs: 5000}
	tr := newTestRoom(t, st)

	tr.a.resumeSpin()

	assert.Equal(t, time.Duration(0), tr.sched.last(t).d)
}

func TestResetWheel(t *testing.T) {
	t.Parallel()
	tr, mod, other := newSpinRoom(t, false, "A", "B")
	tr.send(mod, `{"type":"spin"}`)
	tr.fire(t)
	drain(t, other)

	tr.send(other, `{"type":"resetWheel"}`)
	assert.Equal(t, []string{"not-moderator"}, errorsIn(drain(t, other)))

	tr.send(mod, `{"type":"resetWheel"}`)
	msgs := drain(t, other)
	require.Equal(t, []string{"wheelReset"}, kinds(msgs))
	stored := tr.stored(t)
	assert.Empty(t, stored.Wheel.Entries)
	assert.Empty(t, stored.Wheel.Results)
	drain(t, mod)
}

func TestUpdateSettings(t *testing.T) {
	t.Parallel()
	tr, mod, other := newSpinRoom(t, false, "A", "B")

	tr.send(mod, `{"type":"updateSettings","settings":{"spinDurationMs":1500,"removeWinnerAfterSpin":true}}`)

	msgs := drain(t, other)
	require.Equal(t, []string{"settingsUpdated"}, kinds(msgs))
	settings := msgs[0]["settings"].(map[string]any)
	assert.Equal(t, float64(domain.MinSpinDurationMs), settings["spinDurationMs"])
	assert.Equal(t, true, settings["removeWinnerAfterSpin"])
	assert.Equal(t, domain.MinSpinDurationMs, tr.stored(t).Settings.SpinDurationMs)

	tr.send(other, `{"type":"updateSettings","settings":{"spinDurationMs":9000}}`)
	tr.send(mod, `{"type":"updateSettings","settings":{}}`)
	tr.send(mod, `{"type":"updateSettings"}`)
	assert.Equal(t, []string{"not-moderator"}, errorsIn(drain(t, other)))
	assert.Equal(t, []string{"malformed-message", "malformed-message"}, errorsIn(drain(t, mod)))

	tr.send(mod, `{"type":"spin"}`)
	assert.Equal(t, time.Duration(domain.MinSpinDurationMs)*time.Millisecond, tr.sched.last(t).d)
}

func TestMutation_StorageFailureIsNotBroadcast(t *testing.T) {
	t.Parallel()
	tr, mod, other := newSpinRoom(t, false, "A", "B")
	tr.repo.fail = true

	tr.send(mod, `{"type":"addEntry","name":"C"}`)
	tr.send(mod, `{"type":"spin"}`)

	assert.Equal(t, []string{"storage-error", "storage-error"}, errorsIn(drain(t, mod)))
	assert.Empty(t, drain(t, other))
	assert.Equal(t, []string{"A", "B"}, entryNames(tr.a.state.Wheel.Entries))
	assert.False(t, tr.a.state.Wheel.IsSpinning())
	assert.Empty(t, tr.sched.armed)
}
