package domain

import (
	"testing"
	"time"

	"huddle/games"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveName(t *testing.T) {
	t.Parallel()
	st := NewRoomState("k", KindEstimation, time.Now())
	st.AddMember("Naruto", false)
	st.AddMember("Kakashi", true)

	testCases := []struct {
		claimed  string
		want     string
		existing bool
	}{
		{"naruto", "Naruto", true},
		{"  NARUTO ", "Naruto", true},
		{"kakashi", "Kakashi", true},
		{" Sakura ", "Sakura", false},
	}
	for _, tc := range testCases {
		got, existing := ResolveName(st, tc.claimed)
		assert.Equal(t, tc.want, got, tc.claimed)
		assert.Equal(t, tc.existing, existing, tc.claimed)
	}
}

func TestAddMember_NeverDuplicates(t *testing.T) {
	t.Parallel()
	st := NewRoomState("k", KindEstimation, time.Now())
	st.AddMember("naruto", false)
	st.AddMember("naruto", true)

	assert.Equal(t, []string{"naruto"}, st.Users)
	assert.Empty(t, st.Spectators)
	assert.Contains(t, st.ConnectedUsers, "naruto")
}

func TestNextModerator(t *testing.T) {
	t.Parallel()
	st := NewRoomState("k", KindWheel, time.Now())
	for _, n := range []string{"sasuke", "naruto", "itachi", "jiraiya"} {
		st.AddMember(n, false)
	}
	st.AddMember("kakashi", true)
	st.ConnectedUsers["kakashi"] = true
	st.ConnectedUsers["sasuke"] = true
	st.ConnectedUsers["naruto"] = true
	st.ConnectedUsers["jiraiya"] = true

	assert.Equal(t, "jiraiya", st.NextModerator("itachi"))
	assert.Equal(t, "naruto", st.NextModerator("jiraiya"))

	st.ConnectedUsers["naruto"] = false
	st.ConnectedUsers["jiraiya"] = false
	assert.Equal(t, "", st.NextModerator("sasuke"), "spectators never become moderator")
}

func TestClampSpinDuration(t *testing.T) {
	t.Parallel()
	assert.Equal(t, MinSpinDurationMs, ClampSpinDuration(1500))
	assert.Equal(t, MaxSpinDurationMs, ClampSpinDuration(60000))
	assert.Equal(t, 4000, ClampSpinDuration(4000))

	s := DefaultSettings(KindWheel)
	ms := 1500
	merged := s.Merge(SettingsPatch{SpinDurationMs: &ms})
	assert.Equal(t, 2000, merged.SpinDurationMs)
	assert.False(t, merged.RemoveWinnerAfterSpin)
}

func TestClone_IsDeep(t *testing.T) {
	t.Parallel()
	reg := games.NewRegistry(games.DefaultRand())
	st := NewRoomState("k", KindEstimation, time.Now())
	st.AddMember("naruto", false)
	st.AddMember("sasuke", false)
	session, err := reg.Start(games.TypeWordChain, "naruto", []string{"naruto", "sasuke"}, time.Now())
	require.NoError(t, err)
	st.Game = session

	clone, err := st.Clone()
	require.NoError(t, err)
	clone.Users[0] = "boruto"
	clone.ConnectedUsers["naruto"] = true
	clone.Game.Leaderboard["naruto"] = 10

	assert.Equal(t, "naruto", st.Users[0])
	assert.False(t, st.ConnectedUsers["naruto"])
	assert.Equal(t, 0, st.Game.Leaderboard["naruto"])
	assert.Equal(t, games.TypeWordChain, clone.Game.Type)
	assert.NotNil(t, clone.Game.State)
}
