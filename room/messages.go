package room

import (
	"encoding/json"
	"time"

	"huddle/domain"
	"huddle/games"
)

// inboundMessage is the union of every field any inbound type carries.
type inboundMessage struct {
	Type     string                `json:"type"`
	Name     string                `json:"name"`
	EntryID  string                `json:"entryId"`
	Enabled  *bool                 `json:"enabled"`
	Names    []string              `json:"names"`
	Settings *domain.SettingsPatch `json:"settings"`
	Value    *string               `json:"value"`
	GameType games.Type            `json:"gameType"`
}

func decodeInbound(data []byte) (inboundMessage, error) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		return inboundMessage{}, ErrMalformedMessage
	}
	return msg, nil
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func makeError(text string) errorMessage {
	return errorMessage{Type: "error", Error: text}
}

type pongMessage struct {
	Type       string    `json:"type"`
	ServerTime time.Time `json:"serverTime"`
}

func makePong(now time.Time) pongMessage {
	return pongMessage{Type: "pong", ServerTime: now}
}

type estimationView struct {
	Revealed bool              `json:"revealed"`
	Voted    []string          `json:"voted"`
	Votes    map[string]string `json:"votes,omitempty"`
}

// roomSnapshot is the client-facing copy of a room. Unrevealed votes and the
// passcode hash never leave the server.
type roomSnapshot struct {
	Key            string             `json:"key"`
	Kind           domain.RoomKind    `json:"kind"`
	Users          []string           `json:"users"`
	Spectators     []string           `json:"spectators"`
	ConnectedUsers map[string]bool    `json:"connectedUsers"`
	Moderator      string             `json:"moderator"`
	Settings       domain.Settings    `json:"settings"`
	Status         domain.RoomStatus  `json:"status"`
	CreatedAt      time.Time          `json:"createdAt"`
	HasPasscode    bool               `json:"hasPasscode"`
	Wheel          *domain.WheelState `json:"wheel,omitempty"`
	Estimation     *estimationView    `json:"estimation,omitempty"`
	Game           *games.SessionView `json:"game,omitempty"`
}

func makeSnapshot(st *domain.RoomState, reg *games.Registry) roomSnapshot {
	snap := roomSnapshot{
		Key:            st.Key,
		Kind:           st.Kind,
		Users:          st.Users,
		Spectators:     st.Spectators,
		ConnectedUsers: st.ConnectedUsers,
		Moderator:      st.Moderator,
		Settings:       st.Settings,
		Status:         st.Status,
		CreatedAt:      st.CreatedAt,
		HasPasscode:    st.PasscodeHash != "",
		Wheel:          st.Wheel,
	}
	if snap.Spectators == nil {
		snap.Spectators = []string{}
	}
	if st.Estimation != nil {
		snap.Estimation = makeEstimationView(st)
	}
	if st.Game != nil {
		v := reg.View(st.Game)
		snap.Game = &v
	}
	return snap
}

func makeEstimationView(st *domain.RoomState) *estimationView {
	v := &estimationView{Revealed: st.Estimation.Revealed, Voted: []string{}}
	for _, name := range st.Users {
		if _, ok := st.Estimation.Votes[name]; ok {
			v.Voted = append(v.Voted, name)
		}
	}
	if v.Revealed {
		v.Votes = st.Estimation.Votes
	}
	return v
}

type initializeMessage struct {
	Type       string       `json:"type"`
	User       string       `json:"user"`
	Room       roomSnapshot `json:"room"`
	Games      []games.Info `json:"games,omitempty"`
	ServerTime time.Time    `json:"serverTime"`
}

func makeInitialize(user string, st *domain.RoomState, reg *games.Registry, now time.Time) initializeMessage {
	msg := initializeMessage{Type: "initialize", User: user, Room: makeSnapshot(st, reg), ServerTime: now}
	if st.Kind == domain.KindEstimation {
		msg.Games = reg.Catalog()
	}
	return msg
}

type membershipMessage struct {
	Type           string          `json:"type"`
	User           string          `json:"user"`
	Users          []string        `json:"users"`
	Spectators     []string        `json:"spectators"`
	ConnectedUsers []string        `json:"connectedUsers"`
	Liveness       map[string]bool `json:"liveness"`
	Moderator      string          `json:"moderator"`
}

func makeUserJoined(user string, st *domain.RoomState) membershipMessage {
	return membershipMessage{
		Type:           "userJoined",
		User:           user,
		Users:          st.Users,
		Spectators:     nonNil(st.Spectators),
		ConnectedUsers: st.ConnectedNames(),
		Liveness:       st.ConnectedUsers,
		Moderator:      st.Moderator,
	}
}

func makeUserLeft(user string, st *domain.RoomState) membershipMessage {
	msg := makeUserJoined(user, st)
	msg.Type = "userLeft"
	msg.ConnectedUsers = st.ConnectedNames(user)
	return msg
}

type moderatorMessage struct {
	Type      string `json:"type"`
	Moderator string `json:"moderator"`
}

func makeNewModerator(name string) moderatorMessage {
	return moderatorMessage{Type: "newModerator", Moderator: name}
}

type entriesMessage struct {
	Type    string         `json:"type"`
	Entries []domain.Entry `json:"entries"`
}

func makeEntriesUpdated(entries []domain.Entry) entriesMessage {
	return entriesMessage{Type: "entriesUpdated", Entries: nonNil(entries)}
}

type spinStartedMessage struct {
	Type   string           `json:"type"`
	Spin   domain.SpinState `json:"spin"`
	EndsAt time.Time        `json:"endsAt"`
}

func makeSpinStarted(spin domain.SpinState) spinStartedMessage {
	return spinStartedMessage{Type: "spinStarted", Spin: spin, EndsAt: spin.EndsAt()}
}

type spinEndedMessage struct {
	Type    string            `json:"type"`
	Entries []domain.Entry    `json:"entries"`
	Result  domain.SpinResult `json:"result"`
}

func makeSpinEnded(entries []domain.Entry, result domain.SpinResult) spinEndedMessage {
	return spinEndedMessage{Type: "spinEnded", Entries: nonNil(entries), Result: result}
}

type wheelResetMessage struct {
	Type  string            `json:"type"`
	Wheel domain.WheelState `json:"wheel"`
}

func makeWheelReset(w domain.WheelState) wheelResetMessage {
	return wheelResetMessage{Type: "wheelReset", Wheel: w}
}

type settingsMessage struct {
	Type     string          `json:"type"`
	Settings domain.Settings `json:"settings"`
}

func makeSettingsUpdated(s domain.Settings) settingsMessage {
	return settingsMessage{Type: "settingsUpdated", Settings: s}
}

type voteUpdatedMessage struct {
	Type     string `json:"type"`
	User     string `json:"user"`
	HasVoted bool   `json:"hasVoted"`
}

func makeVoteUpdated(user string, hasVoted bool) voteUpdatedMessage {
	return voteUpdatedMessage{Type: "voteUpdated", User: user, HasVoted: hasVoted}
}

type estimationMessage struct {
	Type       string         `json:"type"`
	Estimation estimationView `json:"estimation"`
}

func makeEstimation(kind string, st *domain.RoomState) estimationMessage {
	return estimationMessage{Type: kind, Estimation: *makeEstimationView(st)}
}

type statusMessage struct {
	Type   string            `json:"type"`
	Status domain.RoomStatus `json:"status"`
}

func makeSessionCompleted() statusMessage {
	return statusMessage{Type: "sessionCompleted", Status: domain.StatusCompleted}
}

type gameMessage struct {
	Type string            `json:"type"`
	Game games.SessionView `json:"game"`
}

func makeGame(kind string, view games.SessionView) gameMessage {
	return gameMessage{Type: kind, Game: view}
}

type gameKeyMessage struct {
	Type string `json:"type"`
	Key  any    `json:"key"`
}

func makeGameKey(key any) gameKeyMessage {
	return gameKeyMessage{Type: "gameKey", Key: key}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
