package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"time"

	"huddle/games"
)

type RoomKind string

const (
	KindEstimation RoomKind = "estimation"
	KindWheel      RoomKind = "wheel"
)

func (k RoomKind) Valid() bool {
	return k == KindEstimation || k == KindWheel
}

type RoomStatus string

const (
	StatusActive    RoomStatus = "active"
	StatusCompleted RoomStatus = "completed"
)

// RoomState is the canonical state of one room. While a room is loaded its
// coordinator holds the only writable copy; storage mirrors it.
type RoomState struct {
	Key            string           `json:"key"`
	Kind           RoomKind         `json:"kind"`
	Users          []string         `json:"users"`
	Spectators     []string         `json:"spectators,omitempty"`
	ConnectedUsers map[string]bool  `json:"connectedUsers"`
	Moderator      string           `json:"moderator"`
	Settings       Settings         `json:"settings"`
	Status         RoomStatus       `json:"status"`
	CreatedAt      time.Time        `json:"createdAt"`
	PasscodeHash   string           `json:"passcodeHash,omitempty"`
	Wheel          *WheelState      `json:"wheel,omitempty"`
	Estimation     *EstimationState `json:"estimation,omitempty"`
	Game           *games.Session   `json:"game,omitempty"`
}

func NewRoomState(key string, kind RoomKind, now time.Time) *RoomState {
	st := &RoomState{
		Key:            key,
		Kind:           kind,
		Users:          []string{},
		ConnectedUsers: map[string]bool{},
		Settings:       DefaultSettings(kind),
		Status:         StatusActive,
		CreatedAt:      now,
	}
	switch kind {
	case KindWheel:
		st.Wheel = &WheelState{Entries: []Entry{}, Results: []SpinResult{}}
	case KindEstimation:
		st.Estimation = &EstimationState{Votes: map[string]string{}}
	}
	return st
}

// Clone returns a deep copy. Mutations are computed on a clone and only
// committed once persisted.
func (st *RoomState) Clone() (*RoomState, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("clone room %s: %w", st.Key, err)
	}
	clone := &RoomState{}
	if err := json.Unmarshal(data, clone); err != nil {
		return nil, fmt.Errorf("clone room %s: %w", st.Key, err)
	}
	if clone.ConnectedUsers == nil {
		clone.ConnectedUsers = map[string]bool{}
	}
	return clone, nil
}

func (st *RoomState) IsUser(name string) bool {
	return slices.Contains(st.Users, name)
}

func (st *RoomState) IsSpectator(name string) bool {
	return slices.Contains(st.Spectators, name)
}

func (st *RoomState) IsMember(name string) bool {
	return st.IsUser(name) || st.IsSpectator(name)
}

// AddMember adds a brand-new canonical name. Existing members are left alone
// so a name never ends up in both lists.
func (st *RoomState) AddMember(name string, spectator bool) {
	if st.IsMember(name) {
		return
	}
	if spectator {
		st.Spectators = append(st.Spectators, name)
	} else {
		st.Users = append(st.Users, name)
	}
	if _, ok := st.ConnectedUsers[name]; !ok {
		st.ConnectedUsers[name] = false
	}
}

func (st *RoomState) IsCompleted() bool {
	return st.Status == StatusCompleted
}

// ConnectedNames lists every connected member in sorted order, leaving out
// the given names.
func (st *RoomState) ConnectedNames(except ...string) []string {
	names := make([]string, 0, len(st.ConnectedUsers))
	for name, connected := range st.ConnectedUsers {
		if connected && !slices.Contains(except, name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ConnectedActiveUsers keeps the insertion order of Users.
func (st *RoomState) ConnectedActiveUsers() []string {
	names := make([]string, 0, len(st.Users))
	for _, name := range st.Users {
		if st.ConnectedUsers[name] {
			names = append(names, name)
		}
	}
	return names
}

// NextModerator picks the lexicographically smallest connected active user
// other than departing. Returns "" when nobody qualifies.
func (st *RoomState) NextModerator(departing string) string {
	candidates := make([]string, 0, len(st.Users))
	for _, name := range st.Users {
		if name != departing && st.ConnectedUsers[name] {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Strings(candidates)
	return candidates[0]
}

type EstimationState struct {
	Votes    map[string]string `json:"votes"`
	Revealed bool              `json:"revealed"`
}
