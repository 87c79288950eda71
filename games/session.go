package games

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

type Type string

const (
	TypeGuessTheNumber Type = "guessTheNumber"
	TypeWordChain      Type = "wordChain"
	TypeEmojiStory     Type = "emojiStory"
	TypeOneWordPitch   Type = "oneWordPitch"
	TypeCategoryBlitz  Type = "categoryBlitz"
	TypeClueboard      Type = "clueboard"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// MaxEvents bounds the narrative log kept on a session.
const MaxEvents = 10

type Move struct {
	ID          string    `json:"id"`
	User        string    `json:"user"`
	SubmittedAt time.Time `json:"submittedAt"`
	Value       string    `json:"value"`
	Round       int       `json:"round"`
}

type Event struct {
	Round int    `json:"round"`
	Text  string `json:"text"`
}

// State is the engine-owned part of a session. Every engine has its own
// variant; only that engine reads or writes it.
type State interface {
	gameType() Type
}

type Session struct {
	Type         Type           `json:"type"`
	StartedBy    string         `json:"startedBy"`
	StartedAt    time.Time      `json:"startedAt"`
	Round        int            `json:"round"`
	Status       Status         `json:"status"`
	Participants []string       `json:"participants"`
	Leaderboard  map[string]int `json:"leaderboard"`
	Moves        []Move         `json:"moves"`
	Events       []Event        `json:"events"`
	State        State          `json:"-"`
}

func (s *Session) IsParticipant(user string) bool {
	return slices.Contains(s.Participants, user)
}

func (s *Session) IsCompleted() bool {
	return s.Status == StatusCompleted
}

// AddEvent appends to the narrative log, dropping the oldest entries past
// MaxEvents.
func (s *Session) AddEvent(format string, args ...any) {
	s.Events = append(s.Events, Event{Round: s.Round, Text: fmt.Sprintf(format, args...)})
	if len(s.Events) > MaxEvents {
		s.Events = append([]Event(nil), s.Events[len(s.Events)-MaxEvents:]...)
	}
}

// AddPoints is additive; delta may be negative.
func (s *Session) AddPoints(user string, delta int) {
	if s.Leaderboard == nil {
		s.Leaderboard = map[string]int{}
	}
	s.Leaderboard[user] += delta
}

// DiscardLastMove drops the move appended for the submission being applied.
// Earlier moves are never touched.
func (s *Session) DiscardLastMove() {
	if len(s.Moves) > 0 {
		s.Moves = s.Moves[:len(s.Moves)-1]
	}
}

// Reject strips the submission from the log and records why.
func (s *Session) Reject(user, reason string) {
	s.DiscardLastMove()
	s.AddEvent("%s's move was rejected: %s", user, reason)
}

func (s *Session) RoundMoves() []Move {
	moves := make([]Move, 0)
	for _, mv := range s.Moves {
		if mv.Round == s.Round {
			moves = append(moves, mv)
		}
	}
	return moves
}

func (s *Session) RoundMoveCount() int {
	return len(s.RoundMoves())
}

// RoundMovesBy returns user's moves in the current round, the one being
// applied included.
func (s *Session) RoundMovesBy(user string) []Move {
	moves := make([]Move, 0)
	for _, mv := range s.Moves {
		if mv.Round == s.Round && mv.User == user {
			moves = append(moves, mv)
		}
	}
	return moves
}

func (s *Session) NextRound() {
	s.Round++
}

func (s *Session) Finish(format string, args ...any) {
	s.AddEvent(format, args...)
	s.Status = StatusCompleted
}

func (s Session) MarshalJSON() ([]byte, error) {
	type alias Session
	state, err := json.Marshal(s.State)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		alias
		State json.RawMessage `json:"state"`
	}{alias(s), state})
}

func (s *Session) UnmarshalJSON(data []byte) error {
	type alias Session
	aux := struct {
		*alias
		State json.RawMessage `json:"state"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	state, err := newState(s.Type)
	if err != nil {
		return err
	}
	if len(aux.State) > 0 && string(aux.State) != "null" {
		if err := json.Unmarshal(aux.State, state); err != nil {
			return fmt.Errorf("decode %s state: %w", s.Type, err)
		}
	}
	s.State = state
	return nil
}

func newState(t Type) (State, error) {
	switch t {
	case TypeGuessTheNumber:
		return &guessNumberState{}, nil
	case TypeWordChain:
		return &wordChainState{}, nil
	case TypeEmojiStory:
		return &emojiStoryState{}, nil
	case TypeOneWordPitch:
		return &pitchState{}, nil
	case TypeCategoryBlitz:
		return &blitzState{}, nil
	case TypeClueboard:
		return &clueboardState{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownGame, t)
}
