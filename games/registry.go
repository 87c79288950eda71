package games

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const maxMoveLength = 200

// Registry is the fixed table of engines, keyed by game type.
type Registry struct {
	engines map[Type]Engine
	order   []Type
}

func NewRegistry(rng Rand) *Registry {
	r := &Registry{engines: map[Type]Engine{}}
	for _, e := range []Engine{
		&guessNumberEngine{base{rng}},
		&wordChainEngine{base{rng}},
		&emojiStoryEngine{base{rng}},
		&pitchEngine{base{rng}},
		&blitzEngine{base{rng}},
		&clueboardEngine{base{rng}},
	} {
		r.engines[e.Type()] = e
		r.order = append(r.order, e.Type())
	}
	return r
}

func (r *Registry) Get(t Type) (Engine, bool) {
	e, ok := r.engines[t]
	return e, ok
}

type Info struct {
	Type      Type   `json:"type"`
	Title     string `json:"title"`
	MaxRounds int    `json:"maxRounds"`
}

func (r *Registry) Catalog() []Info {
	infos := make([]Info, 0, len(r.order))
	for _, t := range r.order {
		e := r.engines[t]
		infos = append(infos, Info{Type: t, Title: e.Title(), MaxRounds: e.MaxRounds()})
	}
	return infos
}

// Start builds a fresh session for participants, in the given order.
func (r *Registry) Start(t Type, startedBy string, participants []string, now time.Time) (*Session, error) {
	e, ok := r.engines[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, t)
	}
	if err := e.CanStart(participants); err != nil {
		return nil, err
	}
	s := &Session{
		Type:         t,
		StartedBy:    startedBy,
		StartedAt:    now,
		Round:        1,
		Status:       StatusActive,
		Participants: append([]string(nil), participants...),
		Leaderboard:  make(map[string]int, len(participants)),
		Moves:        []Move{},
		Events:       []Event{},
		State:        e.NewState(),
	}
	for _, p := range participants {
		s.Leaderboard[p] = 0
	}
	s.AddEvent("%s started %s", startedBy, e.Title())
	return s, nil
}

// Submit appends the move and hands it to the engine. Errors are framework
// rejections and leave s untouched; rule violations are recorded on s.
func (r *Registry) Submit(s *Session, user, raw string, now time.Time) error {
	e, ok := r.engines[s.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownGame, s.Type)
	}
	if s.IsCompleted() {
		return ErrGameOver
	}
	if !s.IsParticipant(user) {
		return ErrNotParticipant
	}
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyMove
	}
	if utf8.RuneCountInString(raw) > maxMoveLength {
		return ErrMoveTooLong
	}

	mv := Move{ID: uuid.NewString(), User: user, SubmittedAt: now, Value: raw, Round: s.Round}
	s.Moves = append(s.Moves, mv)

	if err := e.Validate(raw); err != nil {
		s.Reject(user, err.Error())
		return nil
	}
	e.ApplyMove(s, user, raw, mv)

	if limit := e.MaxRounds(); limit > 0 && s.Round > limit && !s.IsCompleted() {
		s.Round = limit
		s.Finish("Game over after %d rounds", limit)
	}
	return nil
}

type SessionView struct {
	Type         Type           `json:"type"`
	Title        string         `json:"title"`
	StartedBy    string         `json:"startedBy"`
	StartedAt    time.Time      `json:"startedAt"`
	Round        int            `json:"round"`
	MaxRounds    int            `json:"maxRounds"`
	Status       Status         `json:"status"`
	Participants []string       `json:"participants"`
	Leaderboard  map[string]int `json:"leaderboard"`
	Moves        []Move         `json:"moves"`
	Events       []Event        `json:"events"`
	State        any            `json:"state"`
}

func (r *Registry) View(s *Session) SessionView {
	e := r.engines[s.Type]
	moves := make([]Move, 0, len(s.Moves))
	for _, mv := range s.Moves {
		moves = append(moves, e.PublicMove(mv))
	}
	return SessionView{
		Type:         s.Type,
		Title:        e.Title(),
		StartedBy:    s.StartedBy,
		StartedAt:    s.StartedAt,
		Round:        s.Round,
		MaxRounds:    e.MaxRounds(),
		Status:       s.Status,
		Participants: s.Participants,
		Leaderboard:  s.Leaderboard,
		Moves:        moves,
		Events:       s.Events,
		State:        e.PublicState(s),
	}
}

// Key returns the private view for the one participant entitled to it, if
// the engine has one.
func (r *Registry) Key(s *Session) (string, any, bool) {
	kh, ok := r.engines[s.Type].(KeyHolder)
	if !ok {
		return "", nil, false
	}
	holder, key := kh.Key(s)
	if holder == "" {
		return "", nil, false
	}
	return holder, key, true
}
