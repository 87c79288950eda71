package games

import (
	"errors"
	"math/rand"
	"slices"
)

var (
	ErrUnknownGame      = errors.New("unknown-game")
	ErrGameOver         = errors.New("game-over")
	ErrNotParticipant   = errors.New("not-a-participant")
	ErrEmptyMove        = errors.New("empty-move")
	ErrMoveTooLong      = errors.New("move-too-long")
	ErrNotEnoughPlayers = errors.New("not-enough-players")
)

// Engine holds the rules of one mini-game. ApplyMove is the only place those
// rules live; the move being applied is already the last entry of s.Moves.
type Engine interface {
	Type() Type
	Title() string
	// MaxRounds caps the game; 0 means no cap.
	MaxRounds() int
	// Validate is a context-free check of a raw move value.
	Validate(raw string) error
	CanStart(participants []string) error
	NewState() State
	ApplyMove(s *Session, user, raw string, mv Move)
	// PublicState and PublicMove strip what other players must not see.
	PublicState(s *Session) any
	PublicMove(mv Move) Move
}

// KeyHolder is implemented by engines where one participant sees more than
// everybody else.
type KeyHolder interface {
	Key(s *Session) (holder string, key any)
}

type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.Intn(n) }

// DefaultRand is safe for concurrent use.
func DefaultRand() Rand { return globalRand{} }

type base struct {
	rng Rand
}

func (base) Validate(string) error { return nil }

func (base) CanStart(participants []string) error {
	if len(participants) < 1 {
		return ErrNotEnoughPlayers
	}
	return nil
}

func (base) PublicState(s *Session) any { return s.State }

func (base) PublicMove(mv Move) Move { return mv }

// pickFresh draws from pool while avoiding anything in recent. Once every
// value is recent it falls back to the whole pool. recent keeps the last
// keep picks.
func pickFresh(rng Rand, pool, recent []string, keep int) (string, []string) {
	fresh := make([]string, 0, len(pool))
	for _, v := range pool {
		if !slices.Contains(recent, v) {
			fresh = append(fresh, v)
		}
	}
	if len(fresh) == 0 {
		fresh = pool
	}
	pick := fresh[rng.IntN(len(fresh))]
	recent = append(recent, pick)
	if len(recent) > keep {
		recent = append([]string(nil), recent[len(recent)-keep:]...)
	}
	return pick, recent
}

func shuffle(rng Rand, values []string) []string {
	out := append([]string(nil), values...)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// tally counts normalized answers so callers can tell unique ones apart.
func tally(answers map[string]string, normalize func(string) string) map[string]int {
	counts := make(map[string]int, len(answers))
	for _, a := range answers {
		counts[normalize(a)]++
	}
	return counts
}
