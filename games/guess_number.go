package games

import (
	"errors"
	"strconv"
	"strings"
)

const (
	guessMin      = 1
	guessMax      = 20
	guessAttempts = 10
	guessRounds   = 5
)

var errGuessOutOfRange = errors.New("guess must be a whole number from 1 to 20")

type guessNumberState struct {
	Secret int `json:"secret"`
}

func (*guessNumberState) gameType() Type { return TypeGuessTheNumber }

type guessNumberEngine struct{ base }

func (*guessNumberEngine) Type() Type     { return TypeGuessTheNumber }
func (*guessNumberEngine) Title() string  { return "Guess the Number" }
func (*guessNumberEngine) MaxRounds() int { return guessRounds }

func (e *guessNumberEngine) NewState() State {
	return &guessNumberState{Secret: e.draw()}
}

func (e *guessNumberEngine) draw() int {
	return guessMin + e.rng.IntN(guessMax-guessMin+1)
}

func parseGuess(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < guessMin || n > guessMax {
		return 0, errGuessOutOfRange
	}
	return n, nil
}

func (*guessNumberEngine) Validate(raw string) error {
	_, err := parseGuess(raw)
	return err
}

func (e *guessNumberEngine) ApplyMove(s *Session, user, raw string, mv Move) {
	st := s.State.(*guessNumberState)
	guess, _ := parseGuess(raw)

	// A repeated guess from the same player is ignored outright.
	own := s.RoundMovesBy(user)
	for _, prev := range own[:len(own)-1] {
		if n, err := parseGuess(prev.Value); err == nil && n == guess {
			s.DiscardLastMove()
			return
		}
	}

	diff := guess - st.Secret
	switch {
	case diff == 0:
		s.AddPoints(user, 3)
		s.AddEvent("%s guessed it! The number was %d", user, st.Secret)
		e.nextRound(s, st)
		return
	case diff >= -2 && diff <= 2:
		s.AddPoints(user, 1)
		s.AddEvent("%s is close with %d", user, guess)
	case diff > 0:
		s.AddEvent("%s guessed %d: too high", user, guess)
	default:
		s.AddEvent("%s guessed %d: too low", user, guess)
	}

	if s.RoundMoveCount() >= guessAttempts {
		s.AddEvent("Nobody found it, the number was %d", st.Secret)
		e.nextRound(s, st)
	}
}

func (e *guessNumberEngine) nextRound(s *Session, st *guessNumberState) {
	s.NextRound()
	st.Secret = e.draw()
}

type guessNumberView struct {
	Min          int `json:"min"`
	Max          int `json:"max"`
	AttemptsCap  int `json:"attemptsCap"`
	AttemptsUsed int `json:"attemptsUsed"`
}

func (*guessNumberEngine) PublicState(s *Session) any {
	return guessNumberView{Min: guessMin, Max: guessMax, AttemptsCap: guessAttempts, AttemptsUsed: s.RoundMoveCount()}
}
