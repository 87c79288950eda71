package games

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	chainMovesPerRound = 10
	chainRounds        = 3
)

var errChainWord = errors.New("word needs at least two letters")

type wordChainState struct {
	LastWord string   `json:"lastWord"`
	Used     []string `json:"used"`
}

func (*wordChainState) gameType() Type { return TypeWordChain }

type wordChainEngine struct{ base }

func (*wordChainEngine) Type() Type     { return TypeWordChain }
func (*wordChainEngine) Title() string  { return "Word Chain" }
func (*wordChainEngine) MaxRounds() int { return chainRounds }

func (*wordChainEngine) NewState() State {
	return &wordChainState{Used: []string{}}
}

// chainWord keeps only the letters of raw, lowercased.
func chainWord(raw string) string {
	return strings.Map(func(r rune) rune {
		if !unicode.IsLetter(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, raw)
}

func (*wordChainEngine) Validate(raw string) error {
	if utf8.RuneCountInString(chainWord(raw)) < 2 {
		return errChainWord
	}
	return nil
}

func (*wordChainEngine) ApplyMove(s *Session, user, raw string, mv Move) {
	st := s.State.(*wordChainState)
	word := chainWord(raw)

	if st.LastWord != "" {
		last, _ := utf8.DecodeLastRuneInString(st.LastWord)
		first, _ := utf8.DecodeRuneInString(word)
		if first != last {
			s.Reject(user, "\""+word+"\" does not start with "+string(last))
			return
		}
	}
	st.LastWord = word
	st.Used = append(st.Used, word)
	s.AddPoints(user, 2)
	s.AddEvent("%s played %s", user, word)

	if s.RoundMoveCount() >= chainMovesPerRound {
		s.NextRound()
	}
}

type wordChainView struct {
	LastWord      string `json:"lastWord"`
	NextLetter    string `json:"nextLetter"`
	MovesPerRound int    `json:"movesPerRound"`
}

func (*wordChainEngine) PublicState(s *Session) any {
	st := s.State.(*wordChainState)
	v := wordChainView{LastWord: st.LastWord, MovesPerRound: chainMovesPerRound}
	if st.LastWord != "" {
		last, _ := utf8.DecodeLastRuneInString(st.LastWord)
		v.NextLetter = string(last)
	}
	return v
}
