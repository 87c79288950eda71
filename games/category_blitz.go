package games

import (
	"errors"
	"regexp"
	"strings"
)

const blitzRounds = 5

var (
	blitzAnswerRe  = regexp.MustCompile(`^[A-Za-z][A-Za-z' -]{1,29}$`)
	errBlitzAnswer = errors.New("answers are 2 to 30 letters, spaces, hyphens or apostrophes")
	blitzPrompts   = blitzCombos()
)

func blitzCombos() []string {
	combos := make([]string, 0, len(blitzCategories)*len(blitzLetters))
	for _, c := range blitzCategories {
		for _, l := range blitzLetters {
			combos = append(combos, c+"|"+l)
		}
	}
	return combos
}

type blitzState struct {
	Category string            `json:"category"`
	Letter   string            `json:"letter"`
	Recent   []string          `json:"recent"`
	Answers  map[string]string `json:"answers"`
}

func (*blitzState) gameType() Type { return TypeCategoryBlitz }

type blitzEngine struct{ base }

func (*blitzEngine) Type() Type     { return TypeCategoryBlitz }
func (*blitzEngine) Title() string  { return "Category Blitz" }
func (*blitzEngine) MaxRounds() int { return blitzRounds }

func (e *blitzEngine) NewState() State {
	st := &blitzState{}
	e.resetRound(st)
	return st
}

func (e *blitzEngine) resetRound(st *blitzState) {
	var combo string
	combo, st.Recent = pickFresh(e.rng, blitzPrompts, st.Recent, 8)
	st.Category, st.Letter, _ = strings.Cut(combo, "|")
	st.Answers = map[string]string{}
}

func (*blitzEngine) Validate(raw string) error {
	if !blitzAnswerRe.MatchString(strings.TrimSpace(raw)) {
		return errBlitzAnswer
	}
	return nil
}

func normalizeAnswer(a string) string {
	return strings.Join(strings.Fields(strings.ToLower(a)), " ")
}

func (e *blitzEngine) ApplyMove(s *Session, user, raw string, mv Move) {
	st := s.State.(*blitzState)
	answer := strings.TrimSpace(raw)
	if !strings.EqualFold(answer[:1], st.Letter) {
		s.Reject(user, "answer must start with "+st.Letter)
		return
	}
	if _, done := st.Answers[user]; done {
		s.Reject(user, "already answered this round")
		return
	}
	st.Answers[user] = answer
	s.AddEvent("%s answered", user)
	if len(st.Answers) < len(s.Participants) {
		return
	}

	counts := tally(st.Answers, normalizeAnswer)
	for _, p := range s.Participants {
		a := st.Answers[p]
		if counts[normalizeAnswer(a)] == 1 {
			s.AddPoints(p, 3)
		} else {
			s.AddPoints(p, 1)
		}
	}
	s.AddEvent("Round %d answers are in for %s starting with %s", s.Round, st.Category, st.Letter)
	s.NextRound()
	e.resetRound(st)
}

type blitzView struct {
	Category string   `json:"category"`
	Letter   string   `json:"letter"`
	Answered []string `json:"answered"`
}

func (*blitzEngine) PublicState(s *Session) any {
	st := s.State.(*blitzState)
	v := blitzView{Category: st.Category, Letter: st.Letter, Answered: []string{}}
	for _, p := range s.Participants {
		if _, ok := st.Answers[p]; ok {
			v.Answered = append(v.Answered, p)
		}
	}
	return v
}
