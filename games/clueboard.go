package games

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

const (
	boardSize       = 16
	boardTargets    = 6
	boardBlockers   = 1
	clueboardRounds = 8
	maxClueCount    = 4
)

const (
	kindTarget  = "target"
	kindBlocker = "blocker"
	kindNeutral = "neutral"
)

var clueWordRe = regexp.MustCompile(`^[A-Za-z]{2,20}$`)

type clue struct {
	Word    string `json:"word"`
	Count   int    `json:"count"`
	Indices []int  `json:"indices"`
}

type clueboardState struct {
	Words    []string `json:"words"`
	Kinds    []string `json:"kinds"`
	Revealed []bool   `json:"revealed"`
	Clue     *clue    `json:"clue"`
	Budget   int      `json:"budget"`
	Found    int      `json:"found"`
}

func (*clueboardState) gameType() Type { return TypeClueboard }

func (st *clueboardState) targetsLeft() int {
	n := 0
	for i, k := range st.Kinds {
		if k == kindTarget && !st.Revealed[i] {
			n++
		}
	}
	return n
}

type clueboardEngine struct{ base }

func (*clueboardEngine) Type() Type     { return TypeClueboard }
func (*clueboardEngine) Title() string  { return "Clueboard" }
func (*clueboardEngine) MaxRounds() int { return clueboardRounds }

func (*clueboardEngine) CanStart(participants []string) error {
	if len(participants) < 2 {
		return ErrNotEnoughPlayers
	}
	return nil
}

func (e *clueboardEngine) NewState() State {
	kinds := make([]string, boardSize)
	for i := range kinds {
		switch {
		case i < boardTargets:
			kinds[i] = kindTarget
		case i < boardTargets+boardBlockers:
			kinds[i] = kindBlocker
		default:
			kinds[i] = kindNeutral
		}
	}
	return &clueboardState{
		Words:    shuffle(e.rng, clueboardWords)[:boardSize],
		Kinds:    shuffle(e.rng, kinds),
		Revealed: make([]bool, boardSize),
	}
}

func clueGiver(s *Session) string {
	if len(s.Participants) == 0 {
		return ""
	}
	return s.Participants[(s.Round-1)%len(s.Participants)]
}

// parseClue reads "<word> <count> <i,j,...>".
func parseClue(st *clueboardState, raw string) (*clue, error) {
	fields := strings.Fields(raw)
	if len(fields) != 3 {
		return nil, errors.New("clue format is: word count indices")
	}
	word := strings.ToLower(fields[0])
	if !clueWordRe.MatchString(word) {
		return nil, errors.New("clue must be a single word of 2 to 20 letters")
	}
	if slices.Contains(st.Words, word) {
		return nil, errors.New("clue cannot be a word on the board")
	}
	count, err := strconv.Atoi(fields[1])
	if err != nil || count < 1 || count > maxClueCount {
		return nil, fmt.Errorf("clue count must be 1 to %d", maxClueCount)
	}
	var indices []int
	for _, part := range strings.Split(fields[2], ",") {
		i, err := strconv.Atoi(part)
		if err != nil || i < 0 || i >= len(st.Words) {
			return nil, fmt.Errorf("%q is not a board position", part)
		}
		if st.Kinds[i] != kindTarget || st.Revealed[i] || slices.Contains(indices, i) {
			return nil, fmt.Errorf("position %d is not an open target", i)
		}
		indices = append(indices, i)
	}
	if len(indices) != count {
		return nil, fmt.Errorf("clue names %d positions but count is %d", len(indices), count)
	}
	return &clue{Word: word, Count: count, Indices: indices}, nil
}

func (e *clueboardEngine) ApplyMove(s *Session, user, raw string, mv Move) {
	st := s.State.(*clueboardState)
	giver := clueGiver(s)

	if user == giver {
		if st.Clue != nil {
			s.Reject(user, "clue already given this round")
			return
		}
		c, err := parseClue(st, raw)
		if err != nil {
			s.Reject(user, err.Error())
			return
		}
		st.Clue, st.Budget, st.Found = c, c.Count, 0
		s.AddEvent("%s gave the clue %s for %d", user, c.Word, c.Count)
		return
	}

	if st.Clue == nil {
		s.Reject(user, "wait for "+giver+"'s clue")
		return
	}
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "pass" {
		s.AddEvent("%s passed", user)
		e.endRound(s, st)
		return
	}
	i, err := strconv.Atoi(value)
	if err != nil || i < 0 || i >= len(st.Words) {
		s.Reject(user, "guess a board position or pass")
		return
	}
	if st.Revealed[i] {
		s.Reject(user, st.Words[i]+" is already revealed")
		return
	}

	st.Revealed[i] = true
	switch st.Kinds[i] {
	case kindTarget:
		s.AddPoints(user, 2)
		s.AddPoints(giver, 1)
		st.Budget--
		if slices.Contains(st.Clue.Indices, i) {
			st.Found++
		}
		s.AddEvent("%s found %s", user, st.Words[i])
		solved := st.Found == st.Clue.Count
		if solved {
			s.AddPoints(giver, 2)
			s.AddEvent("%s's clue was fully solved", giver)
		}
		if st.targetsLeft() == 0 {
			s.Finish("Every target has been found")
			return
		}
		if solved {
			e.endRound(s, st)
			return
		}
		if st.Budget <= 0 {
			e.endRound(s, st)
		}
	case kindBlocker:
		s.AddPoints(user, -1)
		s.Finish("%s hit the blocker %s", user, st.Words[i])
	default:
		s.AddEvent("%s revealed %s, a neutral word", user, st.Words[i])
		e.endRound(s, st)
	}
}

func (*clueboardEngine) endRound(s *Session, st *clueboardState) {
	s.NextRound()
	st.Clue, st.Budget, st.Found = nil, 0, 0
}

type clueView struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type clueboardView struct {
	Words       []string  `json:"words"`
	Kinds       []string  `json:"kinds"`
	Giver       string    `json:"giver"`
	Clue        *clueView `json:"clue"`
	Budget      int       `json:"budget"`
	TargetsLeft int       `json:"targetsLeft"`
}

// PublicState only shows the kind of revealed words.
func (*clueboardEngine) PublicState(s *Session) any {
	st := s.State.(*clueboardState)
	v := clueboardView{
		Words:       st.Words,
		Kinds:       make([]string, len(st.Kinds)),
		Giver:       clueGiver(s),
		Budget:      st.Budget,
		TargetsLeft: st.targetsLeft(),
	}
	for i, k := range st.Kinds {
		if st.Revealed[i] {
			v.Kinds[i] = k
		}
	}
	if st.Clue != nil {
		v.Clue = &clueView{Word: st.Clue.Word, Count: st.Clue.Count}
	}
	return v
}

// PublicMove drops the positions from a clue.
func (*clueboardEngine) PublicMove(mv Move) Move {
	fields := strings.Fields(mv.Value)
	if len(fields) == 3 {
		mv.Value = fields[0] + " " + fields[1]
	}
	return mv
}

type clueboardKey struct {
	Kinds []string `json:"kinds"`
}

// Key gives the current clue giver the full board layout.
func (*clueboardEngine) Key(s *Session) (string, any) {
	if s.IsCompleted() {
		return "", nil
	}
	st := s.State.(*clueboardState)
	return clueGiver(s), clueboardKey{Kinds: st.Kinds}
}
