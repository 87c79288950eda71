package games

import (
	"regexp"
	"strings"
)

const pitchRounds = 3

type pitchPhase string

const (
	phaseSubmit pitchPhase = "submit"
	phaseVote   pitchPhase = "vote"
)

var pitchWordRe = regexp.MustCompile(`^[A-Za-z0-9-]{1,24}$`)

type pitchState struct {
	Phase       pitchPhase        `json:"phase"`
	Prompt      string            `json:"prompt"`
	Recent      []string          `json:"recent"`
	Submissions map[string]string `json:"submissions"`
	Votes       map[string]string `json:"votes"`
}

func (*pitchState) gameType() Type { return TypeOneWordPitch }

type pitchEngine struct{ base }

func (*pitchEngine) Type() Type     { return TypeOneWordPitch }
func (*pitchEngine) Title() string  { return "One-Word Pitch" }
func (*pitchEngine) MaxRounds() int { return pitchRounds }

func (e *pitchEngine) NewState() State {
	st := &pitchState{}
	e.resetRound(st)
	return st
}

func (e *pitchEngine) resetRound(st *pitchState) {
	st.Phase = phaseSubmit
	st.Prompt, st.Recent = pickFresh(e.rng, pitchPrompts, st.Recent, 4)
	st.Submissions = map[string]string{}
	st.Votes = map[string]string{}
}

func (e *pitchEngine) ApplyMove(s *Session, user, raw string, mv Move) {
	st := s.State.(*pitchState)
	if st.Phase == phaseVote {
		e.vote(s, st, user, strings.TrimSpace(raw))
		return
	}

	word := strings.TrimSpace(raw)
	if !pitchWordRe.MatchString(word) {
		s.Reject(user, "one word, letters digits or hyphens, up to 24 characters")
		return
	}
	if _, done := st.Submissions[user]; done {
		s.Reject(user, "already pitched this round")
		return
	}
	st.Submissions[user] = word
	s.AddEvent("%s pitched", user)
	if len(st.Submissions) < len(s.Participants) {
		return
	}

	counts := tally(st.Submissions, strings.ToLower)
	for who, w := range st.Submissions {
		if counts[strings.ToLower(w)] == 1 {
			s.AddPoints(who, 3)
		} else {
			s.AddPoints(who, 1)
		}
	}
	if len(s.Participants) < 2 {
		s.AddEvent("Pitch was %s", word)
		e.nextRound(s, st)
		return
	}
	st.Phase = phaseVote
	s.AddEvent("All pitches are in, time to vote")
}

func (e *pitchEngine) vote(s *Session, st *pitchState, user, target string) {
	if _, done := st.Votes[user]; done {
		s.Reject(user, "already voted this round")
		return
	}
	if strings.EqualFold(target, user) {
		s.Reject(user, "cannot vote for yourself")
		return
	}
	var pick string
	for who := range st.Submissions {
		if strings.EqualFold(who, target) {
			pick = who
			break
		}
	}
	if pick == "" {
		s.Reject(user, "vote for another player's pitch")
		return
	}
	st.Votes[user] = pick
	s.AddEvent("%s voted", user)
	if len(st.Votes) < len(s.Participants) {
		return
	}

	received := make(map[string]int, len(st.Votes))
	best := 0
	for _, who := range st.Votes {
		received[who]++
		best = max(best, received[who])
	}
	for _, p := range s.Participants {
		if received[p] == best {
			s.AddPoints(p, 2)
			s.AddEvent("%s won the vote with %s", p, st.Submissions[p])
		}
	}
	e.nextRound(s, st)
}

func (e *pitchEngine) nextRound(s *Session, st *pitchState) {
	s.NextRound()
	e.resetRound(st)
}

type pitchView struct {
	Phase       pitchPhase        `json:"phase"`
	Prompt      string            `json:"prompt"`
	Submitted   []string          `json:"submitted"`
	Submissions map[string]string `json:"submissions,omitempty"`
	Voted       []string          `json:"voted"`
}

// PublicState only reveals the pitches once voting opens.
func (*pitchEngine) PublicState(s *Session) any {
	st := s.State.(*pitchState)
	v := pitchView{Phase: st.Phase, Prompt: st.Prompt, Submitted: []string{}, Voted: []string{}}
	for _, p := range s.Participants {
		if _, ok := st.Submissions[p]; ok {
			v.Submitted = append(v.Submitted, p)
		}
		if _, ok := st.Votes[p]; ok {
			v.Voted = append(v.Voted, p)
		}
	}
	if st.Phase == phaseVote {
		v.Submissions = st.Submissions
	}
	return v
}
