package games

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

const (
	emojiMin           = 1
	emojiMax           = 6
	emojiMovesPerRound = 8
	emojiRounds        = 3
)

var errEmojiOnly = errors.New("use one to six emoji and nothing else")

type emojiStoryState struct {
	Story []string `json:"story"`
}

func (*emojiStoryState) gameType() Type { return TypeEmojiStory }

type emojiStoryEngine struct{ base }

func (*emojiStoryEngine) Type() Type     { return TypeEmojiStory }
func (*emojiStoryEngine) Title() string  { return "Emoji Story" }
func (*emojiStoryEngine) MaxRounds() int { return emojiRounds }

func (*emojiStoryEngine) NewState() State {
	return &emojiStoryState{Story: []string{}}
}

func stripSpace(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}

// emojiClusters splits raw into grapheme clusters and reports whether every
// one of them is an emoji.
func emojiClusters(raw string) ([]string, bool) {
	var clusters []string
	g := uniseg.NewGraphemes(stripSpace(raw))
	for g.Next() {
		c := g.Str()
		if !isEmojiCluster(c) {
			return nil, false
		}
		clusters = append(clusters, c)
	}
	return clusters, true
}

func isEmojiCluster(c string) bool {
	first, size := utf8.DecodeRuneInString(c)
	if first == utf8.RuneError {
		return false
	}
	// Keycaps: digit, # or * followed by the combining enclosing keycap.
	if (first >= '0' && first <= '9') || first == '#' || first == '*' {
		return strings.ContainsRune(c[size:], 0x20E3)
	}
	hasPictograph := false
	for _, r := range c {
		switch {
		case isPictograph(r):
			hasPictograph = true
		case r == 0x200D, r == 0xFE0F, r == 0x20E3:
		case r >= 0x1F3FB && r <= 0x1F3FF:
		case r >= 0xE0020 && r <= 0xE007F:
		default:
			return false
		}
	}
	return hasPictograph
}

func isPictograph(r rune) bool {
	switch {
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicators
	case r >= 0x1F300 && r <= 0x1FAFF:
	case r >= 0x2600 && r <= 0x27BF:
	case r >= 0x2B00 && r <= 0x2BFF:
	case r >= 0x2190 && r <= 0x21FF:
	case r >= 0x2300 && r <= 0x23FF:
	case r >= 0x1F000 && r <= 0x1F2FF:
	case r == 0x00A9, r == 0x00AE, r == 0x203C, r == 0x2049, r == 0x2122, r == 0x2139, r == 0x3030, r == 0x303D:
	default:
		return false
	}
	return true
}

func (*emojiStoryEngine) Validate(raw string) error {
	clusters, ok := emojiClusters(raw)
	if !ok || len(clusters) < emojiMin || len(clusters) > emojiMax {
		return errEmojiOnly
	}
	return nil
}

func (*emojiStoryEngine) ApplyMove(s *Session, user, raw string, mv Move) {
	st := s.State.(*emojiStoryState)
	clusters, _ := emojiClusters(raw)
	line := strings.Join(clusters, "")
	st.Story = append(st.Story, line)
	s.AddPoints(user, 1)
	s.AddEvent("%s added %s", user, line)

	if s.RoundMoveCount() >= emojiMovesPerRound {
		s.NextRound()
	}
}
