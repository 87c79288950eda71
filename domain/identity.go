package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const MaxNameLength = 32

// NormalizeName is the comparison key for member names: trimmed and
// case-folded.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CleanName trims the claimed name and checks its length.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// ResolveName maps a claimed name onto an existing member of the room,
// ignoring case and surrounding whitespace. When nobody matches, the trimmed
// claimed name is returned with existing=false.
func ResolveName(st *RoomState, claimed string) (canonical string, existing bool) {
	key := NormalizeName(claimed)
	for _, name := range st.Users {
		if NormalizeName(name) == key {
			return name, true
		}
	}
	for _, name := range st.Spectators {
		if NormalizeName(name) == key {
			return name, true
		}
	}
	return strings.TrimSpace(claimed), false
}

// SessionClaims is what a verified session token carries.
type SessionClaims struct {
	TokenID   string
	RoomKey   string
	UserName  string
	Spectator bool
	ExpiresAt time.Time
}
