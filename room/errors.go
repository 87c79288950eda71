package room

import (
	"errors"

	"huddle/domain"
)

var (
	ErrNotModerator       = errors.New("not-moderator")
	ErrAlreadySpinning    = errors.New("already-spinning")
	ErrSpinInProgress     = errors.New("spin-in-progress")
	ErrNotEnoughEntries   = errors.New("not-enough-entries")
	ErrEntryNotFound      = errors.New("entry-not-found")
	ErrInvalidEntryName   = errors.New("invalid-entry-name")
	ErrTooManyEntries     = errors.New("too-many-entries")
	ErrMalformedMessage   = errors.New("malformed-message")
	ErrUnknownMessageType = errors.New("unknown-message-type")
	ErrRateLimited        = errors.New("rate-limited")
	ErrSpectator          = errors.New("spectators-cannot-vote")
	ErrInvalidVote        = errors.New("invalid-vote")
	ErrGamesDisabled      = errors.New("games-disabled")
	ErrGameInProgress     = errors.New("game-in-progress")
	ErrNoActiveGame       = errors.New("no-active-game")
	ErrRoomKindMismatch   = errors.New("room-kind-mismatch")
	ErrActorRetired       = errors.New("room-actor-retired")
	ErrShuttingDown       = errors.New("shutting-down")
)

// WebSocket close codes sent when a connection is turned away.
const (
	CloseNormal         = 1000
	CloseGoingAway      = 1001
	CloseInternalError  = 1011
	CloseInvalidSession = 4001
	CloseRoomNotFound   = 4004
)

// CloseCode maps a join failure onto the close code the client sees.
func CloseCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSession):
		return CloseInvalidSession
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, ErrRoomKindMismatch):
		return CloseRoomNotFound
	case errors.Is(err, ErrShuttingDown):
		return CloseGoingAway
	}
	return CloseInternalError
}

// publicError is the text a client gets for err. Storage details stay in the
// logs.
func publicError(err error) string {
	if errors.Is(err, domain.ErrStorage) {
		return domain.ErrStorage.Error()
	}
	return err.Error()
}
