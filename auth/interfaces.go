package auth

import (
	"context"
	"time"

	"huddle/domain"
)

type RoomRepo interface {
	CreateRoom(ctx context.Context, st *domain.RoomState) error
	GetRoom(ctx context.Context, key string) (*domain.RoomState, error)
	SaveSessionToken(ctx context.Context, roomKey, userKey, tokenID string, expiresAt time.Time) error
	ValidateSessionToken(ctx context.Context, roomKey, userKey, tokenID string, now time.Time) error
}

type PasscodeHasher interface {
	Hash(passcode string) (string, error)
	Compare(hash, passcode string) (bool, error)
}

type TokenManager interface {
	Generate(roomKey, userName string, spectator bool, now time.Time) (string, domain.SessionClaims, error)
	Verify(token string) (domain.SessionClaims, error)
}
