package room

import (
	"context"

	"huddle/domain"
)

// Repository is the slice of storage a room coordinator needs.
type Repository interface {
	GetRoom(ctx context.Context, key string) (*domain.RoomState, error)
	ReplaceRoom(ctx context.Context, st *domain.RoomState) error
	SetUserConnected(ctx context.Context, key, user string, connected bool) error
}

type SessionVerifier interface {
	VerifySession(ctx context.Context, roomKey, userName, token string) (domain.SessionClaims, error)
}

type Connection interface {
	Write(data []byte) error
	Read() ([]byte, error)
	Ping() error
	Close(code int, reason string)
}
