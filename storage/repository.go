package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"huddle/domain"
)

// Repository is the durable home of room state and session tokens.
type Repository interface {
	CreateRoom(ctx context.Context, st *domain.RoomState) error
	GetRoom(ctx context.Context, key string) (*domain.RoomState, error)
	ReplaceRoom(ctx context.Context, st *domain.RoomState) error
	SetUserConnected(ctx context.Context, key, user string, connected bool) error
	SaveSessionToken(ctx context.Context, roomKey, userKey, tokenID string, expiresAt time.Time) error
	ValidateSessionToken(ctx context.Context, roomKey, userKey, tokenID string, now time.Time) error
	Close() error
}

func encodeRoom(st *domain.RoomState) ([]byte, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("%w: encode room %s: %w", domain.ErrStorage, st.Key, err)
	}
	return data, nil
}

func decodeRoom(data []byte) (*domain.RoomState, error) {
	st := &domain.RoomState{}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("%w: decode room: %w", domain.ErrStorage, err)
	}
	if st.ConnectedUsers == nil {
		st.ConnectedUsers = map[string]bool{}
	}
	return st, nil
}

// wrap passes context errors through untouched and tags everything else as a
// storage failure.
func wrap(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorage, err)
}
