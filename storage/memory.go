package storage

import (
	"context"
	"sync"
	"time"

	"huddle/domain"
)

type tokenRecord struct {
	id        string
	expiresAt time.Time
}

// MemoryRepo keeps encoded rooms in memory. Used for tests and single-process
// development runs.
type MemoryRepo struct {
	mu     sync.Mutex
	rooms  map[string][]byte
	tokens map[[2]string]tokenRecord
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		rooms:  map[string][]byte{},
		tokens: map[[2]string]tokenRecord{},
	}
}

func (m *MemoryRepo) CreateRoom(ctx context.Context, st *domain.RoomState) error {
	data, err := encodeRoom(st)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[st.Key]; ok {
		return domain.ErrDuplicateRoom
	}
	m.rooms[st.Key] = data
	return nil
}

func (m *MemoryRepo) GetRoom(ctx context.Context, key string) (*domain.RoomState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	data, ok := m.rooms[key]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return decodeRoom(data)
}

func (m *MemoryRepo) ReplaceRoom(ctx context.Context, st *domain.RoomState) error {
	data, err := encodeRoom(st)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[st.Key]; !ok {
		return domain.ErrRoomNotFound
	}
	m.rooms[st.Key] = data
	return nil
}

func (m *MemoryRepo) SetUserConnected(ctx context.Context, key, user string, connected bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.rooms[key]
	if !ok {
		return domain.ErrRoomNotFound
	}
	st, err := decodeRoom(data)
	if err != nil {
		return err
	}
	st.ConnectedUsers[user] = connected
	if data, err = encodeRoom(st); err != nil {
		return err
	}
	m.rooms[key] = data
	return nil
}

func (m *MemoryRepo) SaveSessionToken(ctx context.Context, roomKey, userKey, tokenID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[[2]string{roomKey, userKey}] = tokenRecord{id: tokenID, expiresAt: expiresAt}
	return nil
}

func (m *MemoryRepo) ValidateSessionToken(ctx context.Context, roomKey, userKey, tokenID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.tokens[[2]string{roomKey, userKey}]
	if !ok || rec.id != tokenID || !now.Before(rec.expiresAt) {
		return domain.ErrInvalidSession
	}
	return nil
}

func (m *MemoryRepo) Close() error { return nil }
