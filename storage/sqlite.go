package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"huddle/domain"
)

// SQLiteRepo is the single-node backend. Liveness updates are a
// read-modify-write inside one transaction.
type SQLiteRepo struct {
	db *sql.DB
}

func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

func (s *SQLiteRepo) CreateRoom(ctx context.Context, st *domain.RoomState) error {
	data, err := encodeRoom(st)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO rooms(key, kind, state, updated_at) VALUES(?, ?, ?, ?)",
		st.Key, string(st.Kind), string(data), time.Now().UTC())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrDuplicateRoom
		}
		return wrap(err)
	}
	return nil
}

func (s *SQLiteRepo) GetRoom(ctx context.Context, key string) (*domain.RoomState, error) {
	return getRoom(ctx, s.db, key)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRoom(ctx context.Context, q queryer, key string) (*domain.RoomState, error) {
	var data string
	err := q.QueryRowContext(ctx, "SELECT state FROM rooms WHERE key = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, wrap(err)
	}
	return decodeRoom([]byte(data))
}

func (s *SQLiteRepo) ReplaceRoom(ctx context.Context, st *domain.RoomState) error {
	data, err := encodeRoom(st)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE rooms SET state = ?, updated_at = ? WHERE key = ?",
		string(data), time.Now().UTC(), st.Key)
	if err != nil {
		return wrap(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (s *SQLiteRepo) SetUserConnected(ctx context.Context, key, user string, connected bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(err)
	}
	defer tx.Rollback()

	st, err := getRoom(ctx, tx, key)
	if err != nil {
		return err
	}
	st.ConnectedUsers[user] = connected
	data, err := encodeRoom(st)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE rooms SET state = ?, updated_at = ? WHERE key = ?",
		string(data), time.Now().UTC(), key); err != nil {
		return wrap(err)
	}
	if err := tx.Commit(); err != nil {
		return wrap(err)
	}
	return nil
}

func (s *SQLiteRepo) SaveSessionToken(ctx context.Context, roomKey, userKey, tokenID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_tokens(room_key, user_key, token_id, expires_at) VALUES(?, ?, ?, ?)
		ON CONFLICT(room_key, user_key) DO UPDATE SET token_id = excluded.token_id, expires_at = excluded.expires_at`,
		roomKey, userKey, tokenID, expiresAt.UTC().UnixMilli())
	if err != nil {
		return wrap(err)
	}
	return nil
}

func (s *SQLiteRepo) ValidateSessionToken(ctx context.Context, roomKey, userKey, tokenID string, now time.Time) error {
	var storedID string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT token_id, expires_at FROM session_tokens WHERE room_key = ? AND user_key = ?",
		roomKey, userKey).Scan(&storedID, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrInvalidSession
		}
		return wrap(err)
	}
	if storedID != tokenID || now.UnixMilli() >= expiresAt {
		return domain.ErrInvalidSession
	}
	return nil
}

func (s *SQLiteRepo) Close() error {
	return s.db.Close()
}
