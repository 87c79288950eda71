package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"huddle/domain"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrap(err)
	}
	return &PostgresRepo{pool: pool}, nil
}

func (pg *PostgresRepo) CreateRoom(ctx context.Context, st *domain.RoomState) error {
	data, err := encodeRoom(st)
	if err != nil {
		return err
	}
	_, err = pg.pool.Exec(ctx,
		"INSERT INTO rooms(key, kind, state, updated_at) VALUES($1, $2, $3, now())",
		st.Key, string(st.Kind), data)
	if err != nil {
		var pgErr *pgconn.PgError
		// "23505" is the PostgreSQL error code for unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateRoom
		}
		return wrap(err)
	}
	return nil
}

func (pg *PostgresRepo) GetRoom(ctx context.Context, key string) (*domain.RoomState, error) {
	var data []byte
	err := pg.pool.QueryRow(ctx, "SELECT state FROM rooms WHERE key = $1", key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, wrap(err)
	}
	return decodeRoom(data)
}

func (pg *PostgresRepo) ReplaceRoom(ctx context.Context, st *domain.RoomState) error {
	data, err := encodeRoom(st)
	if err != nil {
		return err
	}
	tag, err := pg.pool.Exec(ctx,
		"UPDATE rooms SET state = $2, updated_at = now() WHERE key = $1",
		st.Key, data)
	if err != nil {
		return wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

// SetUserConnected patches a single liveness flag in place.
func (pg *PostgresRepo) SetUserConnected(ctx context.Context, key, user string, connected bool) error {
	tag, err := pg.pool.Exec(ctx,
		`UPDATE rooms
		SET state = jsonb_set(state, ARRAY['connectedUsers', $2::text], to_jsonb($3::boolean), true),
		    updated_at = now()
		WHERE key = $1`,
		key, user, connected)
	if err != nil {
		return wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (pg *PostgresRepo) SaveSessionToken(ctx context.Context, roomKey, userKey, tokenID string, expiresAt time.Time) error {
	_, err := pg.pool.Exec(ctx,
		`INSERT INTO session_tokens(room_key, user_key, token_id, expires_at)
		VALUES($1, $2, $3, $4)
		ON CONFLICT (room_key, user_key) DO UPDATE SET token_id = EXCLUDED.token_id, expires_at = EXCLUDED.expires_at`,
		roomKey, userKey, tokenID, expiresAt)
	if err != nil {
		return wrap(err)
	}
	return nil
}

func (pg *PostgresRepo) ValidateSessionToken(ctx context.Context, roomKey, userKey, tokenID string, now time.Time) error {
	var storedID string
	var expiresAt time.Time
	err := pg.pool.QueryRow(ctx,
		"SELECT token_id, expires_at FROM session_tokens WHERE room_key = $1 AND user_key = $2",
		roomKey, userKey).Scan(&storedID, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrInvalidSession
		}
		return wrap(err)
	}
	if storedID != tokenID || !now.Before(expiresAt) {
		return domain.ErrInvalidSession
	}
	return nil
}

func (pg *PostgresRepo) Close() error {
	pg.pool.Close()
	return nil
}
