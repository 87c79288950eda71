package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"huddle/domain"
)

const (
	maxKeyAttempts    = 5
	maxPasscodeLength = 128
)

var (
	ErrInvalidRoomKind = errors.New("invalid-room-kind")
	ErrInvalidRoomKey  = errors.New("invalid-room-key")
	ErrPasscodeTooLong = errors.New("passcode-too-long")
)

var roomKeyRe = regexp.MustCompile(`^[A-Za-z0-9_-]{3,64}$`)

type CreateRoomInput struct {
	// Key is optional; named wheels pick their own.
	Key           string
	Kind          domain.RoomKind
	ModeratorName string
	Passcode      string
	Settings      *domain.SettingsPatch
}

// Session is what a client needs to open a room connection.
type Session struct {
	RoomKey   string    `json:"roomKey"`
	UserName  string    `json:"userName"`
	Spectator bool      `json:"spectator"`
	Token     string    `json:"sessionToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service struct {
	repo   RoomRepo
	hasher PasscodeHasher
	tokens TokenManager
	now    func() time.Time
}

func NewService(repo RoomRepo, hasher PasscodeHasher, tokens TokenManager) *Service {
	return &Service{repo: repo, hasher: hasher, tokens: tokens, now: time.Now}
}

func newRoomKey() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// CreateRoom stores a new room with the creator as its first user and
// moderator, and issues the creator's session.
func (s *Service) CreateRoom(ctx context.Context, in CreateRoomInput) (Session, error) {
	if !in.Kind.Valid() {
		return Session{}, ErrInvalidRoomKind
	}
	if in.Key != "" && !roomKeyRe.MatchString(in.Key) {
		return Session{}, ErrInvalidRoomKey
	}
	name, err := domain.CleanName(in.ModeratorName)
	if err != nil {
		return Session{}, err
	}
	if utf8.RuneCountInString(in.Passcode) > maxPasscodeLength {
		return Session{}, ErrPasscodeTooLong
	}

	var hash string
	if in.Passcode != "" {
		if hash, err = s.hasher.Hash(in.Passcode); err != nil {
			return Session{}, err
		}
	}

	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key := in.Key
		if key == "" {
			key = newRoomKey()
		}
		st := domain.NewRoomState(key, in.Kind, s.now().UTC())
		st.AddMember(name, false)
		st.Moderator = name
		st.PasscodeHash = hash
		if in.Settings != nil {
			st.Settings = st.Settings.Merge(*in.Settings)
		}

		err = s.repo.CreateRoom(ctx, st)
		if errors.Is(err, domain.ErrDuplicateRoom) && in.Key == "" {
			continue
		}
		if err != nil {
			return Session{}, err
		}
		log.Info().Str("module", "auth").Str("room", key).Str("kind", string(in.Kind)).Msg("room created")
		return s.issue(ctx, key, name, false)
	}
	return Session{}, domain.ErrDuplicateRoom
}

// OpenSession issues a session for an existing or brand-new member. Existing
// members keep their canonical casing and their role.
func (s *Service) OpenSession(ctx context.Context, roomKey, userName, passcode string, spectator bool) (Session, error) {
	claimed, err := domain.CleanName(userName)
	if err != nil {
		return Session{}, err
	}
	st, err := s.repo.GetRoom(ctx, roomKey)
	if err != nil {
		return Session{}, err
	}
	if st.PasscodeHash != "" {
		if passcode == "" {
			return Session{}, domain.ErrPasscodeNeeded
		}
		ok, err := s.hasher.Compare(st.PasscodeHash, passcode)
		if err != nil {
			return Session{}, err
		}
		if !ok {
			return Session{}, domain.ErrWrongPasscode
		}
	}

	name, existing := domain.ResolveName(st, claimed)
	if existing {
		spectator = st.IsSpectator(name)
	}
	return s.issue(ctx, st.Key, name, spectator)
}

func (s *Service) issue(ctx context.Context, roomKey, name string, spectator bool) (Session, error) {
	token, claims, err := s.tokens.Generate(roomKey, name, spectator, s.now())
	if err != nil {
		return Session{}, err
	}
	if err := s.repo.SaveSessionToken(ctx, roomKey, domain.NormalizeName(name), claims.TokenID, claims.ExpiresAt); err != nil {
		return Session{}, err
	}
	return Session{
		RoomKey:   roomKey,
		UserName:  name,
		Spectator: spectator,
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// VerifySession checks that token is signed, unexpired, issued for this room
// and user, and still the latest one stored for that user.
func (s *Service) VerifySession(ctx context.Context, roomKey, userName, token string) (domain.SessionClaims, error) {
	if token == "" {
		return domain.SessionClaims{}, domain.ErrInvalidSession
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return domain.SessionClaims{}, fmt.Errorf("%w: %w", domain.ErrInvalidSession, err)
	}
	userKey := domain.NormalizeName(userName)
	if claims.RoomKey != roomKey || domain.NormalizeName(claims.UserName) != userKey {
		return domain.SessionClaims{}, domain.ErrInvalidSession
	}
	if err := s.repo.ValidateSessionToken(ctx, roomKey, userKey, claims.TokenID, s.now()); err != nil {
		return domain.SessionClaims{}, err
	}
	return claims, nil
}
