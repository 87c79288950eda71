package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"huddle/domain"
)

// sessionClaims ties a token to one member of one room.
// Fields must be exported for JSON serialization.
type sessionClaims struct {
	RoomKey   string `json:"roomKey"`
	UserName  string `json:"userName"`
	Spectator bool   `json:"spectator,omitempty"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	secretKey []byte
	maxAge    time.Duration
}

func NewJWTManager(secretKey string, maxAge time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		maxAge:    maxAge,
	}
}

// Generate signs a fresh session token. The returned claims carry the token
// id the caller must store.
func (m *JWTManager) Generate(roomKey, userName string, spectator bool, now time.Time) (string, domain.SessionClaims, error) {
	id := uuid.NewString()
	expiresAt := now.Add(m.maxAge)
	claims := sessionClaims{
		RoomKey:   roomKey,
		UserName:  userName,
		Spectator: spectator,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   userName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", domain.SessionClaims{}, fmt.Errorf("%w: %w", domain.UnexpectedTokenGenerationError, err)
	}

	return signedToken, domain.SessionClaims{
		TokenID:   id,
		RoomKey:   roomKey,
		UserName:  userName,
		Spectator: spectator,
		ExpiresAt: expiresAt,
	}, nil
}

func (m *JWTManager) Verify(tokenString string) (domain.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (any, error) {
		// Validate the signing method is what we expect (HMAC)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidSigningAlg
		}
		return m.secretKey, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSigningAlg):
			return domain.SessionClaims{}, err
		case errors.Is(err, jwt.ErrTokenExpired):
			return domain.SessionClaims{}, domain.ErrExpiredToken
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return domain.SessionClaims{}, domain.ErrInvalidTokenSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return domain.SessionClaims{}, domain.ErrCorruptedToken
		default:
			return domain.SessionClaims{}, fmt.Errorf("%w: %w", domain.UnexpectedTokenVerificationError, err)
		}
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || claims.ID == "" || claims.RoomKey == "" {
		return domain.SessionClaims{}, domain.ErrCorruptedToken
	}
	out := domain.SessionClaims{
		TokenID:   claims.ID,
		RoomKey:   claims.RoomKey,
		UserName:  claims.UserName,
		Spectator: claims.Spectator,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
