package domain

import "errors"

var (
	ErrStorage        = errors.New("storage-error")
	ErrRoomNotFound   = errors.New("room-not-found")
	ErrDuplicateRoom  = errors.New("duplicate-room")
	ErrInvalidSession = errors.New("invalid-or-expired-session")
	ErrInvalidName    = errors.New("invalid-name")
)

var (
	ErrHashing        = errors.New("hashing-error")
	ErrWrongPasscode  = errors.New("wrong-passcode")
	ErrPasscodeNeeded = errors.New("passcode-required")
)

var (
	ErrInvalidSigningAlg             = errors.New("invalid-signing-method")
	ErrExpiredToken                  = errors.New("expired-token")
	ErrInvalidTokenSignature         = errors.New("invalid-token-signature")
	ErrCorruptedToken                = errors.New("corrupted-token")
	UnexpectedTokenGenerationError   = errors.New("unexpected-token-generation-error")
	UnexpectedTokenVerificationError = errors.New("unexpected-token-verification-error")
)
