package domain

import "errors"

// Admission failures. Any of these closes the connection attempt.
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token expired")
	ErrUnknownSubject   = errors.New("unknown token subject")
	ErrMissingToken     = errors.New("missing token")
	ErrIdentityMismatch = errors.New("token subject does not match requested username")
)

// In-session frame errors. The frame is dropped and the connection stays open.
var (
	ErrMalformedFrame    = errors.New("malformed frame")
	ErrUnknownFrameType  = errors.New("unknown frame type")
	ErrMessageNotFound   = errors.New("message not found")
	ErrReactionNotFound  = errors.New("reaction not found")
	ErrUserNotPresent    = errors.New("user not present in room")
	ErrFrameRateExceeded = errors.New("frame rate exceeded")
)

// View-once failures, both surfaced as not found.
var (
	ErrTokenNotFound = errors.New("view-once token not found")
	ErrFileMissing   = errors.New("view-once file missing")
)

var (
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Transport failures during fan-out.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendTimeout      = errors.New("send timed out")
)
