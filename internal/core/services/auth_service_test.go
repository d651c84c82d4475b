package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"roomchat/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestAuthService_VerifyKnownSubject(t *testing.T) {
	accounts := new(MockAccountRepository)
	accounts.On("Exists", mock.Anything, "alice").Return(true, nil).Once()

	auth := NewAuthService(testSecret, time.Minute, accounts)
	token, err := auth.GenerateToken("alice")
	require.NoError(t, err)

	subject, err := auth.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	// second verification is served from the cache
	subject, err = auth.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
	accounts.AssertExpectations(t)
}

func TestAuthService_VerifyUnknownSubject(t *testing.T) {
	accounts := new(MockAccountRepository)
	accounts.On("Exists", mock.Anything, "ghost").Return(false, nil)

	auth := NewAuthService(testSecret, time.Minute, accounts)
	token, err := auth.GenerateToken("ghost")
	require.NoError(t, err)

	_, err = auth.Verify(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrUnknownSubject)
}

func TestAuthService_VerifyDoesNotCacheMisses(t *testing.T) {
	accounts := new(MockAccountRepository)
	accounts.On("Exists", mock.Anything, "carol").Return(false, nil).Once()
	accounts.On("Exists", mock.Anything, "carol").Return(true, nil).Once()

	auth := NewAuthService(testSecret, time.Minute, accounts)
	token, err := auth.GenerateToken("carol")
	require.NoError(t, err)

	_, err = auth.Verify(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrUnknownSubject)

	// registered in between: the earlier miss must not stick
	subject, err := auth.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "carol", subject)
	accounts.AssertExpectations(t)
}

func TestAuthService_VerifyLookupFailure(t *testing.T) {
	accounts := new(MockAccountRepository)
	accounts.On("Exists", mock.Anything, "alice").Return(false, errors.New("connection refused"))

	auth := NewAuthService(testSecret, time.Minute, accounts)
	token, _ := auth.GenerateToken("alice")

	_, err := auth.Verify(context.Background(), token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUnknownSubject)
}

func TestAuthService_ExpiredToken(t *testing.T) {
	accounts := new(MockAccountRepository)
	svc := NewAuthService(testSecret, time.Minute, accounts).(*authService)

	issued := time.Now().Add(-time.Hour)
	svc.now = func() time.Time { return issued }
	token, err := svc.GenerateToken("alice")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrExpiredToken)
	accounts.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
}

func TestAuthService_RejectsTamperedTokens(t *testing.T) {
	accounts := new(MockAccountRepository)
	auth := NewAuthService(testSecret, time.Minute, accounts)

	foreign, err := NewAuthService("other-secret", time.Minute, accounts).GenerateToken("alice")
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "alice"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong secret": foreign,
		"no expiry":    noExpiry,
		"no subject":   noSubject,
		"alg none":     unsigned,
		"garbage":      "not-a-jwt",
		"truncated":    foreign[:len(foreign)-4],
	} {
		t.Run(name, func(t *testing.T) {
			_, err := auth.Verify(context.Background(), token)
			assert.ErrorIs(t, err, domain.ErrInvalidToken)
		})
	}
	accounts.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
}
