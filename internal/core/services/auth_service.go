package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roomchat/internal/core/domain"
	"roomchat/internal/core/ports"
	"roomchat/pkg/cache"

	"github.com/golang-jwt/jwt/v5"
)

// knownSubjectsSweepAt bounds how many cached subjects accumulate before
// expired ones are purged.
const knownSubjectsSweepAt = 10000

type AuthService interface {
	ports.TokenVerifier
	GenerateToken(username string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type Claims struct {
	jwt.RegisteredClaims
}

type authService struct {
	jwtSecret      []byte
	accessTokenTTL time.Duration
	accounts       ports.AccountRepository
	known          *cache.Cache
	now            func() time.Time
}

// NewAuthService verifies HS256 tokens whose subject must be a registered
// account. Positive account lookups are cached for a short while.
func NewAuthService(jwtSecret string, accessTokenTTL time.Duration, accounts ports.AccountRepository) AuthService {
	return &authService{
		jwtSecret:      []byte(jwtSecret),
		accessTokenTTL: accessTokenTTL,
		accounts:       accounts,
		known:          cache.NewCache(30 * time.Second),
		now:            time.Now,
	}
}

func (s *authService) GenerateToken(username string) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.Subject != "" {
		return claims, nil
	}

	return nil, domain.ErrInvalidToken
}

// Verify checks signature, expiry and that the subject has an account. A
// positive lookup is reused for up to 30s; accounts are never deleted, so a
// cached subject cannot have lost its account.
func (s *authService) Verify(ctx context.Context, tokenString string) (string, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}

	subject := claims.Subject
	if _, ok := s.known.Get(subject); ok {
		return subject, nil
	}

	exists, err := s.accounts.Exists(ctx, subject)
	if err != nil {
		return "", fmt.Errorf("account lookup: %w", err)
	}
	if !exists {
		return "", domain.ErrUnknownSubject
	}

	if s.known.Size() >= knownSubjectsSweepAt {
		s.known.Sweep()
	}
	s.known.Set(subject, struct{}{})
	return subject, nil
}
