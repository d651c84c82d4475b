package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roomchat/internal/core/domain"
	"roomchat/internal/core/ports"
	apperrors "roomchat/pkg/errors"
	"roomchat/pkg/validation"

	"golang.org/x/crypto/bcrypt"
)

// AccountService registers accounts and trades credentials for access tokens.
type AccountService struct {
	accounts          ports.AccountRepository
	auth              AuthService
	minPasswordLength int
	bcryptCost        int
}

func NewAccountService(accounts ports.AccountRepository, auth AuthService, minPasswordLength int) *AccountService {
	return &AccountService{
		accounts:          accounts,
		auth:              auth,
		minPasswordLength: minPasswordLength,
		bcryptCost:        bcrypt.DefaultCost,
	}
}

func (s *AccountService) Register(ctx context.Context, username, password string) (*domain.Account, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	if err := validation.ValidatePassword(password, s.minPasswordLength); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &domain.Account{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Login returns a fresh access token for valid credentials.
func (s *AccountService) Login(ctx context.Context, username, password string) (string, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", domain.ErrInvalidCredentials
	}

	return s.auth.GenerateToken(account.Username)
}
