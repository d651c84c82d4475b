package memory

import (
	"context"
	"sync"

	"roomchat/internal/core/domain"
	"roomchat/internal/core/ports"
)

type MemoryAccountRepository struct {
	accounts map[string]domain.Account
	mu       sync.RWMutex
}

func NewMemoryAccountRepository() ports.AccountRepository {
	return &MemoryAccountRepository{
		accounts: make(map[string]domain.Account),
	}
}

func (r *MemoryAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.Username]; exists {
		return domain.ErrAccountExists
	}

	r.accounts[account.Username] = *account
	return nil
}

func (r *MemoryAccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[username]
	if !exists {
		return nil, domain.ErrAccountNotFound
	}

	return &account, nil
}

func (r *MemoryAccountRepository) Exists(ctx context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.accounts[username]
	return exists, nil
}

func (r *MemoryAccountRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.accounts)), nil
}
