package memory

import (
	"context"
	"sync"

	"roomchat/internal/core/domain"
	"roomchat/internal/core/ports"
)

type MemoryViewOnceRepository struct {
	tokens map[string]domain.ViewOnceToken
	mu     sync.Mutex
}

func NewMemoryViewOnceRepository() ports.ViewOnceRepository {
	return &MemoryViewOnceRepository{
		tokens: make(map[string]domain.ViewOnceToken),
	}
}

func (r *MemoryViewOnceRepository) Save(ctx context.Context, token *domain.ViewOnceToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[token.Token] = *token
	return nil
}

// Take removes the token under the same lock that reads it.
func (r *MemoryViewOnceRepository) Take(ctx context.Context, token string) (*domain.ViewOnceToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, exists := r.tokens[token]
	if !exists {
		return nil, domain.ErrTokenNotFound
	}
	delete(r.tokens, token)

	return &t, nil
}
