package ports

import (
	"context"

	"roomchat/internal/core/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	Exists(ctx context.Context, username string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// ViewOnceRepository stores token -> path mappings. Take must remove and
// return the mapping atomically so that only one caller ever gets it.
type ViewOnceRepository interface {
	Save(ctx context.Context, token *domain.ViewOnceToken) error
	Take(ctx context.Context, token string) (*domain.ViewOnceToken, error)
}
