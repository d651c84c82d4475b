package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roomchat/internal/core/domain"
	"roomchat/internal/core/ports"
	"roomchat/pkg/circuitbreaker"
	"roomchat/pkg/tracing"

	"go.uber.org/zap"
)

// newBackendBreaker trips on transport failures only; lookups that simply
// find nothing are healthy answers.
func newBackendBreaker(backend string, logger *zap.SugaredLogger) *circuitbreaker.CircuitBreaker {
	cfg := circuitbreaker.DefaultConfig()
	cfg.IsFailure = func(err error) bool {
		return err != nil &&
			!errors.Is(err, domain.ErrAccountExists) &&
			!errors.Is(err, domain.ErrAccountNotFound) &&
			!errors.Is(err, domain.ErrTokenNotFound)
	}
	cb := circuitbreaker.New(cfg)
	cb.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("backend circuit breaker state changed", "backend", backend, "from", from.String(), "to", to.String())
	})
	return cb
}

// run executes one repository call under the breaker inside a span.
func run(ctx context.Context, cb *circuitbreaker.CircuitBreaker, backend, op string, fn func(ctx context.Context) error) error {
	ctx, span := tracing.TraceRepositoryOperation(ctx, backend, op)
	defer span.End()
	defer tracing.MeasureDuration(ctx, time.Now(), op)

	err := cb.Execute(ctx, fn)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		err = fmt.Errorf("%s unavailable: %w", backend, err)
	}
	if err != nil && cb.IsFailure(err) {
		tracing.RecordError(ctx, err)
	}
	return err
}

type guardedAccountRepository struct {
	next    ports.AccountRepository
	cb      *circuitbreaker.CircuitBreaker
	backend string
}

func (r *guardedAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	return run(ctx, r.cb, r.backend, "account.create", func(ctx context.Context) error {
		return r.next.Create(ctx, account)
	})
}

func (r *guardedAccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	var account *domain.Account
	err := run(ctx, r.cb, r.backend, "account.get", func(ctx context.Context) error {
		var err error
		account, err = r.next.GetByUsername(ctx, username)
		return err
	})
	return account, err
}

func (r *guardedAccountRepository) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := run(ctx, r.cb, r.backend, "account.exists", func(ctx context.Context) error {
		var err error
		exists, err = r.next.Exists(ctx, username)
		return err
	})
	return exists, err
}

func (r *guardedAccountRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := run(ctx, r.cb, r.backend, "account.count", func(ctx context.Context) error {
		var err error
		n, err = r.next.Count(ctx)
		return err
	})
	return n, err
}

type guardedViewOnceRepository struct {
	next    ports.ViewOnceRepository
	cb      *circuitbreaker.CircuitBreaker
	backend string
}

func (r *guardedViewOnceRepository) Save(ctx context.Context, token *domain.ViewOnceToken) error {
	return run(ctx, r.cb, r.backend, "viewonce.save", func(ctx context.Context) error {
		return r.next.Save(ctx, token)
	})
}

func (r *guardedViewOnceRepository) Take(ctx context.Context, token string) (*domain.ViewOnceToken, error) {
	var t *domain.ViewOnceToken
	err := run(ctx, r.cb, r.backend, "viewonce.take", func(ctx context.Context) error {
		var err error
		t, err = r.next.Take(ctx, token)
		return err
	})
	return t, err
}
