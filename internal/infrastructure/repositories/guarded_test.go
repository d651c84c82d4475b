package repositories

import (
	"context"
	"errors"
	"testing"

	"roomchat/internal/core/domain"
	"roomchat/pkg/circuitbreaker"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type flakyViewOnceRepository struct {
	err   error
	calls int
}

func (r *flakyViewOnceRepository) Save(ctx context.Context, token *domain.ViewOnceToken) error {
	r.calls++
	return r.err
}

func (r *flakyViewOnceRepository) Take(ctx context.Context, token string) (*domain.ViewOnceToken, error) {
	r.calls++
	return nil, r.err
}

func TestGuardedRepository_MissesDoNotTrip(t *testing.T) {
	backend := &flakyViewOnceRepository{err: domain.ErrTokenNotFound}
	repo := &guardedViewOnceRepository{next: backend, cb: newBackendBreaker("redis", zap.NewNop().Sugar()), backend: "redis"}

	for i := 0; i < 20; i++ {
		_, err := repo.Take(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrTokenNotFound)
	}
	assert.Equal(t, 20, backend.calls)
	assert.Equal(t, circuitbreaker.StateClosed, repo.cb.State())
}

func TestGuardedRepository_OutageFailsFast(t *testing.T) {
	backend := &flakyViewOnceRepository{err: errors.New("dial tcp: connection refused")}
	repo := &guardedViewOnceRepository{next: backend, cb: newBackendBreaker("redis", zap.NewNop().Sugar()), backend: "redis"}

	threshold := circuitbreaker.DefaultConfig().FailureThreshold
	for i := 0; i < threshold; i++ {
		assert.Error(t, repo.Save(context.Background(), &domain.ViewOnceToken{Token: "t"}))
	}

	_, err := repo.Take(context.Background(), "t")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.NotErrorIs(t, err, domain.ErrTokenNotFound)
	assert.Equal(t, threshold, backend.calls)
}
