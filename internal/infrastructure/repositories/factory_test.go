package repositories

import (
	"context"
	"testing"

	"roomchat/internal/core/domain"
	"roomchat/internal/infrastructure/repositories/memory"
	redisrepo "roomchat/internal/infrastructure/repositories/redis"
	sqliterepo "roomchat/internal/infrastructure/repositories/sqlite"
	"roomchat/pkg/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRepositoryFactory_MemoryDefault(t *testing.T) {
	cfg := config.DefaultConfig()

	f, err := NewRepositoryFactory(context.Background(), cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer f.Close()

	assert.IsType(t, &memory.MemoryAccountRepository{}, f.CreateAccountRepository())
	assert.IsType(t, &memory.MemoryViewOnceRepository{}, f.CreateViewOnceRepository())
	assert.NoError(t, f.HealthCheck(context.Background()))
}

func TestRepositoryFactory_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.DefaultConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Address = mr.Addr()
	cfg.Accounts.Driver = "redis"

	f, err := NewRepositoryFactory(context.Background(), cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer f.Close()

	accounts := f.CreateAccountRepository()
	require.IsType(t, &guardedAccountRepository{}, accounts)
	assert.IsType(t, &redisrepo.RedisAccountRepository{}, accounts.(*guardedAccountRepository).next)
	viewOnce := f.CreateViewOnceRepository()
	require.IsType(t, &guardedViewOnceRepository{}, viewOnce)
	assert.IsType(t, &redisrepo.RedisViewOnceRepository{}, viewOnce.(*guardedViewOnceRepository).next)
	assert.NoError(t, f.HealthCheck(context.Background()))

	ctx := context.Background()
	require.NoError(t, accounts.Create(ctx, &domain.Account{Username: "alice", PasswordHash: "x"}))
	exists, err := accounts.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	mr.Close()
	assert.Error(t, f.HealthCheck(context.Background()))
}

func TestRepositoryFactory_RedisUnavailableFallsBack(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.DefaultConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Address = addr
	cfg.Accounts.Driver = "redis"

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // skip the retry backoff

	f, err := NewRepositoryFactory(ctx, cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer f.Close()

	assert.IsType(t, &memory.MemoryAccountRepository{}, f.CreateAccountRepository())
	assert.IsType(t, &memory.MemoryViewOnceRepository{}, f.CreateViewOnceRepository())
}

func TestRepositoryFactory_SQLite(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Accounts.Driver = "sqlite"
	cfg.Accounts.SQLitePath = ":memory:"

	f, err := NewRepositoryFactory(context.Background(), cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer f.Close()

	assert.IsType(t, &sqliterepo.AccountRepository{}, f.CreateAccountRepository())
	assert.NoError(t, f.HealthCheck(context.Background()))
}
