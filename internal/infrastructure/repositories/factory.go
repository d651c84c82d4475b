package repositories

import (
	"context"
	"fmt"

	"roomchat/internal/core/ports"
	"roomchat/internal/infrastructure/repositories/memory"
	redisrepo "roomchat/internal/infrastructure/repositories/redis"
	sqliterepo "roomchat/internal/infrastructure/repositories/sqlite"
	"roomchat/pkg/circuitbreaker"
	"roomchat/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RepositoryFactory creates repositories with fallback support
type RepositoryFactory struct {
	accountsDriver string
	redisClient    *redis.Client
	redisBreaker   *circuitbreaker.CircuitBreaker
	db             *gorm.DB
	logger         *zap.SugaredLogger
}

// NewRepositoryFactory connects the configured backends. An unreachable
// Redis degrades to memory storage; a SQLite failure is fatal.
func NewRepositoryFactory(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		accountsDriver: cfg.Accounts.Driver,
		logger:         logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(ctx,
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
		} else {
			factory.redisClient = client
			factory.redisBreaker = newBackendBreaker("redis", logger)
		}
	}

	switch factory.accountsDriver {
	case "sqlite":
		db, err := sqliterepo.Open(cfg.Accounts.SQLitePath)
		if err != nil {
			factory.Close()
			return nil, err
		}
		factory.db = db
	case "redis":
		if factory.redisClient == nil {
			factory.accountsDriver = "memory"
		}
	}

	logger.Infow("repositories ready",
		"accounts", factory.accountsDriver,
		"view_once", factory.viewOnceBackend(),
	)
	return factory, nil
}

func (f *RepositoryFactory) viewOnceBackend() string {
	if f.redisClient != nil {
		return "redis"
	}
	return "memory"
}

// CreateAccountRepository returns the account store chosen by accounts.driver.
func (f *RepositoryFactory) CreateAccountRepository() ports.AccountRepository {
	switch f.accountsDriver {
	case "sqlite":
		return sqliterepo.NewAccountRepository(f.db)
	case "redis":
		return &guardedAccountRepository{
			next:    redisrepo.NewRedisAccountRepository(f.redisClient),
			cb:      f.redisBreaker,
			backend: "redis",
		}
	default:
		return memory.NewMemoryAccountRepository()
	}
}

// CreateViewOnceRepository creates a view-once repository (Redis or memory with fallback)
func (f *RepositoryFactory) CreateViewOnceRepository() ports.ViewOnceRepository {
	if f.redisClient != nil {
		return &guardedViewOnceRepository{
			next:    redisrepo.NewRedisViewOnceRepository(f.redisClient),
			cb:      f.redisBreaker,
			backend: "redis",
		}
	}
	return memory.NewMemoryViewOnceRepository()
}

// Close closes whatever backend connections were opened
func (f *RepositoryFactory) Close() error {
	var firstErr error
	if f.redisClient != nil {
		firstErr = redisrepo.CloseRedisClient(f.redisClient)
	}
	if f.db != nil {
		if err := sqliterepo.Close(f.db); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// HealthCheck pings the external backends in use
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.redisClient != nil {
		if err := f.redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if f.db != nil {
		sqlDB, err := f.db.DB()
		if err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
	}
	return nil
}
