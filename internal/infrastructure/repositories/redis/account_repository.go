package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"roomchat/internal/core/domain"
	"roomchat/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const (
	accountKeyPrefix = keyPrefix + "account:"
	accountIndexKey  = keyPrefix + "accounts"
)

type RedisAccountRepository struct {
	client *redis.Client
}

func NewRedisAccountRepository(client *redis.Client) ports.AccountRepository {
	return &RedisAccountRepository{client: client}
}

func (r *RedisAccountRepository) accountKey(username string) string {
	return accountKeyPrefix + username
}

func (r *RedisAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	created, err := r.client.SetNX(ctx, r.accountKey(account.Username), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set account in Redis: %w", err)
	}
	if !created {
		return domain.ErrAccountExists
	}

	if err := r.client.SAdd(ctx, accountIndexKey, account.Username).Err(); err != nil {
		return fmt.Errorf("failed to index account: %w", err)
	}
	return nil
}

func (r *RedisAccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	data, err := r.client.Get(ctx, r.accountKey(username)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account from Redis: %w", err)
	}

	var account domain.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return &account, nil
}

func (r *RedisAccountRepository) Exists(ctx context.Context, username string) (bool, error) {
	n, err := r.client.Exists(ctx, r.accountKey(username)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check account in Redis: %w", err)
	}
	return n == 1, nil
}

func (r *RedisAccountRepository) Count(ctx context.Context) (int64, error) {
	return r.client.SCard(ctx, accountIndexKey).Result()
}
