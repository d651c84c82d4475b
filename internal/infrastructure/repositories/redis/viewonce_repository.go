package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"roomchat/internal/core/domain"
	"roomchat/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const viewOnceKeyPrefix = keyPrefix + "viewonce:"

type RedisViewOnceRepository struct {
	client *redis.Client
}

func NewRedisViewOnceRepository(client *redis.Client) ports.ViewOnceRepository {
	return &RedisViewOnceRepository{client: client}
}

func (r *RedisViewOnceRepository) Save(ctx context.Context, token *domain.ViewOnceToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal view-once token: %w", err)
	}
	if err := r.client.Set(ctx, viewOnceKeyPrefix+token.Token, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store view-once token: %w", err)
	}
	return nil
}

// Take uses GETDEL so concurrent redeemers across processes see the token at most once.
func (r *RedisViewOnceRepository) Take(ctx context.Context, token string) (*domain.ViewOnceToken, error) {
	data, err := r.client.GetDel(ctx, viewOnceKeyPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take view-once token: %w", err)
	}

	var t domain.ViewOnceToken
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal view-once token: %w", err)
	}
	return &t, nil
}
