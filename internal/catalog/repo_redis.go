package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"carshop-display-backend/internal/model"
)

// RedisRepository stores the catalog as one JSON value.
type RedisRepository struct {
	client *redis.Client
	key    string
}

// NewRedisRepository creates a repository using key on client.
func NewRedisRepository(client *redis.Client, key string) *RedisRepository {
	return &RedisRepository{client: client, key: key}
}

// Load fetches the stored list. A missing key means nothing is stored yet.
func (r *RedisRepository) Load(ctx context.Context) ([]model.ServiceDefinition, error) {
	raw, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}

	var services []model.ServiceDefinition
	if err := json.Unmarshal([]byte(raw), &services); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return services, nil
}

// Save overwrites the stored list.
func (r *RedisRepository) Save(ctx context.Context, services []model.ServiceDefinition) error {
	data, err := json.Marshal(services)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}
