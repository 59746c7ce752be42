package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"streamhub/internal/core/domain"
	"streamhub/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type userRecord struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type RedisUserRepository struct {
	client *redis.Client
	keys   keyspace
}

func NewRedisUserRepository(client *redis.Client, prefix string) ports.UserRepository {
	return &RedisUserRepository{
		client: client,
		keys:   keyspace{prefix: prefix},
	}
}

func (r *RedisUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	data, err := r.client.Get(ctx, r.keys.user(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, storeError("get user", err)
	}

	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return &domain.User{
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

// Add relies on SETNX, so only one of several concurrent signups can win.
func (r *RedisUserRepository) Add(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(userRecord{
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	created, err := r.client.SetNX(ctx, r.keys.user(user.Email), data, 0).Result()
	if err != nil {
		return storeError("add user", err)
	}
	if !created {
		return domain.ErrDuplicateUser
	}
	return nil
}
