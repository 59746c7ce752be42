package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"streamhub/internal/core/domain"
	"streamhub/internal/core/ports"
	"streamhub/internal/infrastructure/repositories/repotest"
	"streamhub/pkg/config"
	"streamhub/pkg/retry"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient connects to STREAMHUB_TEST_REDIS_ADDR and hands out a key
// prefix unique to the test; keys under it are removed afterwards.
func testClient(t *testing.T) (*redis.Client, string) {
	t.Helper()

	addr := os.Getenv("STREAMHUB_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STREAMHUB_TEST_REDIS_ADDR not set")
	}

	prefix := "streamhub_test:" + uuid.NewString() + ":"
	cfg := config.DefaultConfig().Redis
	cfg.Address = addr
	cfg.KeyPrefix = prefix
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = 1

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := NewRedisClient(ctx, cfg, retryCfg, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx := context.Background()
		iter := client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
		_ = CloseRedisClient(client)
	})
	return client, prefix
}

func TestRedisStreamRepository_Contract(t *testing.T) {
	repotest.RunStreamRepositoryContract(t, func(t *testing.T) ports.StreamRepository {
		client, prefix := testClient(t)
		return NewRedisStreamRepository(client, prefix)
	})
}

func TestRedisUserRepository_Contract(t *testing.T) {
	repotest.RunUserRepositoryContract(t, func(t *testing.T) ports.UserRepository {
		client, prefix := testClient(t)
		return NewRedisUserRepository(client, prefix)
	})
}

func TestMigrate_RebuildsStreamIndex(t *testing.T) {
	client, prefix := testClient(t)
	ctx := context.Background()
	repo := NewRedisStreamRepository(client, prefix)
	keys := keyspace{prefix: prefix}

	created, err := repo.Create(ctx, &domain.Stream{Title: "indexed", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)

	require.NoError(t, client.Del(ctx, keys.streamsByCreated(), keys.schemaVersion()).Err())
	require.NoError(t, Migrate(ctx, client, prefix, nil))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, created.ID, all[0].ID)
}

func TestKeyspace(t *testing.T) {
	k := keyspace{prefix: "app:"}
	assert.Equal(t, "app:stream:abc", k.stream("abc"))
	assert.Equal(t, "app:user:a@b.co", k.user("a@b.co"))
	assert.Equal(t, "app:streams:by_created", k.streamsByCreated())
	assert.ErrorIs(t, storeError("get", context.Canceled), domain.ErrStoreUnavailable)
}
