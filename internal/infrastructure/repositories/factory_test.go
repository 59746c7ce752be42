package repositories

import (
	"context"
	"testing"
	"time"

	"streamhub/internal/core/domain"
	"streamhub/internal/infrastructure/monitoring"
	"streamhub/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func unreachableConfig(backend string, fallback bool) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = backend
	cfg.Storage.FallbackToMemory = fallback
	cfg.Reliability.Retry.Enabled = false
	cfg.Mongo.URI = "mongodb://127.0.0.1:1/?connect=direct"
	cfg.Mongo.ServerSelectionTimeout = 100 * time.Millisecond
	cfg.Mongo.MinPoolSize = 0
	cfg.Redis.Address = "127.0.0.1:1"
	return cfg
}

func TestRepositoryFactory_Memory(t *testing.T) {
	ctx := context.Background()
	f, err := NewRepositoryFactory(ctx, config.DefaultConfig(), zap.NewNop().Sugar())
	require.NoError(t, err)
	defer f.Close(ctx)

	assert.Equal(t, config.BackendMemory, f.Backend())
	assert.Equal(t, config.BackendMemory, f.DatabaseName())
	assert.NoError(t, f.HealthCheck(ctx))

	// Repeated calls share one in-memory store.
	created, err := f.CreateStreamRepository().Create(ctx, &domain.Stream{Title: "shared", CreatedAt: time.Now()})
	require.NoError(t, err)
	got, err := f.CreateStreamRepository().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "shared", got.Title)

	require.NoError(t, f.CreateUserRepository().Add(ctx, &domain.User{Email: "a@example.com"}))
	_, err = f.CreateUserRepository().GetByEmail(ctx, "a@example.com")
	assert.NoError(t, err)

	h := monitoring.NewHealthChecker()
	f.RegisterHealthChecks(h, 0, time.Second)
	assert.True(t, h.IsReady(ctx))
}

func TestRepositoryFactory_FallbackToMemory(t *testing.T) {
	for _, backend := range []string{config.BackendMongo, config.BackendRedis} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			f, err := NewRepositoryFactory(ctx, unreachableConfig(backend, true), zap.NewNop().Sugar())
			require.NoError(t, err)
			defer f.Close(ctx)

			assert.Equal(t, config.BackendMemory, f.Backend())
		})
	}
}

func TestRepositoryFactory_NoFallbackFails(t *testing.T) {
	for _, backend := range []string{config.BackendMongo, config.BackendRedis} {
		t.Run(backend, func(t *testing.T) {
			_, err := NewRepositoryFactory(context.Background(), unreachableConfig(backend, false), zap.NewNop().Sugar())
			assert.Error(t, err)
		})
	}
}

func TestRepositoryFactory_UnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "cassandra"

	_, err := NewRepositoryFactory(context.Background(), cfg, zap.NewNop().Sugar())
	assert.Error(t, err)
}
