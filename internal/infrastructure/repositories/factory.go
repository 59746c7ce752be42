package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"streamhub/internal/core/ports"
	"streamhub/internal/infrastructure/monitoring"
	"streamhub/internal/infrastructure/repositories/memory"
	mongorepo "streamhub/internal/infrastructure/repositories/mongo"
	redisrepo "streamhub/internal/infrastructure/repositories/redis"
	"streamhub/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// RepositoryFactory creates repositories for the configured backend with fallback support
type RepositoryFactory struct {
	backend  string
	database string
	logger   *zap.SugaredLogger

	mongoClient *mongo.Client
	mongoDB     *mongo.Database

	redisClient *redis.Client
	redisPrefix string

	memoryOnce    sync.Once
	memoryUsers   ports.UserRepository
	memoryStreams ports.StreamRepository
}

// NewRepositoryFactory connects to the configured backend. When the backend is
// unreachable and storage.fallback_to_memory is set, in-memory stores are used instead.
func NewRepositoryFactory(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		backend:  config.BackendMemory,
		database: config.BackendMemory,
		logger:   logger,
	}

	var err error
	switch cfg.Storage.Backend {
	case config.BackendMongo:
		err = factory.connectMongo(ctx, cfg)
	case config.BackendRedis:
		err = factory.connectRedis(ctx, cfg)
	case config.BackendMemory, "":
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if err != nil {
		if !cfg.Storage.FallbackToMemory {
			return nil, err
		}
		logger.Warnw("failed to connect to storage backend, falling back to memory repositories",
			"backend", cfg.Storage.Backend,
			"error", err,
		)
	}

	logger.Infow("using repositories", "backend", factory.backend, "database", factory.database)
	return factory, nil
}

func (f *RepositoryFactory) connectMongo(ctx context.Context, cfg *config.Config) error {
	client, err := mongorepo.NewMongoClient(ctx, cfg.Mongo, cfg.Reliability.Retry, f.logger)
	if err != nil {
		return err
	}

	db := client.Database(cfg.Mongo.Database)
	if err := mongorepo.EnsureIndexes(ctx, db, f.logger); err != nil {
		_ = mongorepo.CloseMongoClient(context.Background(), client)
		return fmt.Errorf("failed to ensure mongo indexes: %w", err)
	}

	f.mongoClient = client
	f.mongoDB = db
	f.backend = config.BackendMongo
	f.database = cfg.Mongo.Database
	return nil
}

func (f *RepositoryFactory) connectRedis(ctx context.Context, cfg *config.Config) error {
	client, err := redisrepo.NewRedisClient(ctx, cfg.Redis, cfg.Reliability.Retry, f.logger)
	if err != nil {
		return err
	}

	f.redisClient = client
	f.redisPrefix = cfg.Redis.KeyPrefix
	f.backend = config.BackendRedis
	f.database = "db" + strconv.Itoa(cfg.Redis.DB)
	return nil
}

// Backend returns the backend actually in use after any fallback
func (f *RepositoryFactory) Backend() string {
	return f.backend
}

// DatabaseName identifies the database within the backend
func (f *RepositoryFactory) DatabaseName() string {
	return f.database
}

func (f *RepositoryFactory) initMemory() {
	f.memoryOnce.Do(func() {
		f.memoryUsers = memory.NewMemoryUserRepository()
		f.memoryStreams = memory.NewMemoryStreamRepository()
	})
}

// CreateUserRepository creates a user repository for the active backend
func (f *RepositoryFactory) CreateUserRepository() ports.UserRepository {
	switch f.backend {
	case config.BackendMongo:
		return mongorepo.NewMongoUserRepository(f.mongoDB)
	case config.BackendRedis:
		return redisrepo.NewRedisUserRepository(f.redisClient, f.redisPrefix)
	default:
		f.initMemory()
		return f.memoryUsers
	}
}

// CreateStreamRepository creates a stream repository for the active backend
func (f *RepositoryFactory) CreateStreamRepository() ports.StreamRepository {
	switch f.backend {
	case config.BackendMongo:
		return mongorepo.NewMongoStreamRepository(f.mongoDB)
	case config.BackendRedis:
		return redisrepo.NewRedisStreamRepository(f.redisClient, f.redisPrefix)
	default:
		f.initMemory()
		return f.memoryStreams
	}
}

// RegisterHealthChecks adds the backend's connectivity check to h
func (f *RepositoryFactory) RegisterHealthChecks(h *monitoring.HealthChecker, interval, timeout time.Duration) {
	switch f.backend {
	case config.BackendMongo:
		h.AddMongoCheck(f.mongoClient, interval, timeout)
	case config.BackendRedis:
		h.AddRedisCheck(f.redisClient, interval, timeout)
	default:
		h.AddCheck(config.BackendMemory, func(ctx context.Context) error { return nil }, interval, timeout)
	}
}

// HealthCheck pings the active backend
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	switch f.backend {
	case config.BackendMongo:
		return f.mongoClient.Ping(ctx, readpref.Primary())
	case config.BackendRedis:
		return f.redisClient.Ping(ctx).Err()
	default:
		return nil
	}
}

// Close releases backend connections
func (f *RepositoryFactory) Close(ctx context.Context) error {
	var errs []error
	if f.mongoClient != nil {
		errs = append(errs, mongorepo.CloseMongoClient(ctx, f.mongoClient))
	}
	if f.redisClient != nil {
		errs = append(errs, redisrepo.CloseRedisClient(f.redisClient))
	}
	return errors.Join(errs...)
}
