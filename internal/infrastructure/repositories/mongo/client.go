package mongo

import (
	"context"
	"fmt"
	"time"

	"streamhub/pkg/config"
	"streamhub/pkg/retry"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// NewMongoClient connects with a bounded connection pool and verifies the
// primary is reachable, retrying the initial ping with backoff.
func NewMongoClient(ctx context.Context, cfg config.MongoConfig, retryCfg retry.Config, logger *zap.SugaredLogger) (*mongo.Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri is not set")
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetSocketTimeout(cfg.SocketTimeout).
		SetRetryWrites(cfg.RetryWrites).
		SetRetryReads(cfg.RetryReads)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	err = retry.Retry(ctx, retryCfg, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.ServerSelectionTimeout+time.Second)
		defer cancel()
		return client.Ping(pingCtx, readpref.Primary())
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if logger != nil {
		logger.Infow("connected to MongoDB",
			"database", cfg.Database,
			"min_pool_size", cfg.MinPoolSize,
			"max_pool_size", cfg.MaxPoolSize,
		)
	}

	return client, nil
}

func CloseMongoClient(ctx context.Context, client *mongo.Client) error {
	if client != nil {
		return client.Disconnect(ctx)
	}
	return nil
}
