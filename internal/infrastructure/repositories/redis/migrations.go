package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"streamhub/internal/core/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const currentSchemaVersion = 1

// Migration represents a keyspace migration
type Migration struct {
	Version int
	Up      func(ctx context.Context, client *redis.Client, keys keyspace) error
}

// Migrate runs all pending migrations
func Migrate(ctx context.Context, client *redis.Client, prefix string, logger *zap.SugaredLogger) error {
	keys := keyspace{prefix: prefix}

	currentVersion, err := getSchemaVersion(ctx, client, keys)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if currentVersion >= currentSchemaVersion {
		if logger != nil {
			logger.Infow("schema is up to date",
				"current_version", currentVersion,
				"target_version", currentSchemaVersion,
			)
		}
		return nil
	}

	for _, migration := range getMigrations() {
		if migration.Version <= currentVersion {
			continue
		}

		if logger != nil {
			logger.Infow("running migration", "version", migration.Version)
		}

		if err := migration.Up(ctx, client, keys); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if err := client.Set(ctx, keys.schemaVersion(), migration.Version, 0).Err(); err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
	}

	if logger != nil {
		logger.Infow("all migrations completed", "final_version", currentSchemaVersion)
	}

	return nil
}

func getSchemaVersion(ctx context.Context, client *redis.Client, keys keyspace) (int, error) {
	val, err := client.Get(ctx, keys.schemaVersion()).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

func getMigrations() []Migration {
	return []Migration{
		{
			// Rebuild the created_at index from the stream records themselves.
			Version: 1,
			Up:      rebuildStreamIndex,
		},
	}
}

func rebuildStreamIndex(ctx context.Context, client *redis.Client, keys keyspace) error {
	iter := client.Scan(ctx, 0, keys.streamPattern(), 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return err
		}

		var stream domain.Stream
		if err := json.Unmarshal(data, &stream); err != nil {
			return fmt.Errorf("corrupt stream record %s: %w", key, err)
		}

		id := strings.TrimPrefix(key, keys.prefix+"stream:")
		if err := client.ZAdd(ctx, keys.streamsByCreated(), redis.Z{
			Score:  float64(stream.CreatedAt.UnixMicro()),
			Member: id,
		}).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
