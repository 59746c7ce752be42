package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"streamhub/internal/core/domain"
	"streamhub/internal/core/ports"
	"streamhub/pkg/tracing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 100

type RedisStreamRepository struct {
	client *redis.Client
	keys   keyspace
}

func NewRedisStreamRepository(client *redis.Client, prefix string) ports.StreamRepository {
	return &RedisStreamRepository{
		client: client,
		keys:   keyspace{prefix: prefix},
	}
}

func (r *RedisStreamRepository) Create(ctx context.Context, stream *domain.Stream) (*domain.Stream, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "create", "streams")
	defer span.End()

	record := stream.Clone()
	record.ID = domain.StreamID(uuid.New().String())

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stream: %w", err)
	}

	// Record and index land together or not at all.
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.keys.stream(record.ID), data, 0)
		pipe.ZAdd(ctx, r.keys.streamsByCreated(), redis.Z{
			Score:  float64(record.CreatedAt.UnixMicro()),
			Member: string(record.ID),
		})
		return nil
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, storeError("create stream", err)
	}

	return record, nil
}

func (r *RedisStreamRepository) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	if !validID(id) {
		return nil, domain.ErrStreamNotFound
	}

	ctx, span := tracing.TraceDatabaseOperation(ctx, "get", "streams")
	defer span.End()

	data, err := r.client.Get(ctx, r.keys.stream(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrStreamNotFound
	}
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, storeError("get stream", err)
	}

	return decodeStream(data)
}

func (r *RedisStreamRepository) ListAll(ctx context.Context) ([]*domain.Stream, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "list", "streams")
	defer span.End()

	ids, err := r.client.ZRevRange(ctx, r.keys.streamsByCreated(), 0, -1).Result()
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, storeError("list stream ids", err)
	}

	streams := make([]*domain.Stream, 0, len(ids))
	if len(ids) == 0 {
		return streams, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.keys.stream(domain.StreamID(id))
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, storeError("load streams", err)
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Deleted between ZREVRANGE and MGET.
			continue
		}
		stream, err := decodeStream([]byte(raw))
		if err != nil {
			return nil, err
		}
		streams = append(streams, stream)
	}

	return streams, nil
}

// Update merges the patch under WATCH so a concurrent writer forces a retry
// instead of interleaving with this merge.
func (r *RedisStreamRepository) Update(ctx context.Context, id domain.StreamID, patch domain.StreamPatch) (*domain.Stream, error) {
	if !validID(id) {
		return nil, domain.ErrStreamNotFound
	}

	ctx, span := tracing.TraceDatabaseOperation(ctx, "update", "streams")
	defer span.End()

	key := r.keys.stream(id)
	var updated *domain.Stream

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrStreamNotFound
		}
		if err != nil {
			return err
		}

		stream, err := decodeStream(data)
		if err != nil {
			return err
		}
		patch.Apply(stream)

		out, err := json.Marshal(stream)
		if err != nil {
			return fmt.Errorf("failed to marshal stream: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err == nil {
			updated = stream
		}
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return updated, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, domain.ErrStreamNotFound):
			return nil, err
		default:
			tracing.RecordError(ctx, err)
			return nil, storeError("update stream", err)
		}
	}

	return nil, storeError("update stream", fmt.Errorf("too much contention on %s", key))
}

func (r *RedisStreamRepository) Delete(ctx context.Context, id domain.StreamID) (bool, error) {
	if !validID(id) {
		return false, nil
	}

	ctx, span := tracing.TraceDatabaseOperation(ctx, "delete", "streams")
	defer span.End()

	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.keys.stream(id))
		pipe.ZRem(ctx, r.keys.streamsByCreated(), string(id))
		return nil
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return false, storeError("delete stream", err)
	}

	return del.Val() > 0, nil
}

func decodeStream(data []byte) (*domain.Stream, error) {
	var stream domain.Stream
	if err := json.Unmarshal(data, &stream); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stream: %w", err)
	}
	return &stream, nil
}

func validID(id domain.StreamID) bool {
	_, err := uuid.Parse(string(id))
	return err == nil
}
