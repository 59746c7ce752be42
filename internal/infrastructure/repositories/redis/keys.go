package redis

import (
	"fmt"

	"streamhub/internal/core/domain"
)

type keyspace struct {
	prefix string
}

func (k keyspace) stream(id domain.StreamID) string {
	return k.prefix + "stream:" + string(id)
}

func (k keyspace) streamPattern() string {
	return k.prefix + "stream:*"
}

// streamsByCreated is a sorted set of stream ids scored by created_at in microseconds.
func (k keyspace) streamsByCreated() string {
	return k.prefix + "streams:by_created"
}

func (k keyspace) user(email string) string {
	return k.prefix + "user:" + email
}

func (k keyspace) schemaVersion() string {
	return k.prefix + "schema:version"
}

func storeError(op string, err error) error {
	return fmt.Errorf("redis %s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
