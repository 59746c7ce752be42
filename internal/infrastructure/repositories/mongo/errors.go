package mongo

import (
	"fmt"

	"streamhub/internal/core/domain"
)

func storeError(op string, err error) error {
	return fmt.Errorf("mongo %s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
