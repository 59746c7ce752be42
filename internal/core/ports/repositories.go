package ports

import (
	"context"

	"streamhub/internal/core/domain"
)

// UserRepository stores credential records keyed by email.
// Add must reject an existing email atomically with domain.ErrDuplicateUser.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Add(ctx context.Context, user *domain.User) error
}

// StreamRepository owns the canonical stream records.
// Unknown or malformed ids yield domain.ErrStreamNotFound (Delete reports false instead).
// Technical failures wrap domain.ErrStoreUnavailable.
type StreamRepository interface {
	Create(ctx context.Context, stream *domain.Stream) (*domain.Stream, error)
	GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error)
	ListAll(ctx context.Context) ([]*domain.Stream, error)
	Update(ctx context.Context, id domain.StreamID, patch domain.StreamPatch) (*domain.Stream, error)
	Delete(ctx context.Context, id domain.StreamID) (bool, error)
}
