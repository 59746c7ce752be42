package ports

import (
	"context"
	"time"

	"streamhub/internal/core/domain"
)

type AuthService interface {
	Signup(ctx context.Context, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	CurrentUser(ctx context.Context, token string) (string, error)
}

type StreamService interface {
	CreateStream(ctx context.Context, title string, description *string) (*domain.Stream, error)
	GetStream(ctx context.Context, id domain.StreamID) (*domain.Stream, error)
	ListStreams(ctx context.Context) ([]*domain.Stream, error)
	UpdateStream(ctx context.Context, id domain.StreamID, patch domain.StreamPatch) (*domain.Stream, error)
	DeleteStream(ctx context.Context, id domain.StreamID) (bool, error)
}

// PasswordHasher produces self-describing digests. Verify never errors: a
// malformed digest simply does not verify.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// TokenCodec issues and verifies signed, time-bound identity tokens.
type TokenCodec interface {
	Issue(subject string, now time.Time, ttl time.Duration) (string, error)
	Verify(token string, now time.Time) (string, error)
}

type Clock interface {
	Now() time.Time
}

// StreamObserver receives notifications about completed stream operations.
type StreamObserver interface {
	StreamOperation(op string, err error)
}

// AuthObserver receives notifications about signup and login outcomes.
type AuthObserver interface {
	AuthAttempt(flow string, err error)
}
