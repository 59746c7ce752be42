package services

import (
	"context"
	"sync"
	"time"

	"streamhub/internal/core/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
	errs   []error
}

func (o *recordingObserver) AuthAttempt(flow string, err error) {
	o.record(flow, err)
}

func (o *recordingObserver) StreamOperation(op string, err error) {
	o.record(op, err)
}

func (o *recordingObserver) record(name string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, name)
	o.errs = append(o.errs, err)
}

// brokenUserRepository simulates a store that cannot be reached.
type brokenUserRepository struct{}

func (brokenUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, domain.ErrStoreUnavailable
}

func (brokenUserRepository) Add(ctx context.Context, user *domain.User) error {
	return domain.ErrStoreUnavailable
}

type brokenStreamRepository struct{}

func (brokenStreamRepository) Create(ctx context.Context, stream *domain.Stream) (*domain.Stream, error) {
	return nil, domain.ErrStoreUnavailable
}

func (brokenStreamRepository) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	return nil, domain.ErrStoreUnavailable
}

func (brokenStreamRepository) ListAll(ctx context.Context) ([]*domain.Stream, error) {
	return nil, domain.ErrStoreUnavailable
}

func (brokenStreamRepository) Update(ctx context.Context, id domain.StreamID, patch domain.StreamPatch) (*domain.Stream, error) {
	return nil, domain.ErrStoreUnavailable
}

func (brokenStreamRepository) Delete(ctx context.Context, id domain.StreamID) (bool, error) {
	return false, domain.ErrStoreUnavailable
}
