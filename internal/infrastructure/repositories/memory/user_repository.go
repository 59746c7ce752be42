package memory

import (
	"context"
	"sync"

	"streamhub/internal/core/domain"
	"streamhub/internal/core/ports"
)

// MemoryUserRepository keeps users in process memory. Suitable for tests and
// single-instance deployments; contents are lost on restart.
type MemoryUserRepository struct {
	users map[string]domain.User
	mu    sync.RWMutex
}

func NewMemoryUserRepository() ports.UserRepository {
	return &MemoryUserRepository{
		users: make(map[string]domain.User),
	}
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[email]
	if !exists {
		return nil, domain.ErrUserNotFound
	}
	return &user, nil
}

func (r *MemoryUserRepository) Add(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Email]; exists {
		return domain.ErrDuplicateUser
	}
	r.users[user.Email] = *user
	return nil
}
