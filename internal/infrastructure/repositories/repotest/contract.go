// Package repotest holds the behavioural contract every store implementation
// must satisfy. Each backend's tests run the same suites.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"streamhub/internal/core/domain"
	"streamhub/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func draft(title string, createdAt time.Time) *domain.Stream {
	return &domain.Stream{
		Title:       title,
		Description: strPtr(""),
		IsLive:      false,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// RunStreamRepositoryContract exercises a StreamRepository. newRepo must
// return an empty store for every call.
func RunStreamRepositoryContract(t *testing.T, newRepo func(t *testing.T) ports.StreamRepository) {
	t.Run("create assigns id and round trips", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		in := draft("Demo", baseTime)
		created, err := repo.Create(ctx, in)
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.Empty(t, in.ID, "draft must not be mutated")
		assert.Equal(t, "Demo", created.Title)
		require.NotNil(t, created.Description)
		assert.Equal(t, "", *created.Description)
		assert.False(t, created.IsLive)
		assert.True(t, created.CreatedAt.Equal(baseTime))
		assert.True(t, created.UpdatedAt.Equal(baseTime))

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, created.Title, got.Title)
		assert.True(t, got.CreatedAt.Equal(created.CreatedAt))
	})

	t.Run("ids are unique", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		var mu sync.Mutex
		ids := make(map[domain.StreamID]struct{})
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				s, err := repo.Create(ctx, draft(fmt.Sprintf("s%d", i), baseTime.Add(time.Duration(i)*time.Second)))
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				ids[s.ID] = struct{}{}
				mu.Unlock()
			}(i)
		}
		wg.Wait()
		assert.Len(t, ids, 20)
	})

	t.Run("absent and malformed ids are not found", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, draft("gone", baseTime))
		require.NoError(t, err)
		deleted, err := repo.Delete(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, deleted)

		for _, id := range []domain.StreamID{created.ID, "not-a-valid-id", ""} {
			_, err := repo.GetByID(ctx, id)
			assert.ErrorIs(t, err, domain.ErrStreamNotFound, "get %q", id)

			_, err = repo.Update(ctx, id, domain.StreamPatch{Title: strPtr("x")})
			assert.ErrorIs(t, err, domain.ErrStreamNotFound, "update %q", id)

			ok, err := repo.Delete(ctx, id)
			assert.NoError(t, err, "delete %q", id)
			assert.False(t, ok, "delete %q", id)
		}

		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("list is newest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		_, err = repo.Create(ctx, draft("oldest", baseTime))
		require.NoError(t, err)
		_, err = repo.Create(ctx, draft("newest", baseTime.Add(2*time.Second)))
		require.NoError(t, err)
		_, err = repo.Create(ctx, draft("middle", baseTime.Add(time.Second)))
		require.NoError(t, err)

		all, err = repo.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"newest", "middle", "oldest"}, titles(all))
	})

	t.Run("update merges fields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s := draft("Demo", baseTime)
		s.Description = strPtr("keep me")
		created, err := repo.Create(ctx, s)
		require.NoError(t, err)

		t1 := baseTime.Add(time.Minute)
		updated, err := repo.Update(ctx, created.ID, domain.StreamPatch{Title: strPtr("Demo2"), UpdatedAt: &t1})
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "Demo2", updated.Title)
		require.NotNil(t, updated.Description)
		assert.Equal(t, "keep me", *updated.Description)
		assert.True(t, updated.CreatedAt.Equal(baseTime))
		assert.True(t, updated.UpdatedAt.Equal(t1))

		live := true
		t2 := t1.Add(time.Minute)
		updated, err = repo.Update(ctx, created.ID, domain.StreamPatch{IsLive: &live, UpdatedAt: &t2})
		require.NoError(t, err)
		assert.True(t, updated.IsLive)
		assert.Equal(t, "Demo2", updated.Title)

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Demo2", got.Title)
		assert.True(t, got.IsLive)
		assert.True(t, got.UpdatedAt.Equal(t2))
	})

	t.Run("unknown update leaves store untouched", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, draft("only", baseTime))
		require.NoError(t, err)
		ok, err := repo.Delete(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, ok)

		_, err = repo.Update(ctx, created.ID, domain.StreamPatch{Title: strPtr("ghost")})
		assert.ErrorIs(t, err, domain.ErrStreamNotFound)

		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("list reflects surviving records", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		type model struct {
			id      domain.StreamID
			title   string
			created time.Time
		}
		var alive []model

		for i := 0; i < 12; i++ {
			created := baseTime.Add(time.Duration((i*7)%12) * time.Second)
			s, err := repo.Create(ctx, draft(fmt.Sprintf("s%02d", i), created))
			require.NoError(t, err)
			alive = append(alive, model{id: s.ID, title: s.Title, created: created})
		}

		// Delete every third record, retitle every other survivor.
		var survivors []model
		for i, m := range alive {
			if i%3 == 0 {
				ok, err := repo.Delete(ctx, m.id)
				require.NoError(t, err)
				require.True(t, ok)
				continue
			}
			if i%2 == 0 {
				m.title += "-edited"
				ts := baseTime.Add(time.Hour)
				_, err := repo.Update(ctx, m.id, domain.StreamPatch{Title: &m.title, UpdatedAt: &ts})
				require.NoError(t, err)
			}
			survivors = append(survivors, m)
		}

		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, len(survivors))

		want := make(map[domain.StreamID]string, len(survivors))
		for _, m := range survivors {
			want[m.id] = m.title
		}
		for i, s := range all {
			title, ok := want[s.ID]
			assert.True(t, ok, "unexpected record %s", s.ID)
			assert.Equal(t, title, s.Title)
			if i > 0 {
				assert.False(t, s.CreatedAt.After(all[i-1].CreatedAt), "list must be ordered by created_at descending")
			}
		}
	})

	t.Run("concurrent updates are never partial", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, draft("race", baseTime))
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				title := fmt.Sprintf("t%d", i)
				desc := fmt.Sprintf("d%d", i)
				ts := baseTime.Add(time.Duration(i+1) * time.Second)
				_, err := repo.Update(ctx, created.ID, domain.StreamPatch{Title: &title, Description: &desc, UpdatedAt: &ts})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Description)
		// Title and description were always written together.
		assert.Equal(t, "d"+got.Title[1:], *got.Description)
	})
}

// RunUserRepositoryContract exercises a UserRepository. newRepo must return
// an empty store for every call.
func RunUserRepositoryContract(t *testing.T, newRepo func(t *testing.T) ports.UserRepository) {
	t.Run("add then get", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.Add(ctx, &domain.User{Email: "a@example.com", PasswordHash: "h1", CreatedAt: baseTime}))

		u, err := repo.GetByEmail(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", u.Email)
		assert.Equal(t, "h1", u.PasswordHash)
	})

	t.Run("absent user", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.Add(ctx, &domain.User{Email: "dup@example.com", PasswordHash: "first", CreatedAt: baseTime}))
		err := repo.Add(ctx, &domain.User{Email: "dup@example.com", PasswordHash: "second", CreatedAt: baseTime})
		assert.ErrorIs(t, err, domain.ErrDuplicateUser)

		u, err := repo.GetByEmail(ctx, "dup@example.com")
		require.NoError(t, err)
		assert.Equal(t, "first", u.PasswordHash)
	})

	t.Run("concurrent adds admit exactly one", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		var mu sync.Mutex
		successes, duplicates := 0, 0
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := repo.Add(ctx, &domain.User{Email: "race@example.com", PasswordHash: fmt.Sprintf("h%d", i), CreatedAt: baseTime})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case assert.ErrorIs(t, err, domain.ErrDuplicateUser):
					duplicates++
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, 15, duplicates)
	})
}

func titles(streams []*domain.Stream) []string {
	out := make([]string, 0, len(streams))
	for _, s := range streams {
		out = append(out, s.Title)
	}
	return out
}
