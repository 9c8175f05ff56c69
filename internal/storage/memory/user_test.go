package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playtube/authcore/internal/models"
	"github.com/playtube/authcore/internal/storage"
)

func seedUser(t *testing.T, repo *InMemoryUserRepository) *models.User {
	t.Helper()
	user, err := repo.CreateUser(context.Background(), models.User{
		Username:     "alice",
		Email:        "alice@example.com",
		FullName:     "Alice Doe",
		PasswordHash: "$2a$04$hash",
	})
	require.NoError(t, err)
	return user
}

func TestInMemoryUserRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	user := seedUser(t, repo)

	byUsername, err := repo.GetUserByIdentifier(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byUsername.ID)

	byEmail, err := repo.GetUserByIdentifier(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = repo.GetUserByIdentifier(ctx, "nobody")
	require.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestInMemoryUserRepository_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	seedUser(t, repo)

	_, err := repo.CreateUser(ctx, models.User{Username: "alice", Email: "other@example.com"})
	require.ErrorIs(t, err, storage.ErrUserExists)

	_, err = repo.CreateUser(ctx, models.User{Username: "other", Email: "alice@example.com"})
	require.ErrorIs(t, err, storage.ErrUserExists)
}

func TestInMemoryUserRepository_RefreshReferenceLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	user := seedUser(t, repo)

	ref := models.RefreshReference{
		Selector:     "sel-1",
		VerifierHash: "hash-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.SetRefreshReference(ctx, user.ID, ref))

	found, err := repo.GetUserByRefreshSelector(ctx, "sel-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	require.NotNil(t, found.Refresh)
	assert.Equal(t, "hash-1", found.Refresh.VerifierHash)

	// CAS rotation succeeds once, then conflicts.
	newRef := models.RefreshReference{Selector: "sel-2", VerifierHash: "hash-2", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.RotateRefreshReference(ctx, user.ID, "sel-1", newRef))
	err = repo.RotateRefreshReference(ctx, user.ID, "sel-1", newRef)
	require.ErrorIs(t, err, storage.ErrSessionConflict)

	_, err = repo.GetUserByRefreshSelector(ctx, "sel-1")
	require.ErrorIs(t, err, storage.ErrUserNotFound)

	// Clear removes the reference and is idempotent.
	require.NoError(t, repo.ClearRefreshReference(ctx, user.ID))
	require.NoError(t, repo.ClearRefreshReference(ctx, user.ID))
	_, err = repo.GetUserByRefreshSelector(ctx, "sel-2")
	require.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestInMemoryUserRepository_RotateOnClearedReference(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	user := seedUser(t, repo)

	err := repo.RotateRefreshReference(ctx, user.ID, "sel-1", models.RefreshReference{Selector: "sel-2"})
	require.ErrorIs(t, err, storage.ErrSessionConflict)
}

func TestInMemoryUserRepository_ConcurrentRotationSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	user := seedUser(t, repo)

	require.NoError(t, repo.SetRefreshReference(ctx, user.ID, models.RefreshReference{
		Selector:  "stale",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repo.RotateRefreshReference(ctx, user.ID, "stale", models.RefreshReference{
				Selector:  "fresh",
				ExpiresAt: time.Now().Add(time.Hour),
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	var wins int
	for err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, storage.ErrSessionConflict)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestInMemoryUserRepository_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	user := seedUser(t, repo)

	require.NoError(t, repo.SetRefreshReference(ctx, user.ID, models.RefreshReference{Selector: "sel"}))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	got.Refresh.Selector = "mutated"
	got.Username = "mutated"

	again, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "sel", again.Refresh.Selector)
	assert.Equal(t, "alice", again.Username)
}
