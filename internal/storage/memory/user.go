package memory

import (
	"context"
	"sync"
	"time"

	"github.com/playtube/authcore/internal/models"
	"github.com/playtube/authcore/internal/storage"
)

// InMemoryUserRepository is a map-backed credential store used in tests and
// local development. A single mutex gives it the same per-record atomicity
// the postgres implementation gets from single-statement updates.
type InMemoryUserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]models.User
}

var _ storage.UserRepository = (*InMemoryUserRepository)(nil)

func NewUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		nextID: 1,
		users:  make(map[int64]models.User),
	}
}

func (m *InMemoryUserRepository) CreateUser(_ context.Context, user models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, storage.ErrUserExists
		}
	}

	user.ID = m.nextID
	m.nextID++
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.ID] = user

	created := user
	return &created, nil
}

func (m *InMemoryUserRepository) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (m *InMemoryUserRepository) GetUserByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Username == identifier || u.Email == identifier {
			return cloneUser(u), nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (m *InMemoryUserRepository) GetUserByRefreshSelector(_ context.Context, selector string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Refresh != nil && u.Refresh.Selector == selector {
			return cloneUser(u), nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (m *InMemoryUserRepository) SetRefreshReference(_ context.Context, userID int64, ref models.RefreshReference) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.Refresh = &ref
	u.UpdatedAt = time.Now()
	m.users[userID] = u
	return nil
}

func (m *InMemoryUserRepository) RotateRefreshReference(_ context.Context, userID int64, oldSelector string, ref models.RefreshReference) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	if u.Refresh == nil || u.Refresh.Selector != oldSelector {
		return storage.ErrSessionConflict
	}
	u.Refresh = &ref
	u.UpdatedAt = time.Now()
	m.users[userID] = u
	return nil
}

func (m *InMemoryUserRepository) ClearRefreshReference(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return nil
	}
	u.Refresh = nil
	u.UpdatedAt = time.Now()
	m.users[userID] = u
	return nil
}

func cloneUser(u models.User) *models.User {
	c := u
	if u.Refresh != nil {
		ref := *u.Refresh
		c.Refresh = &ref
	}
	return &c
}
