package repository

import (
	"context"
	"fmt"
	"sync"

	userserrors "geobus/internal/users/errors"
	"geobus/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryUserRepository enforces the unique email rule in process. Used by tests.
type MemoryUserRepository struct {
	mu      sync.Mutex
	byID    map[string]*model.User
	byEmail map[string]string
}

var _ UserRepository = (*MemoryUserRepository)(nil)

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]string),
	}
}

func (m *MemoryUserRepository) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[user.Email]; exists {
		return fmt.Errorf("%w: %s", userserrors.ErrDuplicateEmail, user.Email)
	}
	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}
	c := *user
	m.byID[user.ID] = &c
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("%w: %s", userserrors.ErrNotFound, email)
	}
	c := *m.byID[id]
	return &c, nil
}

func (m *MemoryUserRepository) FindByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", userserrors.ErrNotFound, id)
	}
	c := *u
	return &c, nil
}

func (m *MemoryUserRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}
