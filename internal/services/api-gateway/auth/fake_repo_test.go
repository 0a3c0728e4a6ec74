package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/NordCoder/Tubely/internal/apperr"
	"github.com/NordCoder/Tubely/internal/domain/identity"

	"github.com/google/uuid"
)

var _ identity.Repo = (*memUsers)(nil)

type memUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*identity.Identity
	// failWith makes every call return this error.
	failWith error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uuid.UUID]*identity.Identity{}}
}

func (m *memUsers) Create(_ context.Context, i *identity.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	for _, u := range m.byID {
		if u.Handle == i.Handle || u.Email == i.Email {
			return fmt.Errorf("identity insert: %w", apperr.ErrConflict)
		}
	}
	cp := *i
	m.byID[i.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*identity.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("identity by id: %w", apperr.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByLogin(_ context.Context, login string) (*identity.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, u := range m.byID {
		if u.Handle == login {
			cp := *u
			return &cp, nil
		}
	}
	for _, u := range m.byID {
		if u.Email == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("identity by login: %w", apperr.ErrNotFound)
}

func (m *memUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string, revoke bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.PasswordHash = hash
	if revoke {
		u.RefreshTokenHash = ""
	}
	return nil
}

func (m *memUsers) SetRefreshToken(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.RefreshTokenHash = hash
	return nil
}

func (m *memUsers) RotateRefreshToken(_ context.Context, id uuid.UUID, presented, next string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok || u.RefreshTokenHash == "" || u.RefreshTokenHash != presented {
		return false, nil
	}
	u.RefreshTokenHash = next
	return true, nil
}

func (m *memUsers) ClearRefreshToken(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		u.RefreshTokenHash = ""
	}
	return nil
}

func (m *memUsers) Ping(context.Context) error { return nil }

func (m *memUsers) delete(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

func (m *memUsers) storedRefresh(id uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].RefreshTokenHash
}
