package identity

import (
	"context"

	"github.com/google/uuid"
)

type Repo interface {
	Create(ctx context.Context, i *Identity) error
	GetByID(ctx context.Context, id uuid.UUID) (*Identity, error)
	// GetByLogin matches login against handle first, then email.
	GetByLogin(ctx context.Context, login string) (*Identity, error)
	// UpdatePassword stores a new hash; with revokeRefresh it also clears the refresh token.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, revokeRefresh bool) error

	// SetRefreshToken unconditionally replaces the stored refresh token digest.
	SetRefreshToken(ctx context.Context, id uuid.UUID, tokenHash string) error
	// RotateRefreshToken swaps presented for next only if presented is still the
	// stored value. It reports false when another writer got there first.
	RotateRefreshToken(ctx context.Context, id uuid.UUID, presented, next string) (bool, error)
	ClearRefreshToken(ctx context.Context, id uuid.UUID) error

	Ping(ctx context.Context) error
}
