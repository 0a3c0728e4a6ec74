package postgres

import (
	"context"
	"fmt"

	"github.com/NordCoder/Tubely/internal/domain/identity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ identity.Repo = (*IdentityRepo)(nil)

type IdentityRepo struct {
	db *DB
}

func NewIdentityRepo(db *DB) *IdentityRepo { return &IdentityRepo{db: db} }

const identityCols = `id, handle, email, full_name, password_hash, COALESCE(refresh_token_hash, ''), created_at, updated_at`

const (
	qIdentityInsert = `
INSERT INTO identities (id, handle, email, full_name, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);`

	qIdentityByID = `
SELECT ` + identityCols + `
FROM identities
WHERE id = $1;`

	// handle wins over email when the identifier could match both.
	qIdentityByLogin = `
SELECT ` + identityCols + `
FROM identities
WHERE handle = $1 OR email = $1
ORDER BY (handle = $1) DESC
LIMIT 1;`

	qIdentityPassword = `
UPDATE identities
SET password_hash      = $2,
    refresh_token_hash = CASE WHEN $3::boolean THEN NULL ELSE refresh_token_hash END,
    updated_at         = NOW()
WHERE id = $1;`

	qIdentitySetRefresh = `
UPDATE identities
SET refresh_token_hash = $2,
    updated_at         = NOW()
WHERE id = $1;`

	qIdentityRotateRefresh = `
UPDATE identities
SET refresh_token_hash = $3,
    updated_at         = NOW()
WHERE id = $1 AND refresh_token_hash = $2;`
)

func (r *IdentityRepo) Create(ctx context.Context, i *identity.Identity) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.execQueryer(ctx).Exec(ctx, qIdentityInsert,
		i.ID, i.Handle, i.Email, i.FullName, i.PasswordHash, i.CreatedAt, i.UpdatedAt)
	return mapErr("identity insert", err)
}

func (r *IdentityRepo) GetByID(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var out identity.Identity
	if err := scanIdentity(r.db.execQueryer(ctx).QueryRow(ctx, qIdentityByID, id), &out); err != nil {
		return nil, mapErr("identity by id", err)
	}
	return &out, nil
}

func (r *IdentityRepo) GetByLogin(ctx context.Context, login string) (*identity.Identity, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var out identity.Identity
	if err := scanIdentity(r.db.execQueryer(ctx).QueryRow(ctx, qIdentityByLogin, login), &out); err != nil {
		return nil, mapErr("identity by login", err)
	}
	return &out, nil
}

func (r *IdentityRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, revokeRefresh bool) error {
	return r.exec(ctx, "identity password", qIdentityPassword, id, hash, revokeRefresh)
}

func (r *IdentityRepo) SetRefreshToken(ctx context.Context, id uuid.UUID, hash string) error {
	return r.exec(ctx, "identity set refresh", qIdentitySetRefresh, id, nullString(hash))
}

func (r *IdentityRepo) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, "identity clear refresh", qIdentitySetRefresh, id, nil)
}

// RotateRefreshToken swaps presented for next only if presented is still the
// stored digest. false means another rotation or a logout got there first.
func (r *IdentityRepo) RotateRefreshToken(ctx context.Context, id uuid.UUID, presented, next string) (bool, error) {
	if presented == "" {
		return false, nil
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qIdentityRotateRefresh, id, presented, next)
	if err != nil {
		return false, mapErr("identity rotate refresh", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *IdentityRepo) Ping(ctx context.Context) error { return r.db.Ping(ctx) }

func (r *IdentityRepo) exec(ctx context.Context, op, q string, args ...any) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, q, args...)
	if err != nil {
		return mapErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return mapErr(op, pgx.ErrNoRows)
	}
	return nil
}

func scanIdentity(row pgx.Row, out *identity.Identity) error {
	if err := row.Scan(
		&out.ID,
		&out.Handle,
		&out.Email,
		&out.FullName,
		&out.PasswordHash,
		&out.RefreshTokenHash,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		return fmt.Errorf("scan identity: %w", err)
	}
	return nil
}
