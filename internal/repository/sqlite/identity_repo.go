package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/NordCoder/Tubely/internal/apperr"
	"github.com/NordCoder/Tubely/internal/domain/identity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var _ identity.Repo = (*IdentityRepo)(nil)

type IdentityRepo struct{ db *DB }

func NewIdentityRepo(db *DB) *IdentityRepo { return &IdentityRepo{db: db} }

func (r *IdentityRepo) Create(ctx context.Context, i *identity.Identity) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	m := identityModel(i)
	return mapErr("identity insert", r.db.conn(ctx).Create(&m).Error)
}

func (r *IdentityRepo) GetByID(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	return r.first(ctx, "identity by id", "id = ?", id.String())
}

// GetByLogin tries the handle first, then the email.
func (r *IdentityRepo) GetByLogin(ctx context.Context, login string) (*identity.Identity, error) {
	out, err := r.first(ctx, "identity by login", "handle = ?", login)
	if errors.Is(err, apperr.ErrNotFound) {
		return r.first(ctx, "identity by login", "email = ?", login)
	}
	return out, err
}

func (r *IdentityRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, revokeRefresh bool) error {
	fields := map[string]any{"password_hash": hash}
	if revokeRefresh {
		fields["refresh_token_hash"] = nil
	}
	return r.update(ctx, "identity password", id, fields)
}

func (r *IdentityRepo) SetRefreshToken(ctx context.Context, id uuid.UUID, hash string) error {
	var v any
	if hash != "" {
		v = hash
	}
	return r.update(ctx, "identity set refresh", id, map[string]any{"refresh_token_hash": v})
}

func (r *IdentityRepo) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, "identity clear refresh", id, map[string]any{"refresh_token_hash": nil})
}

// RotateRefreshToken is a conditional update on the stored digest.
func (r *IdentityRepo) RotateRefreshToken(ctx context.Context, id uuid.UUID, presented, next string) (bool, error) {
	if presented == "" {
		return false, nil
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res := r.db.conn(ctx).Model(&IdentityModel{}).
		Where("id = ? AND refresh_token_hash = ?", id.String(), presented).
		Updates(map[string]any{"refresh_token_hash": next, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, mapErr("identity rotate refresh", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *IdentityRepo) Ping(ctx context.Context) error { return r.db.Ping(ctx) }

func (r *IdentityRepo) first(ctx context.Context, op, where string, arg any) (*identity.Identity, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var m IdentityModel
	if err := r.db.conn(ctx).Where(where, arg).Take(&m).Error; err != nil {
		return nil, mapErr(op, err)
	}
	out, err := m.domain()
	if err != nil {
		return nil, mapErr(op, err)
	}
	return out, nil
}

func (r *IdentityRepo) update(ctx context.Context, op string, id uuid.UUID, fields map[string]any) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	fields["updated_at"] = time.Now().UTC()
	res := r.db.conn(ctx).Model(&IdentityModel{}).Where("id = ?", id.String()).Updates(fields)
	if res.Error != nil {
		return mapErr(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return mapErr(op, gorm.ErrRecordNotFound)
	}
	return nil
}
