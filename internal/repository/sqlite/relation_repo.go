package sqlite

import (
	"context"
	"fmt"

	"github.com/NordCoder/Tubely/internal/apperr"
	"github.com/NordCoder/Tubely/internal/domain/relation"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

var _ relation.Repo = (*RelationRepo)(nil)

type RelationRepo struct{ db *DB }

func NewRelationRepo(db *DB) *RelationRepo { return &RelationRepo{db: db} }

func (r *RelationRepo) Find(ctx context.Context, actor, target uuid.UUID, kind relation.Kind) (*relation.Relation, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var m RelationModel
	err := r.db.conn(ctx).
		Where("actor_id = ? AND target_id = ? AND kind = ?", actor.String(), target.String(), string(kind)).
		Take(&m).Error
	if err != nil {
		return nil, mapErr("relation find", err)
	}
	out, err := m.domain()
	if err != nil {
		return nil, mapErr("relation find", err)
	}
	return out, nil
}

func (r *RelationRepo) Insert(ctx context.Context, rel *relation.Relation) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	m := relationModel(rel)
	res := r.db.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
	if res.Error != nil {
		return mapErr("relation insert", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("relation insert: %w", apperr.ErrConflict)
	}
	return nil
}

func (r *RelationRepo) Delete(ctx context.Context, actor, target uuid.UUID, kind relation.Kind) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res := r.db.conn(ctx).
		Where("actor_id = ? AND target_id = ? AND kind = ?", actor.String(), target.String(), string(kind)).
		Delete(&RelationModel{})
	if res.Error != nil {
		return false, mapErr("relation delete", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *RelationRepo) Count(ctx context.Context, target uuid.UUID, kind relation.Kind) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n int64
	err := r.db.conn(ctx).Model(&RelationModel{}).
		Where("target_id = ? AND kind = ?", target.String(), string(kind)).
		Count(&n).Error
	if err != nil {
		return 0, mapErr("relation count", err)
	}
	return n, nil
}

func (r *RelationRepo) ListByActor(ctx context.Context, actor uuid.UUID, kind relation.Kind, p relation.Page) ([]*relation.Relation, error) {
	return r.list(ctx, "relations by actor", "actor_id = ? AND kind = ?", actor, kind, p)
}

func (r *RelationRepo) ListByTarget(ctx context.Context, target uuid.UUID, kind relation.Kind, p relation.Page) ([]*relation.Relation, error) {
	return r.list(ctx, "relations by target", "target_id = ? AND kind = ?", target, kind, p)
}

func (r *RelationRepo) list(ctx context.Context, op, where string, id uuid.UUID, kind relation.Kind, p relation.Page) ([]*relation.Relation, error) {
	p = p.Normalize()
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows := make([]RelationModel, 0, p.Limit)
	err := r.db.conn(ctx).
		Where(where, id.String(), string(kind)).
		Order("created_at DESC").Order("id DESC").
		Limit(p.Limit).Offset(p.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, mapErr(op, err)
	}

	out := make([]*relation.Relation, 0, len(rows))
	for _, m := range rows {
		rel, err := m.domain()
		if err != nil {
			return nil, mapErr(op, err)
		}
		out = append(out, rel)
	}
	return out, nil
}
