package postgres

import (
	"context"
	"fmt"

	"github.com/NordCoder/Tubely/internal/apperr"
	"github.com/NordCoder/Tubely/internal/domain/relation"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ relation.Repo = (*RelationRepo)(nil)

type RelationRepo struct {
	db *DB
}

func NewRelationRepo(db *DB) *RelationRepo { return &RelationRepo{db: db} }

const (
	qRelationFind = `
SELECT id, actor_id, target_id, kind, created_at
FROM relations
WHERE actor_id = $1 AND target_id = $2 AND kind = $3;`

	// DO NOTHING keeps the surrounding transaction usable when a concurrent
	// toggle already created the edge.
	qRelationInsert = `
INSERT INTO relations (id, actor_id, target_id, kind, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (actor_id, target_id, kind) DO NOTHING;`

	qRelationDelete = `
DELETE FROM relations
WHERE actor_id = $1 AND target_id = $2 AND kind = $3;`

	qRelationCount = `
SELECT COUNT(*)
FROM relations
WHERE target_id = $1 AND kind = $2;`

	qRelationByActor = `
SELECT id, actor_id, target_id, kind, created_at
FROM relations
WHERE actor_id = $1 AND kind = $2
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4;`

	qRelationByTarget = `
SELECT id, actor_id, target_id, kind, created_at
FROM relations
WHERE target_id = $1 AND kind = $2
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4;`
)

func (r *RelationRepo) Find(ctx context.Context, actor, target uuid.UUID, kind relation.Kind) (*relation.Relation, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var out relation.Relation
	if err := scanRelation(r.db.execQueryer(ctx).QueryRow(ctx, qRelationFind, actor, target, string(kind)), &out); err != nil {
		return nil, mapErr("relation find", err)
	}
	return &out, nil
}

func (r *RelationRepo) Insert(ctx context.Context, rel *relation.Relation) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qRelationInsert,
		rel.ID, rel.ActorID, rel.TargetID, string(rel.Kind), rel.CreatedAt)
	if err != nil {
		return mapErr("relation insert", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("relation insert: %w", apperr.ErrConflict)
	}
	return nil
}

func (r *RelationRepo) Delete(ctx context.Context, actor, target uuid.UUID, kind relation.Kind) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qRelationDelete, actor, target, string(kind))
	if err != nil {
		return false, mapErr("relation delete", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *RelationRepo) Count(ctx context.Context, target uuid.UUID, kind relation.Kind) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n int64
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qRelationCount, target, string(kind)).Scan(&n); err != nil {
		return 0, mapErr("relation count", err)
	}
	return n, nil
}

func (r *RelationRepo) ListByActor(ctx context.Context, actor uuid.UUID, kind relation.Kind, p relation.Page) ([]*relation.Relation, error) {
	return r.list(ctx, "relations by actor", qRelationByActor, actor, kind, p)
}

func (r *RelationRepo) ListByTarget(ctx context.Context, target uuid.UUID, kind relation.Kind, p relation.Page) ([]*relation.Relation, error) {
	return r.list(ctx, "relations by target", qRelationByTarget, target, kind, p)
}

func (r *RelationRepo) list(ctx context.Context, op, q string, id uuid.UUID, kind relation.Kind, p relation.Page) ([]*relation.Relation, error) {
	p = p.Normalize()
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, q, id, string(kind), p.Limit, p.Offset)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()

	out := make([]*relation.Relation, 0, p.Limit)
	for rows.Next() {
		var rel relation.Relation
		if err := scanRelation(rows, &rel); err != nil {
			return nil, mapErr(op, err)
		}
		out = append(out, &rel)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(op, err)
	}
	return out, nil
}

func scanRelation(row pgx.Row, out *relation.Relation) error {
	var kind string
	if err := row.Scan(&out.ID, &out.ActorID, &out.TargetID, &kind, &out.CreatedAt); err != nil {
		return fmt.Errorf("scan relation: %w", err)
	}
	out.Kind = relation.Kind(kind)
	return nil
}
