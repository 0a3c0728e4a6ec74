package relation

import (
	"context"

	"github.com/google/uuid"
)

type Repo interface {
	Find(ctx context.Context, actor, target uuid.UUID, kind Kind) (*Relation, error)
	// Insert fails with apperr.ErrConflict when the (actor, target, kind) tuple exists.
	Insert(ctx context.Context, r *Relation) error
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, actor, target uuid.UUID, kind Kind) (bool, error)
	Count(ctx context.Context, target uuid.UUID, kind Kind) (int64, error)
	ListByActor(ctx context.Context, actor uuid.UUID, kind Kind, p Page) ([]*Relation, error)
	ListByTarget(ctx context.Context, target uuid.UUID, kind Kind, p Page) ([]*Relation, error)
}

// EventSink receives toggle events inside the mutating transaction.
type EventSink interface {
	RelationToggled(ctx context.Context, ev Event) error
}

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
