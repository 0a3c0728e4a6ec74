package relation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Tubely/internal/apperr"
	"github.com/NordCoder/Tubely/internal/domain/relation"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ErrUnknownKind   = apperr.BadRequest("unknown relation kind")
	ErrInvalidTarget = apperr.BadRequest("invalid target id")
	ErrSelfSubscribe = apperr.BadRequest("cannot subscribe to own channel")
)

var toggles = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "relation_toggles_total",
	Help: "Relation toggles by kind and resulting state.",
}, []string{"kind", "state"})

// ToggleResult holds either the created edge or Removed=true.
type ToggleResult struct {
	Created *relation.Relation `json:"created,omitempty"`
	Removed bool               `json:"removed,omitempty"`
}

type Usecase struct {
	repo relation.Repo
	tx   relation.Transactor
	sink relation.EventSink
	clk  func() time.Time
}

type noTx struct{}

func (noTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// New builds the toggle engine. tx and sink may be nil: without a transactor
// each repository call runs on its own, without a sink no events are emitted.
func New(repo relation.Repo, tx relation.Transactor, sink relation.EventSink, clk func() time.Time) *Usecase {
	if tx == nil {
		tx = noTx{}
	}
	if clk == nil {
		clk = func() time.Time { return time.Now().UTC() }
	}
	return &Usecase{repo: repo, tx: tx, sink: sink, clk: clk}
}

// ParseRef validates the path parameters shared by every relation operation.
func ParseRef(kind, target string) (relation.Kind, uuid.UUID, error) {
	k, ok := relation.ParseKind(kind)
	if !ok {
		return "", uuid.Nil, ErrUnknownKind
	}
	id, err := uuid.Parse(target)
	if err != nil || id == uuid.Nil {
		return "", uuid.Nil, ErrInvalidTarget
	}
	return k, id, nil
}

// Toggle creates the (actor, target, kind) edge when absent and removes it
// when present. A create that loses a race against a concurrent create is
// reported as if it had won; the stored edge is returned.
func (u *Usecase) Toggle(ctx context.Context, actor uuid.UUID, kind, target string) (*ToggleResult, error) {
	k, targetID, err := ParseRef(kind, target)
	if err != nil {
		return nil, err
	}
	if k == relation.KindSubscription && targetID == actor {
		return nil, ErrSelfSubscribe
	}

	var res *ToggleResult
	err = u.tx.WithTx(ctx, func(ctx context.Context) error {
		cur, err := u.repo.Find(ctx, actor, targetID, k)
		switch {
		case err == nil:
			res, err = u.remove(ctx, cur)
			return err
		case errors.Is(err, apperr.ErrNotFound):
			res, err = u.create(ctx, actor, targetID, k)
			return err
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (u *Usecase) create(ctx context.Context, actor, target uuid.UUID, k relation.Kind) (*ToggleResult, error) {
	rel := &relation.Relation{
		ID:        uuid.New(),
		ActorID:   actor,
		TargetID:  target,
		Kind:      k,
		CreatedAt: u.clk(),
	}
	err := u.repo.Insert(ctx, rel)
	if errors.Is(err, apperr.ErrConflict) {
		toggles.WithLabelValues(string(k), "duplicate").Inc()
		existing, ferr := u.repo.Find(ctx, actor, target, k)
		if ferr != nil {
			return nil, fmt.Errorf("reload relation after conflict: %w", ferr)
		}
		return &ToggleResult{Created: existing}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := u.emit(ctx, rel, relation.StateCreated); err != nil {
		return nil, err
	}
	toggles.WithLabelValues(string(k), string(relation.StateCreated)).Inc()
	return &ToggleResult{Created: rel}, nil
}

// remove treats a row already gone as removed: the caller asked for absence.
func (u *Usecase) remove(ctx context.Context, cur *relation.Relation) (*ToggleResult, error) {
	deleted, err := u.repo.Delete(ctx, cur.ActorID, cur.TargetID, cur.Kind)
	if err != nil {
		return nil, err
	}
	if deleted {
		if err := u.emit(ctx, cur, relation.StateRemoved); err != nil {
			return nil, err
		}
	}
	toggles.WithLabelValues(string(cur.Kind), string(relation.StateRemoved)).Inc()
	return &ToggleResult{Removed: true}, nil
}

func (u *Usecase) emit(ctx context.Context, rel *relation.Relation, st relation.State) error {
	if u.sink == nil {
		return nil
	}
	ev := relation.Event{
		ID:       uuid.New(),
		ActorID:  rel.ActorID,
		TargetID: rel.TargetID,
		Kind:     rel.Kind,
		State:    st,
		At:       u.clk(),
	}
	if err := u.sink.RelationToggled(ctx, ev); err != nil {
		return fmt.Errorf("enqueue relation event: %w", err)
	}
	return nil
}

func (u *Usecase) Exists(ctx context.Context, actor uuid.UUID, kind, target string) (bool, error) {
	k, targetID, err := ParseRef(kind, target)
	if err != nil {
		return false, err
	}
	_, err = u.repo.Find(ctx, actor, targetID, k)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperr.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (u *Usecase) Count(ctx context.Context, kind, target string) (int64, error) {
	k, targetID, err := ParseRef(kind, target)
	if err != nil {
		return 0, err
	}
	return u.repo.Count(ctx, targetID, k)
}

// ListByActor returns the caller's edges of a kind, newest first.
func (u *Usecase) ListByActor(ctx context.Context, actor uuid.UUID, kind string, p relation.Page) ([]*relation.Relation, error) {
	k, ok := relation.ParseKind(kind)
	if !ok {
		return nil, ErrUnknownKind
	}
	return u.repo.ListByActor(ctx, actor, k, p.Normalize())
}

// ListByTarget returns the edges pointing at target, newest first.
func (u *Usecase) ListByTarget(ctx context.Context, kind, target string, p relation.Page) ([]*relation.Relation, error) {
	k, targetID, err := ParseRef(kind, target)
	if err != nil {
		return nil, err
	}
	return u.repo.ListByTarget(ctx, targetID, k, p.Normalize())
}
