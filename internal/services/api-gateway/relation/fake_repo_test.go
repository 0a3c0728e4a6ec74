package relation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/NordCoder/Tubely/internal/apperr"
	"github.com/NordCoder/Tubely/internal/domain/relation"

	"github.com/google/uuid"
)

var _ relation.Repo = (*memRelations)(nil)

type edgeKey struct {
	actor, target uuid.UUID
	kind          relation.Kind
}

type memRelations struct {
	mu   sync.Mutex
	rows map[edgeKey]*relation.Relation

	// staleReads > 0 makes that many Find calls snapshot the current state,
	// signal arrived and then block on release before answering.
	staleReads int
	arrived    sync.WaitGroup
	release    chan struct{}

	inserts int
}

func newMemRelations() *memRelations {
	return &memRelations{rows: map[edgeKey]*relation.Relation{}}
}

func (m *memRelations) holdReads(n int) {
	m.staleReads = n
	m.arrived.Add(n)
	m.release = make(chan struct{})
}

func (m *memRelations) Find(_ context.Context, actor, target uuid.UUID, kind relation.Kind) (*relation.Relation, error) {
	m.mu.Lock()
	r, ok := m.rows[edgeKey{actor, target, kind}]
	var cp relation.Relation
	if ok {
		cp = *r
	}
	stale := m.staleReads > 0
	if stale {
		m.staleReads--
	}
	m.mu.Unlock()

	if stale {
		m.arrived.Done()
		<-m.release
	}
	if !ok {
		return nil, fmt.Errorf("relation find: %w", apperr.ErrNotFound)
	}
	return &cp, nil
}

func (m *memRelations) Insert(_ context.Context, r *relation.Relation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := edgeKey{r.ActorID, r.TargetID, r.Kind}
	if _, ok := m.rows[k]; ok {
		return fmt.Errorf("relation insert: %w", apperr.ErrConflict)
	}
	cp := *r
	m.rows[k] = &cp
	m.inserts++
	return nil
}

func (m *memRelations) Delete(_ context.Context, actor, target uuid.UUID, kind relation.Kind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := edgeKey{actor, target, kind}
	if _, ok := m.rows[k]; !ok {
		return false, nil
	}
	delete(m.rows, k)
	return true, nil
}

func (m *memRelations) Count(_ context.Context, target uuid.UUID, kind relation.Kind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.rows {
		if k.target == target && k.kind == kind {
			n++
		}
	}
	return n, nil
}

func (m *memRelations) ListByActor(_ context.Context, actor uuid.UUID, kind relation.Kind, p relation.Page) ([]*relation.Relation, error) {
	return m.list(func(k edgeKey) bool { return k.actor == actor && k.kind == kind }, p), nil
}

func (m *memRelations) ListByTarget(_ context.Context, target uuid.UUID, kind relation.Kind, p relation.Page) ([]*relation.Relation, error) {
	return m.list(func(k edgeKey) bool { return k.target == target && k.kind == kind }, p), nil
}

func (m *memRelations) list(match func(edgeKey) bool, p relation.Page) []*relation.Relation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*relation.Relation
	for k, r := range m.rows {
		if match(k) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if p.Offset >= len(out) {
		return nil
	}
	out = out[p.Offset:]
	if len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out
}

type recordingSink struct {
	mu     sync.Mutex
	events []relation.Event
	err    error
}

func (s *recordingSink) RelationToggled(_ context.Context, ev relation.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) all() []relation.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]relation.Event(nil), s.events...)
}

type countingTx struct {
	mu    sync.Mutex
	calls int
}

func (t *countingTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	return fn(ctx)
}
