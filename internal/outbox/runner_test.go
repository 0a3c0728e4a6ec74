package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/Tubely/internal/domain/outbox"
	"github.com/NordCoder/Tubely/internal/domain/relation"
	"github.com/NordCoder/Tubely/internal/obs/retry"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memOutbox struct {
	mu      sync.Mutex
	pending []outbox.Message
	done    []string
}

func (m *memOutbox) Enqueue(_ context.Context, key string, kind outbox.Kind, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, outbox.Message{IdempotencyKey: key, Kind: kind, Data: data, Status: outbox.StatusCreated})
	return nil
}

func (m *memOutbox) PickBatch(_ context.Context, batch int, _ time.Duration) ([]outbox.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := min(batch, len(m.pending))
	out := append([]outbox.Message(nil), m.pending[:n]...)
	m.pending = m.pending[n:]
	return out, nil
}

func (m *memOutbox) MarkSuccess(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = append(m.done, keys...)
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	failures int
	got      []relation.Event
}

func (p *fakePublisher) PublishRelationToggled(_ context.Context, ev relation.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.got = append(p.got, ev)
	return nil
}

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{
		Name:     "test",
		Attempts: attempts,
		Backoff:  retry.ExpoJitter{Base: time.Millisecond, Max: 2 * time.Millisecond},
	}
}

func enqueueEvent(t *testing.T, repo *memOutbox) relation.Event {
	t.Helper()
	ev := relation.Event{
		ID: uuid.New(), ActorID: uuid.New(), TargetID: uuid.New(),
		Kind: relation.KindSubscription, State: relation.StateCreated, At: time.Now().UTC(),
	}
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, repo.Enqueue(context.Background(), ev.ID.String(), outbox.KindRelationToggled, data))
	return ev
}

func TestTickPublishesAndMarks(t *testing.T) {
	repo := &memOutbox{}
	pub := &fakePublisher{failures: 1}
	r := NewOutboxRunner(nil, repo, MakeGlobalOutboxHandler(pub, fastPolicy(3)), Config{BatchSize: 10})

	ev1 := enqueueEvent(t, repo)
	ev2 := enqueueEvent(t, repo)

	r.Tick(context.Background())

	require.Len(t, pub.got, 2)
	assert.Equal(t, ev1.ID, pub.got[0].ID)
	assert.Equal(t, ev2.ID, pub.got[1].ID)
	assert.ElementsMatch(t, []string{ev1.ID.String(), ev2.ID.String()}, repo.done)
}

func TestTickLeavesFailedUnmarked(t *testing.T) {
	repo := &memOutbox{}
	pub := &fakePublisher{failures: 100}
	r := NewOutboxRunner(nil, repo, MakeGlobalOutboxHandler(pub, fastPolicy(2)), Config{})

	enqueueEvent(t, repo)
	require.NoError(t, repo.Enqueue(context.Background(), "unknown", outbox.Kind(42), []byte("{}")))
	require.NoError(t, repo.Enqueue(context.Background(), "garbage", outbox.KindRelationToggled, []byte("{")))

	r.Tick(context.Background())

	assert.Empty(t, pub.got)
	assert.Empty(t, repo.done)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	repo := &memOutbox{}
	pub := &fakePublisher{}
	r := NewOutboxRunner(nil, repo, MakeGlobalOutboxHandler(pub, fastPolicy(1)), Config{Workers: 2, WaitTime: 5 * time.Millisecond})

	ev := enqueueEvent(t, repo)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.got) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	r.Wait()

	assert.Equal(t, ev.ID, pub.got[0].ID)
}
