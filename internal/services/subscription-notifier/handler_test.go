package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/Tubely/internal/apperr"
	"github.com/NordCoder/Tubely/internal/domain/identity"
	"github.com/NordCoder/Tubely/internal/domain/notification"
	"github.com/NordCoder/Tubely/internal/domain/relation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memIdentities struct {
	byID    map[uuid.UUID]*identity.Identity
	failure error
}

func (m *memIdentities) GetByID(_ context.Context, id uuid.UUID) (*identity.Identity, error) {
	if m.failure != nil {
		return nil, m.failure
	}
	i, ok := m.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return i, nil
}

type memStore struct {
	mu  sync.Mutex
	got []*notification.Notification
	err error
}

func (s *memStore) Create(_ context.Context, n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.got = append(s.got, n)
	return nil
}

type sentMail struct{ to, subject, body string }

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fixture struct {
	h          *Handler
	ids        *memIdentities
	store      *memStore
	mail       *fakeMailer
	channel    *identity.Identity
	subscriber *identity.Identity
	now        time.Time
}

func newFixture() *fixture {
	channel := &identity.Identity{ID: uuid.New(), Handle: "cooking", Email: "chef@example.com"}
	subscriber := &identity.Identity{ID: uuid.New(), Handle: "ann", FullName: "Ann Lee", Email: "ann@example.com"}
	f := &fixture{
		ids: &memIdentities{byID: map[uuid.UUID]*identity.Identity{
			channel.ID:    channel,
			subscriber.ID: subscriber,
		}},
		store:      &memStore{},
		mail:       &fakeMailer{},
		channel:    channel,
		subscriber: subscriber,
		now:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.h = &Handler{Identities: f.ids, Store: f.store, Out: f.mail, Clock: fixedClock{f.now}, Log: zap.NewNop()}
	return f
}

func (f *fixture) event(kind relation.Kind, state relation.State) relation.Event {
	return relation.Event{
		ID: uuid.New(), ActorID: f.subscriber.ID, TargetID: f.channel.ID,
		Kind: kind, State: state, At: f.now.Add(-time.Minute),
	}
}

func TestHandleSubscriptionCreated(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.h.HandleRelationEvent(context.Background(), f.event(relation.KindSubscription, relation.StateCreated)))

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "chef@example.com", f.mail.sent[0].to)
	assert.Equal(t, "New subscriber: @ann", f.mail.sent[0].subject)
	assert.Contains(t, f.mail.sent[0].body, "Ann Lee (@ann) subscribed")
	assert.Contains(t, f.mail.sent[0].body, "2024-05-01T11:59:00Z")

	require.Len(t, f.store.got, 1)
	n := f.store.got[0]
	assert.Equal(t, f.channel.ID, n.ChannelID)
	assert.Equal(t, f.subscriber.ID, n.SubscriberID)
	assert.Equal(t, TypeEmail, n.Type)
	assert.Equal(t, f.now, n.SentAt)
	assert.Equal(t, f.mail.sent[0].body, n.Payload)
}

func TestHandleIgnoresOtherEvents(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.h.HandleRelationEvent(ctx, f.event(relation.KindSubscription, relation.StateRemoved)))
	require.NoError(t, f.h.HandleRelationEvent(ctx, f.event(relation.KindVideoLike, relation.StateCreated)))
	require.NoError(t, f.h.HandleRelationEvent(ctx, f.event(relation.KindTweetLike, relation.StateCreated)))

	assert.Empty(t, f.mail.sent)
	assert.Empty(t, f.store.got)
}

func TestHandleDropsUnknownIdentities(t *testing.T) {
	f := newFixture()
	ev := f.event(relation.KindSubscription, relation.StateCreated)
	ev.TargetID = uuid.New()
	require.NoError(t, f.h.HandleRelationEvent(context.Background(), ev))

	ev = f.event(relation.KindSubscription, relation.StateCreated)
	ev.ActorID = uuid.New()
	require.NoError(t, f.h.HandleRelationEvent(context.Background(), ev))

	assert.Empty(t, f.mail.sent)
}

func TestHandleFailures(t *testing.T) {
	f := newFixture()
	f.ids.failure = apperr.ErrUnavailable
	err := f.h.HandleRelationEvent(context.Background(), f.event(relation.KindSubscription, relation.StateCreated))
	assert.ErrorIs(t, err, apperr.ErrUnavailable)

	f = newFixture()
	f.mail.err = errors.New("smtp down")
	err = f.h.HandleRelationEvent(context.Background(), f.event(relation.KindSubscription, relation.StateCreated))
	assert.ErrorContains(t, err, "smtp down")
	assert.Empty(t, f.store.got)

	f = newFixture()
	f.store.err = errors.New("insert failed")
	err = f.h.HandleRelationEvent(context.Background(), f.event(relation.KindSubscription, relation.StateCreated))
	assert.NoError(t, err)
	assert.Len(t, f.mail.sent, 1)
}
