package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Tubely/internal/apperr"
	"github.com/NordCoder/Tubely/internal/domain/identity"
	"github.com/NordCoder/Tubely/internal/domain/notification"
	"github.com/NordCoder/Tubely/internal/domain/relation"
	"github.com/NordCoder/Tubely/internal/obs"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const TypeEmail = "email"

var notifications = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "subscription_notifier_events_total",
	Help: "Relation events handled by outcome",
}, []string{"outcome"})

type IdentityReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Identity, error)
}

type NotificationWriter interface {
	Create(ctx context.Context, n *notification.Notification) error
}

type Handler struct {
	Identities IdentityReader
	Store      NotificationWriter
	Out        notification.EmailSender
	Clock      notification.Clock
	Log        *zap.Logger
}

// HandleRelationEvent mails the channel owner when a subscription is created.
// Every other event is acknowledged without side effects.
func (h *Handler) HandleRelationEvent(ctx context.Context, ev relation.Event) error {
	log := obs.WithTrace(ctx, h.logger()).With(
		zap.String("event_id", ev.ID.String()),
		zap.String("kind", string(ev.Kind)),
		zap.String("state", string(ev.State)),
	)

	if ev.Kind != relation.KindSubscription || ev.State != relation.StateCreated {
		notifications.WithLabelValues("skipped").Inc()
		return nil
	}

	channel, err := h.Identities.GetByID(ctx, ev.TargetID)
	if errors.Is(err, apperr.ErrNotFound) {
		log.Warn("channel gone; dropping event", zap.String("channel_id", ev.TargetID.String()))
		notifications.WithLabelValues("dropped").Inc()
		return nil
	}
	if err != nil {
		notifications.WithLabelValues("error").Inc()
		return fmt.Errorf("get channel: %w", err)
	}

	subscriber, err := h.Identities.GetByID(ctx, ev.ActorID)
	if errors.Is(err, apperr.ErrNotFound) {
		log.Warn("subscriber gone; dropping event", zap.String("subscriber_id", ev.ActorID.String()))
		notifications.WithLabelValues("dropped").Inc()
		return nil
	}
	if err != nil {
		notifications.WithLabelValues("error").Inc()
		return fmt.Errorf("get subscriber: %w", err)
	}

	subject, body := subscriberMail(channel, subscriber, ev.At)
	if err := h.Out.Send(ctx, channel.Email, subject, body); err != nil {
		notifications.WithLabelValues("error").Inc()
		return fmt.Errorf("send email: %w", err)
	}
	notifications.WithLabelValues("sent").Inc()

	n := &notification.Notification{
		ChannelID:    channel.ID,
		SubscriberID: subscriber.ID,
		Type:         TypeEmail,
		SentAt:       h.now(),
		Payload:      body,
	}
	if err := h.Store.Create(ctx, n); err != nil {
		log.Warn("store notification", zap.Error(err))
	}

	log.Info("subscriber notification sent", zap.String("channel_id", channel.ID.String()))
	return nil
}

func subscriberMail(channel, subscriber *identity.Identity, at time.Time) (string, string) {
	name := subscriber.FullName
	if name == "" {
		name = subscriber.Handle
	}
	subject := fmt.Sprintf("New subscriber: @%s", subscriber.Handle)
	body := fmt.Sprintf(
		"Hello %s!\n\n%s (@%s) subscribed to your channel at %s.\n\nTubely",
		channel.Handle, name, subscriber.Handle, at.UTC().Format(time.RFC3339),
	)
	return subject, body
}

func (h *Handler) now() time.Time {
	if h.Clock == nil {
		return time.Now().UTC()
	}
	return h.Clock.Now().UTC()
}

func (h *Handler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}
