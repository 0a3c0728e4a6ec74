package notifier

import (
	"context"
	"errors"

	"github.com/NordCoder/Tubely/internal/domain/relation"
	kafkax "github.com/NordCoder/Tubely/internal/repository/kafka"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var consumed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "subscription_notifier_messages_consumed_total",
	Help: "Relation events consumed",
})

type Subscriber interface {
	Consume(ctx context.Context, h kafkax.Handler) error
}

type Controller struct {
	Log *zap.Logger
	Sub Subscriber
	UC  *Handler
}

func (c *Controller) Run(ctx context.Context) error {
	err := c.Sub.Consume(ctx, kafkax.JSONHandler(c.handle))
	if err != nil && !errors.Is(err, context.Canceled) {
		c.Log.Warn("kafka consume", zap.Error(err))
		return err
	}
	return ctx.Err()
}

func (c *Controller) handle(ctx context.Context, _ []byte, ev relation.Event) error {
	consumed.Inc()
	if ev.ActorID == uuid.Nil || ev.TargetID == uuid.Nil {
		c.Log.Warn("relation event: missing ids", zap.String("event_id", ev.ID.String()))
		return nil
	}
	return c.UC.HandleRelationEvent(ctx, ev)
}
