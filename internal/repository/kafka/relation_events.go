package kafka

import (
	"context"

	"github.com/NordCoder/Tubely/internal/domain/kafka"
	"github.com/NordCoder/Tubely/internal/domain/relation"
)

type RelationEventsKafka struct {
	p *Producer
}

func NewRelationEventsKafka(p *Producer) *RelationEventsKafka { return &RelationEventsKafka{p: p} }

var _ kafka.RelationEvents = (*RelationEventsKafka)(nil)

// PublishRelationToggled keys by target so all events of one channel or
// video land on the same partition in order.
func (e *RelationEventsKafka) PublishRelationToggled(ctx context.Context, ev relation.Event) error {
	return e.p.PublishJSON(ctx, []byte(ev.TargetID.String()), ev)
}
