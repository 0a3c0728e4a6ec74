package kafka

import (
	"context"

	"github.com/NordCoder/Tubely/internal/domain/relation"
)

// RelationEvents publishes relation toggles to the event bus.
type RelationEvents interface {
	PublishRelationToggled(ctx context.Context, ev relation.Event) error
}
