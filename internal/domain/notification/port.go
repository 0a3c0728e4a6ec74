package notification

import (
	"context"

	"github.com/google/uuid"
)

type Repo interface {
	Create(ctx context.Context, n *Notification) error
	ListByChannel(ctx context.Context, channelID uuid.UUID, limit int) ([]*Notification, error)
}
