package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID           int64     `json:"id"`
	ChannelID    uuid.UUID `json:"channel_id"`
	SubscriberID uuid.UUID `json:"subscriber_id"`
	Type         string    `json:"type"`
	SentAt       time.Time `json:"sent_at"`
	Payload      string    `json:"payload"`
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Clock interface {
	Now() time.Time
}
