package postgres

import (
	"context"
	"time"

	"github.com/NordCoder/Tubely/internal/domain/notification"

	"github.com/google/uuid"
)

var _ notification.Repo = (*NotificationRepo)(nil)

type NotificationRepo struct{ db *DB }

func NewNotificationRepo(db *DB) *NotificationRepo { return &NotificationRepo{db: db} }

const (
	qNotifInsert = `
INSERT INTO notifications (channel_id, subscriber_id, type, sent_at, payload)
VALUES ($1, $2, $3, COALESCE($4, now()), $5)
RETURNING id, sent_at;`

	qNotifByChannel = `
SELECT id, channel_id, subscriber_id, type, sent_at, payload
FROM notifications
WHERE channel_id = $1
ORDER BY sent_at DESC
LIMIT $2;`
)

func (r *NotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.execQueryer(ctx).QueryRow(ctx, qNotifInsert,
		n.ChannelID,
		n.SubscriberID,
		n.Type,
		nullTime(n.SentAt),
		n.Payload,
	).Scan(&n.ID, &n.SentAt); err != nil {
		return mapErr("insert notification", err)
	}
	return nil
}

func (r *NotificationRepo) ListByChannel(ctx context.Context, channelID uuid.UUID, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qNotifByChannel, channelID, limit)
	if err != nil {
		return nil, mapErr("query notifications", err)
	}
	defer rows.Close()

	out := make([]*notification.Notification, 0, limit)
	for rows.Next() {
		var n notification.Notification
		if err := rows.Scan(&n.ID, &n.ChannelID, &n.SubscriberID, &n.Type, &n.SentAt, &n.Payload); err != nil {
			return nil, mapErr("scan notification", err)
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("notification rows", err)
	}
	return out, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
