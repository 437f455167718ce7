package repository

import (
	"context"
	"time"

	"courseforge/internal/domain/model"
)

type NotificationRepository interface {
	Save(ctx context.Context, tx Tx, n *model.Notification) error
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.Notification, error)
	CountUnread(ctx context.Context, tx Tx, userID string) (int, error)
	// MarkRead is scoped by owner; someone else's notification reads as
	// domain.ErrNotFound.
	MarkRead(ctx context.Context, tx Tx, userID, id string) error
	MarkAllRead(ctx context.Context, tx Tx, userID string) (int, error)
	Count(ctx context.Context, tx Tx) (int, error)
	// DeleteReadOlderThan garbage-collects read notifications in batches.
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time, limit int) (int, error)
}
