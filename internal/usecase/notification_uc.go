package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"courseforge/internal/domain"
	"courseforge/internal/domain/model"
	"courseforge/internal/domain/ports/repository"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

// NotificationUseCase is the user-facing notification feed. Writes happen
// inside the generation resolve transaction; this only reads and flips flags.
type NotificationUseCase interface {
	ListForUser(ctx context.Context, userID string, limit int) ([]*model.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	// MarkAsRead flips one notification, verifying it belongs to userID.
	MarkAsRead(ctx context.Context, userID, notificationID string) error
	// MarkAllAsRead flips every unread notification, returning how many.
	MarkAllAsRead(ctx context.Context, userID string) (int, error)
}

type notificationUC struct {
	repo repository.NotificationRepository
	log  *zerolog.Logger
}

func NewNotificationUseCase(repo repository.NotificationRepository, logger *zerolog.Logger) *notificationUC {
	return &notificationUC{repo: repo, log: logger}
}

func (uc *notificationUC) ListForUser(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return uc.repo.ListByUser(ctx, repository.NoTX, userID, limit)
}

func (uc *notificationUC) UnreadCount(ctx context.Context, userID string) (int, error) {
	return uc.repo.CountUnread(ctx, repository.NoTX, userID)
}

func (uc *notificationUC) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	if userID == "" || notificationID == "" {
		return domain.ErrInvalidArgument
	}
	// The repo scopes the update by owner, so a foreign ID reads as absent.
	return uc.repo.MarkRead(ctx, repository.NoTX, userID, notificationID)
}

func (uc *notificationUC) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, domain.ErrInvalidArgument
	}
	return uc.repo.MarkAllRead(ctx, repository.NoTX, userID)
}
