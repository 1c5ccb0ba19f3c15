package services

import (
	"context"

	"marketplace-chat/internal/domain/notification"
	"marketplace-chat/internal/repository"
	chat_errors "marketplace-chat/pkg/errors"
)

// NotificationService serves the receiver's view of their notifications.
type NotificationService struct {
	notifications repository.NotificationRepository
}

func NewNotificationService(notifications repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

func (s *NotificationService) List(ctx context.Context, receiverID uint) ([]notification.Notification, error) {
	return s.notifications.ListForReceiver(ctx, receiverID)
}

// MarkSeen resolves a notification by deleting it, which also re-arms the
// next alert for the same reference.
func (s *NotificationService) MarkSeen(ctx context.Context, receiverID, notificationID uint) error {
	n, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.ReceiverID != receiverID {
		return chat_errors.ErrForbidden
	}
	return s.notifications.Delete(ctx, notificationID)
}
