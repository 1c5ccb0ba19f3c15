package services

import (
	"context"
	"encoding/json"
	"strconv"

	"marketplace-chat/internal/domain/outbox"
	"marketplace-chat/internal/mailer"
	"marketplace-chat/internal/repository"
)

func enqueueEmailRetry(ctx context.Context, repo repository.OutboxRepository, notificationID uint, email mailer.Email) error {
	if repo == nil {
		return nil
	}
	data, err := json.Marshal(email)
	if err != nil {
		return err
	}
	return repo.Create(ctx, &outbox.OutboxEvent{
		EventType:     outbox.EventNotificationEmail,
		AggregateType: outbox.AggregateNotification,
		AggregateID:   strconv.FormatUint(uint64(notificationID), 10),
		Payload:       data,
	})
}
