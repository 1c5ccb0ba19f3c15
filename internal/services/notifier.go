package services

import (
	"context"
	"encoding/json"
	"fmt"

	"marketplace-chat/internal/domain/notification"
	"marketplace-chat/internal/mailer"
	"marketplace-chat/internal/repository"
	chat_errors "marketplace-chat/pkg/errors"
	"marketplace-chat/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Notice is one alert handed to the Notifier.
type Notice struct {
	Type        notification.Type
	ReceiverID  uint
	ReferenceID *uint
	Payload     interface{}
	Subject     string
	Body        string
}

type NotifyResult struct {
	Notification notification.Notification
	Created      bool
	Pushed       bool
	Emailed      bool
}

// Notifier persists a notification and then reaches the receiver either live
// or by email, never both.
type Notifier struct {
	notifications repository.NotificationRepository
	presence      repository.PresenceRepository
	users         repository.UserRepository
	outbox        repository.OutboxRepository
	broadcaster   Broadcaster
	mailer        mailer.Mailer
	logger        *logger.Logger
}

func NewNotifier(
	notifications repository.NotificationRepository,
	presence repository.PresenceRepository,
	users repository.UserRepository,
	outbox repository.OutboxRepository,
	broadcaster Broadcaster,
	m mailer.Mailer,
	l *logger.Logger,
) *Notifier {
	if l == nil {
		l = logger.NewNop()
	}
	return &Notifier{
		notifications: notifications,
		presence:      presence,
		users:         users,
		outbox:        outbox,
		broadcaster:   broadcaster,
		mailer:        m,
		logger:        l,
	}
}

// Notify stores the notice. If an unresolved notification with the same
// receiver, type and reference already exists the notice is folded into it
// and nothing else happens. A failed email is queued for retry and reported
// as ErrDeliveryFailed; the stored row stays.
func (n *Notifier) Notify(ctx context.Context, notice Notice) (NotifyResult, error) {
	var res NotifyResult

	payload, err := json.Marshal(notice.Payload)
	if err != nil {
		return res, fmt.Errorf("%w: encode payload: %v", chat_errors.ErrInvalidInput, err)
	}

	row := notification.Notification{
		ReceiverID:  notice.ReceiverID,
		Type:        notice.Type,
		ReferenceID: notice.ReferenceID,
		Payload:     datatypes.JSON(payload),
	}
	created, err := n.notifications.CreateIfAbsent(ctx, &row)
	if err != nil {
		return res, fmt.Errorf("%w: store notification: %v", chat_errors.ErrPersistence, err)
	}
	res.Notification = row
	res.Created = created
	if !created {
		return res, nil
	}

	pres, err := n.presence.Get(ctx, notice.ReceiverID)
	if err != nil {
		return res, fmt.Errorf("%w: presence lookup: %v", chat_errors.ErrDeliveryFailed, err)
	}
	if pres.Reachable() {
		n.broadcaster.ToConnection(ctx, *pres.ConnectionID, EventReceivedNotification, row)
		res.Pushed = true
		return res, nil
	}

	receiver, err := n.users.GetByID(ctx, notice.ReceiverID)
	if err != nil {
		return res, fmt.Errorf("%w: load receiver: %v", chat_errors.ErrDeliveryFailed, err)
	}

	email := mailer.Email{To: receiver.Email, Subject: notice.Subject, Body: notice.Body}
	if err := n.mailer.Send(ctx, email); err != nil {
		if qErr := enqueueEmailRetry(ctx, n.outbox, row.ID, email); qErr != nil {
			n.logger.WithContext(ctx).Error("could not queue email retry",
				zap.Uint("notification_id", row.ID),
				zap.Error(qErr),
			)
		}
		return res, fmt.Errorf("%w: %v", chat_errors.ErrDeliveryFailed, err)
	}
	res.Emailed = true
	return res, nil
}
