package repository

import (
	"context"

	"marketplace-chat/internal/domain/application"
	"marketplace-chat/internal/domain/message"
	"marketplace-chat/internal/domain/notification"
	"marketplace-chat/internal/domain/outbox"
	"marketplace-chat/internal/domain/user"

	"github.com/google/uuid"
)

type UserRepository interface {
	GetByID(ctx context.Context, id uint) (user.User, error)
}

// PresenceRepository owns the presences table. Every write sets online and
// connection_id together.
type PresenceRepository interface {
	Get(ctx context.Context, userID uint) (user.Presence, error)
	SetOnline(ctx context.Context, userID uint, connectionID string) error
	// SetOffline clears presence only while connectionID is still the stored
	// handle. It reports whether a row changed.
	SetOffline(ctx context.Context, userID uint, connectionID string) (bool, error)
	// Handover moves the stored handle from one connection to another of the
	// same user. It reports whether a row changed.
	Handover(ctx context.Context, userID uint, fromConnectionID, toConnectionID string) (bool, error)
}

type ApplicationRepository interface {
	GetByID(ctx context.Context, id uint) (application.Application, error)
	GetParticipants(ctx context.Context, id uint) (application.Participants, error)
	LockForUpdate(ctx context.Context, id uint) error
	SetLastMessage(ctx context.Context, id uint, messageID uint) error
}

type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	GetFilesForUploader(ctx context.Context, ids []uint, uploaderID uint) ([]message.File, error)
	CountUnread(ctx context.Context, conversationID, receiverID, beforeMessageID uint) (int64, error)
	MarkConversationRead(ctx context.Context, conversationID, readerID uint) (int64, error)
	ListBefore(ctx context.Context, conversationID uint, beforeID uint, limit int) ([]message.Message, error)
}

type NotificationRepository interface {
	// CreateIfAbsent inserts n unless a row with the same receiver, type and
	// reference exists. It reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, n *notification.Notification) (bool, error)
	GetByID(ctx context.Context, id uint) (notification.Notification, error)
	ListForReceiver(ctx context.Context, receiverID uint) ([]notification.Notification, error)
	Delete(ctx context.Context, id uint) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *outbox.OutboxEvent) error
	GetPending(ctx context.Context, limit int) ([]outbox.OutboxEvent, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error
	IncrementRetry(ctx context.Context, id uuid.UUID, errorMsg string) error
}
