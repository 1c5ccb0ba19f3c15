package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-chat/internal/domain/message"
	"marketplace-chat/internal/repository"
	chat_errors "marketplace-chat/pkg/errors"
	"marketplace-chat/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
	maxSendAttempts     = 3
)

type MessageService struct {
	db          *gorm.DB
	apps        repository.ApplicationRepository
	messages    repository.MessageRepository
	broadcaster Broadcaster
	policy      *DeliveryPolicy
	logger      *logger.Logger

	// txRepos builds the repositories bound to the send transaction.
	txRepos func(tx *gorm.DB) (repository.ApplicationRepository, repository.MessageRepository)
}

func NewMessageService(
	db *gorm.DB,
	apps repository.ApplicationRepository,
	messages repository.MessageRepository,
	broadcaster Broadcaster,
	policy *DeliveryPolicy,
	l *logger.Logger,
) *MessageService {
	if l == nil {
		l = logger.NewNop()
	}
	return &MessageService{
		db:          db,
		apps:        apps,
		messages:    messages,
		broadcaster: broadcaster,
		policy:      policy,
		logger:      l,
		txRepos: func(tx *gorm.DB) (repository.ApplicationRepository, repository.MessageRepository) {
			return repository.NewApplicationRepository(tx), repository.NewMessageRepository(tx)
		},
	}
}

// SendMessage persists a message and the conversation's last-message pointer
// in one transaction, then broadcasts it to the room and routes it to the
// receiver. The operation is not cancelled if the caller goes away.
func (s *MessageService) SendMessage(ctx context.Context, senderID uint, draft message.Draft) (*message.Message, error) {
	ctx = context.WithoutCancel(ctx)

	conv, err := loadParticipants(ctx, s.apps, senderID, draft.ConversationID)
	if err != nil {
		return nil, err
	}

	receiverID, _ := conv.Counterpart(senderID)
	if receiverID == senderID {
		return nil, fmt.Errorf("%w: conversation %d has a single participant", chat_errors.ErrInvalidInput, conv.ConversationID)
	}
	if draft.Empty() {
		return nil, fmt.Errorf("%w: message has no text and no attachments", chat_errors.ErrInvalidInput)
	}

	role := draft.Role
	if !role.Valid() {
		role, _ = conv.SideOf(senderID)
	}

	text := draft.Text
	if text != nil && *text == "" {
		text = nil
	}

	var created *message.Message
	err = s.withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			apps, messages := s.txRepos(tx)

			if err := apps.LockForUpdate(ctx, conv.ConversationID); err != nil {
				return err
			}

			files, err := messages.GetFilesForUploader(ctx, draft.UniqueAttachmentIDs(), senderID)
			if err != nil {
				return err
			}

			m := &message.Message{
				SenderID:      senderID,
				ReceiverID:    receiverID,
				ApplicationID: conv.ConversationID,
				Role:          role,
				Text:          text,
				Read:          false,
				Attachments:   files,
			}
			if err := messages.Create(ctx, m); err != nil {
				return err
			}
			if err := apps.SetLastMessage(ctx, conv.ConversationID, m.ID); err != nil {
				return err
			}

			created = m
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, chat_errors.ErrInvalidInput) || errors.Is(err, chat_errors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: send message: %v", chat_errors.ErrPersistence, err)
	}
	if created.Attachments == nil {
		created.Attachments = []message.File{}
	}

	s.broadcaster.ToRoom(ctx, conv.ConversationID, EventMessageSent, created)

	if s.policy != nil {
		decision := s.policy.Route(ctx, receiverID, created, conv)
		s.logger.WithContext(ctx).Debug("message routed",
			zap.Uint("message_id", created.ID),
			zap.Uint("conversation_id", conv.ConversationID),
			zap.Bool("direct_push", decision.DirectPush),
			zap.Int64("unread_before", decision.UnreadBefore),
			zap.Bool("in_room", decision.InRoom),
			zap.Bool("notified", decision.Notified),
		)
	}

	return created, nil
}

// withRetry reruns fn when the transaction failed for a transient reason.
func (s *MessageService) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		err = fn()
		if err == nil || !repository.IsRetryable(err) {
			return err
		}
		s.logger.WithContext(ctx).Warn("retrying send transaction",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		time.Sleep(time.Duration(attempt) * 25 * time.Millisecond)
	}
	return err
}

// MarkRead flags every message in the conversation not sent by readerID as
// read. Re-marking is a no-op.
func (s *MessageService) MarkRead(ctx context.Context, readerID, conversationID uint) (int64, error) {
	if _, err := loadParticipants(ctx, s.apps, readerID, conversationID); err != nil {
		return 0, err
	}
	n, err := s.messages.MarkConversationRead(ctx, conversationID, readerID)
	if err != nil {
		return 0, fmt.Errorf("%w: mark read: %v", chat_errors.ErrPersistence, err)
	}
	return n, nil
}

// History pages backward through a conversation. beforeID of zero starts at
// the newest message.
func (s *MessageService) History(ctx context.Context, userID, conversationID, beforeID uint, limit int) ([]message.Message, error) {
	if _, err := loadParticipants(ctx, s.apps, userID, conversationID); err != nil {
		return nil, err
	}
	return s.messages.ListBefore(ctx, conversationID, beforeID, HistoryLimit(limit))
}

// HistoryLimit applies the default and maximum page size.
func HistoryLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}
