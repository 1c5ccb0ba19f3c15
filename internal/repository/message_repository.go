package repository

import (
	"context"

	"marketplace-chat/internal/domain/message"
	chat_errors "marketplace-chat/pkg/errors"

	"gorm.io/gorm"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

// Create inserts m and the file_messages rows for m.Attachments. The files
// themselves are never written.
func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	res := r.db.WithContext(ctx).Omit("Attachments.*").Create(m)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return chat_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

// GetFilesForUploader loads the files with the given ids. Every id must exist
// and belong to uploaderID, otherwise ErrInvalidInput is returned.
func (r *PostgresMessageRepository) GetFilesForUploader(ctx context.Context, ids []uint, uploaderID uint) ([]message.File, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var files []message.File
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&files).Error; err != nil {
		return nil, err
	}
	if len(files) != len(ids) {
		return nil, chat_errors.ErrInvalidInput
	}
	for _, f := range files {
		if f.UploadedBy != uploaderID {
			return nil, chat_errors.ErrInvalidInput
		}
	}
	return files, nil
}

// CountUnread counts unread messages addressed to receiverID that precede
// beforeMessageID. Zero counts the whole conversation.
func (r *PostgresMessageRepository) CountUnread(ctx context.Context, conversationID, receiverID, beforeMessageID uint) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("application_id = ? AND receiver_id = ? AND read = ?", conversationID, receiverID, false)
	if beforeMessageID > 0 {
		q = q.Where("id < ?", beforeMessageID)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MarkConversationRead flips read on every message in the conversation not
// sent by readerID. Already-read rows are left untouched.
func (r *PostgresMessageRepository) MarkConversationRead(ctx context.Context, conversationID, readerID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("application_id = ? AND sender_id <> ? AND read = ?", conversationID, readerID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *PostgresMessageRepository) ListBefore(ctx context.Context, conversationID uint, beforeID uint, limit int) ([]message.Message, error) {
	var messages []message.Message
	q := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("application_id = ?", conversationID)

	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	err := q.Order("id DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}
