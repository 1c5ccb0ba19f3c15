package repository

import (
	"fmt"

	"marketplace-chat/internal/domain/application"
	"marketplace-chat/internal/domain/message"
	"marketplace-chat/internal/domain/notification"
	"marketplace-chat/internal/domain/outbox"
	"marketplace-chat/internal/domain/user"

	"gorm.io/gorm"
)

// Models lists every table owned by the chat core, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&user.Client{},
		&user.Freelancer{},
		&user.Presence{},
		&application.Task{},
		&application.Application{},
		&message.File{},
		&message.Message{},
		&notification.Notification{},
		&outbox.OutboxEvent{},
	}
}

// InitSchema runs gorm auto-migration for the chat tables. On Postgres it
// also adds the partial index used by the unread count.
func InitSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}

	if db.Dialector.Name() == "postgres" {
		indexes := []string{
			`CREATE INDEX IF NOT EXISTS idx_messages_unread_partial
				ON messages (application_id, receiver_id) WHERE read = false;`,
		}
		for _, stmt := range indexes {
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to create index: %w", err)
			}
		}
	}
	return nil
}
