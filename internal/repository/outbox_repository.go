package repository

import (
	"context"
	"time"

	"marketplace-chat/internal/domain/outbox"
	chat_errors "marketplace-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresOutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &PostgresOutboxRepository{db: db}
}

func (r *PostgresOutboxRepository) Create(ctx context.Context, event *outbox.OutboxEvent) error {
	now := time.Now()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Status == "" {
		event.Status = outbox.StatusPending
	}
	event.CreatedAt = now
	event.UpdatedAt = now
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *PostgresOutboxRepository) GetPending(ctx context.Context, limit int) ([]outbox.OutboxEvent, error) {
	var events []outbox.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *PostgresOutboxRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, id, map[string]interface{}{
		"status":     outbox.StatusProcessing,
		"updated_at": time.Now(),
	})
}

func (r *PostgresOutboxRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.setStatus(ctx, id, map[string]interface{}{
		"status":       outbox.StatusCompleted,
		"processed_at": &now,
		"updated_at":   now,
	})
}

func (r *PostgresOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error {
	return r.setStatus(ctx, id, map[string]interface{}{
		"status":     outbox.StatusFailed,
		"error":      errorMsg,
		"updated_at": time.Now(),
	})
}

// IncrementRetry records a failed attempt and puts the event back in the
// pending queue.
func (r *PostgresOutboxRepository) IncrementRetry(ctx context.Context, id uuid.UUID, errorMsg string) error {
	return r.setStatus(ctx, id, map[string]interface{}{
		"status":      outbox.StatusPending,
		"retry_count": gorm.Expr("retry_count + 1"),
		"error":       errorMsg,
		"updated_at":  time.Now(),
	})
}

func (r *PostgresOutboxRepository) setStatus(ctx context.Context, id uuid.UUID, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&outbox.OutboxEvent{}).
		Where("id = ?", id).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chat_errors.ErrNotFound
	}
	return nil
}
