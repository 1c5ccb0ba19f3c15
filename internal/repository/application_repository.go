package repository

import (
	"context"
	"errors"

	"marketplace-chat/internal/domain/application"
	chat_errors "marketplace-chat/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresApplicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &PostgresApplicationRepository{db: db}
}

func (r *PostgresApplicationRepository) GetByID(ctx context.Context, id uint) (application.Application, error) {
	var a application.Application
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return application.Application{}, chat_errors.ErrNotFound
		}
		return application.Application{}, err
	}
	return a, nil
}

// GetParticipants resolves both participant user ids through the client and
// freelancer profiles in one query.
func (r *PostgresApplicationRepository) GetParticipants(ctx context.Context, id uint) (application.Participants, error) {
	var p application.Participants
	res := r.db.WithContext(ctx).
		Table("applications AS a").
		Select("a.id AS conversation_id, c.user_id AS client_user_id, f.user_id AS freelancer_user_id, COALESCE(t.title, '') AS title, a.status AS status").
		Joins("JOIN clients c ON c.id = a.client_id").
		Joins("JOIN freelancers f ON f.id = a.freelancer_id").
		Joins("LEFT JOIN tasks t ON t.id = a.task_id").
		Where("a.id = ?", id).
		Limit(1).
		Scan(&p)
	if res.Error != nil {
		return application.Participants{}, res.Error
	}
	if res.RowsAffected == 0 {
		return application.Participants{}, chat_errors.ErrNotFound
	}
	return p, nil
}

// LockForUpdate takes the row lock that serializes concurrent sends into one
// conversation. It only has an effect inside a transaction.
func (r *PostgresApplicationRepository) LockForUpdate(ctx context.Context, id uint) error {
	var a application.Application
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", id).
		Take(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat_errors.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *PostgresApplicationRepository) SetLastMessage(ctx context.Context, id uint, messageID uint) error {
	res := r.db.WithContext(ctx).
		Model(&application.Application{}).
		Where("id = ?", id).
		Update("last_message_id", messageID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chat_errors.ErrNotFound
	}
	return nil
}
