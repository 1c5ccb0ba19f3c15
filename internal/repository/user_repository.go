package repository

import (
	"context"
	"errors"
	"time"

	"marketplace-chat/internal/domain/user"
	chat_errors "marketplace-chat/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id uint) (user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user.User{}, chat_errors.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

type PostgresPresenceRepository struct {
	db *gorm.DB
}

func NewPresenceRepository(db *gorm.DB) PresenceRepository {
	return &PostgresPresenceRepository{db: db}
}

// Get returns an offline presence for users that never connected.
func (r *PostgresPresenceRepository) Get(ctx context.Context, userID uint) (user.Presence, error) {
	var p user.Presence
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user.Presence{UserID: userID}, nil
		}
		return user.Presence{}, err
	}
	return p, nil
}

func (r *PostgresPresenceRepository) SetOnline(ctx context.Context, userID uint, connectionID string) error {
	if connectionID == "" {
		return chat_errors.ErrInvalidInput
	}
	p := user.Presence{
		UserID:       userID,
		Online:       true,
		ConnectionID: &connectionID,
		UpdatedAt:    time.Now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"online", "connection_id", "updated_at"}),
		}).
		Create(&p).Error
}

func (r *PostgresPresenceRepository) SetOffline(ctx context.Context, userID uint, connectionID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&user.Presence{}).
		Where("user_id = ? AND connection_id = ?", userID, connectionID).
		Updates(map[string]interface{}{
			"online":        false,
			"connection_id": nil,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresPresenceRepository) Handover(ctx context.Context, userID uint, fromConnectionID, toConnectionID string) (bool, error) {
	if toConnectionID == "" {
		return false, chat_errors.ErrInvalidInput
	}
	res := r.db.WithContext(ctx).
		Model(&user.Presence{}).
		Where("user_id = ? AND connection_id = ?", userID, fromConnectionID).
		Updates(map[string]interface{}{
			"online":        true,
			"connection_id": toConnectionID,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
