package services

import (
	"context"
	"fmt"

	"marketplace-chat/internal/repository"
	chat_errors "marketplace-chat/pkg/errors"
	"marketplace-chat/pkg/logger"

	"go.uber.org/zap"
)

// PresenceService is the only writer of the presences table.
type PresenceService struct {
	presence    repository.PresenceRepository
	rooms       Rooms
	broadcaster Broadcaster
	logger      *logger.Logger
}

func NewPresenceService(presence repository.PresenceRepository, rooms Rooms, broadcaster Broadcaster, l *logger.Logger) *PresenceService {
	if l == nil {
		l = logger.NewNop()
	}
	return &PresenceService{presence: presence, rooms: rooms, broadcaster: broadcaster, logger: l}
}

// Connect marks the user online with conn as the current handle and tells
// everyone else. It must only be called after authentication succeeded.
func (s *PresenceService) Connect(ctx context.Context, conn Connection) error {
	if err := s.presence.SetOnline(ctx, conn.UserID(), conn.ID()); err != nil {
		return fmt.Errorf("%w: set online: %v", chat_errors.ErrPersistence, err)
	}
	s.broadcaster.ToAllExcept(ctx, conn.ID(), EventUserOnline, PresencePayload{ID: conn.UserID()})
	return nil
}

// Disconnect clears presence if conn is still the stored handle. When the
// user has another live connection on this instance the handle moves to it
// and the user stays online. Calling it twice for the same conn is a no-op.
//
// The sibling list is a snapshot, so a sibling may close between the read and
// the handover. The handover target is re-checked afterwards and, if it is
// gone, the handle moves on or is cleared in its name.
func (s *PresenceService) Disconnect(ctx context.Context, conn Connection) error {
	userID := conn.UserID()
	handle := conn.ID()

	for _, other := range s.rooms.UserConnections(userID) {
		if other == conn.ID() || other == handle {
			continue
		}
		moved, err := s.presence.Handover(ctx, userID, handle, other)
		if err != nil {
			return fmt.Errorf("%w: handover: %v", chat_errors.ErrPersistence, err)
		}
		if !moved {
			// the handle already pointed elsewhere
			return nil
		}
		s.logger.WithContext(ctx).Debug("presence handed over",
			zap.Uint("user_id", userID),
			zap.String("from", handle),
			zap.String("to", other),
		)
		handle = other
		if s.isLive(userID, other) {
			return nil
		}
	}

	cleared, err := s.presence.SetOffline(ctx, userID, handle)
	if err != nil {
		return fmt.Errorf("%w: set offline: %v", chat_errors.ErrPersistence, err)
	}
	if cleared {
		s.broadcaster.ToAllExcept(ctx, conn.ID(), EventUserOffline, PresencePayload{ID: userID})
	}
	return nil
}

func (s *PresenceService) isLive(userID uint, connectionID string) bool {
	for _, id := range s.rooms.UserConnections(userID) {
		if id == connectionID {
			return true
		}
	}
	return false
}
