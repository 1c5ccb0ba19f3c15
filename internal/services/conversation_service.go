package services

import (
	"context"

	"marketplace-chat/internal/repository"
	"marketplace-chat/pkg/logger"
)

// ConversationService handles room membership and typing indicators.
type ConversationService struct {
	apps        repository.ApplicationRepository
	rooms       Rooms
	broadcaster Broadcaster
	logger      *logger.Logger
}

func NewConversationService(apps repository.ApplicationRepository, rooms Rooms, broadcaster Broadcaster, l *logger.Logger) *ConversationService {
	if l == nil {
		l = logger.NewNop()
	}
	return &ConversationService{apps: apps, rooms: rooms, broadcaster: broadcaster, logger: l}
}

// Subscribe joins conn to the conversation room. Non-participants get an
// authorization error the transport must not surface.
func (s *ConversationService) Subscribe(ctx context.Context, conn Connection, conversationID uint) error {
	if _, err := loadParticipants(ctx, s.apps, conn.UserID(), conversationID); err != nil {
		return err
	}

	s.rooms.Join(conn, conversationID)
	conn.Emit(EventSubscribed, RoomPayload{ConversationID: conversationID})
	s.broadcaster.ToRoom(ctx, conversationID, EventUserSubscribed, conn.UserID())
	return nil
}

// Unsubscribe is a no-op for connections that were never in the room.
func (s *ConversationService) Unsubscribe(ctx context.Context, conn Connection, conversationID uint) error {
	if !s.rooms.Leave(conn, conversationID) {
		return nil
	}
	conn.Emit(EventUnsubscribed, RoomPayload{ConversationID: conversationID})
	s.broadcaster.ToRoom(ctx, conversationID, EventUserUnsubscribed, conn.UserID())
	return nil
}

type TypingInput struct {
	UserName       string `json:"userName"`
	ConversationID uint   `json:"conversationId"`
}

// Typing relays a typing indicator to the room. Only connections already in
// the room may do so; nothing is persisted.
func (s *ConversationService) Typing(ctx context.Context, conn Connection, in TypingInput, stopped bool) error {
	if !s.rooms.InRoom(conn.ID(), in.ConversationID) {
		return nil
	}
	event := EventUserTyping
	if stopped {
		event = EventUserStoppedTyping
	}
	s.broadcaster.ToRoom(ctx, in.ConversationID, event, TypingPayload{ID: conn.UserID(), Name: in.UserName})
	return nil
}
