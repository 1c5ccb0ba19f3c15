package services

import (
	"context"
	"time"

	"marketplace-chat/internal/domain/application"
	"marketplace-chat/internal/domain/message"
	"marketplace-chat/internal/domain/user"
)

// Outbound socket events.
const (
	EventAuthenticated        = "authenticated"
	EventUnauthorized         = "unauthorized"
	EventSubscribed           = "subscribed"
	EventUnsubscribed         = "unsubscribed"
	EventUserSubscribed       = "userSubscribed"
	EventUserUnsubscribed     = "userUnsubscribed"
	EventMessageSent          = "messageSent"
	EventMessageReceived      = "messageReceived"
	EventUserTyping           = "userTyping"
	EventUserStoppedTyping    = "userStoppedTyping"
	EventUserOnline           = "userOnline"
	EventUserOffline          = "userOffline"
	EventReceivedNotification = "receivedNotification"
	EventFreelancerApplied    = "freelancerApplied"
	EventPong                 = "pong"
)

// Connection is one authenticated transport session.
type Connection interface {
	ID() string
	UserID() uint
	Emit(event string, data interface{})
}

// Broadcaster fans events out to live connections. Delivery is fire-and-forget.
type Broadcaster interface {
	ToRoom(ctx context.Context, conversationID uint, event string, data interface{})
	ToConnection(ctx context.Context, connectionID string, event string, data interface{})
	ToAllExcept(ctx context.Context, connectionID string, event string, data interface{})
}

// Rooms is the conversation membership registry shared by broadcast and the
// delivery policy.
type Rooms interface {
	// Join adds conn to the room and reports whether it was not a member yet.
	Join(conn Connection, conversationID uint) bool
	// Leave removes conn from the room and reports whether it was a member.
	Leave(conn Connection, conversationID uint) bool
	InRoom(connectionID string, conversationID uint) bool
	IsMember(userID, conversationID uint) bool
	UserConnections(userID uint) []string
}

type PresencePayload struct {
	ID uint `json:"id"`
}

type RoomPayload struct {
	ConversationID uint `json:"conversationId"`
}

type TypingPayload struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// MessageReceivedPayload carries enough to update a thread list without a
// follow-up fetch.
type MessageReceivedPayload struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Text      *string   `json:"text"`
	Role      user.Role `json:"role"`
	SenderID  uint      `json:"senderId"`
	MessageID uint      `json:"messageId"`
	CreatedAt time.Time `json:"createdAt"`
}

func newMessageReceivedPayload(m *message.Message, conv application.Participants) MessageReceivedPayload {
	return MessageReceivedPayload{
		ID:        conv.ConversationID,
		Title:     conv.Title,
		Text:      m.Text,
		Role:      m.Role,
		SenderID:  m.SenderID,
		MessageID: m.ID,
		CreatedAt: m.CreatedAt,
	}
}

// NewMessageNotice is the stored payload of a newMessage notification.
type NewMessageNotice struct {
	Message      *message.Message         `json:"message"`
	Conversation application.Participants `json:"conversation"`
}

type FreelancerAppliedPayload struct {
	Application application.Application `json:"application"`
	Title       string                  `json:"title"`
}
