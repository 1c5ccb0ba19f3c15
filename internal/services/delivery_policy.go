package services

import (
	"context"
	"fmt"

	"marketplace-chat/internal/domain/application"
	"marketplace-chat/internal/domain/message"
	"marketplace-chat/internal/domain/notification"
	"marketplace-chat/internal/repository"
	chat_errors "marketplace-chat/pkg/errors"
	"marketplace-chat/pkg/logger"

	"go.uber.org/zap"
)

// NotificationSender is the Notifier as seen by the delivery policy.
type NotificationSender interface {
	Notify(ctx context.Context, notice Notice) (NotifyResult, error)
}

// Decision records what Route did for one message.
type Decision struct {
	DirectPush   bool
	UnreadBefore int64
	InRoom       bool
	Notified     bool
	NotifyErr    error
}

// DeliveryPolicy decides, per persisted message, between a live push to the
// receiver and an out-of-band notification.
type DeliveryPolicy struct {
	apps        repository.ApplicationRepository
	presence    repository.PresenceRepository
	messages    repository.MessageRepository
	rooms       Rooms
	broadcaster Broadcaster
	notifier    NotificationSender
	logger      *logger.Logger
}

func NewDeliveryPolicy(
	apps repository.ApplicationRepository,
	presence repository.PresenceRepository,
	messages repository.MessageRepository,
	rooms Rooms,
	broadcaster Broadcaster,
	notifier NotificationSender,
	l *logger.Logger,
) *DeliveryPolicy {
	if l == nil {
		l = logger.NewNop()
	}
	return &DeliveryPolicy{
		apps:        apps,
		presence:    presence,
		messages:    messages,
		rooms:       rooms,
		broadcaster: broadcaster,
		notifier:    notifier,
		logger:      l,
	}
}

// Route must run after the message committed. It never fails: every error
// is logged and recorded on the Decision.
//
// The receiver is escalated to the Notifier only when the message is the
// first unread one addressed to them in the conversation, and only when none
// of their connections is currently in the conversation room.
func (p *DeliveryPolicy) Route(ctx context.Context, receiverID uint, m *message.Message, conv application.Participants) Decision {
	var d Decision
	log := p.logger.WithContext(ctx).With(
		zap.Uint("receiver_id", receiverID),
		zap.Uint("message_id", m.ID),
		zap.Uint("conversation_id", conv.ConversationID),
	)

	pres, err := p.presence.Get(ctx, receiverID)
	if err != nil {
		log.Error("presence lookup failed", zap.Error(err))
	} else if pres.Reachable() {
		p.broadcaster.ToConnection(ctx, *pres.ConnectionID, EventMessageReceived, newMessageReceivedPayload(m, conv))
		d.DirectPush = true
	}

	unread, err := p.messages.CountUnread(ctx, conv.ConversationID, receiverID, m.ID)
	if err != nil {
		log.Error("unread count failed, skipping notification", zap.Error(err))
		return d
	}
	d.UnreadBefore = unread
	if unread > 0 {
		return d
	}

	if p.rooms.IsMember(receiverID, conv.ConversationID) {
		d.InRoom = true
		return d
	}

	ref := conv.ConversationID
	_, err = p.notifier.Notify(ctx, Notice{
		Type:        notification.TypeNewMessage,
		ReceiverID:  receiverID,
		ReferenceID: &ref,
		Payload:     NewMessageNotice{Message: m, Conversation: conv},
		Subject:     fmt.Sprintf("New message about %q", conv.Title),
		Body:        newMessageEmailBody(m, conv),
	})
	d.Notified = true
	if err != nil {
		d.NotifyErr = err
		log.Error("notifier failed", zap.Error(err))
	}
	return d
}

// FreelancerApplied tells the client side of a freshly created application
// about it, if they are connected. It reports whether a push was made.
func (p *DeliveryPolicy) FreelancerApplied(ctx context.Context, applicationID uint) (bool, error) {
	return p.freelancerApplied(ctx, 0, applicationID)
}

// FreelancerAppliedBy is FreelancerApplied on behalf of a caller, who must be
// the freelancer of the application.
func (p *DeliveryPolicy) FreelancerAppliedBy(ctx context.Context, callerID, applicationID uint) (bool, error) {
	if callerID == 0 {
		return false, chat_errors.ErrUnauthorized
	}
	return p.freelancerApplied(ctx, callerID, applicationID)
}

func (p *DeliveryPolicy) freelancerApplied(ctx context.Context, callerID, applicationID uint) (bool, error) {
	app, err := p.apps.GetByID(ctx, applicationID)
	if err != nil {
		return false, err
	}
	conv, err := p.apps.GetParticipants(ctx, applicationID)
	if err != nil {
		return false, err
	}
	if callerID != 0 && conv.FreelancerUserID != callerID {
		return false, chat_errors.ErrForbidden
	}

	pres, err := p.presence.Get(ctx, conv.ClientUserID)
	if err != nil {
		return false, err
	}
	if !pres.Reachable() {
		return false, nil
	}
	p.broadcaster.ToConnection(ctx, *pres.ConnectionID, EventFreelancerApplied, FreelancerAppliedPayload{
		Application: app,
		Title:       conv.Title,
	})
	return true, nil
}

func newMessageEmailBody(m *message.Message, conv application.Participants) string {
	body := fmt.Sprintf("You have a new message in the conversation about %q.", conv.Title)
	if m.Text != nil && *m.Text != "" {
		body += "\n\n" + *m.Text
	}
	if n := len(m.Attachments); n > 0 {
		body += fmt.Sprintf("\n\n(%d attachment(s))", n)
	}
	return body
}
