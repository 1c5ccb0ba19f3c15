package websocket

import (
	"context"
	"encoding/json"

	"marketplace-chat/internal/domain/message"
	"marketplace-chat/internal/services"
	chat_errors "marketplace-chat/pkg/errors"
	"marketplace-chat/pkg/logger"

	"go.uber.org/zap"
)

// Limiter is a limit shared across instances, keyed by user.
type Limiter interface {
	Allow(ctx context.Context, userID uint, action string) bool
}

// Router turns inbound frames into service calls. Frames of one connection
// are handled one at a time, in arrival order.
type Router struct {
	conversations *services.ConversationService
	messages      *services.MessageService
	limiter       Limiter
	logger        *Logger
}

func NewRouter(conversations *services.ConversationService, messages *services.MessageService, limiter Limiter, l *Logger) *Router {
	return &Router{
		conversations: conversations,
		messages:      messages,
		limiter:       limiter,
		logger:        l,
	}
}

// frameContext carries the user and connection ids into service logs.
func frameContext(ctx context.Context, c *Client) context.Context {
	ctx = services.WithUserContext(ctx, c.UserID())
	return context.WithValue(ctx, logger.RequestIdKey, c.ID())
}

func (r *Router) allow(ctx context.Context, c *Client, event string) bool {
	if !c.limiter.Allow(event) {
		return false
	}
	if r.limiter == nil {
		return true
	}
	switch event {
	case EventSendMessage:
		return r.limiter.Allow(ctx, c.UserID(), "message")
	case EventStartedTyping, EventStoppedTyping:
		return r.limiter.Allow(ctx, c.UserID(), "typing")
	}
	return true
}

func (r *Router) Dispatch(ctx context.Context, c *Client, f Frame) {
	ctx = frameContext(ctx, c)

	if !r.allow(ctx, c, f.Event) {
		r.logger.Warn("rate limit exceeded", c.UserID(), c.ID(), zap.String("frame_event", f.Event))
		return
	}

	var err error
	switch f.Event {
	case EventSubscribe:
		err = r.withID(f, func(id uint) error { return r.conversations.Subscribe(ctx, c, id) })
	case EventUnsubscribe:
		err = r.withID(f, func(id uint) error { return r.conversations.Unsubscribe(ctx, c, id) })
	case EventSendMessage:
		err = r.sendMessage(ctx, c, f.Data)
	case EventMessageRead:
		err = r.withID(f, func(id uint) error {
			_, err := r.messages.MarkRead(ctx, c.UserID(), id)
			return err
		})
	case EventStartedTyping, EventStoppedTyping:
		var in services.TypingInput
		if err = json.Unmarshal(f.Data, &in); err == nil {
			err = r.conversations.Typing(ctx, c, in, f.Event == EventStoppedTyping)
		}
	case EventPing:
		c.Emit(services.EventPong, nil)
	case EventAuthenticate:
		// already authenticated
	default:
		r.logger.Debug("unknown frame", c.UserID(), c.ID(), zap.String("frame_event", f.Event))
	}

	if err != nil {
		r.report(c, f.Event, err)
	}
}

func (r *Router) withID(f Frame, fn func(id uint) error) error {
	id, ok := decodeID(f.Data)
	if !ok {
		return chat_errors.ErrInvalidInput
	}
	return fn(id)
}

func (r *Router) sendMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var draft message.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return chat_errors.ErrInvalidInput
	}
	_, err := r.messages.SendMessage(ctx, c.UserID(), draft)
	return err
}

// report never answers the client: denied requests are silent and failures
// only produce no success event.
func (r *Router) report(c *Client, event string, err error) {
	if chat_errors.IsAuthorizationDenied(err) {
		r.logger.Debug("request denied", c.UserID(), c.ID(), zap.String("frame_event", event), zap.Error(err))
		return
	}
	r.logger.Error("request failed", c.UserID(), c.ID(), err, zap.String("frame_event", event))
}
