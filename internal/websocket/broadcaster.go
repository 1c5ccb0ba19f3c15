package websocket

import (
	"context"

	"marketplace-chat/internal/events"

	"go.uber.org/zap"
)

// LocalBroadcaster delivers straight to the hub. Used when Redis is not
// configured and the process is the only instance.
type LocalBroadcaster struct {
	hub    *Hub
	logger *Logger
}

func NewLocalBroadcaster(hub *Hub, l *Logger) *LocalBroadcaster {
	return &LocalBroadcaster{hub: hub, logger: l}
}

func (b *LocalBroadcaster) ToRoom(_ context.Context, conversationID uint, event string, data interface{}) {
	if frame, ok := b.encode(event, data); ok {
		b.hub.DeliverToRoom(conversationID, frame)
	}
}

func (b *LocalBroadcaster) ToConnection(_ context.Context, connectionID string, event string, data interface{}) {
	if frame, ok := b.encode(event, data); ok {
		b.hub.DeliverToConnection(connectionID, frame)
	}
}

func (b *LocalBroadcaster) ToAllExcept(_ context.Context, connectionID string, event string, data interface{}) {
	if frame, ok := b.encode(event, data); ok {
		b.hub.DeliverToAllExcept(connectionID, frame)
	}
}

func (b *LocalBroadcaster) encode(event string, data interface{}) ([]byte, bool) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		b.logger.Error("encode frame failed", 0, "", err, zap.String("frame_event", event))
		return nil, false
	}
	return frame, true
}

// RedisBroadcaster publishes every push on Redis so that all instances,
// including this one, deliver it through RedisBridge.
type RedisBroadcaster struct {
	publisher events.Publisher
	local     *LocalBroadcaster
	logger    *Logger
}

func NewRedisBroadcaster(publisher events.Publisher, hub *Hub, l *Logger) *RedisBroadcaster {
	return &RedisBroadcaster{
		publisher: publisher,
		local:     NewLocalBroadcaster(hub, l),
		logger:    l,
	}
}

func (b *RedisBroadcaster) ToRoom(ctx context.Context, conversationID uint, event string, data interface{}) {
	if !b.publish(ctx, events.ConversationChannel(conversationID), event, data, "") {
		b.local.ToRoom(ctx, conversationID, event, data)
	}
}

func (b *RedisBroadcaster) ToConnection(ctx context.Context, connectionID string, event string, data interface{}) {
	if !b.publish(ctx, events.ConnectionChannel(connectionID), event, data, "") {
		b.local.ToConnection(ctx, connectionID, event, data)
	}
}

func (b *RedisBroadcaster) ToAllExcept(ctx context.Context, connectionID string, event string, data interface{}) {
	if !b.publish(ctx, events.ChannelBroadcast, event, data, connectionID) {
		b.local.ToAllExcept(ctx, connectionID, event, data)
	}
}

// publish reports false when the push must fall back to local delivery.
func (b *RedisBroadcaster) publish(ctx context.Context, channel, event string, data interface{}, exclude string) bool {
	env, err := events.NewEnvelope(event, data, exclude)
	if err != nil {
		b.logger.Error("encode envelope failed", 0, "", err, zap.String("frame_event", event))
		return true
	}
	if err := b.publisher.Publish(ctx, channel, env); err != nil {
		b.logger.Warn("redis publish failed, delivering locally", 0, "",
			zap.String("channel", channel),
			zap.Error(err),
		)
		return false
	}
	return true
}

// RedisBridge feeds pushes published by any instance into the local hub.
type RedisBridge struct {
	subscriber events.Subscriber
	hub        *Hub
	logger     *Logger
}

func NewRedisBridge(subscriber events.Subscriber, hub *Hub, l *Logger) *RedisBridge {
	return &RedisBridge{subscriber: subscriber, hub: hub, logger: l}
}

// Run blocks until ctx is done or the subscription fails.
func (b *RedisBridge) Run(ctx context.Context) error {
	return b.subscriber.Subscribe(ctx, []string{events.ChannelPattern}, b.deliver)
}

func (b *RedisBridge) deliver(channel string, env events.Envelope) {
	target, ok := events.ResolveChannel(channel)
	if !ok {
		return
	}
	frame, err := encodeFrame(env.Event, env.Data)
	if err != nil {
		b.logger.Error("encode frame failed", 0, "", err, zap.String("channel", channel))
		return
	}

	switch target.Kind {
	case events.TargetConversation:
		b.hub.DeliverToRoom(target.ConversationID, frame)
	case events.TargetConnection:
		b.hub.DeliverToConnection(target.ConnectionID, frame)
	case events.TargetBroadcast:
		b.hub.DeliverToAllExcept(env.ExcludeConnection, frame)
	}
}
