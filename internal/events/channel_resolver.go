package events

import (
	"fmt"
	"strconv"
	"strings"
)

// Redis channels used to fan socket pushes out across instances.
const (
	ChannelPrefixConversation = "channel:conversation:"
	ChannelPrefixConnection   = "channel:connection:"
	ChannelBroadcast          = "channel:broadcast"

	// ChannelPattern matches every channel above.
	ChannelPattern = "channel:*"
)

type TargetKind int

const (
	TargetConversation TargetKind = iota + 1
	TargetConnection
	TargetBroadcast
)

// Target is where a message received on a channel must be delivered locally.
type Target struct {
	Kind           TargetKind
	ConversationID uint
	ConnectionID   string
}

func ConversationChannel(conversationID uint) string {
	return fmt.Sprintf("%s%d", ChannelPrefixConversation, conversationID)
}

func ConnectionChannel(connectionID string) string {
	return ChannelPrefixConnection + connectionID
}

// ResolveChannel maps a channel name back to its local delivery target.
func ResolveChannel(channel string) (Target, bool) {
	switch {
	case channel == ChannelBroadcast:
		return Target{Kind: TargetBroadcast}, true

	case strings.HasPrefix(channel, ChannelPrefixConversation):
		id, err := strconv.ParseUint(strings.TrimPrefix(channel, ChannelPrefixConversation), 10, 64)
		if err != nil || id == 0 {
			return Target{}, false
		}
		return Target{Kind: TargetConversation, ConversationID: uint(id)}, true

	case strings.HasPrefix(channel, ChannelPrefixConnection):
		id := strings.TrimPrefix(channel, ChannelPrefixConnection)
		if id == "" {
			return Target{}, false
		}
		return Target{Kind: TargetConnection, ConnectionID: id}, true
	}
	return Target{}, false
}
