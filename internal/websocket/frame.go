package websocket

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Inbound socket events.
const (
	EventAuthenticate    = "authenticate"
	EventSubscribe       = "subscribe"
	EventUnsubscribe     = "unsubscribe"
	EventSendMessage     = "sendMessage"
	EventMessageRead     = "messageRead"
	EventStartedTyping   = "startedTyping"
	EventStoppedTyping   = "stoppedTyping"
	EventPing            = "ping"
	eventUnknownFallback = "unknown"
)

// Frame is the wire format in both directions: {"event": ..., "data": ...}.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outFrame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func encodeFrame(event string, data interface{}) ([]byte, error) {
	return json.Marshal(outFrame{Event: event, Data: data})
}

func decodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, err
	}
	if f.Event == "" {
		f.Event = eventUnknownFallback
	}
	return f, nil
}

// decodeID accepts a conversation id sent either as a JSON number or as a
// numeric string.
func decodeID(data json.RawMessage) (uint, bool) {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

type authenticatePayload struct {
	Token string `json:"token"`
}

// UnauthorizedPayload is sent before closing a connection that failed to
// authenticate.
type UnauthorizedPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type AuthenticatedPayload struct {
	ID uint `json:"id"`
}

const (
	codeCredentialsRequired = "credentials_required"
	codeInvalidToken        = "invalid_token"
)
