package events

import (
	"encoding/json"
	"time"
)

// Envelope is what travels on a Redis channel: one outbound socket event,
// already encoded, plus an optional connection to skip.
type Envelope struct {
	Event             string          `json:"event"`
	Data              json.RawMessage `json:"data"`
	ExcludeConnection string          `json:"exclude_connection,omitempty"`
	OccurredAt        time.Time       `json:"occurred_at"`
}

func NewEnvelope(event string, data interface{}, excludeConnection string) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Event:             event,
		Data:              raw,
		ExcludeConnection: excludeConnection,
		OccurredAt:        time.Now().UTC(),
	}, nil
}
