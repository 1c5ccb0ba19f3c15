package events

import "context"

type Publisher interface {
	Publish(ctx context.Context, channel string, env Envelope) error
}

// Subscriber blocks delivering envelopes published on channels matching the
// patterns until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, patterns []string, handler func(channel string, env Envelope)) error
}
