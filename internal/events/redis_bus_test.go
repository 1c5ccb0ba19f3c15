package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveChannel(t *testing.T) {
	tests := []struct {
		channel string
		want    Target
		ok      bool
	}{
		{ConversationChannel(42), Target{Kind: TargetConversation, ConversationID: 42}, true},
		{ConnectionChannel("abc"), Target{Kind: TargetConnection, ConnectionID: "abc"}, true},
		{ChannelBroadcast, Target{Kind: TargetBroadcast}, true},
		{"channel:conversation:x", Target{}, false},
		{"channel:conversation:0", Target{}, false},
		{"channel:connection:", Target{}, false},
		{"channel:unknown:1", Target{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			got, ok := ResolveChannel(tt.channel)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRedisBus_PublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	bus := NewRedisBus(client, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		received []Envelope
		channels []string
	)
	done := make(chan error, 1)
	go func() {
		done <- bus.Subscribe(ctx, []string{ChannelPattern}, func(channel string, env Envelope) {
			mu.Lock()
			defer mu.Unlock()
			channels = append(channels, channel)
			received = append(received, env)
		})
	}()

	env, err := NewEnvelope("messageSent", map[string]string{"text": "hi"}, "conn-1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_ = bus.Publish(ctx, ConversationChannel(7), env)
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	assert.Equal(t, ConversationChannel(7), channels[0])
	assert.Equal(t, "messageSent", received[0].Event)
	assert.Equal(t, "conn-1", received[0].ExcludeConnection)
	assert.JSONEq(t, `{"text":"hi"}`, string(received[0].Data))
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}
