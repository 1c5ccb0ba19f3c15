package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendBuffer     = 256
)

// Per-connection limits per minute, used when no shared limiter is configured.
type RateLimits struct {
	MaxMessages     int
	MaxTypingEvents int
	MaxReadReceipts int
	MaxPingMessages int
}

var DefaultRateLimits = RateLimits{
	MaxMessages:     60,
	MaxTypingEvents: 120,
	MaxReadReceipts: 120,
	MaxPingMessages: 60,
}

// clientRateLimiter holds one token bucket per event class. Each bucket
// refills evenly over a minute and allows its whole per-minute budget as a
// burst.
type clientRateLimiter struct {
	buckets map[string]*rate.Limiter
}

func newClientRateLimiter(limits RateLimits) *clientRateLimiter {
	perMinute := func(n int) *rate.Limiter {
		if n <= 0 {
			return rate.NewLimiter(0, 0)
		}
		return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}
	return &clientRateLimiter{buckets: map[string]*rate.Limiter{
		EventSendMessage:   perMinute(limits.MaxMessages),
		EventStartedTyping: perMinute(limits.MaxTypingEvents),
		EventMessageRead:   perMinute(limits.MaxReadReceipts),
		EventPing:          perMinute(limits.MaxPingMessages),
	}}
}

func (rl *clientRateLimiter) Allow(event string) bool {
	bucket, ok := rl.buckets[rateBucket(event)]
	if !ok {
		return true
	}
	return bucket.Allow()
}

func rateBucket(event string) string {
	switch event {
	case EventSendMessage, EventMessageRead, EventPing:
		return event
	case EventStartedTyping, EventStoppedTyping:
		return EventStartedTyping
	}
	return ""
}

// Client is one authenticated socket. It satisfies services.Connection.
type Client struct {
	id     string
	userID uint
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}

	limiter      *clientRateLimiter
	lastActivity atomic.Int64
	closeOnce    sync.Once
	logger       *Logger
}

func NewClient(conn *websocket.Conn, userID uint, l *Logger) *Client {
	c := &Client{
		id:      uuid.NewString(),
		userID:  userID,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		limiter: newClientRateLimiter(DefaultRateLimits),
		logger:  l,
	}
	c.touch()
	return c
}

func (c *Client) ID() string   { return c.id }
func (c *Client) UserID() uint { return c.userID }

// Emit queues an event for this connection only.
func (c *Client) Emit(event string, data interface{}) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		c.logger.Error("encode frame failed", c.userID, c.id, err, zap.String("frame_event", event))
		return
	}
	c.enqueue(frame)
}

// enqueue never blocks: a full buffer drops the frame.
func (c *Client) enqueue(frame []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- frame:
	default:
		c.logger.Warn("client send buffer full", c.userID, c.id)
	}
}

// close stops the write pump. Safe to call more than once.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// readPump reads frames until the socket fails and hands each one, in order,
// to dispatch.
func (c *Client) readPump(ctx context.Context, dispatch func(ctx context.Context, c *Client, f Frame)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket unexpected close", c.userID, c.id, err)
			}
			return
		}
		c.touch()
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		frame, err := decodeFrame(raw)
		if err != nil {
			c.logger.Warn("malformed frame", c.userID, c.id, zap.Error(err))
			continue
		}
		dispatch(ctx, c, frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			if time.Since(time.Unix(0, c.lastActivity.Load())) > pongWait*2 {
				c.logger.Info("client idle timeout", c.userID, c.id)
				return
			}
		}
	}
}
