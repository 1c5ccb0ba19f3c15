package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"marketplace-chat/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	auth        *services.AuthService
	presence    *services.PresenceService
	hub         *Hub
	router      *Router
	authTimeout time.Duration
	logger      *Logger
}

func NewHandler(
	auth *services.AuthService,
	presence *services.PresenceService,
	hub *Hub,
	router *Router,
	authTimeout time.Duration,
	l *Logger,
) *Handler {
	if authTimeout <= 0 {
		authTimeout = 15 * time.Second
	}
	return &Handler{
		auth:        auth,
		presence:    presence,
		hub:         hub,
		router:      router,
		authTimeout: authTimeout,
		logger:      l,
	}
}

// Connect upgrades the request and serves the socket until it closes.
func (h *Handler) Connect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", 0, "", err)
		return
	}

	identity, ok := h.authenticate(conn, extractToken(c))
	if !ok {
		return
	}

	client := NewClient(conn, identity.UserID, h.logger)
	h.hub.Register(client)
	go client.writePump()

	ctx := context.Background()
	if err := h.presence.Connect(frameContext(ctx, client), client); err != nil {
		h.logger.Error("presence connect failed", client.UserID(), client.ID(), err)
	}
	client.Emit(services.EventAuthenticated, AuthenticatedPayload{ID: client.UserID()})
	h.logger.Info("client connected", client.UserID(), client.ID())

	client.readPump(ctx, h.router.Dispatch)

	h.hub.Unregister(client)
	if err := h.presence.Disconnect(frameContext(ctx, client), client); err != nil {
		h.logger.Error("presence disconnect failed", client.UserID(), client.ID(), err)
	}
	h.logger.Info("client disconnected", client.UserID(), client.ID())
}

// authenticate verifies the token from the request, or waits up to the auth
// timeout for an authenticate frame. On failure the client gets an
// unauthorized frame and the socket is closed.
func (h *Handler) authenticate(conn *websocket.Conn, token string) (services.Identity, bool) {
	if token == "" {
		token = h.awaitToken(conn)
	}
	if token == "" {
		h.reject(conn, UnauthorizedPayload{Message: "no authorization token was found", Code: codeCredentialsRequired})
		return services.Identity{}, false
	}

	identity, err := h.auth.Authenticate(token)
	if err != nil {
		h.reject(conn, UnauthorizedPayload{Message: "invalid token", Code: codeInvalidToken})
		return services.Identity{}, false
	}
	return identity, true
}

func (h *Handler) awaitToken(conn *websocket.Conn) string {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.authTimeout))

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return ""
	}
	f, err := decodeFrame(raw)
	if err != nil || f.Event != EventAuthenticate {
		return ""
	}
	var p authenticatePayload
	if err := json.Unmarshal(f.Data, &p); err != nil {
		return ""
	}
	return strings.TrimSpace(p.Token)
}

func (h *Handler) reject(conn *websocket.Conn, payload UnauthorizedPayload) {
	defer conn.Close()

	frame, err := encodeFrame(services.EventUnauthorized, payload)
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, payload.Code))
	h.logger.Debug("unauthorized", 0, "", zap.String("code", payload.Code))
}

func extractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return ""
}
