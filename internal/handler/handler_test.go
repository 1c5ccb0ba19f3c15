package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace-chat/config"
	"marketplace-chat/internal/domain/message"
	"marketplace-chat/internal/domain/notification"
	"marketplace-chat/internal/mailer"
	"marketplace-chat/internal/middleware"
	"marketplace-chat/internal/repository"
	"marketplace-chat/internal/services"
	"marketplace-chat/internal/testutil"
	"marketplace-chat/internal/transport/httpdto"
	"marketplace-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "handler-secret"

type nopBroadcaster struct{}

func (nopBroadcaster) ToRoom(context.Context, uint, string, interface{})         {}
func (nopBroadcaster) ToConnection(context.Context, string, string, interface{}) {}
func (nopBroadcaster) ToAllExcept(context.Context, string, string, interface{})  {}

type noRooms struct{}

func (noRooms) Join(services.Connection, uint) bool  { return false }
func (noRooms) Leave(services.Connection, uint) bool { return false }
func (noRooms) InRoom(string, uint) bool             { return false }
func (noRooms) IsMember(uint, uint) bool             { return false }
func (noRooms) UserConnections(uint) []string        { return nil }

type apiEnv struct {
	db       *gorm.DB
	conv     testutil.Conversation
	engine   *gin.Engine
	messages *services.MessageService
	notifier *services.Notifier
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	l := logger.NewNop()
	bc := nopBroadcaster{}

	apps := repository.NewApplicationRepository(db)
	msgs := repository.NewMessageRepository(db)
	notes := repository.NewNotificationRepository(db)
	pres := repository.NewPresenceRepository(db)

	notifier := services.NewNotifier(notes, pres, repository.NewUserRepository(db), repository.NewOutboxRepository(db), bc, mailer.NewLogMailer(l), l)
	policy := services.NewDeliveryPolicy(apps, pres, msgs, noRooms{}, bc, notifier, l)
	messages := services.NewMessageService(db, apps, msgs, bc, policy, l)
	auth := services.NewAuthService(&config.Config{JWTSecret: testSecret})

	engine := gin.New()
	engine.Use(middleware.RequestIDMiddleware(), middleware.ErrorHandler(l))
	v1 := engine.Group("/v1", middleware.AuthMiddleware(auth))
	{
		mh := NewMessageHandler(messages)
		v1.GET("/conversations/:id/messages", mh.History)

		nh := NewNotificationHandler(services.NewNotificationService(notes))
		v1.GET("/notifications", nh.List)
		v1.PUT("/notifications/:id/seen", nh.Seen)

		ah := NewApplicationHandler(policy)
		v1.POST("/applications/:id/applied", ah.Applied)
	}

	return &apiEnv{
		db:       db,
		conv:     testutil.SeedConversation(t, db, "Data pipeline"),
		engine:   engine,
		messages: messages,
		notifier: notifier,
	}
}

func bearer(t *testing.T, userID uint) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, services.AccessClaims{
		ID:               userID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + s
}

func (e *apiEnv) do(t *testing.T, method, path string, userID uint) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if userID != 0 {
		req.Header.Set("Authorization", bearer(t, userID))
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) httpdto.Response[T] {
	t.Helper()
	var resp httpdto.Response[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHistory(t *testing.T) {
	e := newAPIEnv(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		text := fmt.Sprintf("msg %d", i)
		_, err := e.messages.SendMessage(ctx, e.conv.ClientUser.ID, message.Draft{Text: &text, ConversationID: e.conv.ID()})
		require.NoError(t, err)
	}

	path := fmt.Sprintf("/v1/conversations/%d/messages?limit=2", e.conv.ID())
	rec := e.do(t, http.MethodGet, path, e.conv.FreelancerUser.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[httpdto.MessageHistoryResponse](t, rec)
	assert.True(t, resp.Success)
	require.Len(t, resp.Data.Messages, 2)
	assert.Equal(t, "msg 2", *resp.Data.Messages[0].Text)
	assert.Equal(t, resp.Data.Messages[1].ID, resp.Data.NextBefore)

	path = fmt.Sprintf("/v1/conversations/%d/messages?before=%d", e.conv.ID(), resp.Data.NextBefore)
	resp = decode[httpdto.MessageHistoryResponse](t, e.do(t, http.MethodGet, path, e.conv.FreelancerUser.ID))
	require.Len(t, resp.Data.Messages, 1)
	assert.Zero(t, resp.Data.NextBefore)
}

func TestHistory_Errors(t *testing.T) {
	e := newAPIEnv(t)
	outsider := testutil.SeedUser(t, e.db, "nosy")
	path := fmt.Sprintf("/v1/conversations/%d/messages", e.conv.ID())

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, path, 0).Code)

	// an outsider cannot tell an existing conversation from a missing one
	rec := e.do(t, http.MethodGet, path, outsider.ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	denied := decode[any](t, rec)
	assert.Equal(t, "NOT_FOUND", denied.Code)
	assert.Equal(t, rec.Header().Get("X-Request-Id"), denied.RequestID)

	missing := e.do(t, http.MethodGet, "/v1/conversations/999/messages", outsider.ID)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, denied.Error, decode[any](t, missing).Error)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/v1/conversations/abc/messages", outsider.ID).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, path+"?limit=x", e.conv.ClientUser.ID).Code)
}

func TestNotifications(t *testing.T) {
	e := newAPIEnv(t)
	f := e.conv.FreelancerUser.ID
	ref := e.conv.ID()

	res, err := e.notifier.Notify(context.Background(), services.Notice{
		Type:        notification.TypeNewMessage,
		ReceiverID:  f,
		ReferenceID: &ref,
		Payload:     map[string]string{"hello": "world"},
	})
	require.NoError(t, err)

	rec := e.do(t, http.MethodGet, "/v1/notifications", f)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]httpdto.NotificationResponse](t, rec)
	require.Len(t, list.Data, 1)
	assert.Equal(t, notification.TypeNewMessage, list.Data[0].Type)
	assert.JSONEq(t, `{"hello":"world"}`, string(list.Data[0].Payload))

	seen := fmt.Sprintf("/v1/notifications/%d/seen", res.Notification.ID)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodPut, seen, e.conv.ClientUser.ID).Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodPut, seen, f).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPut, seen, f).Code)

	list = decode[[]httpdto.NotificationResponse](t, e.do(t, http.MethodGet, "/v1/notifications", f))
	assert.Empty(t, list.Data)
}

func TestApplied(t *testing.T) {
	e := newAPIEnv(t)
	path := fmt.Sprintf("/v1/applications/%d/applied", e.conv.ID())

	rec := e.do(t, http.MethodPost, path, e.conv.FreelancerUser.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[httpdto.ApplicationAppliedResponse](t, rec).Data.Pushed)

	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodPost, path, e.conv.ClientUser.ID).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPost, "/v1/applications/12345/applied", e.conv.FreelancerUser.ID).Code)
}
