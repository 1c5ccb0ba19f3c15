package services

import (
	"context"
	"errors"
	"testing"

	"marketplace-chat/internal/domain/application"
	"marketplace-chat/internal/domain/message"
	"marketplace-chat/internal/domain/notification"
	"marketplace-chat/internal/domain/outbox"
	"marketplace-chat/internal/domain/user"
	"marketplace-chat/internal/repository"
	"marketplace-chat/internal/testutil"
	chat_errors "marketplace-chat/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func text(s string) *string { return &s }

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func notificationsFor(t *testing.T, db *gorm.DB, receiverID uint) []notification.Notification {
	t.Helper()
	var items []notification.Notification
	require.NoError(t, db.Where("receiver_id = ?", receiverID).Find(&items).Error)
	return items
}

// Receiver online but not viewing the thread: direct push plus one
// notification, pushed live rather than emailed.
func TestSendMessage_ReceiverOnlineOutsideRoom(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	c, f := e.conv.ClientUser.ID, e.conv.FreelancerUser.ID
	e.connect(t, "conn-f", f)

	m, err := e.messages.SendMessage(ctx, c, message.Draft{Text: text("hello"), ConversationID: e.conv.ID(), Role: user.RoleClient})
	require.NoError(t, err)

	var stored message.Message
	require.NoError(t, e.db.First(&stored, m.ID).Error)
	assert.Equal(t, c, stored.SenderID)
	assert.Equal(t, f, stored.ReceiverID)
	assert.Equal(t, e.conv.ID(), stored.ApplicationID)
	assert.False(t, stored.Read)
	assert.NotEqual(t, stored.SenderID, stored.ReceiverID)

	app := testutil.ReloadApplication(t, e.db, e.conv.ID())
	require.NotNil(t, app.LastMessageID)
	assert.Equal(t, m.ID, *app.LastMessageID)

	assert.Equal(t, 1, e.bc.count(roomTarget(e.conv.ID()), EventMessageSent))
	assert.Equal(t, 1, e.bc.count(connTarget("conn-f"), EventMessageReceived))

	pushed, ok := e.bc.last(EventMessageReceived)
	require.True(t, ok)
	payload := pushed.Data.(MessageReceivedPayload)
	assert.Equal(t, e.conv.ID(), payload.ID)
	assert.Equal(t, "Mobile app", payload.Title)
	assert.Equal(t, "hello", *payload.Text)

	notes := notificationsFor(t, e.db, f)
	require.Len(t, notes, 1)
	require.NotNil(t, notes[0].ReferenceID)
	assert.Equal(t, e.conv.ID(), *notes[0].ReferenceID)
	assert.Equal(t, notification.TypeNewMessage, notes[0].Type)

	assert.Equal(t, 1, e.bc.count(connTarget("conn-f"), EventReceivedNotification))
	assert.Equal(t, 0, e.mail.count())
}

// Receiver is viewing the thread: the room broadcast is enough.
func TestSendMessage_ReceiverInRoomSuppressesNotifier(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	c, f := e.conv.ClientUser.ID, e.conv.FreelancerUser.ID
	fConn := e.connect(t, "conn-f", f)
	require.NoError(t, e.conversations.Subscribe(ctx, fConn, e.conv.ID()))

	_, err := e.messages.SendMessage(ctx, c, message.Draft{Text: text("are you there?"), ConversationID: e.conv.ID()})
	require.NoError(t, err)

	assert.Equal(t, 1, e.bc.count(roomTarget(e.conv.ID()), EventMessageSent))
	assert.Empty(t, notificationsFor(t, e.db, f))
	assert.Equal(t, 0, e.bc.countEvent(EventReceivedNotification))
	assert.Equal(t, 0, e.mail.count())
}

// Receiver offline: two messages, one notification, one email.
func TestSendMessage_OfflineReceiverNotifiedOnce(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	c, f := e.conv.ClientUser.ID, e.conv.FreelancerUser.ID

	_, err := e.messages.SendMessage(ctx, c, message.Draft{Text: text("first"), ConversationID: e.conv.ID()})
	require.NoError(t, err)
	second, err := e.messages.SendMessage(ctx, c, message.Draft{Text: text("second"), ConversationID: e.conv.ID()})
	require.NoError(t, err)

	assert.Equal(t, int64(2), countRows(t, e.db, &message.Message{}))
	app := testutil.ReloadApplication(t, e.db, e.conv.ID())
	require.NotNil(t, app.LastMessageID)
	assert.Equal(t, second.ID, *app.LastMessageID)

	assert.Len(t, notificationsFor(t, e.db, f), 1)
	require.Equal(t, 1, e.mail.count())
	assert.Equal(t, e.conv.FreelancerUser.Email, e.mail.sent[0].To)
	assert.Equal(t, 0, e.bc.countEvent(EventMessageReceived))
}

// Two messages committed before either is routed, as when one sender writes
// from two tabs at once: the earlier one escalates, the later one folds.
func TestRoute_ConcurrentCommitsNotifyOnce(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	c, f := e.conv.ClientUser.ID, e.conv.FreelancerUser.ID
	apps := repository.NewApplicationRepository(e.db)
	unrouted := NewMessageService(e.db, apps, repository.NewMessageRepository(e.db), e.bc, nil, nil)

	m1, err := unrouted.SendMessage(ctx, c, message.Draft{Text: text("from tab one"), ConversationID: e.conv.ID()})
	require.NoError(t, err)
	m2, err := unrouted.SendMessage(ctx, c, message.Draft{Text: text("from tab two"), ConversationID: e.conv.ID()})
	require.NoError(t, err)

	conv, err := apps.GetParticipants(ctx, e.conv.ID())
	require.NoError(t, err)

	later := e.policy.Route(ctx, f, m2, conv)
	assert.Equal(t, int64(1), later.UnreadBefore)
	assert.False(t, later.Notified)

	earlier := e.policy.Route(ctx, f, m1, conv)
	assert.Equal(t, int64(0), earlier.UnreadBefore)
	assert.True(t, earlier.Notified)

	assert.Len(t, notificationsFor(t, e.db, f), 1)
	assert.Equal(t, 1, e.mail.count())
}

func TestSendMessage_RoleInferredFromSide(t *testing.T) {
	e := newTestEnv(t)
	m, err := e.messages.SendMessage(context.Background(), e.conv.FreelancerUser.ID, message.Draft{Text: text("hi"), ConversationID: e.conv.ID()})
	require.NoError(t, err)
	assert.Equal(t, user.RoleFreelancer, m.Role)
	assert.Equal(t, e.conv.ClientUser.ID, m.ReceiverID)
}

func TestSendMessage_OutsiderRefusedSilently(t *testing.T) {
	e := newTestEnv(t)
	outsider := testutil.SeedUser(t, e.db, "outsider")

	_, err := e.messages.SendMessage(context.Background(), outsider.ID, message.Draft{Text: text("spam"), ConversationID: e.conv.ID()})
	assert.True(t, chat_errors.IsAuthorizationDenied(err))

	_, err = e.messages.SendMessage(context.Background(), outsider.ID, message.Draft{Text: text("spam"), ConversationID: 9999})
	assert.True(t, chat_errors.IsAuthorizationDenied(err))

	assert.Equal(t, int64(0), countRows(t, e.db, &message.Message{}))
	assert.Equal(t, 0, e.bc.countEvent(EventMessageSent))
}

func TestSendMessage_EmptyDraftRejected(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.messages.SendMessage(context.Background(), e.conv.ClientUser.ID, message.Draft{Text: text(""), ConversationID: e.conv.ID()})
	assert.ErrorIs(t, err, chat_errors.ErrInvalidInput)

	// zero attachment ids are dropped, leaving nothing to send
	_, err = e.messages.SendMessage(context.Background(), e.conv.ClientUser.ID, message.Draft{AttachmentIDs: []uint{0, 0}, ConversationID: e.conv.ID()})
	assert.ErrorIs(t, err, chat_errors.ErrInvalidInput)

	assert.Equal(t, int64(0), countRows(t, e.db, &message.Message{}))
	assert.Equal(t, 0, e.bc.countEvent(EventMessageSent))
}

type failingLastMessage struct {
	repository.ApplicationRepository
}

func (failingLastMessage) SetLastMessage(context.Context, uint, uint) error {
	return errors.New("connection reset")
}

func TestSendMessage_RollsBackWhenPointerUpdateFails(t *testing.T) {
	e := newTestEnv(t)
	file := testutil.SeedFile(t, e.db, e.conv.ClientUser.ID, "brief.pdf")
	e.messages.txRepos = func(tx *gorm.DB) (repository.ApplicationRepository, repository.MessageRepository) {
		return failingLastMessage{repository.NewApplicationRepository(tx)}, repository.NewMessageRepository(tx)
	}

	_, err := e.messages.SendMessage(context.Background(), e.conv.ClientUser.ID, message.Draft{
		Text:           text("with file"),
		ConversationID: e.conv.ID(),
		AttachmentIDs:  []uint{file.ID},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, chat_errors.ErrPersistence)

	assert.Equal(t, int64(0), countRows(t, e.db, &message.Message{}))
	var links int64
	require.NoError(t, e.db.Table("file_messages").Count(&links).Error)
	assert.Equal(t, int64(0), links)
	assert.Nil(t, testutil.ReloadApplication(t, e.db, e.conv.ID()).LastMessageID)

	assert.Equal(t, 0, e.bc.countEvent(EventMessageSent))
	assert.Empty(t, notificationsFor(t, e.db, e.conv.FreelancerUser.ID))
}

func TestSendMessage_Attachments(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	mine := testutil.SeedFile(t, e.db, e.conv.ClientUser.ID, "brief.png")
	theirs := testutil.SeedFile(t, e.db, e.conv.FreelancerUser.ID, "other.png")

	_, err := e.messages.SendMessage(ctx, e.conv.ClientUser.ID, message.Draft{ConversationID: e.conv.ID(), AttachmentIDs: []uint{mine.ID, theirs.ID}})
	assert.ErrorIs(t, err, chat_errors.ErrInvalidInput)
	assert.Equal(t, int64(0), countRows(t, e.db, &message.Message{}))
	assert.Nil(t, testutil.ReloadApplication(t, e.db, e.conv.ID()).LastMessageID)

	m, err := e.messages.SendMessage(ctx, e.conv.ClientUser.ID, message.Draft{ConversationID: e.conv.ID(), AttachmentIDs: []uint{mine.ID, mine.ID}})
	require.NoError(t, err)
	assert.Nil(t, m.Text)
	require.Len(t, m.Attachments, 1)
	assert.Equal(t, "brief.png", m.Attachments[0].FileName)
}

func TestMarkRead_IdempotentAndScoped(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	c, f := e.conv.ClientUser.ID, e.conv.FreelancerUser.ID

	for _, s := range []string{"a", "b"} {
		_, err := e.messages.SendMessage(ctx, c, message.Draft{Text: text(s), ConversationID: e.conv.ID()})
		require.NoError(t, err)
	}
	_, err := e.messages.SendMessage(ctx, f, message.Draft{Text: text("reply"), ConversationID: e.conv.ID()})
	require.NoError(t, err)

	n, err := e.messages.MarkRead(ctx, f, e.conv.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = e.messages.MarkRead(ctx, f, e.conv.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	var unreadForClient int64
	require.NoError(t, e.db.Model(&message.Message{}).Where("receiver_id = ? AND read = ?", c, false).Count(&unreadForClient).Error)
	assert.Equal(t, int64(1), unreadForClient)

	outsider := testutil.SeedUser(t, e.db, "reader")
	_, err = e.messages.MarkRead(ctx, outsider.ID, e.conv.ID())
	assert.True(t, chat_errors.IsAuthorizationDenied(err))
	require.NoError(t, e.db.Model(&message.Message{}).Where("receiver_id = ? AND read = ?", c, false).Count(&unreadForClient).Error)
	assert.Equal(t, int64(1), unreadForClient)
}

// After the receiver reads and acknowledges, the next message escalates again.
func TestSendMessage_NotifierRearmsAfterReadAndSeen(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	c, f := e.conv.ClientUser.ID, e.conv.FreelancerUser.ID

	_, err := e.messages.SendMessage(ctx, c, message.Draft{Text: text("one"), ConversationID: e.conv.ID()})
	require.NoError(t, err)
	notes := notificationsFor(t, e.db, f)
	require.Len(t, notes, 1)

	_, err = e.messages.MarkRead(ctx, f, e.conv.ID())
	require.NoError(t, err)
	require.NoError(t, e.notifications.MarkSeen(ctx, f, notes[0].ID))

	_, err = e.messages.SendMessage(ctx, c, message.Draft{Text: text("two"), ConversationID: e.conv.ID()})
	require.NoError(t, err)
	assert.Len(t, notificationsFor(t, e.db, f), 1)
	assert.Equal(t, 2, e.mail.count())
}

// A broken email channel never costs the message.
func TestSendMessage_NotifierFailureKeepsMessage(t *testing.T) {
	e := newTestEnv(t)
	e.mail.fail = true

	m, err := e.messages.SendMessage(context.Background(), e.conv.ClientUser.ID, message.Draft{Text: text("still here"), ConversationID: e.conv.ID()})
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Equal(t, int64(1), countRows(t, e.db, &message.Message{}))
	assert.Len(t, notificationsFor(t, e.db, e.conv.FreelancerUser.ID), 1)

	var queued []outbox.OutboxEvent
	require.NoError(t, e.db.Where("event_type = ?", outbox.EventNotificationEmail).Find(&queued).Error)
	require.Len(t, queued, 1)
	assert.Equal(t, outbox.StatusPending, queued[0].Status)
}

func TestHistory(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	var ids []uint
	for _, s := range []string{"1", "2", "3"} {
		m, err := e.messages.SendMessage(ctx, e.conv.ClientUser.ID, message.Draft{Text: text(s), ConversationID: e.conv.ID()})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	page, err := e.messages.History(ctx, e.conv.FreelancerUser.ID, e.conv.ID(), ids[2], 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[1], page[0].ID)

	outsider := testutil.SeedUser(t, e.db, "lurker")
	_, err = e.messages.History(ctx, outsider.ID, e.conv.ID(), 0, 10)
	assert.True(t, chat_errors.IsAuthorizationDenied(err))
}

func TestSendMessage_SingleParticipantRejected(t *testing.T) {
	e := newTestEnv(t)
	// a user applying to their own task
	var app application.Application
	require.NoError(t, e.db.First(&app, e.conv.ID()).Error)
	self := user.Freelancer{UserID: e.conv.ClientUser.ID}
	require.NoError(t, e.db.Create(&self).Error)
	require.NoError(t, e.db.Model(&app).Update("freelancer_id", self.ID).Error)

	_, err := e.messages.SendMessage(context.Background(), e.conv.ClientUser.ID, message.Draft{Text: text("me"), ConversationID: e.conv.ID()})
	assert.ErrorIs(t, err, chat_errors.ErrInvalidInput)
}
