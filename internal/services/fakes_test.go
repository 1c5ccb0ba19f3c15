package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"marketplace-chat/internal/mailer"
	"marketplace-chat/internal/repository"
	"marketplace-chat/internal/testutil"
	"marketplace-chat/pkg/logger"

	"gorm.io/gorm"
)

type emitted struct {
	Target string
	Event  string
	Data   interface{}
}

type fakeConn struct {
	id     string
	userID uint

	mu     sync.Mutex
	events []emitted
}

func newFakeConn(id string, userID uint) *fakeConn {
	return &fakeConn{id: id, userID: userID}
}

func (c *fakeConn) ID() string   { return c.id }
func (c *fakeConn) UserID() uint { return c.userID }
func (c *fakeConn) Emit(event string, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, emitted{Target: c.id, Event: event, Data: data})
}

func (c *fakeConn) received(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	sent []emitted
}

func (b *fakeBroadcaster) record(target, event string, data interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, emitted{Target: target, Event: event, Data: data})
}

func (b *fakeBroadcaster) ToRoom(_ context.Context, conversationID uint, event string, data interface{}) {
	b.record(roomTarget(conversationID), event, data)
}

func (b *fakeBroadcaster) ToConnection(_ context.Context, connectionID string, event string, data interface{}) {
	b.record(connTarget(connectionID), event, data)
}

func (b *fakeBroadcaster) ToAllExcept(_ context.Context, connectionID string, event string, data interface{}) {
	b.record("all-except:"+connectionID, event, data)
}

func (b *fakeBroadcaster) count(target, event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.sent {
		if e.Target == target && e.Event == event {
			n++
		}
	}
	return n
}

func (b *fakeBroadcaster) countEvent(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.sent {
		if e.Event == event {
			n++
		}
	}
	return n
}

func (b *fakeBroadcaster) last(event string) (emitted, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.sent) - 1; i >= 0; i-- {
		if b.sent[i].Event == event {
			return b.sent[i], true
		}
	}
	return emitted{}, false
}

func roomTarget(id uint) string   { return fmt.Sprintf("room:%d", id) }
func connTarget(id string) string { return "conn:" + id }

// fakeRooms mirrors the hub's bookkeeping without a transport.
type fakeRooms struct {
	mu      sync.Mutex
	users   map[string]uint
	members map[uint]map[string]struct{}
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{users: make(map[string]uint), members: make(map[uint]map[string]struct{})}
}

func (r *fakeRooms) attach(c Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[c.ID()] = c.UserID()
}

func (r *fakeRooms) detach(c Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, c.ID())
	for _, set := range r.members {
		delete(set, c.ID())
	}
}

func (r *fakeRooms) Join(c Connection, conversationID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[c.ID()] = c.UserID()
	set, ok := r.members[conversationID]
	if !ok {
		set = make(map[string]struct{})
		r.members[conversationID] = set
	}
	if _, ok := set[c.ID()]; ok {
		return false
	}
	set[c.ID()] = struct{}{}
	return true
}

func (r *fakeRooms) Leave(c Connection, conversationID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.members[conversationID]
	if _, ok := set[c.ID()]; !ok {
		return false
	}
	delete(set, c.ID())
	return true
}

func (r *fakeRooms) InRoom(connectionID string, conversationID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[conversationID][connectionID]
	return ok
}

func (r *fakeRooms) IsMember(userID, conversationID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for connID := range r.members[conversationID] {
		if r.users[connID] == userID {
			return true
		}
	}
	return false
}

func (r *fakeRooms) UserConnections(userID uint) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for connID, uid := range r.users {
		if uid == userID {
			ids = append(ids, connID)
		}
	}
	return ids
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Email
	fail bool
}

func (m *fakeMailer) Send(_ context.Context, email mailer.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, email)
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// testEnv wires the real services over a SQLite database and fake transport.
type testEnv struct {
	db    *gorm.DB
	conv  testutil.Conversation
	rooms *fakeRooms
	bc    *fakeBroadcaster
	mail  *fakeMailer

	presenceRepo repository.PresenceRepository

	presence      *PresenceService
	conversations *ConversationService
	messages      *MessageService
	policy        *DeliveryPolicy
	notifier      *Notifier
	notifications *NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	e := &testEnv{
		db:    db,
		conv:  testutil.SeedConversation(t, db, "Mobile app"),
		rooms: newFakeRooms(),
		bc:    &fakeBroadcaster{},
		mail:  &fakeMailer{},
	}
	l := logger.NewNop()

	apps := repository.NewApplicationRepository(db)
	msgs := repository.NewMessageRepository(db)
	notes := repository.NewNotificationRepository(db)
	e.presenceRepo = repository.NewPresenceRepository(db)

	e.notifier = NewNotifier(notes, e.presenceRepo, repository.NewUserRepository(db), repository.NewOutboxRepository(db), e.bc, e.mail, l)
	e.policy = NewDeliveryPolicy(apps, e.presenceRepo, msgs, e.rooms, e.bc, e.notifier, l)
	e.presence = NewPresenceService(e.presenceRepo, e.rooms, e.bc, l)
	e.conversations = NewConversationService(apps, e.rooms, e.bc, l)
	e.messages = NewMessageService(db, apps, msgs, e.bc, e.policy, l)
	e.notifications = NewNotificationService(notes)
	return e
}

// connect authenticates a fake connection the way the transport does.
func (e *testEnv) connect(t *testing.T, id string, userID uint) *fakeConn {
	t.Helper()
	c := newFakeConn(id, userID)
	e.rooms.attach(c)
	if err := e.presence.Connect(context.Background(), c); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return c
}

func (e *testEnv) disconnect(t *testing.T, c *fakeConn) {
	t.Helper()
	e.rooms.detach(c)
	if err := e.presence.Disconnect(context.Background(), c); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
}
