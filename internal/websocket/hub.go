package websocket

import (
	"sync"

	"marketplace-chat/internal/services"
)

// Hub tracks the connections of this instance and their conversation rooms.
// It implements services.Rooms and performs local delivery for the
// broadcasters.
type Hub struct {
	mu sync.RWMutex

	clients map[string]*Client
	// rooms maps conversation id to the connections in it.
	rooms map[uint]map[string]*Client
	// joined is the reverse index, used to clean up on unregister.
	joined map[string]map[uint]struct{}

	logger *Logger
}

func NewHub(l *Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[uint]map[string]*Client),
		joined:  make(map[string]map[uint]struct{}),
		logger:  l,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID()] = c
	h.joined[c.ID()] = make(map[uint]struct{})
}

// Unregister removes the client from every room and stops its write pump.
// It reports whether the client was registered.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.ID()]; !ok {
		return false
	}
	for convID := range h.joined[c.ID()] {
		if members, ok := h.rooms[convID]; ok {
			delete(members, c.ID())
			if len(members) == 0 {
				delete(h.rooms, convID)
			}
		}
	}
	delete(h.joined, c.ID())
	delete(h.clients, c.ID())
	c.close()
	return true
}

func (h *Hub) Join(conn services.Connection, conversationID uint) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[conn.ID()]
	if !ok {
		return false
	}
	members, ok := h.rooms[conversationID]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[conversationID] = members
	}
	if _, ok := members[c.ID()]; ok {
		return false
	}
	members[c.ID()] = c
	h.joined[c.ID()][conversationID] = struct{}{}
	return true
}

func (h *Hub) Leave(conn services.Connection, conversationID uint) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[conversationID]
	if !ok {
		return false
	}
	if _, ok := members[conn.ID()]; !ok {
		return false
	}
	delete(members, conn.ID())
	if len(members) == 0 {
		delete(h.rooms, conversationID)
	}
	delete(h.joined[conn.ID()], conversationID)
	return true
}

func (h *Hub) InRoom(connectionID string, conversationID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[conversationID][connectionID]
	return ok
}

// IsMember reports whether any connection of userID on this instance is in
// the conversation room.
func (h *Hub) IsMember(userID, conversationID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[conversationID] {
		if c.UserID() == userID {
			return true
		}
	}
	return false
}

func (h *Hub) UserConnections(userID uint) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var ids []string
	for id, c := range h.clients {
		if c.UserID() == userID {
			ids = append(ids, id)
		}
	}
	return ids
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(conversationID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

func (h *Hub) DeliverToRoom(conversationID uint, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[conversationID] {
		c.enqueue(frame)
	}
}

// DeliverToConnection reports whether the connection lives on this instance.
func (h *Hub) DeliverToConnection(connectionID string, frame []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connectionID]
	if ok {
		c.enqueue(frame)
	}
	return ok
}

func (h *Hub) DeliverToAllExcept(connectionID string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		if id != connectionID {
			c.enqueue(frame)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		c.close()
	}
}
