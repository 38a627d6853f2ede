package broadcast

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Client is a single live connection.
type Client struct {
	ID      uuid.UUID
	UserID  uuid.UUID
	OutChan chan Event
	Cancel  func()

	logger logrus.FieldLogger
}

// NewClient creates a client with a buffered outbound queue.
func NewClient(userID uuid.UUID, buffer int, cancel func(), logger logrus.FieldLogger) *Client {
	if buffer <= 0 {
		buffer = 32
	}
	return &Client{
		ID:      uuid.New(),
		UserID:  userID,
		OutChan: make(chan Event, buffer),
		Cancel:  cancel,
		logger:  logger,
	}
}

// Write pushes an event onto OutChan without blocking. A full queue drops
// the event; the write pump is either dead or far behind.
func (c *Client) Write(ev Event) {
	select {
	case c.OutChan <- ev:
	default:
		if c.logger != nil {
			c.logger.WithFields(logrus.Fields{
				"conn":  c.ID,
				"user":  c.UserID,
				"event": ev.Type,
			}).Warn("outbound queue full, dropped event")
		}
	}
}

// Hub tracks clients and the rooms and groups they belong to.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
	topics  map[string]map[uuid.UUID]struct{}
	logger  logrus.FieldLogger
}

var _ Broadcaster = (*Hub)(nil)

func NewHub(logger logrus.FieldLogger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]*Client),
		topics:  make(map[string]map[uuid.UUID]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// Unregister drops the client from every room and group.
func (h *Hub) Unregister(connID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connID)
	for topic, members := range h.topics {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Client returns a registered client.
func (h *Hub) Client(connID uuid.UUID) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	return c, ok
}

func roomTopic(code string) string {
	return "room:" + code
}

func (h *Hub) join(connID uuid.UUID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.topics[topic]
	if !ok {
		members = make(map[uuid.UUID]struct{})
		h.topics[topic] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) leave(connID uuid.UUID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.topics[topic]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.topics, topic)
		}
	}
}

func (h *Hub) JoinRoom(connID uuid.UUID, roomCode string)  { h.join(connID, roomTopic(roomCode)) }
func (h *Hub) LeaveRoom(connID uuid.UUID, roomCode string) { h.leave(connID, roomTopic(roomCode)) }
func (h *Hub) JoinGroup(connID uuid.UUID, group string)    { h.join(connID, group) }

func (h *Hub) EmitTo(connID uuid.UUID, event string, payload interface{}) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		h.logger.WithFields(logrus.Fields{"conn": connID, "event": event}).Debug("emit to unknown connection")
		return
	}
	c.Write(Event{Type: event, Payload: payload})
}

func (h *Hub) EmitToRoom(roomCode string, event string, payload interface{}) {
	h.emitTopic(roomTopic(roomCode), event, payload)
}

func (h *Hub) EmitToGroup(group string, event string, payload interface{}) {
	h.emitTopic(group, event, payload)
}

func (h *Hub) emitTopic(topic, event string, payload interface{}) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.topics[topic]))
	for id := range h.topics[topic] {
		if c, ok := h.clients[id]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	ev := Event{Type: event, Payload: payload}
	for _, c := range targets {
		c.Write(ev)
	}
}
