// Package broadcasttest provides a Broadcaster that records emits for tests.
package broadcasttest

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/broadcast"
)

// Scope says where an emit was addressed.
type Scope string

const (
	ScopeConn  Scope = "conn"
	ScopeRoom  Scope = "room"
	ScopeGroup Scope = "group"
)

// Emit is one recorded call.
type Emit struct {
	Scope   Scope
	Target  string
	Event   string
	Payload interface{}
}

// Recorder collects events instead of sending them over a socket.
type Recorder struct {
	mu      sync.Mutex
	emits   []Emit
	members map[string]map[uuid.UUID]bool
}

var _ broadcast.Broadcaster = (*Recorder)(nil)

func New() *Recorder {
	return &Recorder{members: make(map[string]map[uuid.UUID]bool)}
}

func (r *Recorder) record(e Emit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emits = append(r.emits, e)
}

func (r *Recorder) EmitTo(connID uuid.UUID, event string, payload interface{}) {
	r.record(Emit{Scope: ScopeConn, Target: connID.String(), Event: event, Payload: payload})
}

func (r *Recorder) EmitToRoom(roomCode string, event string, payload interface{}) {
	r.record(Emit{Scope: ScopeRoom, Target: roomCode, Event: event, Payload: payload})
}

func (r *Recorder) EmitToGroup(group string, event string, payload interface{}) {
	r.record(Emit{Scope: ScopeGroup, Target: group, Event: event, Payload: payload})
}

func (r *Recorder) join(topic string, connID uuid.UUID, in bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[topic] == nil {
		r.members[topic] = make(map[uuid.UUID]bool)
	}
	if in {
		r.members[topic][connID] = true
	} else {
		delete(r.members[topic], connID)
	}
}

func (r *Recorder) JoinRoom(connID uuid.UUID, roomCode string)  { r.join("room:"+roomCode, connID, true) }
func (r *Recorder) LeaveRoom(connID uuid.UUID, roomCode string) { r.join("room:"+roomCode, connID, false) }
func (r *Recorder) JoinGroup(connID uuid.UUID, group string)    { r.join(group, connID, true) }

// InRoom reports whether connID currently receives the room's events.
func (r *Recorder) InRoom(connID uuid.UUID, roomCode string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members["room:"+roomCode][connID]
}

// InGroup reports whether connID belongs to group.
func (r *Recorder) InGroup(connID uuid.UUID, group string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members[group][connID]
}

// All returns a copy of every recorded emit.
func (r *Recorder) All() []Emit {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Emit, len(r.emits))
	copy(out, r.emits)
	return out
}

// Named returns every emit of the given event, in order.
func (r *Recorder) Named(event string) []Emit {
	var out []Emit
	for _, e := range r.All() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many times event was emitted.
func (r *Recorder) Count(event string) int {
	return len(r.Named(event))
}

// Last returns the most recent emit of event.
func (r *Recorder) Last(event string) (Emit, bool) {
	named := r.Named(event)
	if len(named) == 0 {
		return Emit{}, false
	}
	return named[len(named)-1], true
}

// Clear forgets recorded emits but keeps memberships.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emits = nil
}
