// Package broadcast fans events out to connected clients.
package broadcast

import "github.com/google/uuid"

// Event is the envelope written to every client.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Broadcaster is the fan-out port used by the room registry and match engine.
// Emits never block the caller.
type Broadcaster interface {
	EmitTo(connID uuid.UUID, event string, payload interface{})
	EmitToRoom(roomCode string, event string, payload interface{})
	EmitToGroup(group string, event string, payload interface{})

	// JoinRoom and LeaveRoom bind a connection to a room's audience.
	JoinRoom(connID uuid.UUID, roomCode string)
	LeaveRoom(connID uuid.UUID, roomCode string)
	// JoinGroup binds a connection to an arbitrary group such as spectators.
	JoinGroup(connID uuid.UUID, group string)
}

// ViewerGroup names the spectator group of a room.
func ViewerGroup(roomCode string) string {
	return "room-" + roomCode + "-viewers"
}
