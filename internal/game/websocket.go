package game

import (
	"github.com/scythe504/sketchoff-backend/internal"
)

// =============================================================================
// OUTBOUND EVENTS
// =============================================================================

// Broadcaster delivers events to connections. Implementations must not block
// on the network: the service calls it while holding a room lock so that the
// order of events in a room matches the order of its mutations.
type Broadcaster interface {
	// Subscribe adds a connection to a room's fan-out group.
	Subscribe(roomCode, connID string)
	BroadcastToRoom(roomCode string, msg internal.Message[any])
	SendToConnection(connID string, msg internal.Message[any])
	// ReleaseRoom detaches the given connections from the room once every
	// event broadcast before the call has been delivered.
	ReleaseRoom(roomCode string, connIDs []string)
}

func newMessage(eventType string, data any) internal.Message[any] {
	return internal.Message[any]{Type: eventType, Data: data}
}

func (s *Service) sendError(connID, text string) {
	s.broadcaster.SendToConnection(connID, newMessage(internal.EventErrorMsg, text))
}

func (s *Service) broadcastPlayerList(room *internal.Room) {
	s.broadcaster.BroadcastToRoom(room.Code, newMessage(internal.EventUpdatePlayerList, room.PublicPlayers()))
}
