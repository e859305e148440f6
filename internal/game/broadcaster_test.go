package game

import (
	"slices"
	"sync"

	"github.com/scythe504/sketchoff-backend/internal"
)

type sentEvent struct {
	Room string
	Conn string
	Msg  internal.Message[any]
}

// recordingBroadcaster keeps every event in call order.
type recordingBroadcaster struct {
	mu         sync.Mutex
	subscribed map[string][]string
	released   map[string][]string
	room       []sentEvent
	direct     []sentEvent
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{
		subscribed: map[string][]string{},
		released:   map[string][]string{},
	}
}

func (b *recordingBroadcaster) Subscribe(roomCode, connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribed[roomCode] = append(b.subscribed[roomCode], connID)
}

func (b *recordingBroadcaster) BroadcastToRoom(roomCode string, msg internal.Message[any]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.room = append(b.room, sentEvent{Room: roomCode, Msg: msg})
}

func (b *recordingBroadcaster) SendToConnection(connID string, msg internal.Message[any]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.direct = append(b.direct, sentEvent{Conn: connID, Msg: msg})
}

func (b *recordingBroadcaster) ReleaseRoom(roomCode string, connIDs []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.released[roomCode] = append(b.released[roomCode], connIDs...)
}

func (b *recordingBroadcaster) roomEvents(roomCode, eventType string) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []any
	for _, e := range b.room {
		if e.Room == roomCode && e.Msg.Type == eventType {
			out = append(out, e.Msg.Data)
		}
	}
	return out
}

func (b *recordingBroadcaster) roomEventTypes(roomCode string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.room {
		if e.Room == roomCode {
			out = append(out, e.Msg.Type)
		}
	}
	return out
}

func (b *recordingBroadcaster) directEvents(connID, eventType string) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []any
	for _, e := range b.direct {
		if e.Conn == connID && e.Msg.Type == eventType {
			out = append(out, e.Msg.Data)
		}
	}
	return out
}

func (b *recordingBroadcaster) releasedFrom(roomCode string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.released[roomCode])
}

func (b *recordingBroadcaster) subscribers(roomCode string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.subscribed[roomCode])
}
