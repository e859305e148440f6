package game

import (
	"sync"
	"time"

	"github.com/scythe504/sketchoff-backend/internal"
	"github.com/scythe504/sketchoff-backend/internal/common/clock"
)

// =============================================================================
// ROOM REGISTRY
// =============================================================================

// Registry owns the live rooms of the process.
//
// Lock order: a room's Mu may be held while calling into the registry, never
// the other way round. Methods that inspect rooms snapshot the map first and
// lock rooms one at a time after releasing it.
type Registry interface {
	GetOrCreate(code string) *internal.Room
	Get(code string) (*internal.Room, bool)
	Delete(code string)
	Joinable() (string, bool)
	Len() int
	EvictIdle(now time.Time, ttl time.Duration) []EvictedRoom
}

type EvictedRoom struct {
	Code      string
	PlayerIDs []string
}

type MemoryRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*internal.Room
	clock clock.Clock
}

func NewRegistry(clk clock.Clock) *MemoryRegistry {
	if clk == nil {
		clk = clock.New()
	}
	return &MemoryRegistry{
		rooms: make(map[string]*internal.Room),
		clock: clk,
	}
}

// GetOrCreate retrieves the room for code, creating a waiting room on first use.
func (r *MemoryRegistry) GetOrCreate(code string) *internal.Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, exists := r.rooms[code]; exists {
		return room
	}

	room := internal.NewRoom(code, r.clock.Now())
	r.rooms[code] = room
	return room
}

func (r *MemoryRegistry) Get(code string) (*internal.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	return room, ok
}

func (r *MemoryRegistry) Delete(code string) {
	r.mu.Lock()
	delete(r.rooms, code)
	r.mu.Unlock()
}

func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *MemoryRegistry) snapshot() []*internal.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rooms := make([]*internal.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// Joinable returns the code of a waiting room with a free seat.
func (r *MemoryRegistry) Joinable() (string, bool) {
	for _, room := range r.snapshot() {
		room.Mu.Lock()
		ok := !room.Closed &&
			room.State == internal.StateWaiting &&
			len(room.Players) > 0 &&
			len(room.Players) < internal.MaxPlayersPerRoom
		code := room.Code
		room.Mu.Unlock()

		if ok {
			return code, true
		}
	}
	return "", false
}

// EvictIdle closes and removes waiting rooms whose last activity is older
// than ttl. Rooms in play are never evicted.
func (r *MemoryRegistry) EvictIdle(now time.Time, ttl time.Duration) []EvictedRoom {
	var evicted []EvictedRoom
	for _, room := range r.snapshot() {
		room.Mu.Lock()
		if !room.Closed && room.State == internal.StateWaiting && now.Sub(room.LastActivity) > ttl {
			room.Closed = true
			r.Delete(room.Code)
			evicted = append(evicted, EvictedRoom{Code: room.Code, PlayerIDs: room.PlayerIDs()})
		}
		room.Mu.Unlock()
	}
	return evicted
}
