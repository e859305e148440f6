package game

import (
	"context"

	"go.uber.org/zap"

	"github.com/scythe504/sketchoff-backend/internal"
)

// =============================================================================
// LOBBY MANAGEMENT
// =============================================================================

type JoinInput struct {
	RoomCode     string
	PlayerName   string
	ConnectionID string
}

type JoinOutput struct {
	RoomCode    string
	PlayerCount int
	// Started is true when this join filled the room and round 1 began.
	Started bool
}

type DisconnectInput struct {
	RoomCode     string
	ConnectionID string
}

// Join seats a connection in a room, creating the room on first use. A full
// room or a game in progress rejects the join with an errorMsg to the caller
// only. The join that fills the room starts round 1.
func (s *Service) Join(ctx context.Context, input *JoinInput) (*JoinOutput, error) {
	if input == nil || input.RoomCode == "" || input.ConnectionID == "" {
		return nil, ErrInvalidInput
	}

	room := s.lockOpenRoom(input.RoomCode)
	defer room.Mu.Unlock()

	log := s.logger.With(zap.String("room", room.Code), zap.String("player", input.ConnectionID))

	// capacity is checked before state
	if len(room.Players) >= s.maxPlayers {
		log.Info("join rejected, room full")
		s.sendError(input.ConnectionID, internal.ErrMsgRoomFull)
		return nil, ErrRoomFull
	}
	if room.State != internal.StateWaiting {
		log.Info("join rejected, game in progress", zap.Int("round", room.Round))
		s.sendError(input.ConnectionID, internal.ErrMsgGameInProgress)
		return nil, ErrGameInProgress
	}
	if room.FindPlayer(input.ConnectionID) != nil {
		s.sendError(input.ConnectionID, internal.ErrMsgAlreadyJoined)
		return nil, ErrAlreadyJoined
	}

	now := s.clock.Now()
	room.Players = append(room.Players, internal.NewPlayer(input.ConnectionID, input.PlayerName, now))
	room.LastActivity = now

	s.broadcaster.Subscribe(room.Code, input.ConnectionID)
	s.broadcastPlayerList(room)

	log.Info("player joined", zap.String("name", input.PlayerName), zap.Int("players", len(room.Players)))

	out := &JoinOutput{RoomCode: room.Code, PlayerCount: len(room.Players)}
	if len(room.Players) == s.maxPlayers {
		room.State = internal.StateDrawing
		room.Round = 1
		room.StartedAt = now
		log.Info("room full, starting game")
		s.beginRoundLocked(room)
		out.Started = true
	}
	return out, nil
}

// lockOpenRoom returns the registered room for code with its lock held. A room
// closed between lookup and lock has already left the registry, so retrying
// yields a fresh room.
func (s *Service) lockOpenRoom(code string) *internal.Room {
	for {
		room := s.registry.GetOrCreate(code)
		room.Mu.Lock()
		if !room.Closed {
			return room
		}
		room.Mu.Unlock()
	}
}

// Disconnect applies the departure of a connection to its room.
//
// While waiting the seat is freed and an emptied room is deleted. While
// drawing the player keeps seat and score but stops counting towards round
// completion; a room with nobody connected is torn down.
func (s *Service) Disconnect(ctx context.Context, input *DisconnectInput) {
	if input == nil || input.RoomCode == "" {
		return
	}
	room, ok := s.registry.Get(input.RoomCode)
	if !ok {
		return
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.Closed {
		return
	}
	player := room.FindPlayer(input.ConnectionID)
	if player == nil {
		return
	}

	log := s.logger.With(zap.String("room", room.Code), zap.String("player", player.Id))

	switch room.State {
	case internal.StateWaiting:
		room.RemovePlayer(player.Id)
		room.LastActivity = s.clock.Now()
		if len(room.Players) == 0 {
			log.Info("last player left, deleting room")
			s.closeRoomLocked(room)
			return
		}
		log.Info("player left lobby", zap.Int("players", len(room.Players)))
		s.broadcastPlayerList(room)

	case internal.StateDrawing:
		player.IsConnected = false
		if room.ConnectedCount() == 0 {
			log.Info("all players disconnected, tearing down room", zap.Int("round", room.Round))
			s.closeRoomLocked(room)
			return
		}
		log.Info("player disconnected mid-game", zap.Int("connected", room.ConnectedCount()))
		if room.LiveRound != 0 && room.AllSubmitted() {
			s.endRoundLocked(room, room.LiveRound)
		}
	}
}

// closeRoomLocked removes the room from play: timer retired, registry entry
// deleted, connections released.
func (s *Service) closeRoomLocked(room *internal.Room) {
	s.cancelRoundTimerLocked(room)
	room.LiveRound = 0
	room.Closed = true
	s.registry.Delete(room.Code)
	s.broadcaster.ReleaseRoom(room.Code, room.PlayerIDs())
}
