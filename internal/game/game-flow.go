package game

import (
	"go.uber.org/zap"

	"github.com/scythe504/sketchoff-backend/internal"
	"github.com/scythe504/sketchoff-backend/internal/utils"
)

// =============================================================================
// ROUND FLOW
// =============================================================================

// beginRoundLocked opens room.Round: resets submissions, picks a topic,
// announces it and starts the countdown. Any previous timer is retired first.
func (s *Service) beginRoundLocked(room *internal.Room) {
	s.cancelRoundTimerLocked(room)

	room.ResetRoundState()
	room.Topic = utils.RandomTopic(s.topics)
	room.LiveRound = room.Round
	room.LastActivity = s.clock.Now()

	s.broadcaster.BroadcastToRoom(room.Code, newMessage(internal.EventNewRound, internal.NewRoundData{
		Round:       room.Round,
		TotalRounds: s.totalRounds,
		Topic:       room.Topic,
		TimeLimit:   s.timeLimit,
	}))

	s.logger.Info("round started",
		zap.String("room", room.Code),
		zap.Int("round", room.Round),
		zap.String("topic", room.Topic))

	s.startRoundTimerLocked(room, room.Round)
}

// startRound is the delayed start of the given round. It does nothing if the
// room was closed or has moved on since it was scheduled.
func (s *Service) startRound(room *internal.Room, round int) {
	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.Closed || room.State != internal.StateDrawing || room.Round != round || room.LiveRound != 0 {
		s.logger.Debug("stale round start ignored",
			zap.String("room", room.Code),
			zap.Int("round", round))
		return
	}
	s.beginRoundLocked(room)
}

// endRound closes round on room. Only the first caller for a given live round
// has any effect; later or stale callers are no-ops.
func (s *Service) endRound(room *internal.Room, round int) bool {
	room.Mu.Lock()
	defer room.Mu.Unlock()
	return s.endRoundLocked(room, round)
}

func (s *Service) endRoundLocked(room *internal.Room, round int) bool {
	if room.Closed || room.LiveRound == 0 || room.LiveRound != round {
		return false
	}

	room.LiveRound = 0
	s.cancelRoundTimerLocked(room)

	board := room.RankPlayers()
	s.broadcaster.BroadcastToRoom(room.Code, newMessage(internal.EventRoundEnded, board))

	s.logger.Info("round ended",
		zap.String("room", room.Code),
		zap.Int("round", round),
		zap.Int("submissions", room.Submissions))

	if room.Round >= s.totalRounds {
		s.finishGameLocked(room, board)
		return true
	}

	room.Round++
	next := room.Round
	s.clock.AfterFunc(s.interRoundDelay, func() {
		s.startRound(room, next)
	})
	return true
}
