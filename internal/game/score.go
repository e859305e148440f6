package game

import (
	"context"

	"go.uber.org/zap"

	"github.com/scythe504/sketchoff-backend/internal"
)

// =============================================================================
// GAME END
// =============================================================================

// finishGameLocked announces the winner and deletes the room. board is the
// final leaderboard, already sorted.
func (s *Service) finishGameLocked(room *internal.Room, board []internal.PlayerView) {
	if len(board) == 0 {
		s.closeRoomLocked(room)
		return
	}
	winner := board[0]
	s.broadcaster.BroadcastToRoom(room.Code, newMessage(internal.EventGameOver, winner))

	result := &internal.GameResult{
		RoomCode:   room.Code,
		Winner:     winner,
		Standings:  board,
		Rounds:     room.Round,
		StartedAt:  room.StartedAt,
		FinishedAt: s.clock.Now(),
	}

	s.closeRoomLocked(room)

	s.logger.Info("game over",
		zap.String("room", room.Code),
		zap.String("winner", winner.Id),
		zap.Int("score", winner.Score))

	s.archiveResult(result)
}

func (s *Service) archiveResult(result *internal.GameResult) {
	if s.archive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.archiveTimeout)
		defer cancel()
		if err := s.archive.SaveResult(ctx, result); err != nil {
			s.logger.Error("failed to archive game result",
				zap.String("room", result.RoomCode),
				zap.Error(err))
		}
	}()
}
