package game

import (
	"context"

	"go.uber.org/zap"

	"github.com/scythe504/sketchoff-backend/internal"
)

// =============================================================================
// DRAWING SUBMISSIONS
// =============================================================================

type SubmitInput struct {
	RoomCode     string
	ConnectionID string
	Image        string
}

type SubmitOutput struct {
	Accepted   bool
	Points     int
	Total      int
	RoundEnded bool
}

// Submit scores a drawing for the caller's live round. Submissions for
// unknown rooms, rooms not drawing, non-members, or players who already
// submitted this round are ignored. Scoring runs without the room lock; a
// result that arrives after its round closed is discarded.
func (s *Service) Submit(ctx context.Context, input *SubmitInput) (*SubmitOutput, error) {
	if input == nil {
		return nil, ErrInvalidInput
	}
	ignored := &SubmitOutput{}

	room, ok := s.registry.Get(input.RoomCode)
	if !ok {
		s.logger.Debug("submission for unknown room", zap.String("room", input.RoomCode))
		return ignored, nil
	}

	room.Mu.Lock()
	if room.Closed || room.State != internal.StateDrawing || room.LiveRound == 0 {
		room.Mu.Unlock()
		return ignored, nil
	}
	player := room.FindPlayer(input.ConnectionID)
	if player == nil || !player.IsConnected || player.HasSubmitted || player.PendingRound == room.LiveRound {
		room.Mu.Unlock()
		return ignored, nil
	}
	round, topic := room.LiveRound, room.Topic
	player.PendingRound = round
	room.LastActivity = s.clock.Now()
	room.Mu.Unlock()

	points := s.scorer.Score(ctx, topic, input.Image)

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if player.PendingRound == round {
		player.PendingRound = 0
	}
	if room.Closed || room.LiveRound != round {
		s.logger.Debug("late score discarded",
			zap.String("room", room.Code),
			zap.String("player", player.Id),
			zap.Int("round", round))
		return ignored, nil
	}

	player.Score += points
	player.HasSubmitted = true
	room.Submissions++

	s.broadcaster.SendToConnection(player.Id, newMessage(internal.EventDrawingRated, internal.DrawingRatedData{
		Points: points,
		Total:  player.Score,
	}))

	s.logger.Info("drawing rated",
		zap.String("room", room.Code),
		zap.String("player", player.Id),
		zap.Int("round", round),
		zap.Int("points", points),
		zap.Int("submissions", room.Submissions))

	out := &SubmitOutput{Accepted: true, Points: points, Total: player.Score}
	if room.AllSubmitted() {
		out.RoundEnded = s.endRoundLocked(room, round)
	}
	return out, nil
}
