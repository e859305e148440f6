package game

import (
	"context"

	"go.uber.org/zap"

	"github.com/scythe504/sketchoff-backend/internal"
	"github.com/scythe504/sketchoff-backend/internal/common/clock"
)

// =============================================================================
// TIMER MANAGEMENT
// =============================================================================

// startRoundTimerLocked starts the countdown for round. The ticker is created
// here, under the room lock, so the timer exists before Join or startRound
// returns.
func (s *Service) startRoundTimerLocked(room *internal.Room, round int) {
	ctx, cancel := context.WithCancel(context.Background())
	ticker := s.clock.NewTicker(s.tickInterval)

	room.Timer = &internal.RoundTimer{
		Round:     round,
		StartTime: s.clock.Now(),
		Context:   ctx,
		Cancel:    cancel,
	}

	go s.runRoundTimer(ctx, room, round, ticker)
}

func (s *Service) runRoundTimer(ctx context.Context, room *internal.Room, round int, ticker clock.Ticker) {
	defer ticker.Stop()

	timeLeft := s.timeLimit
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}
		if s.tickRound(room, round, &timeLeft) {
			return
		}
	}
}

// tickRound broadcasts the remaining seconds and reports whether the timer is
// done. The countdown runs from timeLimit down to 0 inclusive; when it drops
// below zero with submissions outstanding the round is ended.
func (s *Service) tickRound(room *internal.Room, round int, timeLeft *int) bool {
	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.Closed || room.LiveRound != round {
		return true
	}

	s.broadcaster.BroadcastToRoom(room.Code, newMessage(internal.EventTimerUpdate, *timeLeft))
	*timeLeft--

	allIn := room.AllSubmitted()
	if *timeLeft >= 0 && !allIn {
		return false
	}
	if !allIn {
		s.logger.Info("round time expired",
			zap.String("room", room.Code),
			zap.Int("round", round),
			zap.Int("submissions", room.Submissions))
		s.endRoundLocked(room, round)
	}
	return true
}

// cancelRoundTimerLocked retires the room's current timer, if any.
func (s *Service) cancelRoundTimerLocked(room *internal.Room) {
	if room.Timer == nil {
		return
	}
	if room.Timer.Cancel != nil {
		room.Timer.Cancel()
	}
	room.Timer = nil
}
