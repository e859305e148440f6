package game

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/scythe504/sketchoff-backend/internal"
	"github.com/scythe504/sketchoff-backend/internal/common/clock"
	"github.com/scythe504/sketchoff-backend/internal/scoring"
	"github.com/scythe504/sketchoff-backend/internal/utils"
)

// ResultArchive records finished games. It is optional.
type ResultArchive interface {
	SaveResult(ctx context.Context, result *internal.GameResult) error
}

type Config struct {
	Registry    Registry
	Scorer      scoring.Scorer
	Broadcaster Broadcaster
	Archive     ResultArchive
	Clock       clock.Clock
	Logger      *zap.Logger

	MaxPlayers      int
	TotalRounds     int
	TimeLimit       int // seconds
	TickInterval    time.Duration
	InterRoundDelay time.Duration
	IdleTTL         time.Duration
	SweepInterval   time.Duration
	ArchiveTimeout  time.Duration
	Topics          []string
}

// Service is the room state machine. All room mutation happens under the
// room's own mutex; rooms never share locks.
type Service struct {
	registry    Registry
	scorer      scoring.Scorer
	broadcaster Broadcaster
	archive     ResultArchive
	clock       clock.Clock
	logger      *zap.Logger

	maxPlayers      int
	totalRounds     int
	timeLimit       int
	tickInterval    time.Duration
	interRoundDelay time.Duration
	idleTTL         time.Duration
	sweepInterval   time.Duration
	archiveTimeout  time.Duration
	topics          []string
}

func New(cfg *Config) (*Service, error) {
	if cfg == nil {
		return nil, ErrInvalidInput
	}
	if cfg.Registry == nil {
		return nil, ErrMissingRegistry
	}
	if cfg.Scorer == nil {
		return nil, ErrMissingScorer
	}
	if cfg.Broadcaster == nil {
		return nil, ErrMissingBroadcaster
	}

	s := &Service{
		registry:        cfg.Registry,
		scorer:          cfg.Scorer,
		broadcaster:     cfg.Broadcaster,
		archive:         cfg.Archive,
		clock:           cfg.Clock,
		logger:          cfg.Logger,
		maxPlayers:      orDefault(cfg.MaxPlayers, internal.MaxPlayersPerRoom),
		totalRounds:     orDefault(cfg.TotalRounds, internal.TotalRounds),
		timeLimit:       orDefault(cfg.TimeLimit, internal.RoundTimeLimit),
		tickInterval:    orDefault(cfg.TickInterval, internal.TimerTickInterval),
		interRoundDelay: orDefault(cfg.InterRoundDelay, internal.InterRoundDelay),
		idleTTL:         orDefault(cfg.IdleTTL, 10*time.Minute),
		sweepInterval:   orDefault(cfg.SweepInterval, time.Minute),
		archiveTimeout:  orDefault(cfg.ArchiveTimeout, 5*time.Second),
		topics:          cfg.Topics,
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.logger == nil {
		s.logger = zap.L()
	}
	s.logger = s.logger.Named("game")
	if len(s.topics) == 0 {
		s.topics = utils.Topics
	}
	return s, nil
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// Run sweeps idle rooms until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.SweepIdle()
		}
	}
}

// SweepIdle evicts waiting rooms that saw no activity for the idle TTL and
// tells their players.
func (s *Service) SweepIdle() int {
	evicted := s.registry.EvictIdle(s.clock.Now(), s.idleTTL)
	for _, room := range evicted {
		for _, id := range room.PlayerIDs {
			s.sendError(id, internal.ErrMsgRoomExpired)
		}
		s.broadcaster.ReleaseRoom(room.Code, room.PlayerIDs)
		s.logger.Info("evicted idle room",
			zap.String("room", room.Code),
			zap.Int("players", len(room.PlayerIDs)))
	}
	return len(evicted)
}

// JoinableRoom returns a waiting room with free seats, if any.
func (s *Service) JoinableRoom() (string, bool) {
	return s.registry.Joinable()
}

func (s *Service) RoomCount() int {
	return s.registry.Len()
}
