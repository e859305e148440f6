package game

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/scythe504/sketchoff-backend/internal"
	"github.com/scythe504/sketchoff-backend/internal/common/clock"
	"github.com/scythe504/sketchoff-backend/internal/scoring"
	"github.com/scythe504/sketchoff-backend/internal/scoring/mocks"
	"github.com/scythe504/sketchoff-backend/internal/utils"
)

type fakeArchive struct {
	saved chan *internal.GameResult
}

func (f *fakeArchive) SaveResult(ctx context.Context, result *internal.GameResult) error {
	f.saved <- result
	return nil
}

type ServiceTestSuite struct {
	suite.Suite
	mockCtrl   *gomock.Controller
	mockScorer *mocks.MockScorer
	clock      *clock.Fake
	registry   *MemoryRegistry
	bus        *recordingBroadcaster
	archive    *fakeArchive
	service    *Service
	ctx        context.Context

	testNow  time.Time
	roomCode string
}

func (s *ServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockScorer = mocks.NewMockScorer(s.mockCtrl)
	s.testNow = time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
	s.clock = clock.NewFake(s.testNow)
	s.registry = NewRegistry(s.clock)
	s.bus = newRecordingBroadcaster()
	s.archive = &fakeArchive{saved: make(chan *internal.GameResult, 4)}
	s.ctx = context.Background()
	s.roomCode = "ABCD"
	s.service = s.newService(nil)
}

func (s *ServiceTestSuite) TearDownTest() {
	for _, room := range s.registry.snapshot() {
		room.Mu.Lock()
		s.service.cancelRoundTimerLocked(room)
		room.Mu.Unlock()
	}
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) newService(mutate func(cfg *Config)) *Service {
	cfg := &Config{
		Registry:    s.registry,
		Scorer:      s.mockScorer,
		Broadcaster: s.bus,
		Archive:     s.archive,
		Clock:       s.clock,
		Logger:      zap.NewNop(),
	}
	if mutate != nil {
		mutate(cfg)
	}
	svc, err := New(cfg)
	s.Require().NoError(err)
	return svc
}

func (s *ServiceTestSuite) joinPlayers(code string, ids ...string) {
	for _, id := range ids {
		_, err := s.service.Join(s.ctx, &JoinInput{RoomCode: code, PlayerName: "Player " + id, ConnectionID: id})
		s.Require().NoError(err)
	}
}

func fivePlayers() []string {
	return []string{"p1", "p2", "p3", "p4", "p5"}
}

type roomSnapshot struct {
	state       internal.RoomState
	round       int
	liveRound   int
	submissions int
	players     int
}

func (s *ServiceTestSuite) snapshot(code string) (roomSnapshot, bool) {
	room, ok := s.registry.Get(code)
	if !ok {
		return roomSnapshot{}, false
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	return roomSnapshot{
		state:       room.State,
		round:       room.Round,
		liveRound:   room.LiveRound,
		submissions: room.Submissions,
		players:     len(room.Players),
	}, true
}

func (s *ServiceTestSuite) submit(id, image string) *SubmitOutput {
	out, err := s.service.Submit(s.ctx, &SubmitInput{RoomCode: s.roomCode, ConnectionID: id, Image: image})
	s.Require().NoError(err)
	return out
}

// scoreByImage makes the mock scorer award the number written in the image.
func (s *ServiceTestSuite) scoreByImage() {
	s.mockScorer.EXPECT().Score(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, topic, image string) int {
			n, _ := strconv.Atoi(image)
			return n
		}).AnyTimes()
}

func (s *ServiceTestSuite) TestNewValidatesDependencies() {
	_, err := New(nil)
	s.ErrorIs(err, ErrInvalidInput)

	_, err = New(&Config{Scorer: s.mockScorer, Broadcaster: s.bus})
	s.ErrorIs(err, ErrMissingRegistry)

	_, err = New(&Config{Registry: s.registry, Broadcaster: s.bus})
	s.ErrorIs(err, ErrMissingScorer)

	_, err = New(&Config{Registry: s.registry, Scorer: s.mockScorer})
	s.ErrorIs(err, ErrMissingBroadcaster)
}

func (s *ServiceTestSuite) TestJoinCreatesRoomAndBroadcastsPlayerList() {
	out, err := s.service.Join(s.ctx, &JoinInput{RoomCode: s.roomCode, PlayerName: "Ada", ConnectionID: "p1"})
	s.Require().NoError(err)

	s.Equal(1, out.PlayerCount)
	s.False(out.Started)
	snap, ok := s.snapshot(s.roomCode)
	s.Require().True(ok)
	s.Equal(internal.StateWaiting, snap.state)
	s.Zero(snap.round)

	lists := s.bus.roomEvents(s.roomCode, internal.EventUpdatePlayerList)
	s.Require().Len(lists, 1)
	s.Equal([]internal.PlayerView{{Id: "p1", Name: "Ada", Score: 0}}, lists[0])
	s.Equal([]string{"p1"}, s.bus.subscribers(s.roomCode))
}

func (s *ServiceTestSuite) TestJoinRejectsEmptyInput() {
	_, err := s.service.Join(s.ctx, &JoinInput{RoomCode: "", ConnectionID: "p1"})
	s.ErrorIs(err, ErrInvalidInput)
	s.Zero(s.registry.Len())
}

func (s *ServiceTestSuite) TestFifthJoinStartsRoundOne() {
	s.joinPlayers(s.roomCode, "p1", "p2", "p3", "p4")
	s.Empty(s.bus.roomEvents(s.roomCode, internal.EventNewRound))

	out, err := s.service.Join(s.ctx, &JoinInput{RoomCode: s.roomCode, PlayerName: "Eve", ConnectionID: "p5"})
	s.Require().NoError(err)
	s.True(out.Started)

	rounds := s.bus.roomEvents(s.roomCode, internal.EventNewRound)
	s.Require().Len(rounds, 1)
	data := rounds[0].(internal.NewRoundData)
	s.Equal(1, data.Round)
	s.Equal(3, data.TotalRounds)
	s.Equal(30, data.TimeLimit)
	s.True(utils.IsTopic(data.Topic))

	types := s.bus.roomEventTypes(s.roomCode)
	s.Equal([]string{internal.EventUpdatePlayerList, internal.EventNewRound}, types[len(types)-2:])

	snap, _ := s.snapshot(s.roomCode)
	s.Equal(internal.StateDrawing, snap.state)
	s.Equal(1, snap.round)
	s.Equal(1, snap.liveRound)
	s.NotNil(s.clock.LastTicker())
}

func (s *ServiceTestSuite) TestSixthJoinRejectedAsFull() {
	s.joinPlayers(s.roomCode, fivePlayers()...)
	listsBefore := len(s.bus.roomEvents(s.roomCode, internal.EventUpdatePlayerList))

	_, err := s.service.Join(s.ctx, &JoinInput{RoomCode: s.roomCode, PlayerName: "Late", ConnectionID: "p6"})

	s.ErrorIs(err, ErrRoomFull)
	s.Equal([]any{internal.ErrMsgRoomFull}, s.bus.directEvents("p6", internal.EventErrorMsg))
	s.Len(s.bus.roomEvents(s.roomCode, internal.EventUpdatePlayerList), listsBefore)
	snap, _ := s.snapshot(s.roomCode)
	s.Equal(5, snap.players)
	s.NotContains(s.bus.subscribers(s.roomCode), "p6")
}

func (s *ServiceTestSuite) TestJoinWhileDrawingRejected() {
	room := s.registry.GetOrCreate(s.roomCode)
	room.Mu.Lock()
	room.Players = append(room.Players,
		internal.NewPlayer("p1", "A", s.testNow),
		internal.NewPlayer("p2", "B", s.testNow))
	room.State = internal.StateDrawing
	room.Round = 2
	room.Mu.Unlock()

	_, err := s.service.Join(s.ctx, &JoinInput{RoomCode: s.roomCode, PlayerName: "C", ConnectionID: "p3"})

	s.ErrorIs(err, ErrGameInProgress)
	s.Equal([]any{internal.ErrMsgGameInProgress}, s.bus.directEvents("p3", internal.EventErrorMsg))
	snap, _ := s.snapshot(s.roomCode)
	s.Equal(2, snap.players)
}

func (s *ServiceTestSuite) TestJoinTwiceFromSameConnection() {
	s.joinPlayers(s.roomCode, "p1")

	_, err := s.service.Join(s.ctx, &JoinInput{RoomCode: s.roomCode, PlayerName: "again", ConnectionID: "p1"})

	s.ErrorIs(err, ErrAlreadyJoined)
	s.Equal([]any{internal.ErrMsgAlreadyJoined}, s.bus.directEvents("p1", internal.EventErrorMsg))
	snap, _ := s.snapshot(s.roomCode)
	s.Equal(1, snap.players)
}

func (s *ServiceTestSuite) TestTimerCountsDownThenEndsRound() {
	s.joinPlayers(s.roomCode, fivePlayers()...)
	ticker := s.clock.LastTicker()
	s.Require().NotNil(ticker)

	for i := 0; i < 31; i++ {
		s.Require().True(ticker.Tick(), "tick %d", i)
	}
	s.False(ticker.Tick())

	updates := s.bus.roomEvents(s.roomCode, internal.EventTimerUpdate)
	s.Require().Len(updates, 31)
	for i, u := range updates {
		s.Equal(30-i, u)
	}
	s.Len(s.bus.roomEvents(s.roomCode, internal.EventRoundEnded), 1)

	snap, _ := s.snapshot(s.roomCode)
	s.Equal(2, snap.round)
	s.Zero(snap.liveRound)

	// round 2 starts after the inter-round delay
	s.Equal(1, s.clock.PendingTimers())
	s.Equal(1, s.clock.FireTimers())
	rounds := s.bus.roomEvents(s.roomCode, internal.EventNewRound)
	s.Require().Len(rounds, 2)
	s.Equal(2, rounds[1].(internal.NewRoundData).Round)
	s.NotSame(ticker, s.clock.LastTicker())

	snap, _ = s.snapshot(s.roomCode)
	s.Equal(2, snap.liveRound)
	s.Zero(snap.submissions)
}

func (s *ServiceTestSuite) TestAllSubmitEndsRoundImmediatelyWithOfflineScores() {
	offline, err := scoring.New(&scoring.Config{})
	s.Require().NoError(err)
	s.service = s.newService(func(cfg *Config) { cfg.Scorer = offline })

	ids := fivePlayers()
	s.joinPlayers(s.roomCode, ids...)
	ticker := s.clock.LastTicker()

	for i, id := range ids {
		out := s.submit(id, "data:image/png;base64,AAAA")
		s.True(out.Accepted)
		s.Equal(i == len(ids)-1, out.RoundEnded)
		s.GreaterOrEqual(out.Points, scoring.OfflineFallbackMin)
		s.LessOrEqual(out.Points, scoring.OfflineFallbackMax)

		rated := s.bus.directEvents(id, internal.EventDrawingRated)
		s.Require().Len(rated, 1)
		s.Equal(internal.DrawingRatedData{Points: out.Points, Total: out.Points}, rated[0])
	}

	ended := s.bus.roomEvents(s.roomCode, internal.EventRoundEnded)
	s.Require().Len(ended, 1)
	board := ended[0].([]internal.PlayerView)
	s.Require().Len(board, 5)
	for i, p := range board {
		s.GreaterOrEqual(p.Score, 60)
		s.LessOrEqual(p.Score, 99)
		if i > 0 {
			s.GreaterOrEqual(board[i-1].Score, p.Score)
		}
	}

	s.Empty(s.bus.roomEvents(s.roomCode, internal.EventTimerUpdate))
	s.Eventually(ticker.Stopped, time.Second, 5*time.Millisecond)
	snap, _ := s.snapshot(s.roomCode)
	s.Equal(5, snap.submissions)
	s.Zero(snap.liveRound)
}

func (s *ServiceTestSuite) TestSubmissionsAccumulateScore() {
	s.service = s.newService(func(cfg *Config) { cfg.MaxPlayers = 2 })
	s.scoreByImage()
	s.joinPlayers(s.roomCode, "p1", "p2")

	s.submit("p1", "40")
	s.submit("p2", "10")
	s.clock.FireTimers()
	s.submit("p1", "25")

	rated := s.bus.directEvents("p1", internal.EventDrawingRated)
	s.Require().Len(rated, 2)
	s.Equal(internal.DrawingRatedData{Points: 40, Total: 40}, rated[0])
	s.Equal(internal.DrawingRatedData{Points: 25, Total: 65}, rated[1])
}

func (s *ServiceTestSuite) TestDuplicateSubmissionIgnored() {
	s.mockScorer.EXPECT().Score(gomock.Any(), gomock.Any(), "first").Return(55).Times(1)
	s.joinPlayers(s.roomCode, fivePlayers()...)

	first := s.submit("p1", "first")
	second := s.submit("p1", "second")

	s.True(first.Accepted)
	s.False(second.Accepted)
	snap, _ := s.snapshot(s.roomCode)
	s.Equal(1, snap.submissions)
}

func (s *ServiceTestSuite) TestSubmitIgnoredOutsideLiveRound() {
	// unknown room
	out := s.submit("p1", "x")
	s.False(out.Accepted)
	s.Zero(s.registry.Len())

	// waiting room
	s.joinPlayers(s.roomCode, "p1")
	out = s.submit("p1", "x")
	s.False(out.Accepted)

	// non-member of a drawing room
	s.joinPlayers(s.roomCode, "p2", "p3", "p4", "p5")
	out = s.submit("stranger", "x")
	s.False(out.Accepted)

	_, err := s.service.Submit(s.ctx, nil)
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *ServiceTestSuite) TestLeaderboardTiesKeepJoinOrder() {
	s.service = s.newService(func(cfg *Config) { cfg.MaxPlayers = 3 })
	s.scoreByImage()
	s.joinPlayers(s.roomCode, "A", "B", "C")

	s.submit("A", "10")
	s.submit("B", "10")
	s.submit("C", "20")

	ended := s.bus.roomEvents(s.roomCode, internal.EventRoundEnded)
	s.Require().Len(ended, 1)
	board := ended[0].([]internal.PlayerView)
	s.Equal([]string{"C", "A", "B"}, []string{board[0].Id, board[1].Id, board[2].Id})
}

func (s *ServiceTestSuite) TestTiesInLaterRoundsKeepPreviousRanking() {
	s.service = s.newService(func(cfg *Config) {
		cfg.MaxPlayers = 2
		cfg.TotalRounds = 2
	})
	s.scoreByImage()
	s.joinPlayers(s.roomCode, "A", "B")

	s.submit("A", "10")
	s.submit("B", "20")
	s.Require().Equal(1, s.clock.FireTimers())
	s.submit("A", "10")
	s.submit("B", "0")

	ended := s.bus.roomEvents(s.roomCode, internal.EventRoundEnded)
	s.Require().Len(ended, 2)
	for i, want := range [][]string{{"B", "A"}, {"B", "A"}} {
		board := ended[i].([]internal.PlayerView)
		s.Equal(want, []string{board[0].Id, board[1].Id}, "round %d", i+1)
	}

	over := s.bus.roomEvents(s.roomCode, internal.EventGameOver)
	s.Require().Len(over, 1)
	s.Equal(internal.PlayerView{Id: "B", Name: "Player B", Score: 20}, over[0])
}

func (s *ServiceTestSuite) TestTimerExpiryDiscardsLateScore() {
	ids := fivePlayers()
	s.mockScorer.EXPECT().Score(gomock.Any(), gomock.Any(), "quick").Return(70).Times(4)
	release := make(chan struct{})
	s.mockScorer.EXPECT().Score(gomock.Any(), gomock.Any(), "slow").
		DoAndReturn(func(ctx context.Context, topic, image string) int {
			<-release
			return 90
		})

	s.joinPlayers(s.roomCode, ids...)
	ticker := s.clock.LastTicker()
	for _, id := range ids[:4] {
		s.True(s.submit(id, "quick").Accepted)
	}

	done := make(chan *SubmitOutput, 1)
	go func() {
		out, _ := s.service.Submit(s.ctx, &SubmitInput{RoomCode: s.roomCode, ConnectionID: ids[4], Image: "slow"})
		done <- out
	}()
	s.Eventually(func() bool {
		room, _ := s.registry.Get(s.roomCode)
		room.Mu.Lock()
		defer room.Mu.Unlock()
		return room.FindPlayer(ids[4]).PendingRound == 1
	}, time.Second, 5*time.Millisecond)

	for i := 0; i < 31; i++ {
		s.Require().True(ticker.Tick())
	}
	s.False(ticker.Tick())
	s.Len(s.bus.roomEvents(s.roomCode, internal.EventRoundEnded), 1)

	close(release)
	out := <-done
	s.False(out.Accepted)
	s.Len(s.bus.roomEvents(s.roomCode, internal.EventRoundEnded), 1)
	s.Empty(s.bus.directEvents(ids[4], internal.EventDrawingRated))
}

func (s *ServiceTestSuite) TestRacingEndTriggersEndRoundOnce() {
	ids := fivePlayers()
	s.mockScorer.EXPECT().Score(gomock.Any(), gomock.Any(), "quick").Return(70).Times(4)
	release := make(chan struct{})
	s.mockScorer.EXPECT().Score(gomock.Any(), gomock.Any(), "slow").
		DoAndReturn(func(ctx context.Context, topic, image string) int {
			<-release
			return 90
		})

	s.joinPlayers(s.roomCode, ids...)
	ticker := s.clock.LastTicker()
	for _, id := range ids[:4] {
		s.submit(id, "quick")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = s.service.Submit(s.ctx, &SubmitInput{RoomCode: s.roomCode, ConnectionID: ids[4], Image: "slow"})
	}()

	// bring the countdown to its last value
	for i := 0; i < 30; i++ {
		s.Require().True(ticker.Tick())
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker.Tick()
	}()
	close(release)
	wg.Wait()

	s.Eventually(ticker.Stopped, time.Second, 5*time.Millisecond)
	s.Len(s.bus.roomEvents(s.roomCode, internal.EventRoundEnded), 1)
	snap, _ := s.snapshot(s.roomCode)
	s.Equal(2, snap.round)
	s.Equal(1, s.clock.PendingTimers())
}

func (s *ServiceTestSuite) TestThreeRoundsEndInGameOver() {
	s.scoreByImage()
	ids := fivePlayers()
	s.joinPlayers(s.roomCode, ids...)

	for round := 1; round <= 3; round++ {
		for _, id := range ids {
			image := "10"
			if id == "p3" {
				image = "30"
			}
			s.True(s.submit(id, image).Accepted)
		}
		if round < 3 {
			s.Equal(1, s.clock.FireTimers())
		}
	}

	rounds := s.bus.roomEvents(s.roomCode, internal.EventNewRound)
	s.Require().Len(rounds, 3)
	for i, r := range rounds {
		s.Equal(i+1, r.(internal.NewRoundData).Round)
	}

	over := s.bus.roomEvents(s.roomCode, internal.EventGameOver)
	s.Require().Len(over, 1)
	s.Equal(internal.PlayerView{Id: "p3", Name: "Player p3", Score: 90}, over[0])

	types := s.bus.roomEventTypes(s.roomCode)
	s.Equal([]string{internal.EventRoundEnded, internal.EventGameOver}, types[len(types)-2:])

	_, exists := s.registry.Get(s.roomCode)
	s.False(exists)
	s.ElementsMatch(ids, s.bus.releasedFrom(s.roomCode))
	s.Zero(s.clock.PendingTimers())

	select {
	case result := <-s.archive.saved:
		s.Equal(s.roomCode, result.RoomCode)
		s.Equal("p3", result.Winner.Id)
		s.Equal(3, result.Rounds)
		s.Len(result.Standings, 5)
	case <-time.After(time.Second):
		s.Fail("game result was not archived")
	}

	// the code is fresh again
	out, err := s.service.Join(s.ctx, &JoinInput{RoomCode: s.roomCode, PlayerName: "New", ConnectionID: "p9"})
	s.Require().NoError(err)
	s.Equal(1, out.PlayerCount)
	snap, _ := s.snapshot(s.roomCode)
	s.Equal(internal.StateWaiting, snap.state)
	s.Zero(snap.round)

	// stale submissions for the finished game are ignored
	s.False(s.submit("p1", "10").Accepted)
}

func (s *ServiceTestSuite) TestDisconnectInLobbyFreesSeat() {
	s.joinPlayers(s.roomCode, "p1", "p2")

	s.service.Disconnect(s.ctx, &DisconnectInput{RoomCode: s.roomCode, ConnectionID: "p1"})

	lists := s.bus.roomEvents(s.roomCode, internal.EventUpdatePlayerList)
	s.Equal([]internal.PlayerView{{Id: "p2", Name: "Player p2"}}, lists[len(lists)-1])

	s.service.Disconnect(s.ctx, &DisconnectInput{RoomCode: s.roomCode, ConnectionID: "p2"})
	_, exists := s.registry.Get(s.roomCode)
	s.False(exists)
	s.Empty(s.bus.releasedFrom(s.roomCode))
}

func (s *ServiceTestSuite) TestDisconnectMidRoundCompletesRound() {
	s.mockScorer.EXPECT().Score(gomock.Any(), gomock.Any(), gomock.Any()).Return(60).Times(4)
	ids := fivePlayers()
	s.joinPlayers(s.roomCode, ids...)
	for _, id := range ids[:4] {
		s.submit(id, "x")
	}
	s.Empty(s.bus.roomEvents(s.roomCode, internal.EventRoundEnded))

	s.service.Disconnect(s.ctx, &DisconnectInput{RoomCode: s.roomCode, ConnectionID: ids[4]})

	ended := s.bus.roomEvents(s.roomCode, internal.EventRoundEnded)
	s.Require().Len(ended, 1)
	// the disconnected player keeps a seat on the leaderboard
	s.Len(ended[0].([]internal.PlayerView), 5)
}

func (s *ServiceTestSuite) TestEveryoneDisconnectingTearsDownGame() {
	ids := fivePlayers()
	s.joinPlayers(s.roomCode, ids...)
	ticker := s.clock.LastTicker()

	for _, id := range ids {
		s.service.Disconnect(s.ctx, &DisconnectInput{RoomCode: s.roomCode, ConnectionID: id})
	}

	_, exists := s.registry.Get(s.roomCode)
	s.False(exists)
	s.Eventually(ticker.Stopped, time.Second, 5*time.Millisecond)
	s.Empty(s.bus.roomEvents(s.roomCode, internal.EventRoundEnded))
}

func (s *ServiceTestSuite) TestScheduledStartForClosedRoomIsNoop() {
	s.mockScorer.EXPECT().Score(gomock.Any(), gomock.Any(), gomock.Any()).Return(60).Times(5)
	ids := fivePlayers()
	s.joinPlayers(s.roomCode, ids...)
	for _, id := range ids {
		s.submit(id, "x")
	}
	s.Require().Equal(1, s.clock.PendingTimers())

	for _, id := range ids {
		s.service.Disconnect(s.ctx, &DisconnectInput{RoomCode: s.roomCode, ConnectionID: id})
	}
	s.clock.FireTimers()

	s.Len(s.bus.roomEvents(s.roomCode, internal.EventNewRound), 1)
	s.Zero(s.registry.Len())
}

func (s *ServiceTestSuite) TestSweepIdleEvictsOnlyWaitingRooms() {
	s.joinPlayers("IDLE", "a1", "a2")
	s.joinPlayers(s.roomCode, fivePlayers()...)

	s.clock.Advance(11 * time.Minute)
	evicted := s.service.SweepIdle()

	s.Equal(1, evicted)
	_, idleExists := s.registry.Get("IDLE")
	s.False(idleExists)
	_, playingExists := s.registry.Get(s.roomCode)
	s.True(playingExists)
	s.Equal([]any{internal.ErrMsgRoomExpired}, s.bus.directEvents("a1", internal.EventErrorMsg))
	s.ElementsMatch([]string{"a1", "a2"}, s.bus.releasedFrom("IDLE"))
}

func (s *ServiceTestSuite) TestRunSweepsOnTicker() {
	s.joinPlayers("IDLE", "a1")
	s.clock.Advance(time.Hour)

	ctx, cancel := context.WithCancel(s.ctx)
	before := len(s.clock.Tickers())
	stopped := make(chan struct{})
	go func() {
		s.service.Run(ctx)
		close(stopped)
	}()

	s.Eventually(func() bool { return len(s.clock.Tickers()) > before }, time.Second, 5*time.Millisecond)
	s.True(s.clock.LastTicker().Tick())
	s.Eventually(func() bool { return s.registry.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		s.Fail("sweeper did not stop")
	}
}

func (s *ServiceTestSuite) TestJoinableRoom() {
	_, ok := s.service.JoinableRoom()
	s.False(ok)

	s.joinPlayers("OPEN", "p1")
	code, ok := s.service.JoinableRoom()
	s.True(ok)
	s.Equal("OPEN", code)
	s.Equal(1, s.service.RoomCount())

	s.joinPlayers("OPEN", "p2", "p3", "p4", "p5")
	_, ok = s.service.JoinableRoom()
	s.False(ok)
}

func (s *ServiceTestSuite) TestConcurrentEndRoundCallsApplyOnce() {
	s.joinPlayers(s.roomCode, fivePlayers()...)
	room, ok := s.registry.Get(s.roomCode)
	s.Require().True(ok)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.service.endRound(room, 1) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, wins)
	s.Len(s.bus.roomEvents(s.roomCode, internal.EventRoundEnded), 1)
	s.False(s.service.endRound(room, 1))
	s.False(s.service.endRound(room, 2))
}
