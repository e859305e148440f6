package internal

import (
	"context"
	"sync"
	"time"
)

const (
	MaxPlayersPerRoom = 5
	TotalRounds       = 3
	RoundTimeLimit    = 30 // seconds, also the first timerUpdate value
	InterRoundDelay   = 5 * time.Second
	TimerTickInterval = 1 * time.Second
)

type RoomState string

const (
	StateWaiting RoomState = "waiting"
	StateDrawing RoomState = "drawing"
)

// RoundTimer is the handle of the countdown owned by a room's live round.
type RoundTimer struct {
	Round     int       `json:"round"`
	StartTime time.Time `json:"start_time"`
	Context   context.Context
	Cancel    context.CancelFunc
}

type Response struct {
	StatusCode    int   `json:"status_code"`
	RespStartTime int64 `json:"resp_time_start_ms"`
	RespEndTime   int64 `json:"resp_time_end_ms"`
	NetRespTime   int64 `json:"net_resp_time_ms"`
	Data          any   `json:"data"`
}

type Room struct {
	Code    string    `json:"code"`
	Players []*Player `json:"players"`

	// Game State
	State RoomState `json:"state"`
	Round int       `json:"round"`
	Topic string    `json:"topic"`

	// Round Management
	Submissions int `json:"submissions"`
	// LiveRound is the round currently accepting submissions, 0 when none is.
	LiveRound int `json:"live_round"`

	// Timer
	Timer *RoundTimer `json:"-"`

	// Closed is set, under Mu, at the moment the room leaves the registry.
	// Holders of a stale pointer must treat a closed room as gone.
	Closed       bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`

	// Concurrency control
	Mu sync.Mutex `json:"-"`
}

type Player struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`

	IsConnected  bool      `json:"-"`
	HasSubmitted bool      `json:"-"`
	PendingRound int       `json:"-"` // round whose score request is in flight
	JoinedAt     time.Time `json:"-"`
}

// GameResult is the archived outcome of a finished game.
type GameResult struct {
	RoomCode   string       `json:"room_code"`
	Winner     PlayerView   `json:"winner"`
	Standings  []PlayerView `json:"standings"`
	Rounds     int          `json:"rounds"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}
