package internal

type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

// Inbound event types
const (
	EventJoinRoom      = "joinRoom"
	EventSubmitDrawing = "submitDrawing"
)

// Outbound event types
const (
	EventConnected        = "connected"
	EventErrorMsg         = "errorMsg"
	EventUpdatePlayerList = "updatePlayerList"
	EventNewRound         = "newRound"
	EventTimerUpdate      = "timerUpdate"
	EventDrawingRated     = "drawingRated"
	EventRoundEnded       = "roundEnded"
	EventGameOver         = "gameOver"
)

// errorMsg payloads
const (
	ErrMsgRoomFull       = "Room is full!"
	ErrMsgGameInProgress = "Game in progress!"
	ErrMsgAlreadyJoined  = "Already in a room!"
	ErrMsgRoomExpired    = "Room closed due to inactivity."
)

type JoinRoomData struct {
	Name     string `json:"name"`
	RoomCode string `json:"roomCode" validate:"required,max=64"`
}

type SubmitDrawingData struct {
	RoomCode string `json:"roomCode" validate:"required,max=64"`
	Image    string `json:"image" validate:"required"`
}

type ConnectedData struct {
	Id string `json:"id"`
}

type NewRoundData struct {
	Round       int    `json:"round"`
	TotalRounds int    `json:"totalRounds"`
	Topic       string `json:"topic"`
	TimeLimit   int    `json:"timeLimit"`
}

type DrawingRatedData struct {
	Points int `json:"points"`
	Total  int `json:"total"`
}
