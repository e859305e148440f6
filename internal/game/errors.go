package game

// GameError is a custom error type for game-related errors
type GameError string

// Error implements the error interface
func (e GameError) Error() string {
	return string(e)
}

const (
	ErrRoomFull       GameError = "room is full"
	ErrGameInProgress GameError = "game in progress"
	ErrAlreadyJoined  GameError = "connection already joined this room"
	ErrInvalidInput   GameError = "invalid input"

	ErrMissingRegistry    GameError = "registry is required"
	ErrMissingScorer      GameError = "scorer is required"
	ErrMissingBroadcaster GameError = "broadcaster is required"
)
