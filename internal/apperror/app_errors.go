package apperror

import "errors"

var (
	ErrInvalidStake      = errors.New("stake must be greater than zero")
	ErrAlreadyInGame     = errors.New("player is already in a game")
	ErrGameNotFound      = errors.New("game does not exist")
	ErrWrongState        = errors.New("game is in the wrong state")
	ErrSelfJoin          = errors.New("cannot join your own game")
	ErrInsufficientPool  = errors.New("insufficient pool balance for this game")
	ErrNotYourTurn       = errors.New("it's not your turn")
	ErrOutOfBounds       = errors.New("cell is out of bounds")
	ErrCellOccupied      = errors.New("cell is already occupied")
	ErrNotCreator        = errors.New("only the creator can cancel the game")
	ErrNotAParticipant   = errors.New("caller is not a participant of this game")
	ErrTimeoutNotReached = errors.New("turn timeout not yet reached")
	ErrNotOwner          = errors.New("only the operator can call this function")
)
