package conversation

import "errors"

// Domain errors for conversation history.
var (
	// ErrTurnNotFound indicates no turn has the requested ID.
	ErrTurnNotFound = errors.New("turn not found")

	// ErrInvalidTurn indicates a turn without an ID.
	ErrInvalidTurn = errors.New("invalid turn")

	// ErrEmptyQuery indicates a turn without a query.
	ErrEmptyQuery = errors.New("turn query is empty")

	// ErrDuplicateTurn indicates a turn ID that is already stored.
	ErrDuplicateTurn = errors.New("turn already exists")

	// ErrConnectionFailed indicates the history backend is unreachable.
	ErrConnectionFailed = errors.New("history store connection failed")

	// ErrOperationTimeout indicates a history operation timed out.
	ErrOperationTimeout = errors.New("history store operation timeout")
)
