package session

import "errors"

var (
	// ErrNotConnected is returned when publishing without an open connection.
	ErrNotConnected = errors.New("device not connected")
	// ErrInvalidConfig is returned for configs that cannot be sent.
	ErrInvalidConfig = errors.New("invalid device config")
	// ErrStopped is returned once the manager's Run loop has exited.
	ErrStopped = errors.New("session manager stopped")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("session manager already running")
)
