package visuapp

import "errors"

// Domain errors for the visuapp package.
var (
	// ErrUnknownMessage is returned for a command or payload the handler
	// does not understand.
	ErrUnknownMessage = errors.New("visuapp: unknown message")

	// ErrInvalidMessage is returned when a known command lacks required
	// fields or does not decode.
	ErrInvalidMessage = errors.New("visuapp: invalid message")

	// ErrNoSender is returned for sendToAdapter when no messagebox is wired.
	ErrNoSender = errors.New("visuapp: no messagebox sender configured")
)
