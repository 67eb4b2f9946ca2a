package messagebox

import "errors"

// Domain errors for the messagebox package.
var (
	// ErrTimeout is returned when no reply arrives in time.
	ErrTimeout = errors.New("messagebox: timed out waiting for reply")

	// ErrUnknownCommand is returned by Adapter for commands it does not send.
	ErrUnknownCommand = errors.New("messagebox: unknown command")

	// ErrRemote is returned when the adapter answered with an error.
	ErrRemote = errors.New("messagebox: adapter error")

	// ErrInvalidTarget is returned for an empty target or command.
	ErrInvalidTarget = errors.New("messagebox: target and command required")

	// ErrClosed is returned for requests on a closed client and for
	// requests still waiting when it closes.
	ErrClosed = errors.New("messagebox: client closed")
)
