package browse

import "errors"

// Domain errors for the browse package.
var (
	// ErrUnknownKind is returned for a browse kind outside alexa, alexa3,
	// google and alisa.
	ErrUnknownKind = errors.New("browse: unknown kind")

	// ErrInvalidResponse is returned when the adapter reply is not a
	// device list.
	ErrInvalidResponse = errors.New("browse: invalid response")

	// ErrNotBrowsed is returned by lookups before the kind was browsed.
	ErrNotBrowsed = errors.New("browse: kind not browsed yet")

	// ErrStateNotFound is returned when no control contains the state id.
	ErrStateNotFound = errors.New("browse: state not found")

	// ErrClosed is returned by a Batcher after Close.
	ErrClosed = errors.New("browse: batcher closed")
)
