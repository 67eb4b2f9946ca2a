package objects

import "errors"

// Domain errors for the objects package.
//
//	if errors.Is(err, objects.ErrObjectNotFound) {
//	    // handle not found case
//	}
var (
	// ErrObjectNotFound is returned when an object id does not exist.
	ErrObjectNotFound = errors.New("objects: object not found")

	// ErrStateNotFound is returned when a state has never been written.
	ErrStateNotFound = errors.New("objects: state not found")

	// ErrInvalidID is returned for empty ids and ids with forbidden characters.
	ErrInvalidID = errors.New("objects: invalid id")

	// ErrInvalidObject is returned when an object fails validation.
	ErrInvalidObject = errors.New("objects: invalid object")
)
