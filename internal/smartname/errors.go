package smartname

import "errors"

// Domain errors for the smartname package.
var (
	// ErrNoCommon is returned when the object or its common section is
	// missing. Callers treat it as a skipped write, not a failure.
	ErrNoCommon = errors.New("smartname: object has no common section")

	// ErrNoInstance is returned when per-instance storage is selected
	// without an instance id.
	ErrNoInstance = errors.New("smartname: instance id required for per-instance storage")

	// ErrInvalidJSON is returned when Google Home attribute text is not a
	// JSON object. The object is left unmodified.
	ErrInvalidJSON = errors.New("smartname: not correct JSON format")

	// ErrInvalidAttributes is returned when attribute JSON parses but does
	// not satisfy the attribute schema.
	ErrInvalidAttributes = errors.New("smartname: invalid attributes")

	// ErrInvalidPatch is returned when a patch document has the wrong shape.
	ErrInvalidPatch = errors.New("smartname: invalid patch")
)
