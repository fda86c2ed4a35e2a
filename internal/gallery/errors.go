package gallery

import "errors"

var (
	// ErrValidation marks malformed input. The wrapped message is safe to
	// show to clients.
	ErrValidation = errors.New("validation failed")

	// ErrIndex is returned by Move for positions outside the order list.
	ErrIndex = errors.New("index out of range")
)
