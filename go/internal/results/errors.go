package results

import "errors"

var (
	// ErrInvalidLimit is returned when a listing limit is out of range.
	ErrInvalidLimit = errors.New("invalid limit")

	// ErrInvalidResult is returned when a result fails validation.
	ErrInvalidResult = errors.New("invalid result")
)
