package readings

import "errors"

var (
	// ErrStoreUnavailable is returned when the time-series store cannot serve
	// a fetch. Callers get no partial results.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrInvalidRange       = errors.New("invalid time range")
	ErrInconsistentLayout = errors.New("inconsistent row layout")
	ErrUnknownLayout      = errors.New("unknown row layout")
)
