package types

import "errors"

var (
	// ErrProtocol is a fatal disagreement between writer and reader groups, such as a malformed
	// pattern document or two writers claiming the same region. A stream that observed it is unusable.
	ErrProtocol = errors.New("protocol error")
	// ErrSequencing is returned when the api is used out of order. The stream remains usable.
	ErrSequencing = errors.New("sequencing error")
	// ErrNotFound is returned for unknown variables or steps. The stream remains usable.
	ErrNotFound = errors.New("not found")
)
