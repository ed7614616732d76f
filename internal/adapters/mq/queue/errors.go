package queue

import "errors"

// Sentinel kinds for enqueue failures. Enqueue itself reports a bare bool;
// callers that need an error value wrap one of these.
var (
	ErrFull   = errors.New("queue full")
	ErrClosed = errors.New("queue closed")
)
