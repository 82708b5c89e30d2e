package dispatch

import "errors"

const Namespace = "dispatch"

var (
	ErrInvalidConfig    = errors.New(Namespace + ": invalid configuration")
	ErrAlreadyStarted   = errors.New(Namespace + ": dispatcher is single-use and was already started")
	ErrCallbackPanicked = errors.New(Namespace + ": worker callback panicked")
	ErrIncomplete       = errors.New(Namespace + ": run ended before every index was dispatched")
)
