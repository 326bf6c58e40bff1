package scheduler

import "errors"

var (
	ErrInvalidOptions = errors.New("invalid scheduler options")
	ErrAlreadyStarted = errors.New("scheduler already started")
)
