package session

import "errors"

var (
	// ErrStreamInterrupted means the event stream ended before a terminal event.
	ErrStreamInterrupted = errors.New("progress stream ended before completion")

	// ErrAlreadyStarted is returned by a second Start on the same controller.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrCancelled is returned by Start when Cancel won the race.
	ErrCancelled = errors.New("session cancelled")
)
