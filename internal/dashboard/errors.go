package dashboard

import "errors"

var (
	// ErrNoData is returned when no collection has been loaded yet.
	ErrNoData = errors.New("no inventory loaded")

	// ErrNotFound is returned when a resource id is not in the collection.
	ErrNotFound = errors.New("resource not found")

	// ErrNoTransport is returned by Refresh when no session transport is set.
	ErrNoTransport = errors.New("no refresh transport configured")
)
