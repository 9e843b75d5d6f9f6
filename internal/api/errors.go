package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the inventory API answers 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTransport covers non-2xx answers other than 401 and network failures.
	ErrTransport = errors.New("transport failure")
)

// StatusError is a non-2xx, non-401 response.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Detail)
}

// Is makes every StatusError match ErrTransport.
func (e *StatusError) Is(target error) bool {
	return target == ErrTransport
}

// UserMessage renders err as banner text for the failed operation op.
func UserMessage(op string, err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrUnauthorized) {
		return "Not authorized. Check the API token."
	}
	var se *StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("%s failed: %s", op, se.Error())
	}
	return fmt.Sprintf("%s failed: %v", op, err)
}
