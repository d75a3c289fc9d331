package errors

import "errors"

var (
	ErrNotFound = errors.New("bus not found")

	ErrInvalidID = errors.New("invalid bus ID format")

	// ErrSeatsUnavailable means the conditional hold matched nothing: at least
	// one requested seat was already booked or missing.
	ErrSeatsUnavailable = errors.New("one or more seats are unavailable")

	// ErrHoldNotFound means no seats on the bus are held by the given ticket.
	ErrHoldNotFound = errors.New("seat hold not found")
)
