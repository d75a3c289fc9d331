package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrDuplicateTicket = errors.New("ticket id already exists")

	// ErrAlreadyCancelled means the conditional cancel found the booking
	// already cancelled.
	ErrAlreadyCancelled = errors.New("booking already cancelled")
)
