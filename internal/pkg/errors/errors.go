package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict reports a request that would break a uniqueness rule, such
	// as claiming a primary phone another contact already owns.
	ErrConflict = errors.New("conflict")
	// ErrTicketMissing reports a message create against a ticket that does
	// not exist for the tenant. This is a caller precondition violation.
	ErrTicketMissing = errors.New("owning ticket not found")
)
