package domain

import "errors"

// Domain errors recovered at the request boundary and mapped onto HTTP
// status codes by the handlers.
var (
	// ErrNotFound means a referenced account or transfer does not exist.
	// Maps to 404 Not Found.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the caller does not own the referenced account.
	// Maps to 403 Forbidden.
	ErrForbidden = errors.New("account does not belong to the caller")

	// ErrInvalidState means the account is not active when it must be, or
	// the transfer is not awaiting review. Maps to 409 Conflict.
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrInsufficientFunds means the balance would go negative.
	// Maps to 409 Conflict.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrValidation means malformed input: bad amount, missing destination
	// fields, bad rejection reason. Maps to 400 Bad Request.
	ErrValidation = errors.New("validation failed")

	// ErrPersistence means the atomic write did not commit. The request
	// left no partial state and may be retried. Maps to 503.
	ErrPersistence = errors.New("persistence failure")
)
