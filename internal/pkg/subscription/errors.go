package subscription

import "errors"

// Typed failures surfaced to the request-handling layer. Ownership mismatches
// return ErrNotFound rather than a distinct forbidden error so the API never
// leaks whether another user's transaction exists.
var (
	ErrNotFound           = errors.New("transaction or entity not found")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)
