package domain

import "errors"

// Error kinds surfaced by the storefront core. Callers match them with
// errors.Is; the HTTP layer maps each kind to a status code.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("invalid request")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")

	// ErrDuplicateKey signals that an Idempotency-Key was already used for
	// a previous checkout. The orchestrator replays the stored order.
	ErrDuplicateKey = errors.New("duplicate idempotency key")
)
