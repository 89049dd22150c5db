package service

import "errors"

// Failure taxonomy of the order core. Handlers map these onto HTTP status
// codes; anything not listed here crosses the boundary as a bare 500.
var (
	// ErrForbidden — role or ownership mismatch.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState — requested status unrecognized, or the current
	// status forbids the transition.
	ErrInvalidState = errors.New("invalid order state transition")
	// ErrAlreadyCancelled — cancellation of an order already cancelled.
	ErrAlreadyCancelled = errors.New("order already cancelled")
	// ErrInvalidSignature — payment or webhook authentication failed.
	ErrInvalidSignature = errors.New("invalid payment signature")
	// ErrEmptyOrder — order creation with no valid line items.
	ErrEmptyOrder = errors.New("order must contain at least one line item")
	// ErrInvalidCredentials — login failure; deliberately vague.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
