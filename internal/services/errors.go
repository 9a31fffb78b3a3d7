package services

import "errors"

// Business-rule errors surfaced to callers. Handlers map these to HTTP
// statuses with errors.Is.
var (
	// ErrValidation is returned when a required field is missing or malformed.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState is returned when a transition is attempted from a state
	// that forbids it, e.g. approving a task with no assignee.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrInsufficientFunds is returned when a withdrawal exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnverifiedAccount is returned when withdrawing without a verified
	// payout account.
	ErrUnverifiedAccount = errors.New("payout account not verified")
)
