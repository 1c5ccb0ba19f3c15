package chat_errors

import "errors"

// Common errors
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")

	// ErrPersistence wraps a transaction that could not commit.
	ErrPersistence = errors.New("persistence failure")
	// ErrDeliveryFailed wraps an out-of-band delivery (email) that did not go through.
	ErrDeliveryFailed = errors.New("delivery failed")
)

// IsAuthorizationDenied reports errors that must never be surfaced to a
// caller who is not a participant of the conversation.
func IsAuthorizationDenied(err error) bool {
	return errors.Is(err, ErrForbidden) || errors.Is(err, ErrNotFound)
}
