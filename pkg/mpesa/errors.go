package mpesa

import (
	"errors"
	"fmt"
)

// AuthError means the gateway rejected the configured consumer key/secret.
// Fatal for any in-flight initiation attempt; never retried automatically.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("mpesa auth rejected (status %d): %s", e.Status, e.Message)
}

// GatewayError carries the provider's error code and message from a failed
// initiation. The gateway may already have queued the prompt, so callers
// must not retry blindly; retry is a fresh user-initiated request.
type GatewayError struct {
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("mpesa gateway error %s: %s", e.Code, e.Message)
}

var (
	ErrInvalidAmount = errors.New("amount must be a positive number")
	ErrInvalidPhone  = errors.New("phone number required")
)
