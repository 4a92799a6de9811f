package paystack

import (
	"errors"
	"fmt"
)

// Sentinel errors for Paystack API operations.
var (
	ErrNotFound     = errors.New("paystack: not found")
	ErrRateLimited  = errors.New("paystack: rate limited by server")
	ErrUnauthorized = errors.New("paystack: secret key rejected")
	ErrServer       = errors.New("paystack: server error")
	ErrNoSecretKey  = errors.New("paystack: secret key not configured")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("paystack %s [%s]: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
