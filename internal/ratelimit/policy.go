package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// DefaultMessage is returned to rejected clients when a policy has no message.
const DefaultMessage = "Too many requests, please try again later."

var (
	// ErrInvalidWindow is returned when a policy window is not positive.
	ErrInvalidWindow = errors.New("rate limit window must be positive")
	// ErrInvalidMaxRequests is returned when a policy quota is not positive.
	ErrInvalidMaxRequests = errors.New("rate limit max requests must be positive")
)

// Policy is the quota attached to a single operation.
type Policy struct {
	// Window is the length of a fixed window.
	Window time.Duration
	// MaxRequests is the number of requests admitted per key per window.
	MaxRequests int64
	// Message is the optional text returned on rejection.
	Message string
}

// Validate reports whether the policy can be enforced.
func (p Policy) Validate() error {
	if p.Window <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidWindow, p.Window)
	}

	if p.MaxRequests <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxRequests, p.MaxRequests)
	}

	return nil
}

// RejectionMessage returns the configured message or DefaultMessage.
func (p Policy) RejectionMessage() string {
	if p.Message == "" {
		return DefaultMessage
	}

	return p.Message
}
