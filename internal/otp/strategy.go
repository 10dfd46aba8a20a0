// Package otp issues and checks one-time verification codes. A Strategy is
// selected once at startup: a hosted verification service, locally hashed
// codes delivered by a Sender, or a development mock.
package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"algoforce/internal/domain"
)

var (
	ErrInvalidCode      = errors.New("invalid verification code")
	ErrExpired          = errors.New("verification code has expired")
	ErrAlreadyVerified  = errors.New("contact channel already verified")
	ErrInvalidRecipient = errors.New("invalid recipient")
	ErrRateLimited      = errors.New("verification provider rate limit exceeded")
)

// Secret is what a strategy asks the workflow to persist for a later Check.
type Secret struct {
	Hash      string
	ExpiresAt time.Time
}

// Strategy generates-and-delivers codes and verifies them.
type Strategy interface {
	// Name identifies the strategy in logs, metrics and the health payload.
	Name() string
	// Channel is the kind of contact channel codes are delivered to.
	Channel() domain.ChannelKind
	// Issue delivers a fresh code to the recipient at time now. A nil
	// Secret means the provider keeps the code and its expiry.
	Issue(ctx context.Context, to, name string, now time.Time) (*Secret, error)
	// Check verifies code against the pending record c at time now.
	Check(ctx context.Context, c *domain.Contact, code string, now time.Time) error
}

// Sender delivers a plaintext code to a recipient.
type Sender interface {
	Send(ctx context.Context, to, code, name string) error
	Channel() domain.ChannelKind
}

// DeliveryError reports a notification provider failure. Message is safe to
// show to callers; Err carries the provider detail.
type DeliveryError struct {
	Provider string
	Message  string
	Err      error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
