package otp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"algoforce/internal/domain"
)

// Local generates codes in-process, stores only their bcrypt hash and
// delivers the plaintext through a Sender.
type Local struct {
	sender Sender
	ttl    time.Duration
	cost   int
}

// NewLocal creates a locally hashed strategy. Costs outside bcrypt's range
// fall back to bcrypt.DefaultCost.
func NewLocal(sender Sender, ttl time.Duration, cost int) *Local {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Local{sender: sender, ttl: ttl, cost: cost}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Channel() domain.ChannelKind { return l.sender.Channel() }

func (l *Local) Issue(ctx context.Context, to, name string, now time.Time) (*Secret, error) {
	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), l.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash verification code: %w", err)
	}

	if err := l.sender.Send(ctx, to, code, name); err != nil {
		log.Printf("[OTP] Local delivery to %s failed: %v", to, err)
		return nil, &DeliveryError{
			Provider: string(l.sender.Channel()),
			Message:  "Failed to send verification code",
			Err:      err,
		}
	}

	return &Secret{Hash: string(hash), ExpiresAt: now.UTC().Add(l.ttl)}, nil
}

func (l *Local) Check(_ context.Context, c *domain.Contact, code string, now time.Time) error {
	if !c.HasLocalSecret() {
		return ErrInvalidCode
	}
	if c.OTPExpiry == nil || now.After(*c.OTPExpiry) {
		return ErrExpired
	}
	err := bcrypt.CompareHashAndPassword([]byte(*c.OTPSecret), []byte(code))
	if err == nil {
		return nil
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		log.Printf("[OTP] Stored hash for contact %s is unusable: %v", c.ID, err)
	}
	return ErrInvalidCode
}
