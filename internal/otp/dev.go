package otp

import (
	"context"
	"log"
	"time"

	"algoforce/internal/domain"
)

// Dev is the non-production strategy: nothing is delivered and any
// well-formed code is accepted.
type Dev struct {
	channel domain.ChannelKind
}

// NewDev creates a development strategy for the given channel kind
func NewDev(channel domain.ChannelKind) *Dev {
	if channel != domain.ChannelEmail {
		channel = domain.ChannelPhone
	}
	return &Dev{channel: channel}
}

func (d *Dev) Name() string { return "dev" }

func (d *Dev) Channel() domain.ChannelKind { return d.channel }

func (d *Dev) Issue(_ context.Context, to, _ string, _ time.Time) (*Secret, error) {
	log.Printf("[OTP] Dev strategy: no code sent to %s, any 6-digit code will be accepted", to)
	return nil, nil
}

func (d *Dev) Check(_ context.Context, _ *domain.Contact, code string, _ time.Time) error {
	if !ValidCode(code) {
		return ErrInvalidCode
	}
	return nil
}
