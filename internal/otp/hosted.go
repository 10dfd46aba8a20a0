package otp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"algoforce/internal/domain"
)

const (
	providerTwilio = "twilio"

	twilioAuthFailed       = 20003
	twilioInvalidPhone     = 60200
	twilioUndeliverable    = 60203
	verificationApproved   = "approved"
	verificationChannelSMS = "sms"
)

// Verifier is the hosted verification API used by Hosted
type Verifier interface {
	StartVerification(ctx context.Context, to, channel string) (*Verification, error)
	CheckVerification(ctx context.Context, to, code string) (*Verification, error)
}

// Hosted delegates generation, delivery, expiry and checking of codes to
// Twilio Verify. Records carry no local secret.
type Hosted struct {
	client Verifier
}

// NewHosted creates a hosted verification strategy
func NewHosted(client Verifier) *Hosted {
	return &Hosted{client: client}
}

func (h *Hosted) Name() string { return "hosted" }

func (h *Hosted) Channel() domain.ChannelKind { return domain.ChannelPhone }

func (h *Hosted) Issue(ctx context.Context, to, _ string, _ time.Time) (*Secret, error) {
	v, err := h.client.StartVerification(ctx, to, verificationChannelSMS)
	if err != nil {
		log.Printf("[OTP] Twilio Verify start for %s failed: %v", to, err)
		return nil, mapTwilioError(err, "Failed to send verification code")
	}
	log.Printf("[OTP] Verification sent to %s (sid=%s, status=%s)", to, v.SID, v.Status)
	return nil, nil
}

func (h *Hosted) Check(ctx context.Context, c *domain.Contact, code string, _ time.Time) error {
	v, err := h.client.CheckVerification(ctx, c.ContactChannel, code)
	if err != nil {
		log.Printf("[OTP] Twilio Verify check for %s failed: %v", c.ContactChannel, err)
		return mapTwilioError(err, "Failed to verify code")
	}
	if v.Status != verificationApproved {
		return ErrInvalidCode
	}
	return nil
}

// mapTwilioError translates provider failures into workflow errors
func mapTwilioError(err error, fallback string) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return &DeliveryError{Provider: providerTwilio, Message: fallback, Err: err}
	}

	switch {
	case apiErr.Code == twilioAuthFailed || apiErr.Status == http.StatusUnauthorized:
		return &DeliveryError{Provider: providerTwilio, Message: "Twilio authentication failed", Err: err}
	case apiErr.Code == twilioInvalidPhone:
		return fmt.Errorf("%w: %s", ErrInvalidRecipient, apiErr.Message)
	case apiErr.Code == twilioUndeliverable:
		return &DeliveryError{Provider: providerTwilio, Message: "Phone number not valid or cannot receive SMS", Err: err}
	case apiErr.Status == http.StatusTooManyRequests:
		return ErrRateLimited
	case apiErr.Status == http.StatusNotFound:
		return ErrInvalidCode
	case apiErr.Status == http.StatusConflict:
		return ErrAlreadyVerified
	default:
		return &DeliveryError{Provider: providerTwilio, Message: fallback, Err: err}
	}
}
