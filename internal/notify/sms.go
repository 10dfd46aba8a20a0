package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"algoforce/internal/config"
	"algoforce/internal/domain"
)

const (
	defaultTwilioAPIURL = "https://api.twilio.com"
	defaultTimeout      = 10 * time.Second
)

// SMSSender delivers verification codes through the Twilio Messages API
type SMSSender struct {
	cfg        *config.SMSConfig
	validFor   time.Duration
	BaseURL    string
	HTTPClient *http.Client
}

// NewSMSSender creates a new SMS sender
func NewSMSSender(cfg *config.SMSConfig, validFor time.Duration) *SMSSender {
	return &SMSSender{
		cfg:        cfg,
		validFor:   validFor,
		BaseURL:    defaultTwilioAPIURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Channel reports that codes go to phone numbers
func (s *SMSSender) Channel() domain.ChannelKind {
	return domain.ChannelPhone
}

// Send sends an OTP code via SMS
func (s *SMSSender) Send(ctx context.Context, to, code, name string) error {
	if !s.cfg.Enabled {
		// In development mode, just log
		log.Printf("[SMS] OTP would be sent to %s: %s", to, code)
		return nil
	}

	message := fmt.Sprintf("Your AlgoForce verification code is: %s. Valid for %d minutes.", code, int(s.validFor.Minutes()))
	return s.sendViaTwilio(ctx, to, message)
}

// sendViaTwilio sends SMS via Twilio API
func (s *SMSSender) sendViaTwilio(ctx context.Context, to, message string) error {
	if s.cfg.TwilioSID == "" || s.cfg.TwilioAuth == "" || s.cfg.TwilioFrom == "" {
		return fmt.Errorf("Twilio not properly configured")
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimRight(s.BaseURL, "/"), s.cfg.TwilioSID)
	form := url.Values{}
	form.Set("From", s.cfg.TwilioFrom)
	form.Set("To", to)
	form.Set("Body", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(s.cfg.TwilioSID, s.cfg.TwilioAuth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("Twilio API error (status %d, code %d): %s", resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("Twilio API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

// IsEnabled returns whether SMS service is enabled
func (s *SMSSender) IsEnabled() bool {
	return s.cfg.Enabled
}
