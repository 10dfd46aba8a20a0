package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"algoforce/internal/config"
)

const (
	defaultVerifyURL     = "https://verify.twilio.com/v2"
	defaultVerifyTimeout = 10 * time.Second
)

// Verification is the subset of a Twilio Verify resource the workflow reads
type Verification struct {
	SID     string `json:"sid"`
	To      string `json:"to"`
	Channel string `json:"channel"`
	Status  string `json:"status"`
}

// APIError is an error body returned by the Twilio REST API
type APIError struct {
	Status   int    `json:"status"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Twilio API error (status %d, code %d): %s", e.Status, e.Code, e.Message)
}

// VerifyClient talks to the Twilio Verify v2 API of a single service
type VerifyClient struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	ServiceSID string
	HTTPClient *http.Client
}

// NewVerifyClient creates a Verify client from configuration
func NewVerifyClient(cfg *config.VerifyConfig) *VerifyClient {
	base := cfg.BaseURL
	if base == "" {
		base = defaultVerifyURL
	}
	return &VerifyClient{
		BaseURL:    strings.TrimRight(base, "/"),
		AccountSID: cfg.AccountSID,
		AuthToken:  cfg.AuthToken,
		ServiceSID: cfg.ServiceSID,
		HTTPClient: &http.Client{Timeout: defaultVerifyTimeout},
	}
}

// StartVerification asks the service to generate and deliver a code
func (c *VerifyClient) StartVerification(ctx context.Context, to, channel string) (*Verification, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("Channel", channel)
	form.Set("Locale", "en")
	return c.post(ctx, "Verifications", form)
}

// CheckVerification submits a code for the pending verification of to
func (c *VerifyClient) CheckVerification(ctx context.Context, to, code string) (*Verification, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("Code", code)
	return c.post(ctx, "VerificationCheck", form)
}

func (c *VerifyClient) post(ctx context.Context, resource string, form url.Values) (*Verification, error) {
	endpoint := fmt.Sprintf("%s/Services/%s/%s", c.BaseURL, url.PathEscape(c.ServiceSID), resource)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.AccountSID, c.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach Twilio Verify: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("failed to read Twilio Verify response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{}
		if json.Unmarshal(body, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		apiErr.Status = resp.StatusCode
		return nil, apiErr
	}

	var v Verification
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("failed to decode Twilio Verify response: %w", err)
	}
	return &v, nil
}
