package otp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"algoforce/internal/config"
	"algoforce/internal/domain"
)

func newVerifyServer(t *testing.T, handler http.HandlerFunc) *Hosted {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewVerifyClient(&config.VerifyConfig{
		AccountSID: "AC123",
		AuthToken:  "token",
		ServiceSID: "VA123",
		BaseURL:    server.URL,
	})
	return NewHosted(client)
}

func writeTwilioError(w http.ResponseWriter, status, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "code": code, "message": message})
}

func TestHosted_Issue(t *testing.T) {
	h := newVerifyServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Services/VA123/Verifications", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "token", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+12025551234", r.PostForm.Get("To"))
		assert.Equal(t, "sms", r.PostForm.Get("Channel"))
		assert.Equal(t, "en", r.PostForm.Get("Locale"))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"VE1","to":"+12025551234","channel":"sms","status":"pending"}`))
	})

	assert.Equal(t, "hosted", h.Name())
	assert.Equal(t, domain.ChannelPhone, h.Channel())

	secret, err := h.Issue(context.Background(), "+12025551234", "Ada", time.Now())
	require.NoError(t, err)
	assert.Nil(t, secret, "hosted records keep no local secret")
}

func TestHosted_CheckStatuses(t *testing.T) {
	status := "approved"
	h := newVerifyServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Services/VA123/VerificationCheck", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+12025551234", r.PostForm.Get("To"))
		assert.Equal(t, "123456", r.PostForm.Get("Code"))
		_ = json.NewEncoder(w).Encode(Verification{SID: "VE1", To: "+12025551234", Status: status})
	})
	c := &domain.Contact{ContactChannel: "+12025551234"}

	assert.NoError(t, h.Check(context.Background(), c, "123456", time.Now()))

	status = "pending"
	assert.ErrorIs(t, h.Check(context.Background(), c, "123456", time.Now()), ErrInvalidCode)
}

func TestHosted_ErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		code        int
		wantErr     error
		wantMessage string
	}{
		{name: "not found", status: http.StatusNotFound, code: 20404, wantErr: ErrInvalidCode},
		{name: "conflict", status: http.StatusConflict, code: 0, wantErr: ErrAlreadyVerified},
		{name: "rate limited", status: http.StatusTooManyRequests, code: 60203 + 1, wantErr: ErrRateLimited},
		{name: "invalid phone", status: http.StatusBadRequest, code: 60200, wantErr: ErrInvalidRecipient},
		{name: "auth", status: http.StatusUnauthorized, code: 20003, wantMessage: "Twilio authentication failed"},
		{name: "undeliverable", status: http.StatusBadRequest, code: 60203, wantMessage: "Phone number not valid or cannot receive SMS"},
		{name: "other", status: http.StatusInternalServerError, code: 0, wantMessage: "Failed to verify code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newVerifyServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeTwilioError(w, tt.status, tt.code, "boom")
			})

			err := h.Check(context.Background(), &domain.Contact{ContactChannel: "+12025551234"}, "123456", time.Now())
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			var dErr *DeliveryError
			require.ErrorAs(t, err, &dErr)
			assert.Equal(t, "twilio", dErr.Provider)
			assert.Equal(t, tt.wantMessage, dErr.Message)
		})
	}
}

func TestHosted_IssueUnreachable(t *testing.T) {
	client := NewVerifyClient(&config.VerifyConfig{
		AccountSID: "AC123", AuthToken: "token", ServiceSID: "VA123",
		BaseURL: "http://127.0.0.1:1",
	})
	_, err := NewHosted(client).Issue(context.Background(), "+12025551234", "Ada", time.Now())

	var dErr *DeliveryError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, "Failed to send verification code", dErr.Message)
}

func TestNewStrategy(t *testing.T) {
	cfg := &config.Config{OTP: config.OTPConfig{
		Strategy:   config.StrategyAuto,
		Delivery:   config.DeliveryEmail,
		DevChannel: config.ChannelEmail,
		TTL:        10 * time.Minute,
		HashCost:   4,
	}}

	s, err := NewStrategy(cfg)
	require.NoError(t, err)
	assert.Equal(t, "dev", s.Name())
	assert.Equal(t, domain.ChannelEmail, s.Channel())

	cfg.Email.Enabled = true
	s, err = NewStrategy(cfg)
	require.NoError(t, err)
	assert.Equal(t, "local", s.Name())
	assert.Equal(t, domain.ChannelEmail, s.Channel())

	cfg.OTP.Strategy = config.StrategyLocal
	cfg.OTP.Delivery = config.DeliverySMS
	s, err = NewStrategy(cfg)
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelPhone, s.Channel())

	cfg.OTP.Strategy = config.StrategyAuto
	cfg.Verify = config.VerifyConfig{AccountSID: "AC1", AuthToken: "tok", ServiceSID: "VA1"}
	s, err = NewStrategy(cfg)
	require.NoError(t, err)
	assert.Equal(t, "hosted", s.Name())

	cfg.OTP.Strategy = "bogus"
	_, err = NewStrategy(cfg)
	assert.Error(t, err)
}
