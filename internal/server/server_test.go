package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"algoforce/internal/config"
	"algoforce/internal/database"
	"algoforce/internal/domain"
	"algoforce/internal/otp"
	"algoforce/internal/services"
	"algoforce/internal/store"
	"algoforce/internal/util"
)

const testOrigin = "https://algoforceaii.com"

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "AlgoForce API", Port: "5000", TrustProxy: true},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{testOrigin},
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         600,
		},
		RateLimit: config.RateLimitConfig{SendOTP: 20, Verify: 10, Window: 15 * time.Minute},
	}
}

type testServer struct {
	handler http.Handler
	repo    *store.MemoryContactStore
}

func newTestServer(t *testing.T, cfg *config.Config, auth *services.AuthService) *testServer {
	t.Helper()
	repo := store.NewMemoryContactStore()
	strategy := otp.NewDev(domain.ChannelPhone)
	srv := New(cfg, Services{
		Contacts: services.NewContactService(repo, strategy, services.Options{}),
		Auth:     auth,
		Health:   services.NewHealthService(strategy.Name(), repo),
	})
	return &testServer{handler: srv.Handler(), repo: repo}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:51234"
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func submission(phone string) map[string]any {
	return map[string]any{"name": "A", "company": "B", "phone": phone, "role": "CEO", "problem": "x"}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)

	rec, body := ts.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "AlgoForce API is running", body["message"])
	assert.Equal(t, "dev", body["strategy"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec, body = ts.do(t, http.MethodGet, "/api/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["database"])
}

func TestSendOTPThenVerify(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)

	rec, body := ts.do(t, http.MethodPost, "/api/contact/send-otp", submission("+12025551234"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["message"], "OTP sent")

	rec, body = ts.do(t, http.MethodPost, "/api/contact/send-otp", submission("+12025551234"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, false, body["success"])

	verify := submission("+12025551234")
	verify["otp"] = "123456"
	rec, body = ts.do(t, http.MethodPost, "/api/contact/verify-and-save", verify)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "A", body["name"])
	id, _ := body["contactId"].(string)
	require.NotEmpty(t, id)

	rec, _ = ts.do(t, http.MethodPost, "/api/contact/verify-and-save", verify)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body = ts.do(t, http.MethodGet, "/api/contact/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "verified", data["status"])
	assert.Equal(t, true, data["otpVerified"])
	assert.NotContains(t, data, "otpSecret")
}

func TestSendOTPWithPhoneOnly(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)

	rec, body := ts.do(t, http.MethodPost, "/api/contact/send-otp", map[string]any{"phone": "+12025551234"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])

	rec, body = ts.do(t, http.MethodPost, "/api/contact/verify-and-save", map[string]any{"phone": "+12025551234", "otp": "123456"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["message"], "Name is required")

	verify := submission("+12025551234")
	verify["otp"] = "123456"
	rec, body = ts.do(t, http.MethodPost, "/api/contact/verify-and-save", verify)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "A", body["name"])

	rec, body = ts.do(t, http.MethodGet, "/api/contact/"+body["contactId"].(string), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "B", data["company"])
	assert.Equal(t, "verified", data["status"])
}

func TestVerifyWithoutRequest(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)

	rec, body := ts.do(t, http.MethodPost, "/api/contact/verify-otp", map[string]any{"phone": "+12025551234", "otp": "000000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Invalid phone number or OTP already verified", body["message"])
}

func TestLegacyContactAlias(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)

	rec, _ := ts.do(t, http.MethodPost, "/api/contact", submission("+442071234567"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ts.repo.Writes())
}

func TestValidationAndDecodeErrors(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)

	rec, body := ts.do(t, http.MethodPost, "/api/contact/send-otp", submission("2025551234"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["message"], "E.164")

	req := httptest.NewRequest(http.MethodPost, "/api/contact/send-otp", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	ts.handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	huge := submission("+12025551234")
	huge["problem"] = strings.Repeat("x", maxBodyBytes)
	rec, body = ts.do(t, http.MethodPost, "/api/contact/send-otp", huge)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["message"], "too large")
	assert.Equal(t, 0, ts.repo.Writes())
}

func TestAdminRoutesOpenWhenAuthDisabled(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)
	ts.do(t, http.MethodPost, "/api/contact/send-otp", submission("+12025551234"))

	rec, body := ts.do(t, http.MethodGet, "/api/contact", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])
	id := body["data"].([]any)[0].(map[string]any)["id"].(string)

	rec, body = ts.do(t, http.MethodPut, "/api/contact/"+id, map[string]any{"status": "verified"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Contact status updated successfully", body["message"])

	rec, _ = ts.do(t, http.MethodPut, "/api/contact/"+id, map[string]any{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = ts.do(t, http.MethodGet, "/api/contact/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Contact not found", body["message"])
}

func TestAdminRoutesRequireTokenWhenAuthEnabled(t *testing.T) {
	db, err := database.Open(config.DatabaseConfig{URL: "sqlite:///:memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	auth := services.NewAuthService(db, util.NewTokenManager(strings.Repeat("s", 32), time.Hour), time.Hour)
	_, err = auth.CreateUser(context.Background(), services.CreateUserInput{
		Username: "ops", Email: "ops@algoforce.com", Password: "correct-horse", IsStaff: true,
	})
	require.NoError(t, err)

	ts := newTestServer(t, testConfig(), auth)

	rec, _ := ts.do(t, http.MethodGet, "/api/contact", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = ts.do(t, http.MethodGet, "/api/contact", nil, "Authorization", "Bearer junk")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = ts.do(t, http.MethodPost, "/api/auth/login", map[string]any{"username": "ops", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := ts.do(t, http.MethodPost, "/api/auth/login", map[string]any{"username": "ops", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := body["data"].(map[string]any)["accessToken"].(string)

	rec, _ = ts.do(t, http.MethodGet, "/api/contact", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = ts.do(t, http.MethodPost, "/api/contact/send-otp", submission("+12025551234"))
	assert.Equal(t, http.StatusOK, rec.Code, "public routes stay open")
}

func TestSendOTPRateLimitPerIP(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.SendOTP = 2
	ts := newTestServer(t, cfg, nil)

	phones := []string{"+12025550001", "+12025550002", "+12025550003"}
	for i, phone := range phones[:2] {
		rec, _ := ts.do(t, http.MethodPost, "/api/contact/send-otp", submission(phone))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec, body := ts.do(t, http.MethodPost, "/api/contact/send-otp", submission(phones[2]))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests. Please try again later.", body["message"])

	rec, _ = ts.do(t, http.MethodPost, "/api/contact/send-otp", submission(phones[2]), "X-Forwarded-For", "198.51.100.9, 10.0.0.1")
	assert.Equal(t, http.StatusOK, rec.Code, "a different client has its own bucket")
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)

	rec, _ := ts.do(t, http.MethodOptions, "/api/contact/send-otp", nil, "Origin", testOrigin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")

	rec, _ = ts.do(t, http.MethodPost, "/api/contact/send-otp", submission("+12025551234"), "Origin", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, ts.repo.Writes())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)
	ts.do(t, http.MethodGet, "/api/health", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
