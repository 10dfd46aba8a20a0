package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPLimiter_RefillsAndSweeps(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	l := newIPLimiter("verify", 2, 10*time.Minute, false, "slow down")
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("1.1.1.1"))
	assert.True(t, l.allow("1.1.1.1"))
	assert.False(t, l.allow("1.1.1.1"))
	assert.True(t, l.allow("2.2.2.2"))

	// one token per window/max
	now = now.Add(5 * time.Minute)
	assert.True(t, l.allow("1.1.1.1"))
	assert.False(t, l.allow("1.1.1.1"))

	now = now.Add(11 * time.Minute)
	l.allow("3.3.3.3")
	l.mu.Lock()
	_, stale := l.visitors["2.2.2.2"]
	l.mu.Unlock()
	assert.False(t, stale)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.7:4000"
	req.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")

	assert.Equal(t, "198.51.100.9", clientIP(req, true))
	assert.Equal(t, "203.0.113.7", clientIP(req, false))

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "192.0.2.1")
	assert.Equal(t, "192.0.2.1", clientIP(req, true))

	req.RemoteAddr = "[2001:db8::1]"
	assert.Equal(t, "2001:db8::1", clientIP(req, false))
}
