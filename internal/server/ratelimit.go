package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"algoforce/internal/metrics"
)

// ipLimiter allows max requests per window for each client IP. The bucket
// holds max tokens and refills one token every window/max.
type ipLimiter struct {
	route      string
	message    string
	limit      rate.Limit
	burst      int
	idle       time.Duration
	trustProxy bool

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(route string, max int, window time.Duration, trustProxy bool, message string) *ipLimiter {
	return &ipLimiter{
		route:      route,
		message:    message,
		limit:      rate.Every(window / time.Duration(max)),
		burst:      max,
		idle:       window,
		trustProxy: trustProxy,
		visitors:   make(map[string]*visitor),
		now:        time.Now,
	}
}

// allow reports whether ip may make another request now
func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep drops visitors idle for a full window, at most once per window.
// A dropped visitor would have refilled completely anyway.
func (l *ipLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	l.lastSweep = now
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) >= l.idle {
			delete(l.visitors, ip)
		}
	}
}

// Middleware rejects requests over the limit with 429
func (l *ipLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, l.trustProxy)
		if !l.allow(ip) {
			metrics.RecordRateLimited(l.route)
			w.Header().Set("Retry-After", "60")
			writeJSON(r.Context(), w, http.StatusTooManyRequests, messageResponse{Success: false, Message: l.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the caller address, preferring the first X-Forwarded-For
// hop when the service runs behind a trusted proxy.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = strings.TrimSuffix(strings.TrimPrefix(r.RemoteAddr, "["), "]")
	}
	return ip
}
