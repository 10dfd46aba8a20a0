// Package server exposes the contact workflow over HTTP on a goa muxer.
package server

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goahttp "goa.design/goa/v3/http"
	"goa.design/goa/v3/http/middleware"

	"algoforce/internal/config"
	"algoforce/internal/metrics"
	"algoforce/internal/services"
)

// Services are the collaborators the HTTP layer dispatches to. Auth is nil
// when admin authentication is disabled.
type Services struct {
	Contacts *services.ContactService
	Auth     *services.AuthService
	Health   *services.HealthService
}

// Server routes HTTP requests to the services
type Server struct {
	cfg           *config.Config
	svc           Services
	mux           goahttp.Muxer
	sendLimiter   *ipLimiter
	verifyLimiter *ipLimiter
	handler       http.Handler
}

// New builds the router and middleware chain
func New(cfg *config.Config, svc Services) *Server {
	s := &Server{
		cfg: cfg,
		svc: svc,
		mux: goahttp.NewMuxer(),
		sendLimiter: newIPLimiter("send-otp", cfg.RateLimit.SendOTP, cfg.RateLimit.Window, cfg.App.TrustProxy,
			"Too many requests. Please try again later."),
		verifyLimiter: newIPLimiter("verify", cfg.RateLimit.Verify, cfg.RateLimit.Window, cfg.App.TrustProxy,
			"Too many verification attempts. Please try again later."),
	}
	s.mount()

	metricsHandler := promhttp.Handler()
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			metricsHandler.ServeHTTP(w, r)
			return
		}
		s.mux.ServeHTTP(w, r)
	})

	s.handler = chain(root,
		securityHeaders(cfg),
		cors(cfg),
		requestLogging,
		metrics.PrometheusMiddleware,
		middleware.RequestID(middleware.UseXRequestIDHeaderOption(true)),
		middleware.PopulateRequestContext(),
		exposeRequestID,
	)
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) mount() {
	public := func(l *ipLimiter, h http.HandlerFunc) http.HandlerFunc {
		return chain(h, l.Middleware).ServeHTTP
	}
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return chain(h, adminAuth(s.svc.Auth)).ServeHTTP
	}

	s.mux.Handle(http.MethodGet, "/api/health", s.handleHealth)
	s.mux.Handle(http.MethodGet, "/api/health/ready", s.handleReady)

	s.mux.Handle(http.MethodPost, "/api/contact/send-otp", public(s.sendLimiter, s.handleSendOTP))
	s.mux.Handle(http.MethodPost, "/api/contact", public(s.sendLimiter, s.handleSendOTP))
	s.mux.Handle(http.MethodPost, "/api/contact/verify-and-save", public(s.verifyLimiter, s.handleVerifyAndSave))
	s.mux.Handle(http.MethodPost, "/api/contact/verify-otp", public(s.verifyLimiter, s.handleVerifyOTP))

	s.mux.Handle(http.MethodGet, "/api/contact", admin(s.handleList))
	s.mux.Handle(http.MethodGet, "/api/contact/{id}", admin(s.handleGet))
	s.mux.Handle(http.MethodPut, "/api/contact/{id}", admin(s.handleUpdateStatus))

	if s.svc.Auth != nil {
		s.mux.Handle(http.MethodPost, "/api/auth/login", public(s.verifyLimiter, s.handleLogin))
		log.Println("[HTTP] Admin routes require a bearer token")
	} else {
		log.Println("[HTTP] Admin authentication disabled, admin routes are open")
	}
}
