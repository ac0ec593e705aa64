// Package httpapi exposes the credential core over JSON/HTTP.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/credcore/internal/logging"
	"github.com/dmitrijs2005/credcore/internal/server/metrics"
	"github.com/dmitrijs2005/credcore/internal/server/services"
)

// NewRouter wires every route. m may be nil, in which case /metrics is not
// mounted.
func NewRouter(svc services.Credentials, health *Health, m *metrics.Metrics, log logging.Logger) http.Handler {
	log = log.With("module", "http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recovery(log))
	r.Use(observe(log, m))

	r.Get("/health/live", health.Live)
	r.Get("/health/ready", health.Ready)
	if m != nil {
		r.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	}

	authH := NewAuthHandler(svc, log)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))

		r.Post("/register", authH.Register)
		r.Post("/login", authH.Login)
		r.Post("/request-otp", authH.RequestOTP)
		r.Post("/login-otp", authH.LoginOTP)
		r.Post("/refresh", authH.Refresh)
		r.Post("/logout", authH.Logout)
	})

	userH := NewUserHandler(svc, log)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(requireBearer)

		r.Get("/me", userH.Me)
		r.Get("/me/super-user-only", userH.SuperUserOnly)
	})

	return r
}
