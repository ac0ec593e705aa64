// Package metrics holds the Prometheus collectors for credential flows.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics groups every collector the server exports. Each instance owns a
// registry, so tests and multiple servers in one process do not collide.
type Metrics struct {
	Registry *prometheus.Registry

	OTPSent      *prometheus.CounterVec
	Logins       *prometheus.CounterVec
	TokenRefresh *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		OTPSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "credcore_otp_sent_total",
			Help: "OTP delivery attempts by channel and result.",
		}, []string{"channel", "result"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "credcore_logins_total",
			Help: "Login attempts by method and result.",
		}, []string{"method", "result"}),
		TokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "credcore_token_refresh_total",
			Help: "Refresh token exchanges by result.",
		}, []string{"result"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "credcore_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern, method and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}

	m.Registry.MustRegister(
		m.OTPSent,
		m.Logins,
		m.TokenRefresh,
		m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}

// The methods below are nil-safe so components can run without metrics.

func (m *Metrics) OTPDispatched(channel string, ok bool) {
	if m == nil {
		return
	}
	m.OTPSent.WithLabelValues(channel, result(ok)).Inc()
}

func (m *Metrics) Login(method string, ok bool) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(method, result(ok)).Inc()
}

func (m *Metrics) Refresh(ok bool) {
	if m == nil {
		return
	}
	m.TokenRefresh.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}
