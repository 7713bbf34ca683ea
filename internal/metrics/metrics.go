// Package metrics exposes Prometheus collectors for HTTP traffic and authentication.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors registered for one service.
type Metrics struct {
	service string

	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	loginFailures *prometheus.CounterVec
	logins        *prometheus.CounterVec
	registrations *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(service string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		service: service,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"service", "method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method", "path"}),
		loginFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_failures_total",
			Help: "Rejected login attempts by role and reason",
		}, []string{"role", "reason"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Successful logins by role",
		}, []string{"role"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Registrations by role and outcome",
		}, []string{"role", "outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by a rate limiter",
		}, []string{"limiter"}),
	}
	reg.MustRegister(m.requests, m.duration, m.loginFailures, m.logins, m.registrations, m.rateLimited)
	return m
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(m.service, method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(m.service, method, path).Observe(time.Since(start).Seconds())
	}
}

// LoginFailed counts a rejected login; reason is an internal label such as "unknown_email".
func (m *Metrics) LoginFailed(role, reason string) {
	m.loginFailures.WithLabelValues(role, reason).Inc()
}

// LoginSucceeded counts a successful login.
func (m *Metrics) LoginSucceeded(role string) {
	m.logins.WithLabelValues(role).Inc()
}

// Registered counts a registration attempt outcome ("created", "duplicate", "error").
func (m *Metrics) Registered(role, outcome string) {
	m.registrations.WithLabelValues(role, outcome).Inc()
}

// RateLimited counts a request rejected by the named limiter.
func (m *Metrics) RateLimited(limiter string) {
	m.rateLimited.WithLabelValues(limiter).Inc()
}
