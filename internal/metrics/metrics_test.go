package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareCountsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New("test", prometheus.NewRegistry())

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/class/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/class/"+id, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("test", "GET", "/api/class/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("test", "GET", "unmatched", "404")))
}

func TestAuthCounters(t *testing.T) {
	m := New("test", prometheus.NewRegistry())

	m.LoginFailed("SCHOOL", "unknown_email")
	m.LoginFailed("SCHOOL", "unknown_email")
	m.LoginFailed("SCHOOL", "wrong_password")
	m.LoginSucceeded("TEACHER")
	m.Registered("STUDENT", "duplicate")
	m.RateLimited("login")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.loginFailures.WithLabelValues("SCHOOL", "unknown_email")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginFailures.WithLabelValues("SCHOOL", "wrong_password")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues("TEACHER")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.registrations.WithLabelValues("STUDENT", "duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("login")))
}
