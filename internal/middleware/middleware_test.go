package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestSecurityHeaders(t *testing.T) {
	r := newTestRouter(SecurityHeaders())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
}

func TestCorrelationIDGenerated(t *testing.T) {
	r := newTestRouter(CorrelationID())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestCorrelationIDPreserved(t *testing.T) {
	r := newTestRouter(CorrelationID())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Correlation-ID", "fixed-id")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "fixed-id", w.Header().Get("X-Correlation-ID"))
}

func TestRateLimitRejectsBurstOverflow(t *testing.T) {
	r := newTestRouter(RateLimit(1, 2))

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		statuses = append(statuses, w.Code)
	}

	assert.Equal(t, http.StatusOK, statuses[0])
	assert.Equal(t, http.StatusOK, statuses[1])
	assert.Contains(t, statuses[2:], http.StatusTooManyRequests)
}
