package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTraceContext(headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		c.Request.Header.Set(k, v)
	}
	return c
}

func TestGetTraceID(t *testing.T) {
	t.Run("traceparent wins", func(t *testing.T) {
		c := newTraceContext(map[string]string{
			"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
			TraceIDHeader: "other-id",
		})
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(c))
	})

	t.Run("falls back to X-Trace-ID", func(t *testing.T) {
		c := newTraceContext(map[string]string{TraceIDHeader: "abc-123"})
		assert.Equal(t, "abc-123", GetTraceID(c))
	})

	t.Run("generates when absent", func(t *testing.T) {
		c := newTraceContext(nil)
		id := GetTraceID(c)
		assert.Len(t, id, 32)
		assert.NotEqual(t, id, GetTraceID(c))
	})
}

func TestLoggingMiddleware_SetsTraceHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(LoggingMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(TraceIDHeader))
}
