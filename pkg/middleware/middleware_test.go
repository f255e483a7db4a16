package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/navigator/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCorrelationID(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, logger.CorrelationIDFromContext(c.Request.Context())+"|"+GetCorrelationID(c))
	})

	t.Run("keeps a valid caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(CorrelationIDHeader, "trace-abc-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "trace-abc-123", w.Header().Get(CorrelationIDHeader))
		assert.Equal(t, "trace-abc-123|trace-abc-123", w.Body.String())
	})

	t.Run("replaces a malformed id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(CorrelationIDHeader, "bad id\nwith newline")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		_, err := uuid.Parse(w.Header().Get(CorrelationIDHeader))
		assert.NoError(t, err)
	})
}

func TestSessionID(t *testing.T) {
	router := gin.New()
	router.GET("/sessions/:id", SessionID("id"), func(c *gin.Context) {
		c.String(http.StatusOK, logger.SessionIDFromContext(c.Request.Context()))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/abc", nil))
	assert.Equal(t, "abc", w.Body.String())
}

func TestRequestLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	defer logger.Set(zap.New(core))()

	router := gin.New()
	router.Use(RequestLogger("navigator", "/health/live"))
	router.POST("/fixes", func(c *gin.Context) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "stale fix"})
	})
	router.GET("/health/live", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/fixes", strings.NewReader(`{"accuracy": 5}`)))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "request rejected", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "navigator", fields["service"])
	assert.Equal(t, `{"accuracy": 5}`, fields["request_body"])
	assert.Equal(t, `{"error":"stale fix"}`, fields["response_body"])
}

func TestRequestTimeout(t *testing.T) {
	router := gin.New()
	router.Use(RequestTimeout(50 * time.Millisecond))
	router.GET("/slow", func(c *gin.Context) {
		time.Sleep(300 * time.Millisecond)
		c.String(http.StatusOK, "late")
	})
	router.GET("/fast", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "request timeout")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}
