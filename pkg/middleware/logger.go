package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/navigator/pkg/logger"
	"github.com/richxcame/navigator/pkg/security"
	"go.uber.org/zap"
)

const maxLoggedPayload = 512

type responseRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if r.body.Len() < maxLoggedPayload {
		r.body.Write(data)
	}
	return r.ResponseWriter.Write(data)
}

func (r *responseRecorder) WriteString(data string) (int, error) {
	if r.body.Len() < maxLoggedPayload {
		r.body.WriteString(data)
	}
	return r.ResponseWriter.WriteString(data)
}

// RequestLogger logs one line per request. Paths listed in skip (health and
// metrics probes) are not logged, and websocket upgrades are logged without
// wrapping the writer.
func RequestLogger(serviceName string, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skipped[path]; ok {
			c.Next()
			return
		}

		upgrade := strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
		var recorder *responseRecorder
		var requestBody string
		if !upgrade {
			requestBody = captureRequestBody(c)
			recorder = &responseRecorder{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
			c.Writer = recorder
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("service", serviceName),
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("route", c.FullPath()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("response_size", c.Writer.Size()),
		}
		if requestBody != "" {
			fields = append(fields, zap.String("request_body", requestBody))
		}
		if recorder != nil && status >= 400 {
			if body := sanitizePayload(recorder.body.Bytes()); body != "" {
				fields = append(fields, zap.String("response_body", body))
			}
		}

		reqLogger := logger.WithContext(c.Request.Context())
		switch {
		case len(c.Errors) > 0:
			fields = append(fields, zap.String("errors", c.Errors.String()))
			reqLogger.Error("request completed with errors", fields...)
		case status >= 500:
			reqLogger.Error("request failed", fields...)
		case status >= 400:
			reqLogger.Warn("request rejected", fields...)
		default:
			reqLogger.Info("request completed", fields...)
		}
	}
}

func captureRequestBody(c *gin.Context) string {
	if c.Request == nil || c.Request.Body == nil {
		return ""
	}
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	return sanitizePayload(bodyBytes)
}

func sanitizePayload(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	sanitized := security.SanitizeString(security.StripHTMLTags(string(payload)))
	sanitized = security.NormalizeWhitespace(sanitized)
	return security.Truncate(sanitized, maxLoggedPayload)
}
