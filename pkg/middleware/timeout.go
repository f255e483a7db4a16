package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/timeout"
	"github.com/gin-gonic/gin"
	"github.com/richxcame/navigator/pkg/common"
	"github.com/richxcame/navigator/pkg/logger"
	"go.uber.org/zap"
)

// RequestTimeout answers 504 when a handler runs past d. It must not wrap
// routes that hijack the connection, such as websocket upgrades.
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	return timeout.New(
		timeout.WithTimeout(d),
		timeout.WithResponse(func(c *gin.Context) {
			logger.WithContext(c.Request.Context()).Warn("request timeout",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Duration("timeout", d),
			)
			common.ErrorResponse(c, http.StatusGatewayTimeout, "request timeout")
		}),
	)
}
