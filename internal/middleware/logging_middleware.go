package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ikkim/churchbook-backend/pkg/logger"
)

const loggerKey = "logger"

// LoggingMiddleware 모든 요청에 UUID request ID를 붙이고, 요청별 필드가
// 바인딩된 로거를 컨텍스트에 심는다. 핸들러는 GetLoggerFromContext로 꺼내 쓴다.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := uuid.New().String()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		log := logger.WithContext(map[string]interface{}{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"ip":         c.ClientIP(),
		})
		c.Set(loggerKey, log)

		log.Debug("Request received", map[string]interface{}{
			"query":      c.Request.URL.RawQuery,
			"user_agent": c.Request.UserAgent(),
		})

		c.Next()

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"status_code": status,
			"latency_ms":  time.Since(start).Milliseconds(),
			"body_size":   c.Writer.Size(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case status >= 500:
			log.Error("Request completed", nil, fields)
		case status >= 400:
			log.Warn("Request completed", fields)
		default:
			log.Info("Request completed", fields)
		}
	}
}

// GetLoggerFromContext 컨텍스트의 요청 로거를 반환한다. 미들웨어를 거치지
// 않은 경로(테스트 등)에서는 전역 로거로 대체된다.
func GetLoggerFromContext(c *gin.Context) *logger.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*logger.Logger); ok {
			return l
		}
	}
	return logger.Get()
}
