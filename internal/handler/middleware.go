package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quillpost/internal/logger"
)

// RequestIDHeader 用于透传或回写请求 ID。
const RequestIDHeader = "X-Request-ID"

// RequestLogger 为每个请求分配请求 ID，并在结束时写一条结构化访问日志。
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()

		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set(RequestIDHeader, requestID)
		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		fields := []logger.Field{
			logger.F("method", c.Request.Method),
			logger.F("path", c.Request.URL.Path),
			logger.F("status", c.Writer.Status()),
			logger.F("latency", time.Since(start)),
			logger.F("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.F("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			log.Error(ctx, "http request", fields...)
		case c.Writer.Status() >= 400:
			log.Warn(ctx, "http request", fields...)
		default:
			log.Info(ctx, "http request", fields...)
		}
	}
}
