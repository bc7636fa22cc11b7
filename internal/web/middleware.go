package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tyemirov/lifecrm/internal/observability"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const requestIDContextKey = "request_id"

// RequestLogger assigns a request id (reusing a well-formed inbound one) and logs each request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		started := time.Now()
		requestID := strings.TrimSpace(contextGin.GetHeader(RequestIDHeader))
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		contextGin.Set(requestIDContextKey, requestID)
		contextGin.Header(RequestIDHeader, requestID)

		contextGin.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.FullPath()),
			zap.Int("status", contextGin.Writer.Status()),
			zap.String("ip", contextGin.ClientIP()),
			zap.Duration("elapsed", time.Since(started)),
		}
		if len(contextGin.Errors) > 0 {
			fields = append(fields, zap.String("errors", contextGin.Errors.String()))
		}
		if contextGin.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("http request", fields...)
			return
		}
		logger.Info("http request", fields...)
	}
}

// Recovery turns panics into 500 responses and reports them.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return gin.CustomRecovery(func(contextGin *gin.Context, recovered any) {
		err := fmt.Errorf("panic: %v", recovered)
		logger.Error("request panicked", zap.String("code", "http.panic"), zap.String("path", contextGin.Request.URL.Path), zap.Error(err))
		observability.CaptureError("http.panic", err)
		contextGin.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	})
}
