package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader     = "X-Request-ID"
	requestIDContextKey = "request_id"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if s.metrics != nil {
			s.metrics.ObserveHTTPRequest(c.Request.Method, route, status, elapsed)
		}
		s.logger.Info("http request",
			"event", "http_request",
			"module", "internal/infra/http",
			"layer", "http",
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", elapsed.Milliseconds(),
			"request_id", c.GetString(requestIDContextKey),
		)
	}
}

func (s *Server) recoverPanic(c *gin.Context, recovered any) {
	s.logger.Error("panic while handling request",
		"event", "http_panic",
		"module", "internal/infra/http",
		"layer", "http",
		"path", c.Request.URL.Path,
		"request_id", c.GetString(requestIDContextKey),
		"panic", recovered,
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL", Error: "internal error"})
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Next()
	}
}
