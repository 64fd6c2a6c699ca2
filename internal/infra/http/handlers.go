package http

import (
	"errors"
	"fmt"
	"net/http"

	"notifications/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	healthFailed         = "Health check failed"
	detailedHealthFailed = "Detailed health check failed"
)

var errHealthNotConfigured = errors.New("health aggregator not configured")

type errorResponse struct {
	Code    string         `json:"code"`
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

type healthErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type meResponse struct {
	ID      string         `json:"id"`
	Details map[string]any `json:"details"`
}

func (s *Server) handleHealth(c *gin.Context) {
	defer s.recoverHealth(c, healthFailed)
	if s.health == nil {
		s.writeHealthError(c, healthFailed, errHealthNotConfigured)
		return
	}
	c.JSON(http.StatusOK, s.health.Liveness())
}

func (s *Server) handleHealthDetailed(c *gin.Context) {
	defer s.recoverHealth(c, detailedHealthFailed)
	if s.health == nil {
		s.writeHealthError(c, detailedHealthFailed, errHealthNotConfigured)
		return
	}
	report, err := s.health.Readiness(c.Request.Context())
	if err != nil {
		s.writeHealthError(c, detailedHealthFailed, err)
		return
	}
	status := http.StatusOK
	if report.Status != domain.StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func (s *Server) recoverHealth(c *gin.Context, label string) {
	if r := recover(); r != nil {
		s.writeHealthError(c, label, fmt.Errorf("panic: %v", r))
	}
}

func (s *Server) writeHealthError(c *gin.Context, label string, err error) {
	s.logger.Error(label,
		"event", "health_endpoint_failed",
		"module", "internal/infra/http",
		"layer", "http",
		"request_id", c.GetString(requestIDContextKey),
		"error", err.Error(),
	)
	c.JSON(http.StatusInternalServerError, healthErrorResponse{Error: label, Message: "internal error"})
}

func (s *Server) handleMe(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	details := identity.Details
	if details == nil {
		details = map[string]any{}
	}
	c.JSON(http.StatusOK, meResponse{ID: identity.ID, Details: details})
}

func (s *Server) handleMonolithHealth(c *gin.Context) {
	if s.monolith == nil || !s.monolith.Configured() {
		writeErrorCode(c, http.StatusServiceUnavailable, "MONOLITH_NOT_CONFIGURED", "monolith url not configured")
		return
	}
	status, err := s.monolith.Health(c.Request.Context())
	if err != nil {
		s.logger.Warn("monolith health check failed",
			"event", "monolith_health_failed",
			"module", "internal/infra/http",
			"layer", "http",
			"request_id", c.GetString(requestIDContextKey),
			"error", err.Error(),
		)
		var details map[string]any
		if status.StatusCode != 0 {
			details = map[string]any{"status_code": status.StatusCode}
		}
		writeErrorCodeWithDetails(c, http.StatusBadGateway, "MONOLITH_UNAVAILABLE", "monolith unavailable", details)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleNoRoute(c *gin.Context) {
	writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	writeErrorCodeWithDetails(c, status, code, message, nil)
}

func writeErrorCodeWithDetails(c *gin.Context, status int, code, message string, details map[string]any) {
	c.JSON(status, errorResponse{
		Code:    code,
		Error:   message,
		Details: details,
	})
}
