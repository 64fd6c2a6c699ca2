package http

import (
	"errors"
	"net/http"

	"notifications/internal/domain"
	"notifications/internal/infra/auth/rbac"
	"notifications/internal/usecase"

	"github.com/gin-gonic/gin"
)

const identityContextKey = "identity"

// AdminRequired rejects callers whose resolved role is not ADMIN. The inner
// handlers get no identity attached.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return s.policyMiddleware(usecase.PolicyAdmin)
}

// UserRequired admits any authenticated caller and attaches the resolved
// identity to the gin context and the request context.
func (s *Server) UserRequired() gin.HandlerFunc {
	return s.policyMiddleware(usecase.PolicyUser)
}

// Protect wraps a single handler with a policy.
func (s *Server) Protect(policy usecase.Policy, inner gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.authorize(c, policy) {
			return
		}
		inner(c)
	}
}

func (s *Server) policyMiddleware(policy usecase.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.authorize(c, policy) {
			return
		}
		c.Next()
	}
}

func (s *Server) authorize(c *gin.Context, policy usecase.Policy) bool {
	if s.gate == nil {
		writeErrorCode(c, http.StatusInternalServerError, "AUTH_CONFIG_ERROR", "auth configuration error")
		c.Abort()
		return false
	}
	identity, err := s.gate.Authorize(c.Request.Context(), policy, c.GetHeader("Authorization"))
	if err != nil {
		s.writeGateError(c, err)
		c.Abort()
		return false
	}
	if policy == usecase.PolicyUser {
		c.Set(identityContextKey, identity)
		c.Request = c.Request.WithContext(usecase.WithIdentity(c.Request.Context(), identity))
	}
	return true
}

func getIdentity(c *gin.Context) (domain.Identity, bool) {
	raw, ok := c.Get(identityContextKey)
	if !ok {
		return usecase.IdentityFromContext(c.Request.Context())
	}
	identity, ok := raw.(domain.Identity)
	return identity, ok
}

func (s *Server) writeGateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrTokenMissing):
		writeErrorCode(c, http.StatusUnauthorized, "TOKEN_MISSING", "authorization token not provided")
	case errors.Is(err, domain.ErrTokenMalformed):
		writeErrorCode(c, http.StatusUnauthorized, "TOKEN_MALFORMED", "invalid token format")
	case errors.Is(err, domain.ErrTokenExpired):
		writeErrorCode(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "token has expired")
	case errors.Is(err, domain.ErrTokenInvalid):
		writeErrorCode(c, http.StatusUnauthorized, "TOKEN_INVALID", "invalid token")
	case errors.Is(err, domain.ErrRemoteServiceUnreachable):
		writeErrorCode(c, http.StatusInternalServerError, "IDENTITY_UNREACHABLE", "could not contact identity service")
	case errors.Is(err, domain.ErrRemoteServiceError):
		writeErrorCode(c, http.StatusInternalServerError, "IDENTITY_ERROR", "could not contact identity service")
	case errors.Is(err, domain.ErrForbidden):
		code := "MISSING_ROLE"
		if authz, ok := rbac.IsAuthzError(err); ok && authz.Code != "" {
			code = authz.Code
		}
		writeErrorCode(c, http.StatusForbidden, code, "role not allowed to perform this action")
	default:
		s.logger.Error("authorization gate failed unexpectedly",
			"event", "gate_internal_error",
			"module", "internal/infra/http",
			"layer", "http",
			"request_id", c.GetString(requestIDContextKey),
			"error", err.Error(),
		)
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
