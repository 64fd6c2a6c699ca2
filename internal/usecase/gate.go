package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"notifications/internal/domain"
)

type Policy string

const (
	PolicyAdmin Policy = "admin"
	PolicyUser  Policy = "user"
)

const (
	OutcomeAllowed           = "allowed"
	OutcomeTokenMissing      = "token_missing"
	OutcomeTokenMalformed    = "token_malformed"
	OutcomeTokenExpired      = "token_expired"
	OutcomeTokenInvalid      = "token_invalid"
	OutcomeRemoteUnreachable = "identity_unreachable"
	OutcomeRemoteError       = "identity_error"
	OutcomeForbidden         = "forbidden"
	OutcomeInternal          = "internal"
)

var acceptedSchemes = map[string]struct{}{
	"Bearer": {},
	"JWT":    {},
}

type GateMetrics interface {
	ObserveGateDecision(policy, outcome string)
}

// AuthorizationGate verifies a request's token locally, resolves the caller
// against the identity service and applies a policy. It holds no per-request
// state and is safe for concurrent use.
type AuthorizationGate struct {
	Tokens     domain.TokenVerifier
	Identities domain.IdentityResolver
	Roles      domain.RoleAuthorizer
	Logger     *slog.Logger
	Metrics    GateMetrics
}

// Authorize runs the shared preamble for header and then the policy rule.
// Local verification failures return before any remote call is made.
func (g *AuthorizationGate) Authorize(ctx context.Context, policy Policy, header string) (domain.Identity, error) {
	identity, err := g.authorize(ctx, policy, header)
	outcome := Outcome(err)
	if g.Metrics != nil {
		g.Metrics.ObserveGateDecision(string(policy), outcome)
	}
	if err != nil {
		g.logger().Info("request rejected by authorization gate",
			"event", "gate_rejected",
			"module", "internal/usecase",
			"layer", "usecase",
			"policy", string(policy),
			"outcome", outcome,
			"error", err.Error(),
		)
		return domain.Identity{}, err
	}
	return identity, nil
}

func (g *AuthorizationGate) authorize(ctx context.Context, policy Policy, header string) (domain.Identity, error) {
	if policy != PolicyAdmin && policy != PolicyUser {
		return domain.Identity{}, fmt.Errorf("unknown policy %q", policy)
	}
	if g.Tokens == nil || g.Identities == nil {
		return domain.Identity{}, errors.New("authorization gate misconfigured")
	}
	token, err := ParseAuthorizationHeader(header)
	if err != nil {
		return domain.Identity{}, err
	}

	claims, err := g.Tokens.Decode(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) || errors.Is(err, domain.ErrTokenInvalid) {
			return domain.Identity{}, err
		}
		return domain.Identity{}, fmt.Errorf("%w: %w", domain.ErrTokenInvalid, err)
	}
	g.logger().Debug("token verified locally",
		"event", "gate_token_verified",
		"module", "internal/usecase",
		"layer", "usecase",
		"token_type", claims.Type,
		"subject", claims.Subject,
		"service_id", claims.ServiceID,
	)

	identity, err := g.Identities.Resolve(ctx, token)
	if err != nil {
		return domain.Identity{}, err
	}

	if policy == PolicyAdmin {
		if err := g.requireAdmin(ctx, identity); err != nil {
			return domain.Identity{}, err
		}
	}
	return identity, nil
}

func (g *AuthorizationGate) requireAdmin(ctx context.Context, identity domain.Identity) error {
	if g.Roles != nil {
		return g.Roles.RequireAdmin(ctx, identity)
	}
	if !identity.IsAdmin() {
		return domain.ErrForbidden
	}
	return nil
}

func (g *AuthorizationGate) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// ParseAuthorizationHeader accepts exactly "<Bearer|JWT> <token>".
func ParseAuthorizationHeader(header string) (string, error) {
	if header == "" {
		return "", domain.ErrTokenMissing
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return "", domain.ErrTokenMalformed
	}
	if _, ok := acceptedSchemes[parts[0]]; !ok {
		return "", domain.ErrTokenMalformed
	}
	return parts[1], nil
}

func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeAllowed
	case errors.Is(err, domain.ErrTokenMissing):
		return OutcomeTokenMissing
	case errors.Is(err, domain.ErrTokenMalformed):
		return OutcomeTokenMalformed
	case errors.Is(err, domain.ErrTokenExpired):
		return OutcomeTokenExpired
	case errors.Is(err, domain.ErrTokenInvalid):
		return OutcomeTokenInvalid
	case errors.Is(err, domain.ErrRemoteServiceUnreachable):
		return OutcomeRemoteUnreachable
	case errors.Is(err, domain.ErrRemoteServiceError):
		return OutcomeRemoteError
	case errors.Is(err, domain.ErrForbidden):
		return OutcomeForbidden
	default:
		return OutcomeInternal
	}
}

type identityContextKey struct{}

func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(domain.Identity)
	return identity, ok
}
