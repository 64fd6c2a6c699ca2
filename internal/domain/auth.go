package domain

import (
	"context"
	"time"
)

const (
	RoleAdmin        = "ADMIN"
	TokenTypeService = "service"
)

// Claims is the verified payload of a locally issued token. It is only
// produced after signature and algorithm checks pass.
type Claims struct {
	Issuer    string
	Audience  []string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt *time.Time
	Type      string
	ServiceID string
}

// Identity is the caller as resolved by the remote identity service.
type Identity struct {
	ID      string
	Role    string
	Details map[string]any
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type TokenVerifier interface {
	Decode(token string) (Claims, error)
}

type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

type RoleAuthorizer interface {
	RequireAdmin(ctx context.Context, identity Identity) error
}
