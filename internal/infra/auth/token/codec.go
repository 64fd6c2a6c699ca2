package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"notifications/internal/config"
	"notifications/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const (
	signingAlg    = "HS256"
	clockLeeway   = 5 * time.Second
	errNoSecret   = "services jwt secret is required"
	errNoLifetime = "token carries neither exp nor iat"
)

type payload struct {
	jwt.RegisteredClaims
	Type      string `json:"type,omitempty"`
	ServiceID string `json:"service_id,omitempty"`
}

// Codec signs and verifies HS256 tokens shared with the identity service.
type Codec struct {
	secret    []byte
	issuer    string
	audience  string
	serviceID string
	maxAge    time.Duration
	now       func() time.Time
}

type Option func(*Codec)

func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

func WithMaxAge(maxAge time.Duration) Option {
	return func(c *Codec) {
		c.maxAge = maxAge
	}
}

func NewCodec(cfg config.Config, opts ...Option) (*Codec, error) {
	secret := strings.TrimSpace(cfg.ServicesJWTSecret)
	if secret == "" {
		return nil, errors.New(errNoSecret)
	}
	c := &Codec{
		secret:    []byte(secret),
		issuer:    cfg.TokenIssuer,
		audience:  cfg.TokenAudience,
		serviceID: cfg.ServiceID,
		maxAge:    cfg.TokenMaxAge,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encode signs an arbitrary claim set with the shared secret.
func (c *Codec) Encode(claims map[string]any) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims)).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// MintServiceToken builds the token this service presents to other services.
func (c *Codec) MintServiceToken() (string, error) {
	return c.Encode(map[string]any{
		"iss":        c.issuer,
		"aud":        c.audience,
		"iat":        c.now().Unix(),
		"type":       domain.TokenTypeService,
		"service_id": c.serviceID,
	})
}

// Decode verifies the signature and algorithm before any claim is read.
// Expiry failures map to domain.ErrTokenExpired, everything else to
// domain.ErrTokenInvalid. With a max age configured, a token must carry exp
// or iat.
func (c *Codec) Decode(raw string) (domain.Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingAlg}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(clockLeeway),
		jwt.WithTimeFunc(c.now),
	)
	var claims payload
	_, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Claims{}, fmt.Errorf("%w: %w", domain.ErrTokenExpired, err)
		}
		return domain.Claims{}, fmt.Errorf("%w: %w", domain.ErrTokenInvalid, err)
	}
	if claims.ExpiresAt == nil && claims.IssuedAt == nil && c.maxAge > 0 {
		return domain.Claims{}, fmt.Errorf("%w: %s", domain.ErrTokenInvalid, errNoLifetime)
	}
	// A token with its own exp is bound by it; max age only covers tokens
	// that carry iat alone.
	if c.maxAge > 0 && claims.ExpiresAt == nil && claims.IssuedAt != nil {
		if c.now().After(claims.IssuedAt.Add(c.maxAge + clockLeeway)) {
			return domain.Claims{}, fmt.Errorf("%w: issued more than %s ago", domain.ErrTokenExpired, c.maxAge)
		}
	}
	return toDomain(claims), nil
}

func toDomain(p payload) domain.Claims {
	out := domain.Claims{
		Issuer:    p.Issuer,
		Audience:  []string(p.Audience),
		Subject:   p.Subject,
		Type:      p.Type,
		ServiceID: p.ServiceID,
	}
	if p.IssuedAt != nil {
		out.IssuedAt = p.IssuedAt.Time
	}
	if p.ExpiresAt != nil {
		exp := p.ExpiresAt.Time
		out.ExpiresAt = &exp
	}
	return out
}
