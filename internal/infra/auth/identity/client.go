package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"notifications/internal/config"
	"notifications/internal/domain"
)

const (
	currentUserPath    = "/auth/users/me/"
	forwardScheme      = "JWT"
	defaultHTTPTimeout = 5 * time.Second
	maxBodyBytes       = 1 << 20
)

// Observer receives one observation per outbound identity call.
type Observer interface {
	ObserveIdentityRequest(outcome string, elapsed time.Duration)
}

// Client resolves the caller of a request against the identity service.
// It performs exactly one call per Resolve and never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	observer   Observer
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

func NewClient(cfg config.Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.AuthServiceHost), "/")
	if baseURL == "" {
		return nil, errors.New("AUTH_SERVICE_HOST is required")
	}
	timeout := cfg.AuthServiceTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	start := time.Now()
	identity, outcome, err := c.resolve(ctx, token)
	if c.observer != nil {
		c.observer.ObserveIdentityRequest(outcome, time.Since(start))
	}
	if err != nil {
		c.logger.Error("identity service call failed",
			"event", "identity_resolve_failed",
			"module", "internal/infra/auth/identity",
			"layer", "infra",
			"outcome", outcome,
			"error", err.Error(),
		)
		return domain.Identity{}, err
	}
	c.logger.Debug("identity resolved",
		"event", "identity_resolved",
		"module", "internal/infra/auth/identity",
		"layer", "infra",
		"user_id", identity.ID,
		"role", identity.Role,
	)
	return identity, nil
}

func (c *Client) resolve(ctx context.Context, token string) (domain.Identity, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+currentUserPath, nil)
	if err != nil {
		return domain.Identity{}, "request_error", fmt.Errorf("%w: build request: %w", domain.ErrRemoteServiceUnreachable, err)
	}
	req.Header.Set("Authorization", forwardScheme+" "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Identity{}, "unreachable", fmt.Errorf("%w: %w", domain.ErrRemoteServiceUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return domain.Identity{}, "remote_error", fmt.Errorf("%w: identity service returned HTTP %d", domain.ErrRemoteServiceError, resp.StatusCode)
	}

	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	decoder.UseNumber()
	var details map[string]any
	if err := decoder.Decode(&details); err != nil {
		return domain.Identity{}, "bad_payload", fmt.Errorf("%w: decode identity payload: %w", domain.ErrRemoteServiceError, err)
	}
	if details == nil {
		return domain.Identity{}, "bad_payload", fmt.Errorf("%w: empty identity payload", domain.ErrRemoteServiceError)
	}
	return identityFromPayload(details), "ok", nil
}

func identityFromPayload(details map[string]any) domain.Identity {
	identity := domain.Identity{Details: details}
	switch id := details["id"].(type) {
	case string:
		identity.ID = id
	case json.Number:
		identity.ID = id.String()
	}
	if role, ok := details["role"].(string); ok {
		identity.Role = role
	}
	return identity
}
