package monolith

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"notifications/internal/config"
	"notifications/internal/domain"
	"notifications/internal/infra/auth/token"
)

const (
	healthPath     = "/health/"
	defaultTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
)

type Status struct {
	StatusCode int            `json:"status_code"`
	Body       map[string]any `json:"body,omitempty"`
}

// Client talks to the monolith as this service, authenticating every call
// with a service token.
type Client struct {
	baseURL    string
	transport  *token.Transport
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

// WithBaseTransport replaces the transport underneath the token transport.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport.Base = rt
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(cfg config.Config, minter token.ServiceTokenMinter, opts ...Option) *Client {
	timeout := cfg.MonolithTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := &token.Transport{Minter: minter}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.MonolithURL, "/"),
		transport:  transport,
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Health fetches the monolith's health report. A non-2xx answer returns the
// decoded status together with ErrRemoteServiceError.
func (c *Client) Health(ctx context.Context) (Status, error) {
	if !c.Configured() {
		return Status{}, fmt.Errorf("monolith %w", domain.ErrNotConfigured)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return Status{}, fmt.Errorf("build monolith request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("monolith health call failed",
			"event", "monolith_unreachable",
			"module", "internal/infra/monolith",
			"layer", "infra",
			"error", err.Error(),
		)
		return Status{}, fmt.Errorf("%w: %w", domain.ErrRemoteServiceUnreachable, err)
	}
	defer resp.Body.Close()

	status := Status{StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return status, fmt.Errorf("%w: read body: %w", domain.ErrRemoteServiceError, err)
	}
	if len(raw) > 0 {
		var body map[string]any
		if json.Unmarshal(raw, &body) == nil {
			status.Body = body
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return status, fmt.Errorf("%w: monolith returned %d", domain.ErrRemoteServiceError, resp.StatusCode)
	}
	return status, nil
}
