// Package identity validates user credentials against the remote "who am I"
// endpoint and normalizes every outcome into a Kind.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"verigate/internal/identity/metrics"
	"verigate/internal/platform/config"
)

const maxBodyBytes = 1 << 20

// Identity is the remote account a credential belongs to.
type Identity struct {
	ID               int64
	Name             string
	DisplayName      string
	HasVerifiedBadge bool
}

// whoAmIResponse is the subset of the remote payload we read. ID and Name are
// pointers so a missing field can be told apart from a zero value.
type whoAmIResponse struct {
	ID               *int64  `json:"id"`
	Name             *string `json:"name"`
	DisplayName      string  `json:"displayName"`
	HasVerifiedBadge bool    `json:"hasVerifiedBadge"`
}

// Client calls the remote identity API. It is safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	authHeader  string
	authScheme  string
	stripPrefix string
	userAgent   string
	timeout     time.Duration

	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTracer overrides the global otel tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

// New builds a client from configuration.
func New(cfg config.IdentityConfig, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{},
		endpoint:    cfg.Endpoint,
		authHeader:  cfg.AuthHeader,
		authScheme:  cfg.AuthScheme,
		stripPrefix: cfg.StripPrefix,
		userAgent:   cfg.UserAgent,
		timeout:     cfg.Timeout,
		tracer:      otel.Tracer("verigate/identity"),
		logger:      slog.Default(),
	}
	if c.authHeader == "" {
		c.authHeader = "Authorization"
	}
	if c.timeout <= 0 {
		c.timeout = 3 * time.Second
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Normalize strips the configured prefix and surrounding whitespace.
func (c *Client) Normalize(raw string) string {
	cred := strings.TrimSpace(raw)
	if c.stripPrefix != "" {
		cred = strings.TrimPrefix(cred, c.stripPrefix)
	}
	return strings.TrimSpace(cred)
}

// Validate exchanges a raw credential for the identity it belongs to. Every
// failure is an *Error; use KindOf or IsTerminal to branch on it.
func (c *Client) Validate(ctx context.Context, rawCredential string) (*Identity, error) {
	ctx, span := c.tracer.Start(ctx, "identity.Validate")
	defer span.End()

	start := time.Now()
	id, err := c.validate(ctx, rawCredential)

	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(attribute.String("identity.outcome", outcome))
	c.metrics.IncrementOutcome(outcome)
	if outcome != string(KindEmptyCredential) {
		c.metrics.ObserveLatency(time.Since(start))
	}
	return id, err
}

func (c *Client) validate(ctx context.Context, rawCredential string) (*Identity, error) {
	cred := c.Normalize(rawCredential)
	if cred == "" {
		return nil, NewError(KindEmptyCredential, "credential is empty", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, NewError(KindRemoteError, "build request", err)
	}
	req.Header.Set(c.authHeader, c.headerValue(cred))
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, NewError(KindTimeout, "identity endpoint did not respond in time", err)
		}
		return nil, NewError(KindRemoteError, "call identity endpoint", err)
	}
	defer resp.Body.Close()

	if kind, ok := kindForStatus(resp.StatusCode); ok {
		c.logger.DebugContext(ctx, "identity endpoint rejected credential",
			"status", resp.StatusCode,
			"kind", kind,
			"fingerprint", Fingerprint(cred),
		)
		return nil, &Error{Kind: kind, Message: fmt.Sprintf("identity endpoint returned %d", resp.StatusCode), StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, NewError(KindTimeout, "read identity response", err)
		}
		return nil, NewError(KindRemoteError, "read identity response", err)
	}

	var payload whoAmIResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, NewError(KindMalformedResponse, "decode identity response", err)
	}
	if payload.ID == nil || payload.Name == nil || *payload.Name == "" {
		return nil, NewError(KindMalformedResponse, "identity response is missing id or name", nil)
	}

	return &Identity{
		ID:               *payload.ID,
		Name:             *payload.Name,
		DisplayName:      payload.DisplayName,
		HasVerifiedBadge: payload.HasVerifiedBadge,
	}, nil
}

func (c *Client) headerValue(cred string) string {
	if c.authScheme == "" {
		return cred
	}
	return c.authScheme + " " + cred
}

// kindForStatus maps a non-200 status to a Kind. ok is false for 200.
func kindForStatus(status int) (Kind, bool) {
	switch {
	case status == http.StatusOK:
		return "", false
	case status == http.StatusUnauthorized:
		return KindUnauthorized, true
	case status == http.StatusForbidden:
		return KindForbidden, true
	case status == http.StatusTooManyRequests:
		return KindRateLimited, true
	default:
		return KindRemoteError, true
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
