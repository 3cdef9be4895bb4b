// Package api is the HTTP client for the injunweb REST API. One [Client]
// attaches the session token to every request and routes every 401
// through a single unauthorized handler.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/injunweb/injunctl/internal/domain"
)

// DefaultBaseURL is the production API origin.
const DefaultBaseURL = "https://api.injunweb.com"

const (
	defaultTimeout   = 30 * time.Second
	maxErrorBodySize = 4096
)

// TokenSource yields the bearer token for the next request.
type TokenSource interface {
	Token() (string, bool)
}

// UnauthorizedHandler runs once for every 401 response, before the error is
// returned to the caller.
type UnauthorizedHandler func(ctx context.Context, op string)

// Client talks to the injunweb API.
type Client struct {
	baseURL        *url.URL
	tokens         TokenSource
	http           *http.Client
	log            *slog.Logger
	userAgent      string
	onUnauthorized UnauthorizedHandler
	newRequestID   func() string
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(ua)
	}
}

// WithUnauthorizedHandler installs the handler invoked on every 401.
func WithUnauthorizedHandler(h UnauthorizedHandler) Option {
	return func(c *Client) {
		c.onUnauthorized = h
	}
}

// New returns a client for the API at baseURL. tokens may be nil, in which
// case every request is unauthenticated.
func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	u, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:      u,
		tokens:       tokens,
		http:         &http.Client{Timeout: defaultTimeout},
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		userAgent:    "injunctl",
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API origin the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func normalizeBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultBaseURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, errors.New("API URL must use http or https")
	}
	if strings.TrimSpace(u.Host) == "" {
		return nil, errors.New("API URL must include host")
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = u.Path + path
	return u.String()
}

// do performs one JSON round trip. body and out may be nil.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	requestID := c.newRequestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok, ok := c.tokens.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.log.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(op, resp)
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.log.Info("session rejected by server", "op", op, "request_id", requestID)
			c.onUnauthorized(ctx, op)
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func decodeError(op string, resp *http.Response) *domain.APIError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	apiErr := &domain.APIError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(b)),
	}
	var body domain.ErrorResponse
	if json.Unmarshal(b, &body) == nil {
		switch {
		case body.Error != "":
			apiErr.Message = body.Error
		case body.Message != "":
			apiErr.Message = body.Message
		}
		apiErr.Code = body.ErrorCode
	}
	return apiErr
}

// pathID validates a resource id for use as one path segment. Escaping is
// left to [url.URL.String].
func pathID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("missing resource id")
	}
	if strings.Contains(id, "/") {
		return "", fmt.Errorf("invalid resource id %q", id)
	}
	return id, nil
}
