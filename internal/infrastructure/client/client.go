// Package client provides the HTTP client used to talk to the admin REST
// service. Every call is a single round trip: there is no retry loop and no
// response cache, failures surface to the caller immediately.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/console/internal/domain/shared"
	"github.com/erp/console/internal/infrastructure/config"
	"github.com/erp/console/internal/infrastructure/logger"
	"github.com/erp/console/internal/infrastructure/telemetry"
)

// HeaderRequestID carries the per-request correlation id.
const HeaderRequestID = "X-Request-ID"

// TokenSource yields the bearer token attached to each request. An empty
// token means the request is sent unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// invalidator is implemented by token sources that cache; the client drops
// the cached token after the server answers 401.
type invalidator interface {
	Invalidate(ctx context.Context) error
}

// Client is the HTTP client for the admin REST service.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	headers    map[string]string
	tokens     TokenSource
	logger     *zap.Logger
	metrics    *Metrics
	mu         sync.RWMutex
}

// Option configures a Client.
type Option func(*Client)

// WithTokenSource sets the bearer token provider.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records request metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient replaces the underlying http.Client, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a client for cfg.BaseURL.
func New(cfg config.APIConfig, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // opt-in for staging hosts
		},
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	c := &Client{
		httpClient: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		baseURL:    base,
		headers:    make(map[string]string),
		logger:     zap.NewNop(),
	}

	c.headers["Accept"] = "application/json"
	c.headers["User-Agent"] = "ERP-Console/1.0"
	if cfg.UserAgent != "" {
		c.headers["User-Agent"] = cfg.UserAgent
	}
	for k, v := range cfg.Headers {
		c.headers[k] = v
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Request represents an HTTP request to be executed.
type Request struct {
	Method      string
	Path        string
	QueryParams map[string]string
	Headers     map[string]string
	Body        Body
}

// Response represents a successful HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	RequestID  string
}

// Do executes req exactly once. A request that never got a response fails
// with *shared.TransportError; a response with status >= 400 fails with
// *shared.HTTPError carrying the server's message.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	u, err := c.buildURL(req.Path, req.QueryParams)
	if err != nil {
		return nil, fmt.Errorf("building URL: %w", err)
	}

	var (
		bodyReader  io.Reader
		contentType string
	)
	if req.Body != nil {
		bodyReader, contentType, err = req.Body.Encode()
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
	}

	requestID := logger.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx, _ = logger.WithRequestID(ctx, c.logger, requestID)
	}

	ctx, span := telemetry.StartClientSpan(ctx, req.Method, u.Path)
	defer span.End()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	c.setHeaders(httpReq, req.Headers)
	httpReq.Header.Set(HeaderRequestID, requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("authenticating request: %w", err)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	log := logger.WithLogger(ctx, c.logger).With(
		zap.String("method", req.Method),
		zap.String("path", u.Path),
	).Zap()

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		terr := &shared.TransportError{Method: req.Method, URL: u.String(), Err: err}
		telemetry.RecordError(span, terr)
		c.metrics.observe(req.Method, req.Path, 0, duration)
		log.Warn("request failed", zap.Error(err), zap.Duration("duration", duration))
		return nil, terr
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		terr := &shared.TransportError{Method: req.Method, URL: u.String(), Err: fmt.Errorf("reading response body: %w", err)}
		telemetry.RecordError(span, terr)
		c.metrics.observe(req.Method, req.Path, httpResp.StatusCode, duration)
		return nil, terr
	}

	telemetry.SetStatusCode(span, httpResp.StatusCode)
	c.metrics.observe(req.Method, req.Path, httpResp.StatusCode, duration)

	if httpResp.StatusCode >= http.StatusBadRequest {
		herr := shared.NewHTTPError(httpResp.StatusCode, ErrorMessage(body))
		if httpResp.StatusCode == http.StatusUnauthorized {
			herr.Err = shared.ErrUnauthorized
			c.invalidateToken(ctx, log)
		}
		log.Warn("request rejected",
			zap.Int("status", httpResp.StatusCode),
			zap.String("message", herr.Message),
			zap.Duration("duration", duration),
		)
		return nil, herr
	}

	log.Debug("request completed",
		zap.Int("status", httpResp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", duration),
	)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
		Duration:   duration,
		RequestID:  requestID,
	}, nil
}

func (c *Client) invalidateToken(ctx context.Context, log *zap.Logger) {
	inv, ok := c.tokens.(invalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx); err != nil {
		log.Warn("dropping cached token failed", zap.Error(err))
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, queryParams map[string]string) (*Response, error) {
	return c.Do(ctx, Request{
		Method:      http.MethodGet,
		Path:        path,
		QueryParams: queryParams,
	})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body Body) (*Response, error) {
	return c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body Body) (*Response, error) {
	return c.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   path,
		Body:   body,
	})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{
		Method: http.MethodDelete,
		Path:   path,
	})
}

// Download fetches a binary document. Absolute URLs are fetched as-is, which
// covers document links the server hands out on other hosts.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.Do(ctx, Request{
		Method:  http.MethodGet,
		Path:    path,
		Headers: map[string]string{"Accept": "*/*"},
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// buildURL resolves path against the base URL and adds query parameters.
func (c *Client) buildURL(path string, queryParams map[string]string) (*url.URL, error) {
	if path == "" {
		return nil, errors.New("empty path")
	}

	if !strings.Contains(path, "://") && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parsing path: %w", err)
	}

	u := ref
	if !ref.IsAbs() {
		resolved := *c.baseURL
		resolved.Path = strings.TrimSuffix(c.baseURL.Path, "/") + ref.Path
		resolved.RawPath = ""
		if ref.RawPath != "" {
			resolved.RawPath = strings.TrimSuffix(c.baseURL.EscapedPath(), "/") + ref.RawPath
		}
		resolved.RawQuery = ref.RawQuery
		u = &resolved
	}

	if len(queryParams) > 0 {
		q := u.Query()
		for k, v := range queryParams {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	return u, nil
}

func (c *Client) setHeaders(req *http.Request, customHeaders map[string]string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range customHeaders {
		req.Header.Set(k, v)
	}
}

// SetHeader sets a default header for all requests.
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[key] = value
}

// BaseURL returns the client's base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ResolveURL returns the absolute URL for a server-relative reference such
// as an image path.
func (c *Client) ResolveURL(ref string) string {
	u, err := c.buildURL(ref, nil)
	if err != nil {
		return ref
	}
	return u.String()
}
