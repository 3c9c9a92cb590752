package api

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/rs/zerolog"

	"github.com/diogo/docchat/internal/config"
	apierrors "github.com/diogo/docchat/internal/errors"
	"github.com/diogo/docchat/internal/logging"
	"github.com/diogo/docchat/internal/models"
)

const (
	// DefaultTimeout is the transport timeout. Requests are never retried.
	DefaultTimeout = 300 * time.Second

	maxResponseSize = 10 * 1024 * 1024 // 10MB
)

// AnalysisService is the remote boundary used by a chat session: one call uploads a
// document and resolves to a context handle, the other answers a query that is
// optionally bound to such a handle.
type AnalysisService interface {
	UploadDocument(ctx context.Context, doc *models.Document) (string, error)
	SubmitQuery(ctx context.Context, query Query) (*models.Answer, error)
}

// Client talks to the document chat API over HTTP
type Client struct {
	httpClient tls_client.HttpClient
	creds      config.Credentials
	timeout    time.Duration
	logger     zerolog.Logger
	mu         sync.RWMutex
	closed     bool
}

var _ AnalysisService = (*Client)(nil)

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithTimeout sets the transport timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient tls_client.HttpClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Client. The credential and endpoint are fixed for the
// lifetime of the client.
func NewClient(creds config.Credentials, opts ...ClientOption) (*Client, error) {
	creds = creds.WithDefaults()
	if err := config.ValidateCredentials(creds); err != nil {
		return nil, err
	}

	client := &Client{
		creds:   creds,
		timeout: DefaultTimeout,
		logger:  logging.With().Str("component", "api").Logger(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(int(client.timeout.Seconds())),
			tls_client.WithClientProfile(profiles.Chrome_120),
			tls_client.WithNotFollowRedirects(),
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// Close releases idle connections. Calls made after Close fail.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.httpClient.CloseIdleConnections()
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.creds.BaseURL
}

// User returns the end-user identifier sent with requests
func (c *Client) User() string {
	return c.creds.User
}

func (c *Client) endpoint(path string) string {
	return c.creds.BaseURL + path
}

// post sends one authenticated POST and returns the body of a 2xx response.
// Every failure is a *errors.TransportError.
func (c *Client) post(ctx context.Context, op, path, contentType string, body io.Reader) (string, error) {
	endpoint := c.endpoint(path)

	if c.IsClosed() {
		return "", apierrors.NewNetworkError(op, endpoint, apierrors.ErrClientClosed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", apierrors.NewNetworkError(op, endpoint, fmt.Errorf("failed to create request: %w", err))
	}

	for key, value := range models.DefaultHeaders() {
		req.Header.Set(key, value)
	}
	req.Header.Set("Authorization", "Bearer "+c.creds.APIKey)
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("op", op).Str("endpoint", endpoint).Msg("request failed")
		return "", apierrors.NewNetworkError(op, endpoint, err)
	}
	defer func() {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	var data []byte
	if resp.Body != nil {
		data, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return "", apierrors.NewNetworkError(op, endpoint, fmt.Errorf("failed to read response: %w", err))
		}
	}

	c.logger.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Dur("took", time.Since(start)).
		Msg("request finished")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apierrors.NewStatusError(op, endpoint, resp.StatusCode, string(data))
	}

	return string(data), nil
}
