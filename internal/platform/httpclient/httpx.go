// Package httpclient provides the HTTP client used for third-party APIs
// (NVD, ipinfo): rate limiting, retries on transient failures, a shared circuit
// breaker and JSON decoding.
//
// Los probes web contra el objetivo NO usan este cliente: allí cada
// request es una observación y no se reintenta.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
	"reconmcp/internal/platform/rate"
	"reconmcp/internal/platform/resilience"
)

// maxBodyBytes acota lo que se lee de una respuesta de API.
const maxBodyBytes = 8 << 20

// Client is an HTTP client for JSON APIs.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	retrier     *resilience.Retrier
	logger      logx.Logger
	config      Config
}

// Config holds the configuration for the HTTP client.
type Config struct {
	// Name identifica el servicio en logs y errores.
	Name string

	// Timeout is the per-request timeout.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for transient failures.
	// Default: 2
	MaxRetries int

	// RetryBackoff is the initial backoff duration; it doubles on each retry.
	// Default: 1 second
	RetryBackoff time.Duration

	// UserAgent is the User-Agent header value.
	UserAgent string

	// RateLimit is the maximum requests per second. 0 means no rate limiting.
	RateLimit float64

	// RateLimitBurst is the burst size for rate limiting.
	// Default: 1
	RateLimitBurst int

	// BreakerThreshold consecutive failures open the circuit for
	// BreakerCooldown. 0 disables the breaker.
	BreakerThreshold int
	BreakerCooldown  time.Duration

	// Transport permite inyectar un RoundTripper (tests).
	Transport http.RoundTripper
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Name:             "api",
		Timeout:          30 * time.Second,
		MaxRetries:       2,
		RetryBackoff:     time.Second,
		UserAgent:        "reconmcp/1.0",
		RateLimitBurst:   1,
		BreakerThreshold: 5,
		BreakerCooldown:  time.Minute,
	}
}

// New creates a new HTTP client with the given configuration.
func New(config Config, logger logx.Logger) *Client {
	if config.Name == "" {
		config.Name = "api"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "reconmcp/1.0"
	}
	if config.RateLimitBurst <= 0 {
		config.RateLimitBurst = 1
	}
	if logger == nil {
		logger = logx.NewDiscard()
	}
	logger = logger.With("component", "httpclient", "service", config.Name)

	var breaker *resilience.CircuitBreaker
	if config.BreakerThreshold > 0 {
		breaker = resilience.NewCircuitBreaker(config.BreakerThreshold, config.BreakerCooldown, 1)
	}

	policy := resilience.RetryPolicy{
		MaxRetries:        config.MaxRetries,
		BackoffBase:       config.RetryBackoff,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
		Retryable:         isTransient,
	}

	return &Client{
		httpClient:  &http.Client{Timeout: config.Timeout, Transport: config.Transport},
		rateLimiter: rate.NewOptional(config.RateLimit, config.RateLimitBurst),
		retrier:     resilience.NewRetrier(config.Name, policy, breaker, logger),
		logger:      logger,
		config:      config,
	}
}

// Get performs a GET and returns the body of a 2xx response.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	var body []byte
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		b, err := c.do(ctx, http.MethodGet, url, headers)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// GetJSON performs a GET and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	h := map[string]string{"Accept": "application/json"}
	for k, v := range headers {
		h[k] = v
	}

	body, err := c.Get(ctx, url, h)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(errors.ErrInvalidResponse, "%s: decode JSON: %v", c.config.Name, err)
	}
	return nil
}

// do performs a single request attempt.
func (c *Client) do(ctx context.Context, method, url string, headers map[string]string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait failed")
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "build request %s %s: %v", method, url, err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("HTTP request failed", "method", method, "url", url, "error", err.Error())
		return nil, errors.Wrapf(err, "%s %s", method, url)
	}
	defer resp.Body.Close()

	c.logger.Debug("HTTP response received",
		"method", method,
		"url", url,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err := CheckStatus(resp); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, errors.Wrapf(err, "%s %s", method, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	return body, nil
}

// CheckStatus maps a non-2xx status to a platform sentinel.
func CheckStatus(resp *http.Response) error {
	if resp == nil {
		return errors.New("response is nil")
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return errors.ErrRateLimit
	case http.StatusNotFound:
		return errors.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.ErrUnauthorized
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusBadGateway, http.StatusInternalServerError:
		return errors.ErrServiceUnavailable
	default:
		return errors.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
}

// isTransient: errores de red, 5xx y 429 se reintentan; el resto no.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.IsServiceUnavailable(err) ||
		errors.IsRateLimit(err) ||
		errors.IsConnectionError(err) ||
		errors.IsTimeout(err)
}

// CircuitState expone el estado del breaker ("closed" si no hay).
func (c *Client) CircuitState() string {
	if b := c.retrier.Breaker(); b != nil {
		return b.State().String()
	}
	return resilience.StateClosed.String()
}

// String returns a human-readable representation of the client configuration.
func (c *Client) String() string {
	return fmt.Sprintf("HTTPClient{name=%s, timeout=%s, max_retries=%d, rate_limit=%.2f/s}",
		c.config.Name,
		c.config.Timeout,
		c.config.MaxRetries,
		c.config.RateLimit,
	)
}
