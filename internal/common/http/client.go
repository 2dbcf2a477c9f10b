package http

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"time"

	"app-groups-sync/internal/circuitbreaker"
	"app-groups-sync/internal/common/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxResponseBytes caps how much of a response body is buffered in memory.
const maxResponseBytes = 10 << 20

// ClientConfig holds HTTP client configuration
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	Transport           http.RoundTripper
	Tracing             bool
}

// DefaultClientConfig returns default HTTP client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             30 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// ClientOption is a function that modifies ClientConfig
type ClientOption func(*ClientConfig)

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithMaxIdleConnsPerHost sets the maximum number of idle connections per host
func WithMaxIdleConnsPerHost(max int) ClientOption {
	return func(c *ClientConfig) {
		c.MaxIdleConnsPerHost = max
	}
}

// WithTransport sets a custom transport
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *ClientConfig) {
		c.Transport = transport
	}
}

// WithTracing wraps the transport so every outbound call produces an OpenTelemetry span
func WithTracing() ClientOption {
	return func(c *ClientConfig) {
		c.Tracing = true
	}
}

// NewHTTPClient creates a new HTTP client with the given options
func NewHTTPClient(opts ...ClientOption) *http.Client {
	cfg := DefaultClientConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	var transport http.RoundTripper
	if cfg.Transport != nil {
		transport = cfg.Transport
	} else {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		}
	}

	if cfg.Tracing {
		transport = otelhttp.NewTransport(transport)
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}

// Waiter blocks until an outbound call may proceed
type Waiter interface {
	Wait(ctx context.Context) error
}

// RequestOptions describes a single outbound request
type RequestOptions struct {
	Method  string
	URL     string
	Body    []byte
	Headers map[string]string
}

// Response represents an HTTP response with its body fully read
type Response struct {
	StatusCode int
	Header     http.Header
	RawBody    []byte
	Duration   time.Duration
}

// IsSuccess reports whether the status code is 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// HTTPClientWrapper wraps http.Client with a circuit breaker and an outbound rate limiter.
// It never retries: one call to Request is one attempt. The client timeout bounds the
// attempt only; time spent waiting on the limiter is bounded by the caller's context.
type HTTPClientWrapper struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.GoBreakerAdapter
	rateLimiter    Waiter
}

// NewHTTPClientWrapper creates a wrapped HTTP client
func NewHTTPClientWrapper(opts ...ClientOption) *HTTPClientWrapper {
	return &HTTPClientWrapper{
		client: NewHTTPClient(opts...),
	}
}

// WithCircuitBreaker records the outcome of every call on cb. The breaker never
// rejects calls; its state is for health reporting.
func (w *HTTPClientWrapper) WithCircuitBreaker(cb *circuitbreaker.GoBreakerAdapter) *HTTPClientWrapper {
	w.circuitBreaker = cb
	return w
}

// WithRateLimiter adds outbound rate limiting
func (w *HTTPClientWrapper) WithRateLimiter(limiter Waiter) *HTTPClientWrapper {
	w.rateLimiter = limiter
	return w
}

// GetCircuitBreaker returns the circuit breaker for monitoring
func (w *HTTPClientWrapper) GetCircuitBreaker() *circuitbreaker.GoBreakerAdapter {
	return w.circuitBreaker
}

// Get performs a GET request
func (w *HTTPClientWrapper) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return w.Request(ctx, &RequestOptions{
		Method:  http.MethodGet,
		URL:     url,
		Headers: headers,
	})
}

// errServerStatus marks a 5xx/429 answer inside the breaker so it counts as a failure.
var errServerStatus = stderrors.New("server error status")

// Request performs one HTTP request. Any response that arrives is returned with a nil
// error regardless of status code; the error is reserved for transport failures, which
// are classified as timeout or connection errors.
func (w *HTTPClientWrapper) Request(ctx context.Context, opts *RequestOptions) (*Response, error) {
	if w.rateLimiter != nil {
		if err := w.rateLimiter.Wait(ctx); err != nil {
			return nil, classifyTransportError("waiting for rate limiter", err)
		}
	}

	var response *Response
	call := func() error {
		var err error
		response, err = w.executeRequest(ctx, opts)
		if err != nil {
			return err
		}
		if response.StatusCode >= 500 || response.StatusCode == http.StatusTooManyRequests {
			return errServerStatus
		}
		return nil
	}

	var err error
	if w.circuitBreaker != nil {
		err = w.circuitBreaker.Observe(call)
	} else {
		err = call()
	}

	if stderrors.Is(err, errServerStatus) {
		return response, nil
	}
	if err != nil {
		return nil, err
	}
	return response, nil
}

// executeRequest executes a single HTTP request attempt
func (w *HTTPClientWrapper) executeRequest(ctx context.Context, opts *RequestOptions) (*Response, error) {
	start := time.Now()

	var bodyReader io.Reader
	if opts.Body != nil {
		bodyReader = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, bodyReader)
	if err != nil {
		return nil, errors.InternalError("failed to create request", err)
	}

	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, classifyTransportError("request failed", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransportError("failed to read response body", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		RawBody:    responseBody,
		Duration:   time.Since(start),
	}, nil
}

// classifyTransportError maps deadline expiry to a timeout error and everything else
// to a connection error.
func classifyTransportError(operation string, err error) *errors.AppError {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.TimeoutError(operation, err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.TimeoutError(operation, err)
	}
	return errors.ConnectionError(operation, err)
}
