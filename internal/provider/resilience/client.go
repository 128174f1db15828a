package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"

	"github.com/saferoute/saferoute/internal/telemetry"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a request.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	// Name identifies this client in the registry, circuit breaker and metrics.
	Name string

	// Timeout bounds each individual HTTP attempt (default: 10s).
	Timeout time.Duration

	// MaxRetries is how many times a failed attempt is retried (default: 3).
	MaxRetries uint64

	// InitialInterval is the first retry backoff delay (default: 100ms).
	InitialInterval time.Duration

	// MaxInterval caps the retry backoff delay (default: 5s).
	MaxInterval time.Duration

	// CircuitBreaker overrides the circuit breaker settings.
	// If nil, DefaultCircuitBreakerConfig is used.
	CircuitBreaker *CircuitBreakerConfig

	// Registry receives this client for health tracking (optional).
	Registry *Registry

	// Metrics records request timings and outcomes (optional).
	Metrics *telemetry.ProviderMetrics
}

// DefaultClientConfig returns the defaults used for upstream providers.
func DefaultClientConfig(name string) ClientConfig {
	cbConfig := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		CircuitBreaker:  &cbConfig,
	}
}

// Client wraps http.Client with a circuit breaker and exponential-backoff
// retries. Every upstream the service talks to goes through one of these.
type Client struct {
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker[*http.Response]
	config         ClientConfig
}

// NewClient creates a resilient HTTP client and, when a registry is
// configured, registers it for health reporting.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}

	cbConfig := cfg.CircuitBreaker
	if cbConfig == nil {
		defaults := DefaultCircuitBreakerConfig(cfg.Name)
		cbConfig = &defaults
	}

	client := &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: NewCircuitBreaker[*http.Response](*cbConfig), //nolint:bodyclose // type param, not a response
		config:         cfg,
	}

	if cfg.Registry != nil {
		cfg.Registry.Register(cfg.Name, client)
	}

	return client
}

// Name returns the provider name this client was configured with.
func (c *Client) Name() string {
	return c.config.Name
}

// Do executes the request with circuit breaker protection and retries.
// Transient failures (network errors, 5xx) are retried with exponential
// backoff; an open circuit fails fast with ErrCircuitOpen.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext executes the request, honoring ctx across retries.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()

	var lastResp *http.Response

	operation := func() error {
		resp, err := c.circuitBreaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
			return c.attempt(ctx, req)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			// Keep the 5xx response around in case retries run out.
			if resp != nil {
				lastResp = resp
			}
			return err
		}

		lastResp = resp
		return nil
	}

	err := backoff.Retry(operation, c.newBackOff(ctx))

	if c.config.Metrics != nil {
		c.config.Metrics.RecordRequest(c.config.Name, "http", time.Since(start), err)
	}

	if err != nil {
		if c.config.Registry != nil {
			c.config.Registry.RecordFailure(c.config.Name, err)
		}
		// A 5xx that exhausted retries is still a response the caller may
		// want to inspect.
		if lastResp != nil {
			return lastResp, nil
		}
		return nil, err
	}

	if c.config.Registry != nil {
		c.config.Registry.RecordSuccess(c.config.Name)
	}

	return lastResp, nil
}

// attempt performs a single HTTP call. 5xx statuses are returned as errors so
// they count against the circuit breaker and trigger a retry.
func (c *Client) attempt(ctx context.Context, req *http.Request) (*http.Response, error) {
	// Clone per attempt so retries do not reuse a consumed request.
	resp, err := c.httpClient.Do(req.Clone(ctx))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 500 {
		return resp, &ServerError{StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0 // retries are bounded by MaxRetries, not wall time

	return backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)
}

// ServerError represents an HTTP 5xx response from an upstream provider.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// CircuitBreakerState returns the current circuit breaker state.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.circuitBreaker.State()
}

// CircuitBreakerCounts returns the circuit breaker request counters.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.circuitBreaker.Counts()
}
