// Package resilience wraps outbound HTTP calls to upstream providers with
// circuit breakers, timeouts and retries, and tracks per-provider health for
// the ops status endpoint.
package resilience

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds the circuit breaker settings for one provider.
type CircuitBreakerConfig struct {
	// Name identifies the breaker in logs and state change callbacks.
	Name string

	// MaxRequests is how many probe requests are allowed while half-open
	// (default: 1).
	MaxRequests uint32

	// Interval is the cyclic period for clearing counts while closed
	// (default: 0, disabled).
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again
	// (default: 60s).
	Timeout time.Duration

	// ReadyToTrip decides when the breaker opens. Nil means
	// DefaultReadyToTrip.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange is invoked on every state transition (optional).
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the settings used for route and
// geocoding providers.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     60 * time.Second,
		ReadyToTrip: DefaultReadyToTrip,
	}
}

// DefaultReadyToTrip opens the breaker once at least 5 requests have been
// seen and half or more of them failed.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
	return counts.Requests >= 5 && failureRatio >= 0.5
}

// NewCircuitBreaker builds a gobreaker instance from cfg.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: cfg.ReadyToTrip,
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = cfg.OnStateChange
	}
	return gobreaker.NewCircuitBreaker[T](settings)
}
