// Package routing generates candidate route geometries between two points.
package routing

import (
	"context"
	"errors"
	"strings"

	"github.com/saferoute/saferoute/pkg/geo"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Provider defines the interface for routing providers.
type Provider interface {
	// FindPaths retrieves candidate path geometries between two points,
	// including alternatives when the provider has them.
	FindPaths(ctx context.Context, origin, destination geo.Coordinate, mode Mode) ([]RawPath, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Mode is the travel mode of a route request.
type Mode string

const (
	ModeFoot Mode = "foot"
	ModeBike Mode = "bike"
	ModeCar  Mode = "car"
	ModeBus  Mode = "bus"
)

// ParseMode maps a raw request value onto the mode enum. Empty input
// defaults to foot; the second return is false for unrecognized values.
func ParseMode(raw string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeFoot:
		return ModeFoot, true
	case ModeBike:
		return ModeBike, true
	case ModeCar:
		return ModeCar, true
	case ModeBus:
		return ModeBus, true
	case "":
		return ModeFoot, true
	default:
		return ModeFoot, false
	}
}

// SpeedMPS returns the nominal travel speed for the mode, used to estimate
// duration when the provider does not report one.
func (m Mode) SpeedMPS() float64 {
	switch m {
	case ModeBike:
		return 4.0
	case ModeCar:
		return 8.0
	case ModeBus:
		return 6.0
	default:
		return 1.3
	}
}

// RawPath is a provider-reported path before normalization.
type RawPath struct {
	Points          []geo.Coordinate
	DistanceMeters  float64
	DurationSeconds float64
}

// Route is a normalized candidate route.
type Route struct {
	ID              string           `json:"id"`
	Points          []geo.Coordinate `json:"points"`
	DistanceMeters  float64          `json:"distance_meters"`
	DurationSeconds float64          `json:"duration_seconds"`
	Mode            Mode             `json:"mode"`
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
