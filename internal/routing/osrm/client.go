// Package osrm provides a client for the OSRM route service API.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/telemetry"
	"github.com/saferoute/saferoute/pkg/geo"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "osrm"

	// DefaultBaseURL is the public OSRM demo server.
	DefaultBaseURL = "https://router.project-osrm.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OSRM client.
type ClientConfig struct {
	// BaseURL is the OSRM base URL (optional, defaults to the demo server).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Metrics records request timings (optional).
	Metrics *telemetry.ProviderMetrics

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OSRM route service client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OSRM client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		if cfg.Registry != nil {
			clientCfg.Registry = cfg.Registry
		}
		clientCfg.Metrics = cfg.Metrics
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// profileFor maps a travel mode onto an OSRM profile. Bus routing reuses the
// driving network.
func profileFor(mode routing.Mode) string {
	switch mode {
	case routing.ModeBike:
		return "bicycle"
	case routing.ModeCar, routing.ModeBus:
		return "driving"
	default:
		return "foot"
	}
}

// FindPaths retrieves candidate path geometries between two points.
func (c *Client) FindPaths(ctx context.Context, origin, destination geo.Coordinate, mode routing.Mode) ([]routing.RawPath, error) {
	if !origin.Valid() {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      routing.ErrInvalidCoordinates,
		}
	}
	if !destination.Valid() {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      routing.ErrInvalidCoordinates,
		}
	}

	// OSRM uses {lon},{lat} pairs in the path.
	url := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?alternatives=true&geometries=geojson&overview=full",
		c.baseURL, profileFor(mode),
		origin.Lon, origin.Lat,
		destination.Lon, destination.Lat,
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("profile", profileFor(mode)).
		Float64("origin_lat", origin.Lat).
		Float64("origin_lon", origin.Lon).
		Float64("dest_lat", destination.Lat).
		Float64("dest_lon", destination.Lon).
		Msg("requesting routes from OSRM")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      routing.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	// OSRM reports most routing failures in the body code, but transport
	// and gateway errors still come back as non-200 statuses.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return nil, c.handleHTTPError(resp.StatusCode)
	}

	var osrmResp osrmResponse
	if err := json.Unmarshal(respBody, &osrmResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if osrmResp.Code != osrmCodeOK {
		return nil, c.handleResultCode(osrmResp.Code, osrmResp.Message)
	}

	paths := make([]routing.RawPath, 0, len(osrmResp.Routes))
	for i := range osrmResp.Routes {
		route := &osrmResp.Routes[i]
		points := make([]geo.Coordinate, 0, len(route.Geometry.Coordinates))
		for _, pair := range route.Geometry.Coordinates {
			if len(pair) < 2 {
				continue
			}
			points = append(points, geo.Coordinate{Lat: pair[1], Lon: pair[0]})
		}
		paths = append(paths, routing.RawPath{
			Points:          points,
			DistanceMeters:  route.Distance,
			DurationSeconds: route.Duration,
		})
	}

	c.logger.Debug().
		Int("route_count", len(paths)).
		Msg("received routes from OSRM")

	return paths, nil
}

// handleResultCode maps OSRM body codes to domain errors.
func (c *Client) handleResultCode(code, message string) error {
	if message == "" {
		message = "routing request failed"
	}

	switch code {
	case osrmCodeNoRoute, osrmCodeNoSegment:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      routing.ErrNoRouteFound,
		}
	case osrmCodeInvalidQuery, osrmCodeInvalidValue, osrmCodeInvalidOption, osrmCodeTooBig:
		return &routing.Error{
			Provider: ProviderName,
			Code:     code,
			Message:  message,
			Err:      routing.ErrInvalidCoordinates,
		}
	default:
		return &routing.Error{
			Provider: ProviderName,
			Code:     code,
			Message:  message,
			Err:      routing.ErrProviderUnavailable,
		}
	}
}

// handleHTTPError maps transport-level statuses to domain errors.
func (c *Client) handleHTTPError(statusCode int) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      routing.ErrRateLimitExceeded,
		}
	case statusCode >= 500:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "routing provider is temporarily unavailable",
			Err:      routing.ErrProviderUnavailable,
		}
	default:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  fmt.Sprintf("routing provider returned status %d", statusCode),
			Err:      routing.ErrProviderUnavailable,
		}
	}
}
