// Package nominatim provides a client for the Nominatim geocoding API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/geocoding"
	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/internal/telemetry"
	"github.com/saferoute/saferoute/pkg/geo"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "nominatim"

	// DefaultBaseURL is the public Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// defaultUserAgent identifies this service per the Nominatim usage policy.
	defaultUserAgent = "saferoute/1.0"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Nominatim client.
type ClientConfig struct {
	// BaseURL is the Nominatim base URL (optional).
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

	// Viewbox biases results toward the campus area (optional).
	Viewbox *geo.Bounds

	// QuerySuffix is appended to free-text queries to anchor them to the
	// campus town (optional), e.g. ", Columbia, MO".
	QuerySuffix string

	// UserAgent overrides the User-Agent header (optional).
	UserAgent string
}

// Client is a Nominatim geocoding client.
type Client struct {
	baseURL     string
	httpClient  HTTPDoer
	logger      zerolog.Logger
	viewbox     *geo.Bounds
	querySuffix string
	userAgent   string
}

// NewClient creates a new Nominatim client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
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
		baseURL:     baseURL,
		httpClient:  httpClient,
		logger:      cfg.Logger,
		viewbox:     cfg.Viewbox,
		querySuffix: cfg.QuerySuffix,
		userAgent:   userAgent,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// nominatimResult is one entry in a Nominatim search response.
type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves a free-text query to a coordinate. When a viewbox is
// configured, results are restricted to it.
func (c *Client) Geocode(ctx context.Context, query string) (*geocoding.Resolution, error) {
	params := url.Values{}
	params.Set("q", query+c.querySuffix)
	params.Set("format", "json")
	params.Set("limit", "1")
	if c.viewbox != nil {
		// Nominatim viewbox order is lon1,lat1,lon2,lat2.
		params.Set("viewbox", fmt.Sprintf("%f,%f,%f,%f",
			c.viewbox.MinLon, c.viewbox.MaxLat, c.viewbox.MaxLon, c.viewbox.MinLat))
		params.Set("bounded", "1")
	}

	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug().
		Str("query", query).
		Msg("geocoding query via Nominatim")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", geocoding.ErrGeocoderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", geocoding.ErrGeocoderUnavailable, resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.Unmarshal(respBody, &results); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(results) == 0 {
		return nil, geocoding.ErrNotFound
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing longitude: %w", err)
	}

	c.logger.Debug().
		Str("query", query).
		Float64("lat", lat).
		Float64("lon", lon).
		Msg("geocoded query")

	return &geocoding.Resolution{
		Coordinate: geo.Coordinate{Lat: lat, Lon: lon},
		Name:       query,
		Address:    results[0].DisplayName,
		Source:     geocoding.SourceGeocoder,
	}, nil
}
