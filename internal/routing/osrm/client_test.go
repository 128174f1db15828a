package osrm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/pkg/geo"
)

var (
	testOrigin      = geo.Coordinate{Lat: 38.9448, Lon: -92.3268}
	testDestination = geo.Coordinate{Lat: 38.9462, Lon: -92.3248}
)

// mockHTTPClient wraps http.Client to implement HTTPDoer interface.
type mockHTTPClient struct {
	client *http.Client
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.client.Do(req)
}

func TestClient_FindPaths_Success(t *testing.T) {
	// Load test fixture
	respBody, err := os.ReadFile("testdata/route_response.json")
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify request
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if !strings.HasPrefix(r.URL.Path, "/route/v1/foot/") {
			t.Errorf("expected foot profile path, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("alternatives") != "true" {
			t.Error("expected alternatives=true")
		}
		if r.URL.Query().Get("geometries") != "geojson" {
			t.Errorf("expected geometries=geojson, got %s", r.URL.Query().Get("geometries"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(respBody)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: &mockHTTPClient{client: server.Client()},
		Logger:     zerolog.Nop(),
	})

	paths, err := client.FindPaths(context.Background(), testOrigin, testDestination, routing.ModeFoot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(paths))
	}

	path := paths[0]
	if path.DistanceMeters != 812.4 {
		t.Errorf("expected distance 812.4, got %v", path.DistanceMeters)
	}
	if path.DurationSeconds != 625.0 {
		t.Errorf("expected duration 625, got %v", path.DurationSeconds)
	}
	if len(path.Points) != 4 {
		t.Fatalf("expected 4 points, got %d", len(path.Points))
	}
	// GeoJSON pairs are [lon, lat] and must be flipped.
	if path.Points[0].Lat != 38.9448 || path.Points[0].Lon != -92.3268 {
		t.Errorf("first point = %+v, want lat 38.9448 lon -92.3268", path.Points[0])
	}
}

func TestClient_FindPaths_ProfileMapping(t *testing.T) {
	tests := []struct {
		mode    routing.Mode
		profile string
	}{
		{routing.ModeFoot, "foot"},
		{routing.ModeBike, "bicycle"},
		{routing.ModeCar, "driving"},
		{routing.ModeBus, "driving"},
	}

	for _, tt := range tests {
		if got := profileFor(tt.mode); got != tt.profile {
			t.Errorf("profileFor(%q) = %q, want %q", tt.mode, got, tt.profile)
		}
	}
}

func TestClient_FindPaths_NoRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"NoRoute","message":"Impossible route between points"}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: &mockHTTPClient{client: server.Client()},
		Logger:     zerolog.Nop(),
	})

	_, err := client.FindPaths(context.Background(), testOrigin, testDestination, routing.ModeFoot)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var routingErr *routing.Error
	if !errors.As(err, &routingErr) {
		t.Fatalf("expected routing.Error, got %T", err)
	}
	if !errors.Is(routingErr.Err, routing.ErrNoRouteFound) {
		t.Errorf("expected ErrNoRouteFound, got %v", routingErr.Err)
	}
}

func TestClient_FindPaths_InvalidQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"InvalidQuery","message":"Query string malformed"}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: &mockHTTPClient{client: server.Client()},
		Logger:     zerolog.Nop(),
	})

	_, err := client.FindPaths(context.Background(), testOrigin, testDestination, routing.ModeFoot)

	var routingErr *routing.Error
	if !errors.As(err, &routingErr) {
		t.Fatalf("expected routing.Error, got %T", err)
	}
	if !errors.Is(routingErr.Err, routing.ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", routingErr.Err)
	}
}

func TestClient_FindPaths_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`rate limited`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: &mockHTTPClient{client: server.Client()},
		Logger:     zerolog.Nop(),
	})

	_, err := client.FindPaths(context.Background(), testOrigin, testDestination, routing.ModeFoot)

	var routingErr *routing.Error
	if !errors.As(err, &routingErr) {
		t.Fatalf("expected routing.Error, got %T", err)
	}
	if !errors.Is(routingErr.Err, routing.ErrRateLimitExceeded) {
		t.Errorf("expected ErrRateLimitExceeded, got %v", routingErr.Err)
	}
}

func TestClient_FindPaths_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: &mockHTTPClient{client: server.Client()},
		Logger:     zerolog.Nop(),
	})

	_, err := client.FindPaths(context.Background(), testOrigin, testDestination, routing.ModeFoot)
	if !errors.Is(err, routing.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestClient_FindPaths_InvalidCoordinates(t *testing.T) {
	client := NewClient(ClientConfig{Logger: zerolog.Nop()})

	tests := []struct {
		name        string
		origin      geo.Coordinate
		destination geo.Coordinate
	}{
		{
			name:        "latitude out of range",
			origin:      geo.Coordinate{Lat: 91.0, Lon: -92.3},
			destination: testDestination,
		},
		{
			name:        "longitude out of range",
			origin:      testOrigin,
			destination: geo.Coordinate{Lat: 38.9, Lon: 181.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.FindPaths(context.Background(), tt.origin, tt.destination, routing.ModeFoot)
			if !errors.Is(err, routing.ErrInvalidCoordinates) {
				t.Errorf("expected ErrInvalidCoordinates, got %v", err)
			}
		})
	}
}

func TestClient_Name(t *testing.T) {
	client := NewClient(ClientConfig{Logger: zerolog.Nop()})
	if client.Name() != ProviderName {
		t.Errorf("Name() = %q, want %q", client.Name(), ProviderName)
	}
}
