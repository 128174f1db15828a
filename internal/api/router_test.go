package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/api"
	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/featureflags"
	"github.com/saferoute/saferoute/internal/feeds"
	"github.com/saferoute/saferoute/internal/geocoding"
	"github.com/saferoute/saferoute/internal/recommend"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/safety"
	"github.com/saferoute/saferoute/pkg/geo"
)

var (
	testOrigin      = geo.Coordinate{Lat: 38.9448, Lon: -92.3268}
	testDestination = geo.Coordinate{Lat: 38.9448, Lon: -92.3255}
)

// stubProvider returns two fixed candidate paths, or a fixed error.
type stubProvider struct {
	err error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) FindPaths(ctx context.Context, origin, destination geo.Coordinate, mode routing.Mode) ([]routing.RawPath, error) {
	if p.err != nil {
		return nil, p.err
	}
	return []routing.RawPath{
		{
			Points: []geo.Coordinate{
				testOrigin,
				{Lat: 38.9448, Lon: -92.3261},
				testDestination,
			},
		},
		{
			Points: []geo.Coordinate{
				testOrigin,
				{Lat: 38.9456, Lon: -92.3268},
				{Lat: 38.9456, Lon: -92.3255},
				testDestination,
			},
		},
	}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	return newTestRouterWithProvider(t, &stubProvider{})
}

func newTestRouterWithProvider(t *testing.T, provider routing.Provider) http.Handler {
	t.Helper()
	logger := zerolog.New(io.Discard)

	feedsRepo := feeds.NewInMemoryRepository()
	feedsRepo.SetLightingZones([]feeds.Zone{})
	feedsRepo.SetPatrolZones([]feeds.Zone{})

	geocodingService, err := geocoding.NewService(geocoding.ServiceConfig{
		Repository: geocoding.NewInMemoryRepository([]geocoding.Location{
			{ID: "lib-1", Name: "Ellis Library", Coordinate: testDestination, Category: geocoding.CategoryLibrary},
			{ID: "lib-2", Name: "Engineering Library", Coordinate: geo.Coordinate{Lat: 38.9466, Lon: -92.3299}, Category: geocoding.CategoryLibrary},
		}),
		Logger: logger,
	})
	require.NoError(t, err)

	flagService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewInMemoryRepository(),
		Logger:     logger,
	})

	recommendService, err := recommend.NewService(recommend.ServiceConfig{
		Routes: routing.NewGenerator(routing.GeneratorConfig{
			Provider: provider,
			Logger:   logger,
		}),
		Feeds: feeds.NewService(feeds.ServiceConfig{
			Repository: feedsRepo,
			Logger:     logger,
		}),
		Geocoding:    geocodingService,
		FeatureFlags: flagService,
		Logger:       logger,
	})
	require.NoError(t, err)

	return api.NewRouter(api.RouterConfig{
		Version:            "test",
		BuildTime:          "2026-01-01T00:00:00Z",
		Logger:             logger,
		RecommendService:   recommendService,
		FeatureFlagService: flagService,
	})
}

func recommendBody(t *testing.T, destination interface{}) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"origin":      map[string]float64{"latitude": testOrigin.Lat, "longitude": testOrigin.Lon},
		"destination": destination,
		"mode":        "foot",
		"priority":    "safety",
		"time":        time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.NotEmpty(t, health.Time)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_SystemStatus(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	err := json.Unmarshal(w.Body.Bytes(), &status)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, status.Status)
}

func TestRouter_RecommendRoutes(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/routes:recommend",
		recommendBody(t, map[string]float64{"latitude": testDestination.Lat, "longitude": testDestination.Lon}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		ResponseType string                   `json:"response_type"`
		RequestID    string                   `json:"request_id"`
		Priority     string                   `json:"priority"`
		Routes       []map[string]interface{} `json:"routes"`
		Explanation  string                   `json:"explanation"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	assert.Equal(t, models.ResponseTypeRecommendation, resp.ResponseType)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, string(safety.PrioritySafety), resp.Priority)
	assert.Len(t, resp.Routes, 2)
	assert.NotEmpty(t, resp.Explanation)
}

func TestRouter_RecommendRoutes_TextDestination(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/routes:recommend",
		recommendBody(t, "Ellis Library"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		ResponseType string `json:"response_type"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.ResponseTypeRecommendation, resp.ResponseType)
}

func TestRouter_RecommendRoutes_Disambiguation(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/routes:recommend",
		recommendBody(t, "library"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		ResponseType string `json:"response_type"`
		Question     string `json:"question"`
		Options      []struct {
			Name string `json:"name"`
		} `json:"options"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, models.ResponseTypeDisambiguation, resp.ResponseType)
	assert.NotEmpty(t, resp.Question)
	assert.Len(t, resp.Options, 2)
}

func TestRouter_RecommendRoutes_ValidationError(t *testing.T) {
	router := newTestRouter(t)

	body, err := json.Marshal(map[string]interface{}{
		"mode": "foot",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/routes:recommend", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
}

func TestRouter_RecommendRoutes_NoRoute(t *testing.T) {
	router := newTestRouterWithProvider(t, &stubProvider{err: &routing.Error{
		Provider: "stub",
		Code:     "NoRoute",
		Message:  "no route",
		Err:      routing.ErrNoRouteFound,
	}})

	req := httptest.NewRequest(http.MethodPost, "/v1/routes:recommend",
		recommendBody(t, map[string]float64{"latitude": testDestination.Lat, "longitude": testDestination.Lon}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_RecommendRoutes_UpstreamDown(t *testing.T) {
	router := newTestRouterWithProvider(t, &stubProvider{err: &routing.Error{
		Provider: "stub",
		Code:     "Unavailable",
		Message:  "connection refused",
		Err:      routing.ErrProviderUnavailable,
	}})

	req := httptest.NewRequest(http.MethodPost, "/v1/routes:recommend",
		recommendBody(t, map[string]float64{"latitude": testDestination.Lat, "longitude": testDestination.Lon}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRouter_GetEnums(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/metadata/enums", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var enums models.Enums
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &enums))

	assert.Contains(t, enums.Modes, "foot")
	assert.Contains(t, enums.Priorities, "safety")
	assert.Contains(t, enums.RiskLevels, "VerySafe")
	assert.Contains(t, enums.IncidentTypes, "assault")
}

func TestRouter_FeatureFlags_List(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/feature-flags/", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var list featureflags.FlagList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.NotEmpty(t, list.Items)
}

func TestRouter_RequestID_Generated(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "client-request-123")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, "client-request-123", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/does-not-exist", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
