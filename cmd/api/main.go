// Package main provides the entrypoint for the SafeRoute API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/api"
	"github.com/saferoute/saferoute/internal/api/middleware"
	"github.com/saferoute/saferoute/internal/database"
	"github.com/saferoute/saferoute/internal/featureflags"
	"github.com/saferoute/saferoute/internal/feeds"
	"github.com/saferoute/saferoute/internal/geocoding"
	"github.com/saferoute/saferoute/internal/geocoding/nominatim"
	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/internal/recommend"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/routing/osrm"
	"github.com/saferoute/saferoute/internal/telemetry"
	"github.com/saferoute/saferoute/pkg/geo"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "saferoute-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting SafeRoute API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Shared provider health registry
	registry := resilience.NewRegistry()

	// Initialize feature flags repository and service
	ffRepo := featureflags.NewPostgresRepository(pool)
	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: ffRepo,
		Logger:     log,
		CacheTTL:   1 * time.Minute,
	})
	log.Info().Msg("feature flags service initialized")

	// Initialize feed layers
	feedsService := feeds.NewService(feeds.ServiceConfig{
		Repository: feeds.NewPostgresRepository(pool),
		Logger:     log,
		Metrics:    providerMetrics,
	})
	log.Info().Msg("feeds service initialized")

	// Initialize geocoding with the campus directory and Nominatim fallback
	campusBounds := campusBoundsFromEnv(log)
	geocoder := nominatim.NewClient(nominatim.ClientConfig{
		BaseURL:     os.Getenv("NOMINATIM_BASE_URL"),
		Registry:    registry,
		Logger:      log,
		Viewbox:     campusBounds,
		QuerySuffix: os.Getenv("GEOCODER_QUERY_SUFFIX"),
		Metrics:     providerMetrics,
	})

	geocodingService, err := geocoding.NewService(geocoding.ServiceConfig{
		Repository:   geocoding.NewPostgresRepository(pool),
		Geocoder:     geocoder,
		FeatureFlags: ffService,
		Logger:       log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize geocoding service")
	}
	log.Info().Msg("geocoding service initialized")

	// Initialize route generation
	routeGenerator := routing.NewGenerator(routing.GeneratorConfig{
		Provider: osrm.NewClient(osrm.ClientConfig{
			BaseURL:  os.Getenv("OSRM_BASE_URL"),
			Registry: registry,
			Logger:   log,
			Metrics:  providerMetrics,
		}),
		Logger: log,
	})
	log.Info().Msg("route generator initialized")

	// Initialize the recommendation pipeline
	recommendService, err := recommend.NewService(recommend.ServiceConfig{
		Routes:       routeGenerator,
		Feeds:        feedsService,
		Geocoding:    geocodingService,
		FeatureFlags: ffService,
		Logger:       log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize recommend service")
	}
	log.Info().Msg("recommend service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		RecommendService:   recommendService,
		FeatureFlagService: ffService,
		DB:                 pool,
		ProviderRegistry:   registry,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// campusBoundsFromEnv reads the CAMPUS_BOUNDS_* variables used to bias
// geocoder results toward campus. Returns nil when unset or invalid.
func campusBoundsFromEnv(log zerolog.Logger) *geo.Bounds {
	keys := []string{"CAMPUS_BOUNDS_MIN_LAT", "CAMPUS_BOUNDS_MIN_LON", "CAMPUS_BOUNDS_MAX_LAT", "CAMPUS_BOUNDS_MAX_LON"}
	vals := make([]float64, len(keys))
	for i, key := range keys {
		raw := os.Getenv(key)
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			log.Warn().Str("key", key).Str("value", raw).Msg("invalid campus bounds value, ignoring viewbox")
			return nil
		}
		vals[i] = v
	}
	return &geo.Bounds{
		MinLat: vals[0],
		MinLon: vals[1],
		MaxLat: vals[2],
		MaxLon: vals[3],
	}
}
