package feeds

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/telemetry"
	"github.com/saferoute/saferoute/pkg/geo"
)

// ServiceConfig holds configuration for the feeds service.
type ServiceConfig struct {
	// Repository is the backing store for the reference layers.
	Repository Repository

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache a snapshot (default: 5 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.01 ~ 1.1km).
	// Areas within the same grid cell share a cached snapshot.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale snapshots on store errors (default: 30 minutes).
	StaleIfErrorTTL time.Duration

	// CleanupInterval is how often to clean up expired entries (default: 5 minutes).
	CleanupInterval time.Duration

	// IncidentWindow is how far back to load incidents (default: 90 days).
	IncidentWindow time.Duration

	// Metrics records cache hit/miss rates (optional).
	Metrics *telemetry.ProviderMetrics
}

// Service provides area snapshots of the safety reference layers with
// caching. A snapshot with some layers degraded still serves; only a failure
// of the incident layer with no stale fallback is an error.
type Service struct {
	repo            Repository
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	cleanupInterval time.Duration
	incidentWindow  time.Duration
	metrics         *telemetry.ProviderMetrics

	mu          sync.RWMutex
	cache       map[string]*cachedSnapshot
	lastCleanup time.Time
}

type cachedSnapshot struct {
	snapshot  *Snapshot
	expiresAt time.Time
}

// NewService creates a new feeds service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.01 // ~1.1km at equator
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 30 * time.Minute
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 5 * time.Minute
	}

	incidentWindow := cfg.IncidentWindow
	if incidentWindow == 0 {
		incidentWindow = 90 * 24 * time.Hour
	}

	return &Service{
		repo:            cfg.Repository,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		cleanupInterval: cleanupInterval,
		incidentWindow:  incidentWindow,
		metrics:         cfg.Metrics,
		cache:           make(map[string]*cachedSnapshot),
	}
}

// GetSnapshot returns the reference layers covering bounds. Uses a cached
// snapshot if one for the same grid cell is still fresh.
func (s *Service) GetSnapshot(ctx context.Context, bounds geo.Bounds) (*Snapshot, error) {
	cacheKey := s.cacheKey(bounds)

	s.mu.RLock()
	if cached, ok := s.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) && cached.snapshot.Bounds.Covers(bounds) {
		s.mu.RUnlock()
		if s.metrics != nil {
			s.metrics.RecordCacheHit("feeds", "snapshot")
		}
		s.logger.Debug().
			Str("cache_key", cacheKey).
			Msg("cache hit for feeds snapshot")
		return cached.snapshot, nil
	}
	s.mu.RUnlock()

	if s.metrics != nil {
		s.metrics.RecordCacheMiss("feeds", "snapshot")
	}

	return s.loadSnapshot(ctx, bounds, cacheKey)
}

// loadSnapshot fetches all layers from the repository and updates the cache.
func (s *Service) loadSnapshot(ctx context.Context, bounds geo.Bounds, cacheKey string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check cache (prevents thundering herd)
	if cached, ok := s.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) && cached.snapshot.Bounds.Covers(bounds) {
		return cached.snapshot, nil
	}

	s.logger.Debug().
		Str("cache_key", cacheKey).
		Msg("loading feeds snapshot")

	// Load the whole grid cell so later requests in the same cell hit.
	bounds = s.gridBounds(bounds)

	since := time.Now().Add(-s.incidentWindow)
	var degraded []string

	incidents, err := s.repo.IncidentsWithin(ctx, bounds, since)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load incident layer")

		// Incidents are the primary layer. Serve stale if we can.
		if cached, ok := s.cache[cacheKey]; ok {
			if time.Now().Before(cached.snapshot.FetchedAt.Add(s.staleIfErrorTTL)) && cached.snapshot.Bounds.Covers(bounds) {
				s.logger.Warn().
					Time("fetched_at", cached.snapshot.FetchedAt).
					Str("cache_key", cacheKey).
					Msg("serving stale feeds snapshot due to store error")
				return cached.snapshot, nil
			}
		}
		return nil, fmt.Errorf("%w: incidents: %s", ErrFeedUnavailable, err)
	}

	phones, err := s.repo.EmergencyPhonesWithin(ctx, bounds)
	if err != nil {
		s.logger.Warn().Err(err).Msg("emergency phone layer degraded")
		degraded = append(degraded, LayerPhones)
		phones = nil
	}

	lighting, err := s.repo.PoorLightingZonesWithin(ctx, bounds)
	if err != nil {
		s.logger.Warn().Err(err).Msg("lighting layer degraded")
		degraded = append(degraded, LayerLighting)
		lighting = nil
	} else if lighting == nil {
		lighting = []Zone{}
	}

	patrol, err := s.repo.LowPatrolZonesWithin(ctx, bounds)
	if err != nil {
		s.logger.Warn().Err(err).Msg("patrol layer degraded")
		degraded = append(degraded, LayerPatrol)
		patrol = nil
	} else if patrol == nil {
		patrol = []Zone{}
	}

	snapshot := NewSnapshot(bounds, incidents, phones, lighting, patrol, degraded)

	s.cache[cacheKey] = &cachedSnapshot{
		snapshot:  snapshot,
		expiresAt: time.Now().Add(s.cacheTTL),
	}

	s.logger.Info().
		Str("cache_key", cacheKey).
		Int("incidents", len(incidents)).
		Int("phones", len(phones)).
		Int("lighting_zones", len(lighting)).
		Int("patrol_zones", len(patrol)).
		Strs("degraded", degraded).
		Msg("feeds snapshot loaded")

	s.cleanupIfNeeded()

	return snapshot, nil
}

// gridBounds snaps the bounds outward onto the cache grid.
func (s *Service) gridBounds(bounds geo.Bounds) geo.Bounds {
	return geo.Bounds{
		MinLat: math.Floor(bounds.MinLat/s.cacheGridSize) * s.cacheGridSize,
		MinLon: math.Floor(bounds.MinLon/s.cacheGridSize) * s.cacheGridSize,
		MaxLat: math.Ceil(bounds.MaxLat/s.cacheGridSize) * s.cacheGridSize,
		MaxLon: math.Ceil(bounds.MaxLon/s.cacheGridSize) * s.cacheGridSize,
	}
}

// cacheKey quantizes the bounds onto the cache grid.
func (s *Service) cacheKey(bounds geo.Bounds) string {
	g := s.gridBounds(bounds)
	return fmt.Sprintf("%.2f,%.2f:%.2f,%.2f", g.MinLat, g.MinLon, g.MaxLat, g.MaxLon)
}

// cleanupIfNeeded removes expired entries if cleanup interval has passed.
func (s *Service) cleanupIfNeeded() {
	now := time.Now()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}

	s.lastCleanup = now
	expired := 0

	for key, cached := range s.cache {
		if now.After(cached.snapshot.FetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired feeds cache entries")
	}
}

// InvalidateCache clears all cached snapshots.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedSnapshot)
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	fresh := 0
	stale := 0

	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		} else if now.Before(c.snapshot.FetchedAt.Add(s.staleIfErrorTTL)) {
			stale++
		}
	}

	return CacheStats{
		TotalEntries: len(s.cache),
		FreshEntries: fresh,
		StaleEntries: stale,
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
}
