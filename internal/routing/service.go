package routing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/pkg/geo"
)

// GeneratorConfig holds configuration for the candidate generator.
type GeneratorConfig struct {
	// Provider is the routing data provider.
	Provider Provider

	// Logger for generator operations.
	Logger zerolog.Logger

	// MaxCandidates caps how many routes a single request yields (default: 5).
	MaxCandidates int

	// DedupeSampleMeters is the sampling interval used when comparing
	// geometries for near-duplicates (default: 25).
	DedupeSampleMeters float64

	// DedupeToleranceMeters is how close two sampled points must be to
	// count as shared (default: 15).
	DedupeToleranceMeters float64

	// DedupeSharedFraction is the shared-point fraction above which two
	// candidates are considered the same route (default: 0.9).
	DedupeSharedFraction float64
}

// Generator turns provider paths into a deduplicated, capped candidate set.
// Candidates are never reused across requests; the environment they will be
// scored against changes with every request.
type Generator struct {
	provider              Provider
	logger                zerolog.Logger
	maxCandidates         int
	dedupeSampleMeters    float64
	dedupeToleranceMeters float64
	dedupeSharedFraction  float64
}

// NewGenerator creates a Generator, filling zero-valued config fields with
// defaults.
func NewGenerator(cfg GeneratorConfig) *Generator {
	maxCandidates := cfg.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 5
	}

	sampleMeters := cfg.DedupeSampleMeters
	if sampleMeters <= 0 {
		sampleMeters = 25
	}

	tolerance := cfg.DedupeToleranceMeters
	if tolerance <= 0 {
		tolerance = 15
	}

	sharedFraction := cfg.DedupeSharedFraction
	if sharedFraction <= 0 || sharedFraction > 1 {
		sharedFraction = 0.9
	}

	return &Generator{
		provider:              cfg.Provider,
		logger:                cfg.Logger,
		maxCandidates:         maxCandidates,
		dedupeSampleMeters:    sampleMeters,
		dedupeToleranceMeters: tolerance,
		dedupeSharedFraction:  sharedFraction,
	}
}

// Generate returns up to MaxCandidates distinct routes between origin and
// destination. Route IDs are assigned in provider order, which keeps output
// deterministic for a given provider response.
func (g *Generator) Generate(ctx context.Context, origin, destination geo.Coordinate, mode Mode) ([]Route, error) {
	if !origin.Valid() {
		return nil, &Error{
			Provider: g.provider.Name(),
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}
	if !destination.Valid() {
		return nil, &Error{
			Provider: g.provider.Name(),
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}

	paths, err := g.provider.FindPaths(ctx, origin, destination, mode)
	if err != nil {
		g.logger.Error().Err(err).
			Float64("origin_lat", origin.Lat).
			Float64("origin_lon", origin.Lon).
			Float64("dest_lat", destination.Lat).
			Float64("dest_lon", destination.Lon).
			Str("mode", string(mode)).
			Str("provider", g.provider.Name()).
			Msg("provider failed to find paths")
		return nil, err
	}
	if len(paths) == 0 {
		return nil, &Error{
			Provider: g.provider.Name(),
			Code:     "NO_ROUTE",
			Message:  "provider returned no paths",
			Err:      ErrNoRouteFound,
		}
	}

	var routes []Route
	var kept [][]geo.Coordinate

	for _, path := range paths {
		if len(routes) == g.maxCandidates {
			break
		}

		route, err := g.normalize(path, mode)
		if err != nil {
			g.logger.Warn().Err(err).
				Str("provider", g.provider.Name()).
				Msg("skipping candidate with unusable geometry")
			continue
		}

		sampled, err := geo.SampleAlong(route.Points, g.dedupeSampleMeters)
		if err != nil {
			continue
		}
		if g.isDuplicate(sampled, kept) {
			g.logger.Debug().
				Str("provider", g.provider.Name()).
				Msg("dropping near-duplicate candidate")
			continue
		}

		route.ID = fmt.Sprintf("route_%d", len(routes)+1)
		routes = append(routes, route)
		kept = append(kept, sampled)
	}

	if len(routes) == 0 {
		return nil, &Error{
			Provider: g.provider.Name(),
			Code:     "NO_USABLE_ROUTE",
			Message:  "no candidate survived geometry checks",
			Err:      ErrNoRouteFound,
		}
	}

	g.logger.Debug().
		Int("provider_paths", len(paths)).
		Int("candidates", len(routes)).
		Str("mode", string(mode)).
		Msg("generated candidate routes")

	return routes, nil
}

// normalize fills in distance and duration when the provider omits them.
func (g *Generator) normalize(path RawPath, mode Mode) (Route, error) {
	distance := path.DistanceMeters
	if distance <= 0 {
		length, err := geo.PathLength(path.Points)
		if err != nil {
			return Route{}, err
		}
		distance = length
	} else if len(path.Points) < 2 {
		return Route{}, geo.ErrInvalidGeometry
	}

	duration := path.DurationSeconds
	if duration <= 0 {
		duration = distance / mode.SpeedMPS()
	}

	return Route{
		Points:          path.Points,
		DistanceMeters:  distance,
		DurationSeconds: duration,
		Mode:            mode,
	}, nil
}

// isDuplicate reports whether the sampled geometry shares more than the
// configured fraction of points with any already-kept candidate.
func (g *Generator) isDuplicate(sampled []geo.Coordinate, kept [][]geo.Coordinate) bool {
	for _, other := range kept {
		if g.sharedFraction(sampled, other) > g.dedupeSharedFraction {
			return true
		}
	}
	return false
}

func (g *Generator) sharedFraction(a, b []geo.Coordinate) float64 {
	if len(a) == 0 {
		return 0
	}
	shared := 0
	for _, p := range a {
		for _, q := range b {
			if geo.DistanceMeters(p, q) <= g.dedupeToleranceMeters {
				shared++
				break
			}
		}
	}
	return float64(shared) / float64(len(a))
}

// ProviderName returns the name of the underlying provider.
func (g *Generator) ProviderName() string {
	return g.provider.Name()
}
