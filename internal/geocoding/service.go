package geocoding

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/featureflags"
	"github.com/saferoute/saferoute/pkg/geo"
)

// maxAmbiguityOptions caps how many candidates a disambiguation offers.
const maxAmbiguityOptions = 8

// Geocoder resolves free-text queries through an external service.
type Geocoder interface {
	// Name returns the geocoder name.
	Name() string

	// Geocode resolves a query to a coordinate.
	Geocode(ctx context.Context, query string) (*Resolution, error)
}

// ServiceConfig holds configuration for the geocoding service.
type ServiceConfig struct {
	// Repository is the campus location directory (required).
	Repository Repository

	// Geocoder is the external fallback (optional).
	// If nil, queries missing from the directory return ErrNotFound.
	Geocoder Geocoder

	// FeatureFlags is the feature flag service (optional).
	// If provided, the geocoder fallback can be disabled via feature flag.
	FeatureFlags *featureflags.Service

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service resolves destination text to coordinates. It checks the campus
// directory first and only then falls back to the external geocoder.
type Service struct {
	repo         Repository
	geocoder     Geocoder
	featureFlags *featureflags.Service
	logger       zerolog.Logger
}

// NewService creates a new geocoding service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repository == nil {
		return nil, errors.New("repository is required")
	}

	return &Service{
		repo:         cfg.Repository,
		geocoder:     cfg.Geocoder,
		featureFlags: cfg.FeatureFlags,
		logger:       cfg.Logger.With().Str("component", "geocoding").Logger(),
	}, nil
}

// Resolve turns a destination query into either a single Resolution or an
// Ambiguity listing candidates near the origin. Exactly one of the two
// return values is non-nil on success.
func (s *Service) Resolve(ctx context.Context, query string, origin geo.Coordinate) (*Resolution, *Ambiguity, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, nil, ErrNotFound
	}

	// Bare category keywords ("library", "the gym") cannot be resolved to a
	// single place. Offer the category's locations instead.
	if cat, ok := DetectCategory(trimmed); ok {
		return s.resolveCategory(ctx, cat, origin)
	}

	locations, err := s.repo.SearchByName(ctx, trimmed)
	if err != nil {
		return nil, nil, fmt.Errorf("searching directory: %w", err)
	}

	switch len(locations) {
	case 0:
		res, err := s.geocodeFallback(ctx, trimmed)
		if err != nil {
			return nil, nil, err
		}
		return res, nil, nil
	case 1:
		loc := locations[0]
		s.logger.Debug().
			Str("query", trimmed).
			Str("location", loc.Name).
			Msg("resolved destination from directory")
		return &Resolution{
			Coordinate: loc.Coordinate,
			Name:       loc.Name,
			Address:    loc.Address,
			Source:     SourceDirectory,
		}, nil, nil
	default:
		opts := optionsFor(locations, origin)
		s.logger.Debug().
			Str("query", trimmed).
			Int("candidates", len(opts)).
			Msg("destination is ambiguous")
		return nil, &Ambiguity{
			Question: fmt.Sprintf("Which %q did you mean?", trimmed),
			Options:  opts,
		}, nil
	}
}

// resolveCategory builds a disambiguation listing the category's locations,
// closest to the origin first.
func (s *Service) resolveCategory(ctx context.Context, cat Category, origin geo.Coordinate) (*Resolution, *Ambiguity, error) {
	locations, err := s.repo.ByCategory(ctx, cat)
	if err != nil {
		return nil, nil, fmt.Errorf("listing category %s: %w", cat, err)
	}
	if len(locations) == 0 {
		return nil, nil, ErrNotFound
	}
	if len(locations) == 1 {
		loc := locations[0]
		return &Resolution{
			Coordinate: loc.Coordinate,
			Name:       loc.Name,
			Address:    loc.Address,
			Source:     SourceDirectory,
		}, nil, nil
	}

	return nil, &Ambiguity{
		Category: cat,
		Question: fmt.Sprintf("Which %s are you heading to?", cat),
		Options:  optionsFor(locations, origin),
	}, nil
}

// geocodeFallback consults the external geocoder when the directory has no
// match, unless the fallback is disabled.
func (s *Service) geocodeFallback(ctx context.Context, query string) (*Resolution, error) {
	if s.geocoder == nil || s.isFallbackDisabled(ctx) {
		s.logger.Debug().
			Str("query", query).
			Msg("no directory match and geocoder fallback unavailable")
		return nil, ErrNotFound
	}

	res, err := s.geocoder.Geocode(ctx, query)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Warn().
			Err(err).
			Str("provider", s.geocoder.Name()).
			Str("query", query).
			Msg("geocoder fallback failed")
		return nil, fmt.Errorf("%w: %s", ErrGeocoderUnavailable, err)
	}

	s.logger.Debug().
		Str("query", query).
		Str("provider", s.geocoder.Name()).
		Msg("resolved destination via geocoder")
	return res, nil
}

func (s *Service) isFallbackDisabled(ctx context.Context) bool {
	if s.featureFlags == nil {
		return false
	}
	return s.featureFlags.IsGeocodeFallbackDisabled(ctx)
}

// optionsFor converts locations into disambiguation options sorted by
// distance from the origin. An invalid origin still yields options, just
// without distances.
func optionsFor(locations []Location, origin geo.Coordinate) []Option {
	opts := make([]Option, 0, len(locations))
	for _, loc := range locations {
		opt := Option{
			Name:       loc.Name,
			Address:    loc.Address,
			Coordinate: loc.Coordinate,
			Category:   loc.Category,
		}
		if origin.Valid() {
			d := geo.DistanceMeters(origin, loc.Coordinate)
			opt.DistanceMeters = &d
		}
		opts = append(opts, opt)
	}

	sort.SliceStable(opts, func(i, j int) bool {
		if opts[i].DistanceMeters == nil || opts[j].DistanceMeters == nil {
			return opts[i].Name < opts[j].Name
		}
		return *opts[i].DistanceMeters < *opts[j].DistanceMeters
	})

	if len(opts) > maxAmbiguityOptions {
		opts = opts[:maxAmbiguityOptions]
	}
	return opts
}
