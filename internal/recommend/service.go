package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/featureflags"
	"github.com/saferoute/saferoute/internal/feeds"
	"github.com/saferoute/saferoute/internal/geocoding"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/safety"
	"github.com/saferoute/saferoute/pkg/geo"
	"github.com/saferoute/saferoute/pkg/polyline"
)

// boundsPaddingMeters widens the snapshot query past the route extent so
// corridor-radius lookups near the edge still find their neighbors.
const boundsPaddingMeters = 300

// ServiceConfig holds configuration for the recommendation service.
type ServiceConfig struct {
	// Routes generates candidate routes (required).
	Routes *routing.Generator

	// Feeds supplies incident/phone/zone snapshots (required).
	Feeds *feeds.Service

	// Geocoding resolves free-text destinations (required).
	Geocoding *geocoding.Service

	// Scorer computes per-route risk (optional, defaults apply).
	Scorer *safety.Scorer

	// FeatureFlags gates scoring factors and tips (optional).
	FeatureFlags *featureflags.Service

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service runs the recommendation pipeline.
type Service struct {
	routes       *routing.Generator
	feeds        *feeds.Service
	geocoding    *geocoding.Service
	scorer       *safety.Scorer
	ranker       *safety.Ranker
	explainer    *safety.Explainer
	featureFlags *featureflags.Service
	logger       zerolog.Logger
}

// NewService creates a new recommendation service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Routes == nil {
		return nil, errors.New("routes generator is required")
	}
	if cfg.Feeds == nil {
		return nil, errors.New("feeds service is required")
	}
	if cfg.Geocoding == nil {
		return nil, errors.New("geocoding service is required")
	}

	scorer := cfg.Scorer
	if scorer == nil {
		scorer = safety.NewScorer(safety.DefaultScoringConfig())
	}

	return &Service{
		routes:       cfg.Routes,
		feeds:        cfg.Feeds,
		geocoding:    cfg.Geocoding,
		scorer:       scorer,
		ranker:       safety.NewRanker(scorer),
		explainer:    safety.NewExplainer(),
		featureFlags: cfg.FeatureFlags,
		logger:       cfg.Logger.With().Str("component", "recommend").Logger(),
	}, nil
}

// RankRoutes runs the full pipeline for one request. Stages run in order and
// short-circuit on failure; an ambiguous destination returns a disambiguation
// outcome without generating candidates.
func (s *Service) RankRoutes(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()
	requestID := "req_" + uuid.New().String()
	logger := s.logger.With().Str("request_id", requestID).Logger()

	if err := s.validate(req); err != nil {
		return nil, err
	}
	mode, _ := routing.ParseMode(string(req.Mode))
	priority, _ := safety.ParsePriority(string(req.Priority))

	at := req.At
	if at.IsZero() {
		at = time.Now()
	}

	destination, ambiguity, err := s.resolveDestination(ctx, req)
	if err != nil {
		return nil, err
	}
	if ambiguity != nil {
		logger.Info().
			Str("destination", req.Destination.Text).
			Int("options", len(ambiguity.Options)).
			Msg("destination needs disambiguation")
		return &Outcome{Disambiguation: ambiguity}, nil
	}

	routes, err := s.routes.Generate(ctx, req.Origin, destination, mode)
	if err != nil {
		if errors.Is(err, routing.ErrProviderUnavailable) || errors.Is(err, routing.ErrRateLimitExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, err)
		}
		return nil, err
	}

	snapshot, err := s.loadSnapshot(ctx, routes)
	if err != nil {
		return nil, err
	}

	analyses, err := s.scoreAll(ctx, routes, at, snapshot)
	if err != nil {
		return nil, err
	}

	rec := s.assemble(ctx, requestID, routes, analyses, snapshot, priority, at)

	logger.Info().
		Int("candidates", len(routes)).
		Str("priority", string(rec.Priority)).
		Int("top_risk_score", rec.Routes[0].SafetyAnalysis.RiskScore).
		Dur("duration", time.Since(start)).
		Msg("assembled recommendation")

	return &Outcome{Recommendation: rec}, nil
}

// validate checks request shape before any external call.
func (s *Service) validate(req Request) error {
	if !req.Origin.Valid() {
		return fmt.Errorf("%w: origin coordinate out of range", ErrInvalidRequest)
	}
	if req.Destination.Coordinate == nil && req.Destination.Text == "" {
		return fmt.Errorf("%w: destination is required", ErrInvalidRequest)
	}
	if req.Destination.Coordinate != nil && !req.Destination.Coordinate.Valid() {
		return fmt.Errorf("%w: destination coordinate out of range", ErrInvalidRequest)
	}
	if _, ok := routing.ParseMode(string(req.Mode)); !ok {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	}
	if _, ok := safety.ParsePriority(string(req.Priority)); !ok {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidRequest, req.Priority)
	}
	return nil
}

// resolveDestination returns the destination coordinate, or an ambiguity that
// terminates the pipeline.
func (s *Service) resolveDestination(ctx context.Context, req Request) (geo.Coordinate, *geocoding.Ambiguity, error) {
	if req.Destination.Coordinate != nil {
		return *req.Destination.Coordinate, nil, nil
	}

	res, amb, err := s.geocoding.Resolve(ctx, req.Destination.Text, req.Origin)
	if err != nil {
		if errors.Is(err, geocoding.ErrNotFound) {
			return geo.Coordinate{}, nil, fmt.Errorf("%w: destination %q not found", ErrInvalidRequest, req.Destination.Text)
		}
		return geo.Coordinate{}, nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, err)
	}
	if amb != nil {
		return geo.Coordinate{}, amb, nil
	}
	return res.Coordinate, nil, nil
}

// loadSnapshot fetches reference layers covering all candidate geometries.
func (s *Service) loadSnapshot(ctx context.Context, routes []routing.Route) (*feeds.Snapshot, error) {
	var all []geo.Coordinate
	for _, r := range routes {
		all = append(all, r.Points...)
	}

	bounds, err := geo.BoundsOf(all)
	if err != nil {
		return nil, err
	}
	bounds = bounds.Expand(boundsPaddingMeters)

	snapshot, err := s.feeds.GetSnapshot(ctx, bounds)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, err)
	}
	return snapshot, nil
}

// scoreAll scores every candidate concurrently. Scoring is independent per
// route; ranking re-sorts afterward so completion order does not matter.
func (s *Service) scoreAll(ctx context.Context, routes []routing.Route, at time.Time, snapshot *feeds.Snapshot) ([]*safety.SafetyAnalysis, error) {
	cfg := s.scorer.Config()
	lightingDisabled := s.featureFlags != nil && s.featureFlags.IsLightingFactorDisabled(ctx)
	patrolDisabled := s.featureFlags != nil && s.featureFlags.IsPatrolFactorDisabled(ctx)

	analyses := make([]*safety.SafetyAnalysis, len(routes))
	errs := make([]error, len(routes))

	var wg sync.WaitGroup
	for i, route := range routes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		wg.Add(1)
		go func(i int, route routing.Route) {
			defer wg.Done()

			env := snapshot.Environment(route.Points, cfg.CorridorRadiusMeters, cfg.PhoneRadiusMeters)
			// Disabled factors degrade like missing layers: zero
			// contribution plus a data warning.
			if lightingDisabled {
				env.PoorLighting = nil
			}
			if patrolDisabled {
				env.LowPatrol = nil
			}

			analyses[i], errs[i] = s.scorer.Score(route.Points, at, env)
		}(i, route)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return analyses, nil
}

// assemble ranks the scored candidates and builds the response document.
func (s *Service) assemble(ctx context.Context, requestID string, routes []routing.Route, analyses []*safety.SafetyAnalysis, snapshot *feeds.Snapshot, priority safety.Priority, at time.Time) *Recommendation {
	inputs := make([]safety.RankInput, len(routes))
	for i := range routes {
		inputs[i] = safety.RankInput{
			Index:           i,
			RiskScore:       analyses[i].RiskScore,
			DistanceMeters:  routes[i].DistanceMeters,
			DurationSeconds: routes[i].DurationSeconds,
		}
	}

	effective := s.ranker.EffectivePriority(priority, at)
	order := s.ranker.Rank(inputs, priority, at)

	ranked := make([]RankedRoute, len(order))
	for rank, idx := range order {
		ranked[rank] = RankedRoute{
			Rank:            rank + 1,
			Route:           routes[idx],
			SafetyAnalysis:  analyses[idx],
			Geometry:        encodeGeometry(routes[idx].Points),
			DistanceMeters:  routes[idx].DistanceMeters,
			DurationMinutes: routes[idx].DurationSeconds / 60,
			Explanation:     s.explainer.Explain(rank, analyses[idx], effective),
		}
	}

	comparison := ""
	if len(ranked) >= 2 {
		improvement, tradeoff := compare(ranked[0], ranked[1])
		ranked[0].SafetyImprovementPercent = &improvement
		ranked[0].TimeTradeoffMinutes = &tradeoff
		comparison = s.explainer.Comparison(improvement, tradeoff)
	}

	cfg := s.scorer.Config()
	var allPoints []geo.Coordinate
	for _, r := range routes {
		allPoints = append(allPoints, r.Points...)
	}
	incidents := snapshot.IncidentsNear(allPoints, cfg.CorridorRadiusMeters)
	phones := snapshot.PhonesNear(allPoints, cfg.PhoneRadiusMeters)
	phoneCoords := make([]geo.Coordinate, 0, len(phones))
	for _, p := range phones {
		phoneCoords = append(phoneCoords, p.Location)
	}

	night := s.scorer.IsNight(at)

	var tips []safety.Tip
	if s.featureFlags == nil || !s.featureFlags.AreSafetyTipsDisabled(ctx) {
		topIncidents := snapshot.IncidentsNear(ranked[0].Route.Points, cfg.CorridorRadiusMeters)
		tips = s.explainer.BuildTips(topIncidents, night)
	}

	rec := &Recommendation{
		RequestID:       requestID,
		GeneratedAt:     time.Now().UTC(),
		Priority:        effective,
		Night:           night,
		Routes:          ranked,
		Explanation:     ranked[0].Explanation,
		Comparison:      comparison,
		Incidents:       incidents,
		EmergencyPhones: phoneCoords,
		Tips:            tips,
	}
	rec.PrimaryRecommendation = &rec.Routes[0]
	return rec
}

// encodeGeometry packs a path into an encoded polyline for map rendering.
func encodeGeometry(points []geo.Coordinate) string {
	coords := make([]polyline.Coordinate, len(points))
	for i, p := range points {
		coords[i] = polyline.Coordinate{Lat: p.Lat, Lon: p.Lon}
	}
	return polyline.Encode(coords)
}

// compare derives the top route's advantage over the runner-up. A positive
// tradeoff means the top route takes that many minutes longer.
func compare(top, runnerUp RankedRoute) (improvementPercent, tradeoffMinutes float64) {
	riskTop := float64(top.SafetyAnalysis.RiskScore)
	riskNext := float64(runnerUp.SafetyAnalysis.RiskScore)

	denom := riskNext
	if denom < 1 {
		denom = 1
	}
	improvementPercent = (riskNext - riskTop) / denom * 100
	tradeoffMinutes = top.DurationMinutes - runnerUp.DurationMinutes
	return improvementPercent, tradeoffMinutes
}
