// Package recommend orchestrates a route recommendation request: destination
// resolution, candidate generation, per-route risk scoring, ranking, and
// response assembly.
package recommend

import (
	"errors"
	"time"

	"github.com/saferoute/saferoute/internal/geocoding"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/safety"
	"github.com/saferoute/saferoute/pkg/geo"
)

// Sentinel errors for the recommendation pipeline.
var (
	// ErrInvalidRequest indicates the request failed validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUpstreamUnavailable indicates a required external dependency failed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Destination is either a resolved coordinate or free text to resolve.
type Destination struct {
	Coordinate *geo.Coordinate
	Text       string
}

// Request describes one recommendation request.
type Request struct {
	Origin      geo.Coordinate
	Destination Destination
	Mode        routing.Mode
	Priority    safety.Priority

	// At is the time the trip starts. Zero means now.
	At time.Time

	// Concerns are user-stated preferences, advisory only.
	Concerns []string
}

// RankedRoute is one candidate in rank order.
type RankedRoute struct {
	Rank            int                    `json:"rank"`
	Route           routing.Route          `json:"route"`
	SafetyAnalysis  *safety.SafetyAnalysis `json:"safety_analysis"`
	Geometry        string                 `json:"geometry"`
	DistanceMeters  float64                `json:"distance_meters"`
	DurationMinutes float64                `json:"duration_minutes"`
	Explanation     string                 `json:"explanation"`

	// Populated only on the top-ranked entry when a runner-up exists.
	SafetyImprovementPercent *float64 `json:"safety_improvement_percent,omitempty"`
	TimeTradeoffMinutes      *float64 `json:"time_tradeoff_minutes,omitempty"`
}

// Recommendation is the assembled response for one request.
type Recommendation struct {
	RequestID   string    `json:"request_id"`
	GeneratedAt time.Time `json:"generated_at"`

	// Priority is the effective ranking policy after any night promotion.
	Priority safety.Priority `json:"priority"`
	Night    bool            `json:"night"`

	Routes []RankedRoute `json:"routes"`

	// PrimaryRecommendation aliases Routes[0].
	PrimaryRecommendation *RankedRoute `json:"primary_recommendation"`

	Explanation string `json:"explanation"`
	Comparison  string `json:"comparison,omitempty"`

	// Incidents and EmergencyPhones near the candidate routes, for map
	// rendering.
	Incidents       []safety.Incident `json:"incidents"`
	EmergencyPhones []geo.Coordinate  `json:"emergency_phones"`

	Tips []safety.Tip `json:"tips,omitempty"`
}

// Outcome is the result of a recommendation request. Exactly one field is
// non-nil: a disambiguation is a pending state, not an error.
type Outcome struct {
	Recommendation *Recommendation      `json:"recommendation,omitempty"`
	Disambiguation *geocoding.Ambiguity `json:"disambiguation,omitempty"`
}
