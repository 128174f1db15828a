// Package safety implements the risk scoring model, ranking policies, and
// explanation templates for candidate routes.
package safety

import (
	"strings"
	"time"

	"github.com/saferoute/saferoute/pkg/geo"
)

// IncidentType classifies a reported incident.
type IncidentType string

const (
	IncidentTheft     IncidentType = "theft"
	IncidentAssault   IncidentType = "assault"
	IncidentVandalism IncidentType = "vandalism"
	IncidentOther     IncidentType = "other"
)

// NormalizeIncidentType maps a raw feed label onto the incident enum.
// Unrecognized labels become IncidentOther.
func NormalizeIncidentType(raw string) IncidentType {
	switch t := IncidentType(strings.ToLower(strings.TrimSpace(raw))); t {
	case IncidentTheft, IncidentAssault, IncidentVandalism:
		return t
	default:
		return IncidentOther
	}
}

// Severity grades an incident.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Weight returns the scoring multiplier for the severity grade.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

// Incident is a single report from the incident feed, treated as a static
// snapshot for the duration of a request.
type Incident struct {
	ID          string         `json:"id"`
	Type        IncidentType   `json:"type"`
	Location    geo.Coordinate `json:"location"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Description string         `json:"description,omitempty"`
	Severity    Severity       `json:"severity"`
}

// EmergencyPhone is a fixed emergency call box location.
type EmergencyPhone struct {
	ID       string         `json:"id"`
	Location geo.Coordinate `json:"location"`
	Name     string         `json:"name"`
}

// LightingQuality labels the lighting conditions along a route.
type LightingQuality string

const (
	LightingGood     LightingQuality = "good"
	LightingModerate LightingQuality = "moderate"
	LightingPoor     LightingQuality = "poor"
)

// PatrolFrequency labels patrol coverage along a route.
type PatrolFrequency string

const (
	PatrolHigh     PatrolFrequency = "high"
	PatrolModerate PatrolFrequency = "moderate"
	PatrolLow      PatrolFrequency = "low"
)

// RiskLevel buckets a risk score into a user-facing label.
type RiskLevel string

const (
	RiskVerySafe RiskLevel = "VerySafe"
	RiskSafe     RiskLevel = "Safe"
	RiskModerate RiskLevel = "Moderate"
	RiskCaution  RiskLevel = "Caution"
	RiskAvoid    RiskLevel = "Avoid"
)

// RiskLevelForScore maps a risk score onto its level. Boundaries are
// inclusive on the upper end of each bucket.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score <= 20:
		return RiskVerySafe
	case score <= 40:
		return RiskSafe
	case score <= 60:
		return RiskModerate
	case score <= 80:
		return RiskCaution
	default:
		return RiskAvoid
	}
}

// SafetyAnalysis is the scoring result for a single route. It is immutable
// once returned by the scorer.
type SafetyAnalysis struct {
	RiskScore           int             `json:"risk_score"`
	RiskLevel           RiskLevel       `json:"risk_level"`
	IncidentCount       int             `json:"incident_count"`
	EmergencyPhoneCount int             `json:"emergency_phone_count"`
	LightingQuality     LightingQuality `json:"lighting_quality"`
	PatrolFrequency     PatrolFrequency `json:"patrol_frequency"`

	// Concerns and Positives are ordered by contribution magnitude,
	// largest first.
	Concerns  []string `json:"concerns"`
	Positives []string `json:"positives"`

	// DataWarnings lists reference layers that were unavailable and
	// therefore contributed nothing to the score.
	DataWarnings []string `json:"data_warnings,omitempty"`
}

// Tip is an actionable safety advisory derived from incident patterns near
// the recommended route.
type Tip struct {
	Type         string `json:"type"` // "warning" or "advisory"
	Message      string `json:"message"`
	TriggerCrime string `json:"trigger_crime"`
}

// ZoneIndex answers point-in-zone containment queries against a reference
// layer (poor-lighting polygons, low-patrol polygons).
type ZoneIndex interface {
	Contains(c geo.Coordinate) bool
}

// Environment is the reference-data snapshot a route is scored against.
// A nil layer means the data source was unavailable; the scorer treats it
// as zero contribution and records a warning.
type Environment struct {
	// Incidents near the route corridor. The scorer applies exact
	// per-point distance and recency filtering; callers may pre-trim
	// with a spatial index.
	Incidents []Incident

	// Phones near the route corridor.
	Phones []EmergencyPhone

	// PoorLighting contains zones with inadequate lighting.
	PoorLighting ZoneIndex

	// LowPatrol contains zones with infrequent patrol coverage.
	LowPatrol ZoneIndex
}
